package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_sniper/models"
	"auto_sniper/storage"
)

type fakeStore struct {
	queued   []*models.SearchJob
	results  map[uuid.UUID]*models.SearchResult
	failNext error
	pingErr  error
}

func (s *fakeStore) EnqueueSearch(_ context.Context, job *models.SearchJob) error {
	if s.failNext != nil {
		return s.failNext
	}
	job.ID, job.SearchID = uuid.New(), uuid.New()
	job.Status = models.JobStatusPending
	s.queued = append(s.queued, job)
	return nil
}

func (s *fakeStore) GetSearch(_ context.Context, id uuid.UUID) (*models.SearchResult, error) {
	if r, ok := s.results[id]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

type fakeWorker struct {
	paused bool
}

func (w *fakeWorker) Pause()  { w.paused = true }
func (w *fakeWorker) Resume() { w.paused = false }
func (w *fakeWorker) MarshalStatus() ([]byte, error) {
	return json.Marshal(map[string]any{"paused": w.paused})
}

func newTestServer(store *fakeStore, worker *fakeWorker) *Server {
	return NewServer(0, NewHandler(store, worker))
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestQueue(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store, &fakeWorker{})

	rec := do(t, s, http.MethodPost, "/queue",
		`{"query":{"brand":"Skoda","model":"Octavia","year":2015,"location":{"lat":50.06,"lon":19.94}},"userEmail":"jan@example.pl"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, store.queued, 1)
	job := store.queued[0]

	assert.True(t, resp.Success)
	assert.Equal(t, job.SearchID.String(), resp.SearchID)
	assert.Equal(t, "searches/"+resp.SearchID, resp.DBPath)
	assert.Equal(t, "Queued. Results will be available at /searches/"+resp.SearchID+" when done.", resp.Message)
	assert.Equal(t, models.PlatformAll, job.Platform)
	assert.Equal(t, "Octavia", job.Query.Model)
	assert.Equal(t, 19.94, job.Query.Location.Lon)
}

func TestQueueValidation(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store, &fakeWorker{})

	for name, body := range map[string]string{
		"missing query": `{"userEmail":"jan@example.pl"}`,
		"missing email": `{"query":{"brand":"Skoda"}}`,
		"not json":      `{`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/queue", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
	assert.Empty(t, store.queued)
}

func TestQueueStoreFailure(t *testing.T) {
	s := newTestServer(&fakeStore{failNext: errors.New("pool closed")}, &fakeWorker{})

	rec := do(t, s, http.MethodPost, "/queue", `{"query":{"brand":"Skoda"},"platform":"olx","userEmail":"jan@example.pl"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to queue"}`, rec.Body.String())
}

func TestGetSearch(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{results: map[uuid.UUID]*models.SearchResult{
		id: {
			Job:      models.SearchJob{SearchID: id, Status: models.JobStatusCompleted},
			Listings: []models.AnalyzedListing{{Fitness: models.Fitness{Total: 0.8}}},
		},
	}}
	s := newTestServer(store, &fakeWorker{})

	rec := do(t, s, http.MethodGet, "/searches/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.JobStatusCompleted, got.Job.Status)
	require.Len(t, got.Listings, 1)
	assert.Equal(t, 0.8, got.Listings[0].Fitness.Total)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/searches/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/searches/not-a-uuid", "").Code)
}

func TestHealthAndPause(t *testing.T) {
	store := &fakeStore{}
	worker := &fakeWorker{}
	s := newTestServer(store, worker)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"paused":false}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, "/pause", "").Code)
	assert.True(t, worker.paused)
	assert.JSONEq(t, `{"paused":true}`, do(t, s, http.MethodGet, "/health", "").Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, "/resume", "").Code)
	assert.False(t, worker.paused)

	store.pingErr = errors.New("down")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/health", "").Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestServer(&fakeStore{}, &fakeWorker{}), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}
