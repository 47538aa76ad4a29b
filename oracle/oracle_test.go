package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_sniper/httputil"
	"auto_sniper/models"
)

func chatServer(t *testing.T, reply string, status int) (*httptest.Server, *ChatRequest) {
	t.Helper()
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newOracles(t *testing.T, srv *httptest.Server) *AIOracles {
	t.Helper()
	chat, err := NewChatClient(srv.URL+"/v1", "secret", "test-model",
		WithHTTPClient(srv.Client()),
		WithRetry(httputil.Retry{Attempts: 2, Delay: time.Millisecond}))
	require.NoError(t, err)
	return NewAIOracles(chat)
}

func TestMatchLooksSendsImageAndParsesJSON(t *testing.T) {
	srv, got := chatServer(t, `{"score": 0.5, "reasoning": "dark red"}`, http.StatusOK)
	ai := newOracles(t, srv)

	score, err := ai.MatchLooks(context.Background(), "https://img/1.jpg", "red car")
	require.NoError(t, err)
	assert.Equal(t, 0.5, score.Value)
	assert.Equal(t, "dark red", score.Explanation)
	assert.Equal(t, "test-model", got.Model)

	parts, ok := got.Messages[0].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
}

func TestMatchLooksRejectsProse(t *testing.T) {
	srv, _ := chatServer(t, "I think it is 0.7", http.StatusOK)
	ai := newOracles(t, srv)

	_, err := ai.MatchLooks(context.Background(), "https://img/1.jpg", "red car")
	assert.True(t, IsValidation(err))
}

func TestMatchDescriptionParsesBareNumber(t *testing.T) {
	srv, _ := chatServer(t, " 0.83\n", http.StatusOK)
	ai := newOracles(t, srv)

	score, err := ai.MatchDescription(context.Background(), "diesel kombi", "Passat B8 kombi 2.0 TDI")
	require.NoError(t, err)
	assert.InDelta(t, 0.83, score.Value, 1e-9)
}

func TestNumericScoreValidation(t *testing.T) {
	for _, in := range []string{"", "high", "NaN", "0.8 because"} {
		_, err := parseNumericScore(in)
		assert.True(t, IsValidation(err), in)
	}
}

func TestHistoryOraclesNeedCompleteHistory(t *testing.T) {
	srv, _ := chatServer(t, "0.9", http.StatusOK)
	ai := newOracles(t, srv)

	_, err := ai.HistoryQuality(context.Background(), &models.CarHistory{})
	assert.True(t, IsValidation(err))

	h := &models.CarHistory{TechnicalData: &models.TechnicalData{}, EventSummary: &models.EventSummary{OwnersCount: 1}}
	score, err := ai.GovDataMatch(context.Background(), h, "one owner")
	require.NoError(t, err)
	assert.Equal(t, 0.9, score.Value)
}

func TestParseFilterDecision(t *testing.T) {
	d, err := parseFilterDecision(`{"showToUser": true, "score": 86.361, "explanation": "good deal"}`)
	require.NoError(t, err)
	assert.True(t, d.ShowToUser)
	assert.Equal(t, 86.361, d.Score)

	_, err = parseFilterDecision(`{"showToUser": "yes", "score": 10}`)
	assert.True(t, IsValidation(err))
	_, err = parseFilterDecision(`{"score": 10}`)
	assert.True(t, IsValidation(err))
	_, err = parseFilterDecision(`{"showToUser": false}`)
	assert.True(t, IsValidation(err))
}

func TestChatClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ai := newOracles(t, srv)
	_, err := ai.MatchDescription(context.Background(), "a", "b")
	assert.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChatClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ai := newOracles(t, srv)
	_, err := ai.MatchDescription(context.Background(), "a", "b")
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNominatimGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if r.URL.Query().Get("q") == "Kraków, Polska" {
			_, _ = w.Write([]byte(`[{"lat":"50.0619474","lon":"19.9368564","display_name":"Kraków"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	n, err := NewNominatim(srv.URL, srv.Client())
	require.NoError(t, err)

	places, err := n.Geocode(context.Background(), "Kraków, Polska")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "50.0619474", places[0].Lat)

	places, err = n.Geocode(context.Background(), "Atlantis, Polska")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestParseHistoryReport(t *testing.T) {
	f, err := os.Open("testdata/history_report.html")
	require.NoError(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)

	h := ParseHistoryReport(doc)
	require.True(t, h.Complete())
	assert.Equal(t, "1968 cm3", h.TechnicalData.EngineCapacity)
	assert.Equal(t, "110 kW", h.TechnicalData.EnginePower)
	assert.Equal(t, "olej napędowy", h.TechnicalData.FuelType)
	assert.Equal(t, 5, h.TechnicalData.TotalSeats)
	assert.Equal(t, 2, h.TechnicalData.AxlesCount)
	assert.Equal(t, "10,5 kN", h.TechnicalData.MaxAxlePressure)

	assert.Equal(t, 2, h.EventSummary.OwnersCount)
	assert.Equal(t, 1, h.EventSummary.CoOwnersCount)
	assert.Equal(t, "MAŁOPOLSKIE", h.EventSummary.RegistrationProvince)
	assert.Equal(t, "AKTUALNA", h.EventSummary.CurrentInsurance.Status)
	assert.Equal(t, "154 300 km", h.EventSummary.CurrentTechnicalInspection.LastOdometerReading)
	assert.Equal(t, 1, h.EventSummary.CurrentOwnersCount)
}

func TestParseHistoryReportWithoutSections(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>Nie znaleziono pojazdu</p></body></html>"))
	require.NoError(t, err)

	h := ParseHistoryReport(doc)
	assert.Nil(t, h.TechnicalData)
	assert.Nil(t, h.EventSummary)
	assert.False(t, h.Complete())
}

func TestGovHistoryClientLookup(t *testing.T) {
	report, err := os.ReadFile("testdata/history_report.html")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "KR12345", q.Get("registrationNumber"))
		assert.Equal(t, "WVWZZZ3CZJE000001", q.Get("VINNumber"))
		assert.Equal(t, "01.02.2018", q.Get("firstRegistrationDate"))
		_, _ = w.Write(report)
	}))
	defer srv.Close()

	c, err := NewGovHistoryClient(srv.URL+"/historia", srv.Client())
	require.NoError(t, err)

	h, err := c.Lookup(context.Background(), "KR12345", "WVWZZZ3CZJE000001", "01.02.2018")
	require.NoError(t, err)
	assert.True(t, h.Complete())
}
