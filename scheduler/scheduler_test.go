package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_sniper/config"
	"auto_sniper/models"
)

type fakeQueue struct {
	mu        sync.Mutex
	pending   []*models.SearchJob
	completed map[uuid.UUID][]models.AnalyzedListing
	failed    map[uuid.UUID]string
	claimErr  error
}

func newFakeQueue(jobs ...*models.SearchJob) *fakeQueue {
	return &fakeQueue{
		pending:   jobs,
		completed: make(map[uuid.UUID][]models.AnalyzedListing),
		failed:    make(map[uuid.UUID]string),
	}
}

func (q *fakeQueue) ClaimNextSearch(context.Context) (*models.SearchJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	if len(q.pending) == 0 {
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	job.Status = models.JobStatusProcessing
	return job, nil
}

func (q *fakeQueue) CompleteSearch(_ context.Context, id uuid.UUID, listings []models.AnalyzedListing) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed[id] = listings
	return nil
}

func (q *fakeQueue) FailSearch(_ context.Context, id uuid.UUID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = reason
	return nil
}

func (q *fakeQueue) RequeueStale(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

type fakeRunner struct {
	paused  bool
	err     error
	block   chan struct{}
	started chan struct{}
}

func (r *fakeRunner) RunSearch(_ context.Context, job models.SearchJob) ([]models.AnalyzedListing, error) {
	if r.started != nil {
		close(r.started)
	}
	if r.block != nil {
		<-r.block
	}
	if r.err != nil {
		return nil, r.err
	}
	return []models.AnalyzedListing{{Fitness: models.Fitness{Total: 0.7}}}, nil
}

func (r *fakeRunner) IsPaused() bool { return r.paused }

type fakePublisher struct {
	results []*models.SearchResult
}

func (p *fakePublisher) Publish(_ context.Context, r *models.SearchResult) (string, error) {
	p.results = append(p.results, r)
	return "https://reports/" + r.Job.SearchID.String(), nil
}

func job() *models.SearchJob {
	return &models.SearchJob{ID: uuid.New(), SearchID: uuid.New(), UserEmail: "a@b.pl", Query: models.SearchQuery{Brand: "Skoda"}}
}

func TestTickCompletesSearch(t *testing.T) {
	j := job()
	q := newFakeQueue(j)
	pub := &fakePublisher{}
	s := New(config.SchedulerConfig{}, q, &fakeRunner{})
	s.SetPublisher(pub)

	assert.True(t, s.Tick(context.Background()))
	require.Len(t, q.completed[j.ID], 1)
	require.Len(t, pub.results, 1)
	assert.Equal(t, models.JobStatusCompleted, pub.results[0].Job.Status)

	assert.False(t, s.Tick(context.Background()), "queue is empty")
}

func TestTickRecordsFailure(t *testing.T) {
	j := job()
	q := newFakeQueue(j)
	s := New(config.SchedulerConfig{}, q, &fakeRunner{err: errors.New("analyze listings: fitness weights sum to zero")})

	assert.True(t, s.Tick(context.Background()))
	assert.Equal(t, "analyze listings: fitness weights sum to zero", q.failed[j.ID])
	assert.Empty(t, q.completed)
}

func TestTickSkipsWhenPausedOrClaimFails(t *testing.T) {
	q := newFakeQueue(job())
	assert.False(t, New(config.SchedulerConfig{}, q, &fakeRunner{paused: true}).Tick(context.Background()))
	assert.Len(t, q.pending, 1)

	q.claimErr = errors.New("connection reset")
	assert.False(t, New(config.SchedulerConfig{}, q, &fakeRunner{}).Tick(context.Background()))
}

func TestTickSkipsWhileRunning(t *testing.T) {
	q := newFakeQueue(job(), job())
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan struct{})}
	s := New(config.SchedulerConfig{}, q, runner)

	done := make(chan bool)
	go func() { done <- s.Tick(context.Background()) }()
	<-runner.started

	assert.False(t, s.Tick(context.Background()))
	close(runner.block)
	assert.True(t, <-done)
	assert.Len(t, q.pending, 1)
}

func TestSchedule(t *testing.T) {
	assert.Equal(t, "@every 5s", New(config.SchedulerConfig{}, nil, nil).schedule())
	assert.Equal(t, "@every 1m0s", New(config.SchedulerConfig{Interval: time.Minute}, nil, nil).schedule())
	assert.Equal(t, "*/2 * * * *", New(config.SchedulerConfig{Cron: "*/2 * * * *", Interval: time.Minute}, nil, nil).schedule())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "not a schedule"}, newFakeQueue(), &fakeRunner{})
	assert.Error(t, s.Start(context.Background()))
}
