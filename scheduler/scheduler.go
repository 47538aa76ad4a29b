package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"auto_sniper/config"
	"auto_sniper/models"
)

const (
	requeueSchedule = "@every 10m"
	staleAfter      = 30 * time.Minute
)

// Queue is the persistent search queue.
type Queue interface {
	ClaimNextSearch(ctx context.Context) (*models.SearchJob, error)
	CompleteSearch(ctx context.Context, id uuid.UUID, listings []models.AnalyzedListing) error
	FailSearch(ctx context.Context, id uuid.UUID, reason string) error
	RequeueStale(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// Runner executes one search.
type Runner interface {
	RunSearch(ctx context.Context, job models.SearchJob) ([]models.AnalyzedListing, error)
	IsPaused() bool
}

// Publisher makes a finished search report available to the user.
type Publisher interface {
	Publish(ctx context.Context, result *models.SearchResult) (string, error)
}

// Scheduler polls the queue and runs one search at a time.
type Scheduler struct {
	cfg       config.SchedulerConfig
	queue     Queue
	runner    Runner
	publisher Publisher
	cron      *cron.Cron
	running   atomic.Bool
}

func New(cfg config.SchedulerConfig, queue Queue, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		queue:  queue,
		runner: runner,
		cron:   cron.New(),
	}
}

// SetPublisher uploads a report for every completed search.
func (s *Scheduler) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Scheduler) schedule() string {
	if s.cfg.Cron != "" {
		return s.cfg.Cron
	}
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return "@every " + interval.String()
}

func (s *Scheduler) Start(ctx context.Context) error {
	schedule := s.schedule()
	log.Info().Str("schedule", schedule).Msg("starting queue worker")

	if _, err := s.cron.AddFunc(schedule, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc(requeueSchedule, func() { s.requeueStale(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for a running search to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Tick claims and runs the next pending search. Ticks that arrive while a
// search is still running are skipped. It reports whether a search ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	defer s.running.Store(false)

	if s.runner.IsPaused() {
		return false
	}

	job, err := s.queue.ClaimNextSearch(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to claim search")
		return false
	}
	if job == nil {
		return false
	}

	if err := s.RunJob(ctx, job); err != nil {
		log.Error().Err(err).Str("search_id", job.SearchID.String()).Msg("search failed")
	}
	return true
}

// RunJob runs a claimed search and records its outcome in the queue.
func (s *Scheduler) RunJob(ctx context.Context, job *models.SearchJob) error {
	start := time.Now()
	logger := log.With().Str("search_id", job.SearchID.String()).Str("user", job.UserEmail).Logger()
	logger.Info().Str("brand", job.Query.Brand).Str("model", job.Query.Model).Msg("search started")

	ranked, err := s.runner.RunSearch(ctx, *job)
	if err != nil {
		if ferr := s.queue.FailSearch(ctx, job.ID, err.Error()); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to mark search failed")
		}
		return err
	}

	if err := s.queue.CompleteSearch(ctx, job.ID, ranked); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	logger.Info().Int("listings", len(ranked)).Dur("took", time.Since(start)).Msg("search completed")

	if s.publisher != nil {
		now := time.Now()
		job.Status = models.JobStatusCompleted
		job.FinishedAt = &now
		url, err := s.publisher.Publish(ctx, &models.SearchResult{Job: *job, Listings: ranked})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to publish report")
		} else {
			logger.Info().Str("url", url).Msg("report published")
		}
	}
	return nil
}

func (s *Scheduler) requeueStale(ctx context.Context) {
	n, err := s.queue.RequeueStale(ctx, staleAfter)
	if err != nil {
		log.Error().Err(err).Msg("failed to requeue stale searches")
		return
	}
	if n > 0 {
		log.Warn().Int64("searches", n).Msg("requeued stale searches")
	}
}
