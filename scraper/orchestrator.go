package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"auto_sniper/models"
	"auto_sniper/services"
	"auto_sniper/storage"
)

// Orchestrator runs a search end to end: load listings, fetch missing
// descriptions, merge and enrich, pre-filter, score and rank.
type Orchestrator struct {
	source    Source
	enricher  *DescriptionEnricher
	processor *services.Processor
	prefilter *services.PreFilter
	analyzer  *services.Analyzer
	store     *storage.SQLiteStore
	paused    atomic.Bool
}

type OrchestratorOption func(*Orchestrator)

// WithEnricher fetches detail pages for listings without a description.
func WithEnricher(e *DescriptionEnricher) OrchestratorOption {
	return func(o *Orchestrator) { o.enricher = e }
}

// WithPreFilter drops listings the AI filter rejects before scoring.
func WithPreFilter(p *services.PreFilter) OrchestratorOption {
	return func(o *Orchestrator) { o.prefilter = p }
}

// WithRunLog records every run and its log lines in SQLite.
func WithRunLog(store *storage.SQLiteStore) OrchestratorOption {
	return func(o *Orchestrator) { o.store = store }
}

func NewOrchestrator(source Source, processor *services.Processor, analyzer *services.Analyzer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		processor: processor,
		analyzer:  analyzer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunSearch executes the whole pipeline for one queued search and returns
// the listings ranked best first.
func (o *Orchestrator) RunSearch(ctx context.Context, job models.SearchJob) ([]models.AnalyzedListing, error) {
	searchID := job.SearchID.String()
	platform := job.Platform
	if platform == "" {
		platform = models.PlatformAll
	}

	run := &models.SearchRun{
		SearchID:  searchID,
		Platform:  platform,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	o.startRun(run)

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if o.store != nil && run.ID != 0 {
			if err := o.store.UpdateRun(run); err != nil {
				log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to update run")
			}
		}
	}()

	o.log(run, zerolog.InfoLevel, fmt.Sprintf("Starting search %s %s %d on %s", job.Query.Brand, job.Query.Model, job.Query.Year, platform))

	listings, err := o.source.Fetch(ctx, job.Query, platform)
	if err != nil {
		return nil, o.fail(run, "load listings", err)
	}
	run.ListingsFound = len(listings)
	o.log(run, zerolog.InfoLevel, fmt.Sprintf("Loaded %d listings", len(listings)))

	if o.enricher != nil {
		o.enricher.Enrich(ctx, listings)
	}

	processed, err := o.processor.Process(ctx, listings, job.Query)
	if err != nil {
		return nil, o.fail(run, "process listings", err)
	}
	run.ListingsMerged = len(processed)

	if o.prefilter != nil {
		kept, verdicts := o.prefilter.Apply(ctx, processed, job.Query)
		run.ListingsHidden = len(processed) - len(kept)
		processed = kept
		o.saveVerdicts(run, verdicts)
		o.log(run, zerolog.InfoLevel, fmt.Sprintf("Pre-filter kept %d, hid %d", len(kept), run.ListingsHidden))
	}

	analyzed, err := o.analyzer.Analyze(ctx, processed, job.Query)
	if err != nil {
		return nil, o.fail(run, "analyze listings", err)
	}
	services.Rank(analyzed)
	run.ListingsAnalyzed = len(analyzed)

	stats := &services.ScoreStats{}
	for _, a := range analyzed {
		stats.Aggregate(a.Fitness)
	}

	run.Status = models.RunStatusCompleted
	o.log(run, zerolog.InfoLevel, fmt.Sprintf("Completed: %d found, %d merged, %d hidden, %d ranked %s",
		run.ListingsFound, run.ListingsMerged, run.ListingsHidden, run.ListingsAnalyzed, stats.ToJSON()))

	return analyzed, nil
}

func (o *Orchestrator) startRun(run *models.SearchRun) {
	if o.store == nil {
		return
	}
	id, err := o.store.CreateRun(run)
	if err != nil {
		log.Warn().Err(err).Str("search_id", run.SearchID).Msg("failed to create run")
		return
	}
	run.ID = id
}

func (o *Orchestrator) fail(run *models.SearchRun, stage string, err error) error {
	run.ErrorsCount++
	run.Status = models.RunStatusFailed
	o.log(run, zerolog.ErrorLevel, fmt.Sprintf("%s failed: %v", stage, err))
	return fmt.Errorf("%s: %w", stage, err)
}

func (o *Orchestrator) saveVerdicts(run *models.SearchRun, verdicts []models.FilterVerdict) {
	if o.store == nil || run.ID == 0 {
		return
	}
	if err := o.store.SaveVerdicts(run.ID, verdicts); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to save filter verdicts")
	}
}

var runLogLevels = map[zerolog.Level]models.LogLevel{
	zerolog.InfoLevel:  models.LogLevelInfo,
	zerolog.WarnLevel:  models.LogLevelWarn,
	zerolog.ErrorLevel: models.LogLevelError,
}

func (o *Orchestrator) log(run *models.SearchRun, level zerolog.Level, message string) {
	log.WithLevel(level).Str("search_id", run.SearchID).Msg(message)
	if o.store == nil || run.ID == 0 {
		return
	}
	if err := o.store.Log(&run.ID, runLogLevels[level], message, run.SearchID); err != nil {
		log.Warn().Err(err).Msg("failed to write run log")
	}
}

func (o *Orchestrator) Pause() {
	o.paused.Store(true)
	log.Info().Msg("search worker paused")
}

func (o *Orchestrator) Resume() {
	o.paused.Store(false)
	log.Info().Msg("search worker resumed")
}

func (o *Orchestrator) IsPaused() bool {
	return o.paused.Load()
}

func (o *Orchestrator) MarshalStatus() ([]byte, error) {
	status := map[string]any{
		"paused":    o.IsPaused(),
		"platforms": Platforms,
	}
	if o.store != nil {
		last, err := o.store.GetLastRunTime("")
		if err != nil {
			return nil, fmt.Errorf("last run: %w", err)
		}
		if !last.IsZero() {
			status["last_completed_run"] = last
		}
	}
	return json.Marshal(status)
}
