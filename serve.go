package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"auto_sniper/api"
	"auto_sniper/scheduler"
	"auto_sniper/scraper"
	"auto_sniper/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the search queue worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int("sites", len(cfg.Sites)).Msg("starting auto_sniper")

	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pgStore.Close()
	log.Info().Str("url", maskConnectionString(cfg.Database.URL)).Msg("connected to postgres")

	sqliteStore, err := storage.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer sqliteStore.Close()
	log.Info().Str("path", cfg.Database.SQLitePath).Msg("sqlite run log")

	p, err := newPipeline(ctx, cfg, sqliteStore, true)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := []scraper.OrchestratorOption{scraper.WithRunLog(sqliteStore)}
	if len(cfg.Sites) > 0 {
		enricher := scraper.NewDescriptionEnricher(cfg, p.clients.Scraping, cfg.Pipeline.DescriptionBatchSize)
		opts = append(opts, scraper.WithEnricher(enricher))
	}
	if p.prefilter != nil {
		opts = append(opts, scraper.WithPreFilter(p.prefilter))
	}
	orchestrator := scraper.NewOrchestrator(scraper.NewDirSource(cfg.Pipeline.ListingsDir), p.processor, p.analyzer, opts...)

	sched := scheduler.New(cfg.Scheduler, pgStore, orchestrator)
	if cfg.S3.Bucket != "" {
		reports, err := storage.NewReportStore(ctx, storage.S3Config(cfg.S3))
		if err != nil {
			return fmt.Errorf("report store: %w", err)
		}
		sched.SetPublisher(reports)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("reports are published to S3")
	}

	// A single worker owns the queue, so anything still processing was
	// interrupted by the previous shutdown.
	if n, err := pgStore.RequeueStale(ctx, 0); err != nil {
		log.Warn().Err(err).Msg("failed to requeue interrupted searches")
	} else if n > 0 {
		log.Info().Int64("searches", n).Msg("requeued interrupted searches")
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	server := api.NewServer(cfg.API.Port, api.NewHandler(pgStore, orchestrator))

	err = server.Run(ctx)

	log.Info().Msg("shutting down")
	return err
}
