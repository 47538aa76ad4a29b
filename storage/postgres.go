package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"auto_sniper/models"
)

// ErrNotFound is returned when a search does not exist.
var ErrNotFound = errors.New("not found")

// PostgresStore is the search queue and result store shared by the API and
// the queue worker.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS searches (
			id UUID PRIMARY KEY,
			search_id UUID NOT NULL UNIQUE,
			query JSONB NOT NULL,
			platform TEXT NOT NULL DEFAULT 'all',
			user_email TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			results JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_searches_queue ON searches(status, created_at);`)
	return err
}

const searchColumns = `id, search_id, query, platform, user_email, status, COALESCE(error, ''),
	created_at, started_at, finished_at`

func scanSearch(row pgx.Row, extra ...any) (*models.SearchJob, error) {
	var job models.SearchJob
	var query []byte
	dest := append([]any{
		&job.ID, &job.SearchID, &query, &job.Platform, &job.UserEmail, &job.Status, &job.Error,
		&job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(query, &job.Query); err != nil {
		return nil, fmt.Errorf("decode query of %s: %w", job.SearchID, err)
	}
	return &job, nil
}

// =============================================================================
// Queue
// =============================================================================

// EnqueueSearch stores a new pending search and fills in its identifiers.
func (s *PostgresStore) EnqueueSearch(ctx context.Context, job *models.SearchJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SearchID == uuid.Nil {
		job.SearchID = uuid.New()
	}
	if job.Platform == "" {
		job.Platform = models.PlatformAll
	}
	job.Status = models.JobStatusPending

	query, err := json.Marshal(job.Query)
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO searches (id, search_id, query, platform, user_email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		job.ID, job.SearchID, query, job.Platform, job.UserEmail, job.Status,
	).Scan(&job.CreatedAt)
}

// ClaimNextSearch moves the oldest pending search to processing. It returns
// nil when the queue is empty. Concurrent workers never claim the same row.
func (s *PostgresStore) ClaimNextSearch(ctx context.Context) (*models.SearchJob, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE searches SET status = $1, started_at = NOW()
		WHERE id = (
			SELECT id FROM searches
			WHERE status = $2
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+searchColumns,
		models.JobStatusProcessing, models.JobStatusPending)

	job, err := scanSearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// CompleteSearch stores the ranked listings of a finished search.
func (s *PostgresStore) CompleteSearch(ctx context.Context, id uuid.UUID, listings []models.AnalyzedListing) error {
	if listings == nil {
		listings = []models.AnalyzedListing{}
	}
	results, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE searches SET status = $2, results = $3, finished_at = NOW(), error = NULL
		WHERE id = $1`,
		id, models.JobStatusCompleted, results)
	return err
}

func (s *PostgresStore) FailSearch(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE searches SET status = $2, error = $3, finished_at = NOW()
		WHERE id = $1`,
		id, models.JobStatusFailed, reason)
	return err
}

// RequeueStale returns searches stuck in processing for longer than
// staleAfter to the queue, e.g. after a worker crash.
func (s *PostgresStore) RequeueStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE searches SET status = $1, started_at = NULL
		WHERE status = $2 AND started_at < $3`,
		models.JobStatusPending, models.JobStatusProcessing, time.Now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =============================================================================
// Results
// =============================================================================

// GetSearch returns a search by its public id with whatever results it has.
func (s *PostgresStore) GetSearch(ctx context.Context, searchID uuid.UUID) (*models.SearchResult, error) {
	var results []byte
	row := s.pool.QueryRow(ctx, `
		SELECT `+searchColumns+`, results
		FROM searches WHERE search_id = $1`, searchID)

	job, err := scanSearch(row, &results)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res := &models.SearchResult{Job: *job}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &res.Listings); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", searchID, err)
		}
	}
	return res, nil
}
