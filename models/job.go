package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// PlatformAll searches every supported marketplace.
const PlatformAll = "all"

// SearchJob is a queued search request.
type SearchJob struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	SearchID   uuid.UUID   `json:"searchId" db:"search_id"`
	Query      SearchQuery `json:"query" db:"query"`
	Platform   string      `json:"platform" db:"platform"`
	UserEmail  string      `json:"userEmail" db:"user_email"`
	Status     JobStatus   `json:"status" db:"status"`
	Error      string      `json:"error,omitempty" db:"error"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
	StartedAt  *time.Time  `json:"startedAt,omitempty" db:"started_at"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty" db:"finished_at"`
}

// SearchResult is a finished search with its ranked listings.
type SearchResult struct {
	Job      SearchJob         `json:"job"`
	Listings []AnalyzedListing `json:"listings"`
}
