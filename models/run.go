package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SearchRun records one pipeline execution in the operational database.
type SearchRun struct {
	ID               int64      `json:"id" db:"id"`
	SearchID         string     `json:"search_id" db:"search_id"`
	Platform         string     `json:"platform" db:"platform"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at" db:"finished_at"`
	Status           RunStatus  `json:"status" db:"status"`
	ListingsFound    int        `json:"listings_found" db:"listings_found"`
	ListingsMerged   int        `json:"listings_merged" db:"listings_merged"`
	ListingsHidden   int        `json:"listings_hidden" db:"listings_hidden"`
	ListingsAnalyzed int        `json:"listings_analyzed" db:"listings_analyzed"`
	ErrorsCount      int        `json:"errors_count" db:"errors_count"`
}

// FilterVerdict is the pre-filter outcome for one listing.
type FilterVerdict struct {
	Link        string  `json:"link" db:"link"`
	Title       string  `json:"title" db:"title"`
	ShowToUser  bool    `json:"showToUser" db:"show_to_user"`
	Score       float64 `json:"score" db:"score"`
	Explanation string  `json:"explanation" db:"explanation"`
}
