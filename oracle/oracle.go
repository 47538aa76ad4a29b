// Package oracle holds the contracts and HTTP clients for the external
// services the scoring pipeline consults: geocoding, vehicle history and the
// AI matchers.
package oracle

import (
	"context"

	"auto_sniper/models"
)

// Place is a geocoder hit. Coordinates are kept as the strings the service
// returned.
type Place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Score is a bounded judgment plus the oracle's explanation.
type Score struct {
	Value       float64
	Explanation string
}

// FilterDecision is the AI pre-filter verdict. Score is on a 0-100 scale.
type FilterDecision struct {
	ShowToUser  bool    `json:"showToUser"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type Geocoder interface {
	// Geocode returns matching places, best first. An empty slice means
	// the place is unknown and is not an error.
	Geocode(ctx context.Context, query string) ([]Place, error)
}

type HistoryLookup interface {
	Lookup(ctx context.Context, plate, vin, firstRegistration string) (*models.CarHistory, error)
}

type LooksMatcher interface {
	MatchLooks(ctx context.Context, imageURL, preference string) (Score, error)
}

type DescriptionMatcher interface {
	MatchDescription(ctx context.Context, preference, description string) (Score, error)
}

type HistoryAnalyzer interface {
	HistoryQuality(ctx context.Context, h *models.CarHistory) (Score, error)
	GovDataMatch(ctx context.Context, h *models.CarHistory, preference string) (Score, error)
}

type ListingFilter interface {
	Filter(ctx context.Context, listing models.ProcessedListing, q models.SearchQuery) (FilterDecision, error)
}
