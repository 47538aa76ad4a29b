package services

import (
	"encoding/json"

	"auto_sniper/models"
)

// ScoreStats tracks how many listings of a search had each optional signal.
type ScoreStats struct {
	Listings        int
	WithDistance    int
	WithLooks       int
	WithDescription int
	WithHistory     int
	WithGovData     int
	WithLanguage    int
	BestTotal       float64
}

// Aggregate adds one listing's fitness to the stats
func (s *ScoreStats) Aggregate(f models.Fitness) {
	s.Listings++
	if f.Distance.Available() {
		s.WithDistance++
	}
	if f.Looks.Available() {
		s.WithLooks++
	}
	if f.Description.Available() {
		s.WithDescription++
	}
	if f.HistoryQuality.Available() {
		s.WithHistory++
	}
	if f.GovDataMatch.Available() {
		s.WithGovData++
	}
	if f.Language.Available() {
		s.WithLanguage++
	}
	if s.Listings == 1 || f.Total > s.BestTotal {
		s.BestTotal = f.Total
	}
}

// ToJSON returns JSON-serializable metadata
func (s *ScoreStats) ToJSON() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"listings":         s.Listings,
		"with_distance":    s.WithDistance,
		"with_looks":       s.WithLooks,
		"with_description": s.WithDescription,
		"with_history":     s.WithHistory,
		"with_gov_data":    s.WithGovData,
		"with_language":    s.WithLanguage,
		"best_total":       s.BestTotal,
	})
	return data
}
