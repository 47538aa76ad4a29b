package services

import (
	"context"
	"errors"
	"sync"

	"auto_sniper/geo"
	"auto_sniper/models"
	"auto_sniper/oracle"
)

type fakeLooks struct {
	score oracle.Score
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeLooks) MatchLooks(context.Context, string, string) (oracle.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.score, f.err
}

type fakeDescription struct {
	score oracle.Score
	err   error
	calls int
}

func (f *fakeDescription) MatchDescription(context.Context, string, string) (oracle.Score, error) {
	f.calls++
	return f.score, f.err
}

type fakeHistoryAnalyzer struct {
	quality, govData oracle.Score
	qualityErr       error
}

func (f *fakeHistoryAnalyzer) HistoryQuality(context.Context, *models.CarHistory) (oracle.Score, error) {
	return f.quality, f.qualityErr
}

func (f *fakeHistoryAnalyzer) GovDataMatch(context.Context, *models.CarHistory, string) (oracle.Score, error) {
	return f.govData, nil
}

type fakeLookup struct {
	mu      sync.Mutex
	history *models.CarHistory
	err     error
	calls   int
}

func (f *fakeLookup) Lookup(context.Context, string, string, string) (*models.CarHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.history, f.err
}

type fakeFilter struct {
	byLink map[string]oracle.FilterDecision
	errs   map[string]error
}

func (f *fakeFilter) Filter(_ context.Context, l models.ProcessedListing, _ models.SearchQuery) (oracle.FilterDecision, error) {
	if err, ok := f.errs[l.Metadata.Link]; ok {
		return oracle.FilterDecision{}, err
	}
	return f.byLink[l.Metadata.Link], nil
}

type fakeDistance struct {
	km     map[string]float64
	cached map[string]bool
	calls  []string
}

func (f *fakeDistance) Distance(_ context.Context, _ models.Coordinates, place string) geo.DistanceResult {
	f.calls = append(f.calls, place)
	res := geo.DistanceResult{Km: models.Unavailable(), Cached: f.cached[place]}
	if km, ok := f.km[place]; ok {
		res.Km = models.Value(km)
	}
	return res
}

var errUnavailable = errors.New("connection refused")

func completeHistory() *models.CarHistory {
	return &models.CarHistory{
		TechnicalData: &models.TechnicalData{FuelType: "benzyna"},
		EventSummary:  &models.EventSummary{OwnersCount: 1},
	}
}

func listing(link, platform, location string, year, mileage int, price float64) models.Listing {
	return models.Listing{
		Car: models.Car{Brand: "Skoda", Model: "Octavia", Year: year, Mileage: mileage},
		Metadata: models.ListingMetadata{
			Price:    price,
			Location: location,
			Title:    "Skoda Octavia",
			Link:     link,
			Platform: platform,
		},
	}
}

func processed(l models.Listing) models.ProcessedListing {
	return models.ProcessedListing{Listing: l}
}
