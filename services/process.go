package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"auto_sniper/geo"
	"auto_sniper/models"
	"auto_sniper/oracle"
)

// DistanceResolver measures how far a place is from the search location.
type DistanceResolver interface {
	Distance(ctx context.Context, target models.Coordinates, place string) geo.DistanceResult
}

// Processor merges raw listings and enriches them with distance and
// vehicle history. Enrichment runs one listing at a time with a politeness
// delay after every call that reached an external service.
type Processor struct {
	distance     DistanceResolver
	history      oracle.HistoryLookup
	geoDelay     time.Duration
	historyDelay time.Duration
}

// NewProcessor creates a new Processor. history may be nil.
func NewProcessor(distance DistanceResolver, history oracle.HistoryLookup, geoDelay, historyDelay time.Duration) *Processor {
	return &Processor{
		distance:     distance,
		history:      history,
		geoDelay:     geoDelay,
		historyDelay: historyDelay,
	}
}

// Process merges duplicates and enriches the result in input order.
func (p *Processor) Process(ctx context.Context, listings []models.Listing, q models.SearchQuery) ([]models.ProcessedListing, error) {
	merged := MergeListings(listings)
	log.Info().Int("raw", len(listings)).Int("merged", len(merged)).Msg("listings merged")

	processed := make([]models.ProcessedListing, 0, len(merged))
	for i, l := range merged {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		pl := models.ProcessedListing{Listing: l}

		d := p.distance.Distance(ctx, q.Location, l.Metadata.Location)
		pl.Processed.Distance = d.Km
		if !d.Cached {
			if err := sleep(ctx, p.geoDelay); err != nil {
				return processed, err
			}
		}

		if PlausibleVIN(l.Metadata.VIN) && ensureHistory(ctx, p.history, &pl) {
			if err := sleep(ctx, p.historyDelay); err != nil {
				return processed, err
			}
		}

		processed = append(processed, pl)
		log.Debug().
			Int("n", i+1).
			Int("of", len(merged)).
			Str("location", l.Metadata.Location).
			Bool("cached", d.Cached).
			Msg("listing processed")
	}

	return processed, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
