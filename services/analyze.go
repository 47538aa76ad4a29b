package services

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"auto_sniper/identity"
	"auto_sniper/models"
)

const DefaultScoreConcurrency = 8

// Analyzer scores a whole population of processed listings.
type Analyzer struct {
	scorer      *Scorer
	concurrency int
}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer(scorer *Scorer, concurrency int) *Analyzer {
	if concurrency <= 0 {
		concurrency = DefaultScoreConcurrency
	}
	return &Analyzer{scorer: scorer, concurrency: concurrency}
}

// Analyze computes the limits over every listing, then scores the listings
// in parallel. Results keep the input order.
func (a *Analyzer) Analyze(ctx context.Context, listings []models.ProcessedListing, q models.SearchQuery) ([]models.AnalyzedListing, error) {
	if _, err := NormalizeWeights(a.scorer.Weights()); err != nil {
		return nil, err
	}

	limits := ComputeLimits(listings, q)
	out := make([]models.AnalyzedListing, len(listings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range listings {
		g.Go(func() error {
			pl := listings[i]
			f, err := a.scorer.Score(gctx, &pl, limits, q)
			if err != nil {
				return err
			}
			out[i] = models.AnalyzedListing{ID: identity.Fingerprint(pl.Listing), ProcessedListing: pl, Fitness: f}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rank orders listings by total fitness, best first. Ties keep their order.
func Rank(listings []models.AnalyzedListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Fitness.Total > listings[j].Fitness.Total
	})
}
