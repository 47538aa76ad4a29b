package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"auto_sniper/models"
	"auto_sniper/oracle"
)

// Scorer computes the fitness of a single listing against a search.
type Scorer struct {
	weights     models.FitnessWeights
	looks       oracle.LooksMatcher
	description oracle.DescriptionMatcher
	describe    bool
	lookup      oracle.HistoryLookup
	history     oracle.HistoryAnalyzer
}

type ScorerOption func(*Scorer)

func WithLooksMatcher(m oracle.LooksMatcher) ScorerOption {
	return func(s *Scorer) { s.looks = m }
}

// WithDescriptionMatcher wires the text matcher. enabled gates whether it
// is consulted at all.
func WithDescriptionMatcher(m oracle.DescriptionMatcher, enabled bool) ScorerOption {
	return func(s *Scorer) {
		s.description = m
		s.describe = enabled
	}
}

func WithHistory(lookup oracle.HistoryLookup, analyzer oracle.HistoryAnalyzer) ScorerOption {
	return func(s *Scorer) {
		s.lookup = lookup
		s.history = analyzer
	}
}

// NewScorer creates a new Scorer
func NewScorer(weights models.FitnessWeights, opts ...ScorerOption) *Scorer {
	s := &Scorer{weights: weights}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scorer) Weights() models.FitnessWeights {
	return s.weights
}

// Score computes every sub-score the listing supports and combines the
// available ones, renormalizing the weights over them. Oracle failures only
// make their signal unavailable; the sole error is a bad weight vector.
// The listing's history is fetched and stored on it if still missing.
func (s *Scorer) Score(ctx context.Context, l *models.ProcessedListing, limits models.Limits, q models.SearchQuery) (models.Fitness, error) {
	nw, err := NormalizeWeights(s.weights)
	if err != nil {
		return models.Fitness{}, err
	}

	f := models.Fitness{
		Price:   1 - MinMaxScale(l.Metadata.Price, limits.MinPrice, limits.MaxPrice),
		Mileage: 1 - MinMaxScale(float64(l.Car.Mileage), limits.MinMileage, limits.MaxMileage),
		Year:    1,
	}
	if limits.MinYear != limits.MaxYear {
		f.Year = MinMaxScale(float64(l.Car.Year), limits.MinYear, limits.MaxYear)
	}
	if d, ok := l.Processed.Distance.Get(); ok {
		f.Distance = models.Value(1 - MinMaxScale(d, limits.MinDistance, limits.MaxDistance))
	}

	f.Looks = s.scoreLooks(ctx, l, q)
	f.Description = s.scoreDescription(ctx, l, q)
	f.HistoryQuality, f.GovDataMatch = s.scoreHistory(ctx, l, q)
	f.Language = l.Processed.Language

	f.Total = combine(f, nw)
	return f, nil
}

func (s *Scorer) scoreLooks(ctx context.Context, l *models.ProcessedListing, q models.SearchQuery) models.Signal {
	if s.looks == nil || q.DescriptionForLooks == "" || l.Metadata.Image == "" {
		return models.Unavailable()
	}
	score, err := s.looks.MatchLooks(ctx, l.Metadata.Image, q.DescriptionForLooks)
	if err != nil {
		log.Warn().Err(err).Str("link", l.Metadata.Link).Msg("looks match failed")
		return models.Unavailable()
	}
	return models.Value(clamp01(score.Value))
}

func (s *Scorer) scoreDescription(ctx context.Context, l *models.ProcessedListing, q models.SearchQuery) models.Signal {
	if s.description == nil || !s.describe || q.DescriptionForDescription == "" || l.Metadata.Description == "" {
		return models.Unavailable()
	}
	score, err := s.description.MatchDescription(ctx, q.DescriptionForDescription, l.Metadata.Description)
	if err != nil {
		log.Warn().Err(err).Str("link", l.Metadata.Link).Msg("description match failed")
		return models.Unavailable()
	}
	return models.Value(clamp01(score.Value))
}

func (s *Scorer) scoreHistory(ctx context.Context, l *models.ProcessedListing, q models.SearchQuery) (quality, govData models.Signal) {
	if s.history == nil || !l.HasHistoryKeys() {
		return models.Unavailable(), models.Unavailable()
	}
	ensureHistory(ctx, s.lookup, l)
	h := l.Processed.CarHistory
	if !h.Complete() {
		return models.Unavailable(), models.Unavailable()
	}

	if score, err := s.history.HistoryQuality(ctx, h); err != nil {
		log.Warn().Err(err).Str("link", l.Metadata.Link).Msg("history quality failed")
	} else {
		quality = models.Value(clamp01(score.Value))
	}

	if q.DescriptionForGovData != "" {
		if score, err := s.history.GovDataMatch(ctx, h, q.DescriptionForGovData); err != nil {
			log.Warn().Err(err).Str("link", l.Metadata.Link).Msg("gov data match failed")
		} else {
			govData = models.Value(clamp01(score.Value))
		}
	}
	return quality, govData
}

// combine is the weighted mean of the available signals, clamped to [0,1].
// With no usable weight at all the total is 0.
func combine(f models.Fitness, nw NormalizedWeights) float64 {
	weighted, used := 0.0, 0.0
	add := func(score, weight float64) {
		weighted += score * weight
		used += weight
	}

	add(f.Price, nw.Price)
	add(f.Mileage, nw.Mileage)
	add(f.Year, nw.Year)
	for _, opt := range []struct {
		signal models.Signal
		weight float64
	}{
		{f.Distance, nw.Distance},
		{f.Looks, nw.Looks},
		{f.Description, nw.Description},
		{f.GovDataMatch, nw.GovDataMatch},
		{f.HistoryQuality, nw.HistoryQuality},
		{f.Language, nw.Language},
	} {
		if v, ok := opt.signal.Get(); ok {
			add(v, opt.weight)
		}
	}

	if used == 0 {
		return 0
	}
	return clamp01(weighted / used)
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
