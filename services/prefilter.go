package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"auto_sniper/models"
	"auto_sniper/oracle"
)

const (
	DefaultFilterBatchSize = 5
	neutralFilterScore     = 50

	explainBatchFailed   = "Error during filtering - showing by default"
	explainInvalidAnswer = "Failed to parse AI response - hidden by default"
)

// PreFilter asks the AI filter whether each listing is worth showing and
// records its 0-100 score as the listing's language signal.
type PreFilter struct {
	filter    oracle.ListingFilter
	batchSize int
}

// NewPreFilter creates a new PreFilter
func NewPreFilter(filter oracle.ListingFilter, batchSize int) *PreFilter {
	if batchSize <= 0 {
		batchSize = DefaultFilterBatchSize
	}
	return &PreFilter{filter: filter, batchSize: batchSize}
}

// Apply filters listings in batches. Listings inside a batch are judged
// concurrently; batches run one after another. If any call in a batch fails
// for a reason other than an unusable answer, the whole batch is shown with
// a neutral score. An unusable answer hides just that listing.
func (p *PreFilter) Apply(ctx context.Context, listings []models.ProcessedListing, q models.SearchQuery) ([]models.ProcessedListing, []models.FilterVerdict) {
	verdicts := make([]models.FilterVerdict, 0, len(listings))
	kept := make([]models.ProcessedListing, 0, len(listings))

	for start := 0; start < len(listings); start += p.batchSize {
		end := min(start+p.batchSize, len(listings))
		batch := listings[start:end]
		batchVerdicts := p.judgeBatch(ctx, batch, q)

		for i, v := range batchVerdicts {
			verdicts = append(verdicts, v)
			log.Debug().
				Str("title", v.Title).
				Bool("show", v.ShowToUser).
				Float64("score", v.Score/100).
				Str("explanation", v.Explanation).
				Str("link", v.Link).
				Msg("filter verdict")
			if !v.ShowToUser {
				continue
			}
			l := batch[i]
			l.Processed.Language = models.Value(v.Score / 100)
			kept = append(kept, l)
		}
	}

	log.Info().Int("kept", len(kept)).Int("hidden", len(listings)-len(kept)).Msg("pre-filter done")
	return kept, verdicts
}

func (p *PreFilter) judgeBatch(ctx context.Context, batch []models.ProcessedListing, q models.SearchQuery) []models.FilterVerdict {
	decisions := make([]oracle.FilterDecision, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = p.filter.Filter(ctx, batch[i], q)
		}(i)
	}
	wg.Wait()

	verdicts := make([]models.FilterVerdict, len(batch))
	for i, l := range batch {
		verdicts[i] = models.FilterVerdict{Link: l.Metadata.Link, Title: l.Metadata.Title}
	}

	for _, err := range errs {
		if err != nil && !oracle.IsValidation(err) {
			log.Error().Err(err).Int("batch_size", len(batch)).Msg("filter batch failed, showing all")
			for i := range verdicts {
				verdicts[i].ShowToUser = true
				verdicts[i].Score = neutralFilterScore
				verdicts[i].Explanation = explainBatchFailed
			}
			return verdicts
		}
	}

	for i, d := range decisions {
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Str("link", verdicts[i].Link).Msg("unusable filter verdict, hiding")
			verdicts[i].ShowToUser = false
			verdicts[i].Score = neutralFilterScore
			verdicts[i].Explanation = explainInvalidAnswer
			continue
		}
		verdicts[i].ShowToUser = d.ShowToUser
		verdicts[i].Score = clampRange(d.Score, 0, 100)
		verdicts[i].Explanation = d.Explanation
	}
	return verdicts
}
