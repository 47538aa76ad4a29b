package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_sniper/models"
	"auto_sniper/oracle"
)

func population(n int) []models.ProcessedListing {
	out := make([]models.ProcessedListing, n)
	for i := range out {
		out[i] = processed(listing(fmt.Sprintf("l%d", i), "olx", "Kraków", 2015, 1000*i, float64(10000+i)))
	}
	return out
}

func links(ls []models.ProcessedListing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Metadata.Link
	}
	return out
}

func TestPreFilterKeepsShownAndSetsLanguage(t *testing.T) {
	ls := population(3)
	f := &fakeFilter{byLink: map[string]oracle.FilterDecision{
		"l0": {ShowToUser: true, Score: 80, Explanation: "fits"},
		"l1": {ShowToUser: false, Score: 10, Explanation: "wrong model"},
		"l2": {ShowToUser: true, Score: 250, Explanation: "great"},
	}}

	kept, verdicts := NewPreFilter(f, 5).Apply(context.Background(), ls, models.SearchQuery{})

	assert.Equal(t, []string{"l0", "l2"}, links(kept))
	assert.Equal(t, models.Value(0.8), kept[0].Processed.Language)
	assert.Equal(t, models.Value(1), kept[1].Processed.Language, "score is clamped to 100")
	require.Len(t, verdicts, 3)
	assert.Equal(t, "wrong model", verdicts[1].Explanation)
	assert.False(t, verdicts[1].ShowToUser)
}

func TestPreFilterBatchFailureShowsWholeBatch(t *testing.T) {
	ls := population(7)
	f := &fakeFilter{
		byLink: map[string]oracle.FilterDecision{},
		errs:   map[string]error{"l2": errors.New("rate limited")},
	}
	for _, l := range ls {
		f.byLink[l.Metadata.Link] = oracle.FilterDecision{ShowToUser: false, Score: 5}
	}

	kept, verdicts := NewPreFilter(f, 5).Apply(context.Background(), ls, models.SearchQuery{})

	assert.Equal(t, []string{"l0", "l1", "l2", "l3", "l4"}, links(kept))
	for _, l := range kept {
		assert.Equal(t, models.Value(0.5), l.Processed.Language)
	}
	for _, v := range verdicts[:5] {
		assert.Equal(t, "Error during filtering - showing by default", v.Explanation)
		assert.Equal(t, 50.0, v.Score)
	}
	assert.False(t, verdicts[5].ShowToUser)
	assert.False(t, verdicts[6].ShowToUser)
}

func TestPreFilterUnusableAnswerHidesListing(t *testing.T) {
	ls := population(2)
	f := &fakeFilter{
		byLink: map[string]oracle.FilterDecision{"l0": {ShowToUser: true, Score: 70}},
		errs:   map[string]error{"l1": oracle.NewValidation("missing showToUser")},
	}

	kept, verdicts := NewPreFilter(f, 5).Apply(context.Background(), ls, models.SearchQuery{})

	assert.Equal(t, []string{"l0"}, links(kept))
	assert.False(t, verdicts[1].ShowToUser)
	assert.Equal(t, 50.0, verdicts[1].Score)
	assert.Equal(t, "Failed to parse AI response - hidden by default", verdicts[1].Explanation)
}

type slowFilter struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	order    []string
}

func (f *slowFilter) Filter(_ context.Context, l models.ProcessedListing, _ models.SearchQuery) (oracle.FilterDecision, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.order = append(f.order, l.Metadata.Link)
	f.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	return oracle.FilterDecision{ShowToUser: true, Score: 60}, nil
}

func TestPreFilterBatchesRunSequentially(t *testing.T) {
	ls := population(12)
	f := &slowFilter{}

	kept, verdicts := NewPreFilter(f, 0).Apply(context.Background(), ls, models.SearchQuery{})

	assert.Len(t, kept, 12)
	assert.Len(t, verdicts, 12)
	assert.LessOrEqual(t, f.peak, int32(DefaultFilterBatchSize))
	assert.Equal(t, links(ls), links(kept))
	assert.ElementsMatch(t, []string{"l0", "l1", "l2", "l3", "l4"}, f.order[:5])
	assert.ElementsMatch(t, []string{"l10", "l11"}, f.order[10:])
}

func TestPreFilterEmpty(t *testing.T) {
	kept, verdicts := NewPreFilter(&fakeFilter{}, 5).Apply(context.Background(), nil, models.SearchQuery{})
	assert.Empty(t, kept)
	assert.Empty(t, verdicts)
}
