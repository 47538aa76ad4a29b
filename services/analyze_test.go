package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_sniper/identity"
	"auto_sniper/models"
	"auto_sniper/oracle"
)

func TestAnalyzeKeepsInputOrder(t *testing.T) {
	ls := population(20)
	for i := range ls {
		ls[i].Metadata.Image = "img"
	}
	looks := &fakeLooks{score: oracle.Score{Value: 0.5}}
	s := NewScorer(models.DefaultWeights(), WithLooksMatcher(looks))
	q := models.SearchQuery{DescriptionForLooks: "silver"}

	out, err := NewAnalyzer(s, 3).Analyze(context.Background(), ls, q)
	require.NoError(t, err)

	require.Len(t, out, 20)
	for i := range out {
		assert.Equal(t, ls[i].Metadata.Link, out[i].Metadata.Link)
		assert.Equal(t, identity.Fingerprint(ls[i].Listing), out[i].ID)
		assert.Equal(t, models.Value(0.5), out[i].Fitness.Looks)
	}
	assert.Equal(t, 20, looks.calls)
}

func TestAnalyzeRejectsZeroWeights(t *testing.T) {
	_, err := NewAnalyzer(NewScorer(models.FitnessWeights{}), 0).Analyze(context.Background(), population(2), models.SearchQuery{})
	assert.ErrorIs(t, err, ErrZeroWeights)
}

func TestAnalyzeEmpty(t *testing.T) {
	out, err := NewAnalyzer(NewScorer(models.DefaultWeights()), 0).Analyze(context.Background(), nil, models.SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRankIsStableDescending(t *testing.T) {
	mk := func(link string, total float64) models.AnalyzedListing {
		return models.AnalyzedListing{
			ProcessedListing: processed(listing(link, "olx", "X", 2018, 1, 1)),
			Fitness:          models.Fitness{Total: total},
		}
	}
	ls := []models.AnalyzedListing{mk("a", 0.2), mk("b", 0.9), mk("c", 0.5), mk("d", 0.9), mk("e", 0.2)}

	Rank(ls)

	var got []string
	for _, l := range ls {
		got = append(got, l.Metadata.Link)
	}
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, got)
}

func TestScoreStats(t *testing.T) {
	var s ScoreStats
	s.Aggregate(models.Fitness{Total: 0.4, Distance: models.Value(1), Language: models.Value(0.3)})
	s.Aggregate(models.Fitness{Total: 0.7, Looks: models.Value(0.2)})
	s.Aggregate(models.Fitness{Total: 0.1})

	assert.Equal(t, 3, s.Listings)
	assert.Equal(t, 1, s.WithDistance)
	assert.Equal(t, 1, s.WithLooks)
	assert.Equal(t, 1, s.WithLanguage)
	assert.Equal(t, 0, s.WithHistory)
	assert.Equal(t, 0.7, s.BestTotal)
	assert.Contains(t, string(s.ToJSON()), `"best_total":0.7`)
}
