package services

import (
	"errors"
	"fmt"
	"math"

	"auto_sniper/models"
)

var ErrZeroWeights = errors.New("fitness weights sum to zero")

// NormalizedWeights are FitnessWeights rescaled to sum to 1.
type NormalizedWeights models.FitnessWeights

// NormalizeWeights divides every weight by the sum of all nine. It fails on
// an all-zero vector and on negative or non-finite weights.
func NormalizeWeights(w models.FitnessWeights) (NormalizedWeights, error) {
	sum := 0.0
	for name, v := range weightFields(w) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return NormalizedWeights{}, fmt.Errorf("invalid %s weight %v", name, v)
		}
		sum += v
	}
	if sum == 0 {
		return NormalizedWeights{}, ErrZeroWeights
	}

	return NormalizedWeights{
		Price:          w.Price / sum,
		Mileage:        w.Mileage / sum,
		Distance:       w.Distance / sum,
		Year:           w.Year / sum,
		Looks:          w.Looks / sum,
		Description:    w.Description / sum,
		GovDataMatch:   w.GovDataMatch / sum,
		HistoryQuality: w.HistoryQuality / sum,
		Language:       w.Language / sum,
	}, nil
}

// Sum of all nine normalized weights.
func (n NormalizedWeights) Sum() float64 {
	total := 0.0
	for _, v := range weightFields(models.FitnessWeights(n)) {
		total += v
	}
	return total
}

func weightFields(w models.FitnessWeights) map[string]float64 {
	return map[string]float64{
		"price":          w.Price,
		"mileage":        w.Mileage,
		"distance":       w.Distance,
		"year":           w.Year,
		"looks":          w.Looks,
		"description":    w.Description,
		"govDataMatch":   w.GovDataMatch,
		"historyQuality": w.HistoryQuality,
		"language":       w.Language,
	}
}

// MinMaxScale maps v from [lo, hi] onto [0, 1]. It returns 0 for a
// degenerate range and does not clamp values outside it.
func MinMaxScale(v, lo, hi float64) float64 {
	if lo == hi {
		return 0
	}
	return (v - lo) / (hi - lo)
}
