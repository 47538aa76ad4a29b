package services

import (
	"math"

	"auto_sniper/models"
)

// ComputeLimits derives the normalization frame for a search in one pass.
// MaxPrice is the user's price cap when one was given and it is not below
// every listing's price; otherwise the population maximum. Distance bounds only
// consider listings with a known distance and stay zero when none has one.
func ComputeLimits(listings []models.ProcessedListing, q models.SearchQuery) models.Limits {
	var limits models.Limits
	if len(listings) == 0 {
		if ceiling, ok := q.PriceCap(); ok {
			limits.MaxPrice = ceiling
		}
		return limits
	}

	limits.MinPrice, limits.MaxPrice = math.Inf(1), math.Inf(-1)
	limits.MinMileage, limits.MaxMileage = math.Inf(1), math.Inf(-1)
	limits.MinYear, limits.MaxYear = math.Inf(1), math.Inf(-1)
	minDist, maxDist := math.Inf(1), math.Inf(-1)
	hasDistance := false

	for _, l := range listings {
		price := l.Metadata.Price
		mileage := float64(l.Car.Mileage)
		year := float64(l.Car.Year)

		limits.MinPrice = math.Min(limits.MinPrice, price)
		limits.MaxPrice = math.Max(limits.MaxPrice, price)
		limits.MinMileage = math.Min(limits.MinMileage, mileage)
		limits.MaxMileage = math.Max(limits.MaxMileage, mileage)
		limits.MinYear = math.Min(limits.MinYear, year)
		limits.MaxYear = math.Max(limits.MaxYear, year)

		if d, ok := l.Processed.Distance.Get(); ok {
			hasDistance = true
			minDist = math.Min(minDist, d)
			maxDist = math.Max(maxDist, d)
		}
	}

	if ceiling, ok := q.PriceCap(); ok && ceiling >= limits.MinPrice {
		limits.MaxPrice = ceiling
	}
	if hasDistance {
		limits.MinDistance, limits.MaxDistance = minDist, maxDist
	}

	return limits
}
