package models

// Limits is the population-wide normalization frame for one search.
type Limits struct {
	MaxPrice    float64 `json:"maxPrice"`
	MinPrice    float64 `json:"minPrice"`
	MaxMileage  float64 `json:"maxMileage"`
	MinMileage  float64 `json:"minMileage"`
	MaxDistance float64 `json:"maxDistance"`
	MinDistance float64 `json:"minDistance"`
	MaxYear     float64 `json:"maxYear"`
	MinYear     float64 `json:"minYear"`
}

// Fitness is the per-listing scoring record. Price, mileage and year are
// always computed; the other signals may be unavailable.
type Fitness struct {
	Price          float64 `json:"price"`
	Mileage        float64 `json:"mileage"`
	Distance       Signal  `json:"distance"`
	Year           float64 `json:"year"`
	Looks          Signal  `json:"looks"`
	Description    Signal  `json:"description"`
	GovDataMatch   Signal  `json:"govDataMatch"`
	HistoryQuality Signal  `json:"historyQuality"`
	Language       Signal  `json:"language"`
	Total          float64 `json:"total"`
}

// FitnessWeights are relative signal priorities; they need not sum to 1.
type FitnessWeights struct {
	Price          float64 `json:"price" yaml:"price"`
	Mileage        float64 `json:"mileage" yaml:"mileage"`
	Distance       float64 `json:"distance" yaml:"distance"`
	Year           float64 `json:"year" yaml:"year"`
	Looks          float64 `json:"looks" yaml:"looks"`
	Description    float64 `json:"description" yaml:"description"`
	GovDataMatch   float64 `json:"govDataMatch" yaml:"govDataMatch"`
	HistoryQuality float64 `json:"historyQuality" yaml:"historyQuality"`
	Language       float64 `json:"language" yaml:"language"`
}

func DefaultWeights() FitnessWeights {
	return FitnessWeights{
		Language:       10,
		Looks:          6,
		Price:          5,
		Description:    5,
		HistoryQuality: 5,
		Year:           4,
		GovDataMatch:   4,
		Mileage:        2,
		Distance:       1,
	}
}
