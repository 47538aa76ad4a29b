package models

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SearchQuery describes the car the user is looking for.
type SearchQuery struct {
	Brand                     string      `json:"brand"`
	Model                     string      `json:"model"`
	Year                      int         `json:"year"`
	Location                  Coordinates `json:"location"`
	MaxPrice                  *float64    `json:"maxPrice,omitempty"`
	Description               string      `json:"description,omitempty"`
	DescriptionForLooks       string      `json:"description_forlooks,omitempty"`
	DescriptionForDescription string      `json:"description_fordescription,omitempty"`
	DescriptionForGovData     string      `json:"description_forgovdata,omitempty"`
}

// PriceCap returns the user's price ceiling when one was given.
func (q SearchQuery) PriceCap() (float64, bool) {
	if q.MaxPrice == nil || *q.MaxPrice <= 0 {
		return 0, false
	}
	return *q.MaxPrice, true
}
