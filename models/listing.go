package models

// Car is the immutable identity of the vehicle in a listing.
type Car struct {
	Brand   string `json:"brand"`
	Model   string `json:"model"`
	Year    int    `json:"year"`
	Mileage int    `json:"mileage"` // kilometers
}

// ListingMetadata holds marketplace facts about a listing, not the car.
type ListingMetadata struct {
	Price                 float64 `json:"price"`
	Negotiable            *bool   `json:"negotiable,omitempty"`
	Location              string  `json:"location"`
	Title                 string  `json:"title"`
	Link                  string  `json:"link"`
	Platform              string  `json:"platform"` // comma-joined when merged
	Image                 string  `json:"image,omitempty"`
	Description           string  `json:"description,omitempty"`
	VIN                   string  `json:"vin,omitempty"`
	PlateNumber           string  `json:"plateNumber,omitempty"`
	FirstRegistrationDate string  `json:"dataOfFirstRegistration,omitempty"`
}

// Listing is one advertisement of a car on one or more marketplaces.
type Listing struct {
	Car      Car             `json:"car"`
	Metadata ListingMetadata `json:"metadata"`
}

// HasHistoryKeys reports whether the listing carries everything a vehicle
// history lookup needs.
func (l Listing) HasHistoryKeys() bool {
	return l.Metadata.VIN != "" && l.Metadata.PlateNumber != "" && l.Metadata.FirstRegistrationDate != ""
}

// Processed is the enrichment block attached after merging.
type Processed struct {
	Distance   Signal      `json:"distance"`
	CarHistory *CarHistory `json:"carHistory,omitempty"`
	Language   Signal      `json:"language"`
}

type ProcessedListing struct {
	Listing
	Processed Processed `json:"processed"`
}

// AnalyzedListing is the terminal artifact: a processed listing with its score.
// ID is the listing fingerprint and stays the same across searches.
type AnalyzedListing struct {
	ID string `json:"id"`
	ProcessedListing
	Fitness Fitness `json:"fitness"`
}
