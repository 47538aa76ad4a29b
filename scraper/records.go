package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"auto_sniper/models"
	"auto_sniper/parsers"
)

// Platform names as they appear in scraper dumps and on listings.
const (
	PlatformOlx       = "olx"
	PlatformOtomoto   = "otomoto"
	PlatformSamochody = "samochody"
	PlatformAutoplac  = "autoplac"
	PlatformGratka    = "gratka"
)

// Platforms lists every marketplace searched for models.PlatformAll.
var Platforms = []string{PlatformOlx, PlatformOtomoto, PlatformSamochody, PlatformAutoplac, PlatformGratka}

// RawListing is one listing card as written by a marketplace scraper. The
// fields are still in the marketplace's own text format.
type RawListing interface {
	Platform() string
	Normalize() (models.Listing, error)
}

// DecodeRecord decodes a single raw record of the given platform.
func DecodeRecord(platform string, data []byte) (RawListing, error) {
	var rec RawListing
	switch platform {
	case PlatformOlx:
		rec = &OlxRecord{}
	case PlatformOtomoto:
		rec = &OtomotoRecord{}
	case PlatformSamochody:
		rec = &SamochodyRecord{}
	case PlatformAutoplac:
		rec = &AutoplacRecord{}
	case PlatformGratka:
		rec = &GratkaRecord{}
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", platform, err)
	}
	return rec, nil
}

// carFields parses the price and mileage text every platform shares.
func carFields(year int, dirtyPrice, dirtyMileage string) (price float64, mileage int, err error) {
	price, ok := parsers.ParsePrice(dirtyPrice)
	if !ok {
		return 0, 0, fmt.Errorf("unparseable price %q", dirtyPrice)
	}
	mileage, ok = parsers.ParseMileage(dirtyMileage)
	if !ok {
		return 0, 0, fmt.Errorf("unparseable mileage %q", dirtyMileage)
	}
	if year == 0 {
		return 0, 0, fmt.Errorf("missing year")
	}
	return price, mileage, nil
}

// OlxRecord is an olx.pl search result card.
type OlxRecord struct {
	Title        string `json:"title"`
	Price        string `json:"price"`
	LocationDate string `json:"locationDate"` // "Kraków, Krowodrza - Odświeżono dzisiaj"
	Link         string `json:"link"`
	Image        string `json:"image"`
	YearMileage  string `json:"yearMileage"` // "2018 - 120 000 km"
}

func (r *OlxRecord) Platform() string { return PlatformOlx }

func (r *OlxRecord) Normalize() (models.Listing, error) {
	price := r.Price
	negotiable := strings.Contains(price, "do negocjacji")
	if negotiable {
		price = strings.TrimSpace(strings.ReplaceAll(price, "do negocjacji", ""))
	}

	yearText, mileageText, _ := strings.Cut(r.YearMileage, "-")
	year, _ := strconv.Atoi(strings.TrimSpace(yearText))
	location, _, _ := strings.Cut(r.LocationDate, " - ")

	p, mileage, err := carFields(year, price, mileageText)
	if err != nil {
		return models.Listing{}, err
	}
	return models.Listing{
		Car: models.Car{Year: year, Mileage: mileage},
		Metadata: models.ListingMetadata{
			Price:      p,
			Negotiable: &negotiable,
			Location:   strings.TrimSpace(location),
			Title:      r.Title,
			Link:       r.Link,
			Platform:   "olx",
			Image:      r.Image,
		},
	}, nil
}

// OtomotoRecord is an otomoto.pl search result card.
type OtomotoRecord struct {
	Title     string `json:"title"`
	Price     string `json:"price"`
	Location  string `json:"location"` // "Kraków - Małopolskie"
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
	Mileage   string `json:"mileage"`
	Year      string `json:"year"`
}

func (r *OtomotoRecord) Platform() string { return PlatformOtomoto }

func (r *OtomotoRecord) Normalize() (models.Listing, error) {
	year, _ := strconv.Atoi(strings.TrimSpace(r.Year))
	p, mileage, err := carFields(year, r.Price, r.Mileage)
	if err != nil {
		return models.Listing{}, err
	}
	location, _, _ := strings.Cut(r.Location, "-")
	return models.Listing{
		Car: models.Car{Year: year, Mileage: mileage},
		Metadata: models.ListingMetadata{
			Price:    p,
			Location: strings.TrimSpace(location),
			Title:    r.Title,
			Link:     r.Link,
			Platform: "otomoto",
			Image:    r.Thumbnail,
		},
	}, nil
}

// SamochodyRecord is a samochody.pl search result card. Features holds the
// feature grid cells: year first, mileage fourth.
type SamochodyRecord struct {
	Title    string   `json:"title"`
	Price    string   `json:"price"`
	Location string   `json:"location"`
	Link     string   `json:"link"`
	Image    string   `json:"image"`
	Features []string `json:"features"`
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

func (r *SamochodyRecord) Platform() string { return PlatformSamochody }

func (r *SamochodyRecord) Normalize() (models.Listing, error) {
	var year int
	var mileageText string
	if len(r.Features) > 0 {
		year, _ = strconv.Atoi(nonDigits.ReplaceAllString(r.Features[0], ""))
	}
	if len(r.Features) > 3 {
		mileageText = r.Features[3]
	}

	p, mileage, err := carFields(year, r.Price, mileageText)
	if err != nil {
		return models.Listing{}, err
	}
	return models.Listing{
		Car: models.Car{Year: year, Mileage: mileage},
		Metadata: models.ListingMetadata{
			Price:    p,
			Location: strings.TrimSpace(strings.ReplaceAll(r.Location, "location_on", "")),
			Title:    r.Title,
			Link:     r.Link,
			Platform: "samochody.pl",
			Image:    r.Image,
		},
	}, nil
}

// AutoplacRecord is an autoplac.pl search result card. Href is relative to
// the site root.
type AutoplacRecord struct {
	Title   string   `json:"title"`
	Price   string   `json:"price"`
	City    string   `json:"city"`
	Href    string   `json:"href"`
	Image   string   `json:"image"`
	Details []string `json:"details"`
}

const autoplacBaseURL = "https://autoplac.pl"

var fourDigits = regexp.MustCompile(`^\d{4}$`)

func (r *AutoplacRecord) Platform() string { return PlatformAutoplac }

func (r *AutoplacRecord) Normalize() (models.Listing, error) {
	var year int
	var mileageText string
	for _, d := range r.Details {
		d = strings.TrimSpace(d)
		if year == 0 && fourDigits.MatchString(d) {
			year, _ = strconv.Atoi(d)
		}
		if mileageText == "" && strings.Contains(d, "km") {
			mileageText = d
		}
	}

	p, mileage, err := carFields(year, r.Price, mileageText)
	if err != nil {
		return models.Listing{}, err
	}
	link := r.Href
	if strings.HasPrefix(link, "/") {
		link = autoplacBaseURL + link
	}
	return models.Listing{
		Car: models.Car{Year: year, Mileage: mileage},
		Metadata: models.ListingMetadata{
			Price:    p,
			Location: strings.TrimSpace(r.City),
			Title:    r.Title,
			Link:     link,
			Platform: "autoplac",
			Image:    r.Image,
		},
	}, nil
}

// GratkaRecord is a gratka.pl detail page, which already carries the
// description.
type GratkaRecord struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Location    string `json:"location"` // "Kraków, małopolskie"
	Link        string `json:"link"`
	Year        string `json:"year"`
	Mileage     string `json:"mileage"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

func (r *GratkaRecord) Platform() string { return PlatformGratka }

func (r *GratkaRecord) Normalize() (models.Listing, error) {
	year, _ := parsers.ParseYear(r.Year)
	p, mileage, err := carFields(year, r.Price, r.Mileage)
	if err != nil {
		return models.Listing{}, err
	}
	location, _, _ := strings.Cut(r.Location, ",")
	return models.Listing{
		Car: models.Car{Year: year, Mileage: mileage},
		Metadata: models.ListingMetadata{
			Price:       p,
			Location:    strings.TrimSpace(location),
			Title:       r.Title,
			Link:        r.Link,
			Platform:    "gratka",
			Image:       r.Image,
			Description: strings.TrimSpace(r.Description),
		},
	}, nil
}
