// Package geo resolves place names to coordinates and measures distances.
package geo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"auto_sniper/models"
	"auto_sniper/oracle"
)

const earthRadiusKm = 6371

// Cache stores resolved coordinates keyed by the raw place string.
type Cache interface {
	Get(ctx context.Context, place string) (models.Coordinates, bool, error)
	Set(ctx context.Context, place string, c models.Coordinates) error
	Flush(ctx context.Context) error
}

type Resolution struct {
	Coordinates *models.Coordinates
	Cached      bool
}

type DistanceResult struct {
	Km     models.Signal
	Cached bool
}

// Resolver looks places up in the cache and falls back to the geocoder.
// Calls are serialized so a miss is never geocoded twice concurrently.
type Resolver struct {
	mu       sync.Mutex
	cache    Cache
	geocoder oracle.Geocoder
	country  string
}

func NewResolver(cache Cache, geocoder oracle.Geocoder, country string) *Resolver {
	return &Resolver{cache: cache, geocoder: geocoder, country: country}
}

// Resolve never fails: an unknown or unresolvable place yields nil
// coordinates. Cached is false only when the geocoder was called.
func (r *Resolver) Resolve(ctx context.Context, place string) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(place) == "" {
		return Resolution{Cached: true}
	}

	if c, ok, err := r.cache.Get(ctx, place); err != nil {
		log.Warn().Err(err).Str("place", place).Msg("coords cache read failed")
	} else if ok {
		return Resolution{Coordinates: &c, Cached: true}
	}

	query := place
	if r.country != "" {
		query = place + ", " + r.country
	}
	places, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("place", place).Msg("geocoding failed")
		return Resolution{}
	}
	if len(places) == 0 {
		log.Debug().Str("place", place).Msg("place not found")
		return Resolution{}
	}

	c, err := parsePlace(places[0])
	if err != nil {
		log.Warn().Err(err).Str("place", place).Msg("geocoder returned bad coordinates")
		return Resolution{}
	}

	if err := r.cache.Set(ctx, place, c); err != nil {
		log.Warn().Err(err).Str("place", place).Msg("coords cache write failed")
	}
	return Resolution{Coordinates: &c}
}

// Distance is the great-circle distance from target to place, unavailable
// when place cannot be resolved.
func (r *Resolver) Distance(ctx context.Context, target models.Coordinates, place string) DistanceResult {
	res := r.Resolve(ctx, place)
	if res.Coordinates == nil {
		return DistanceResult{Km: models.Unavailable(), Cached: res.Cached}
	}
	return DistanceResult{Km: models.Value(HaversineKm(target, *res.Coordinates)), Cached: res.Cached}
}

func (r *Resolver) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Flush(ctx)
}

// HaversineKm is the great-circle distance between a and b in kilometers.
func HaversineKm(a, b models.Coordinates) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func parsePlace(p oracle.Place) (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return models.Coordinates{Lat: lat, Lon: lon}, nil
}
