package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"auto_sniper/models"
)

// Source supplies the raw listings of one search on one platform.
type Source interface {
	Fetch(ctx context.Context, q models.SearchQuery, platform string) ([]models.Listing, error)
}

// DirSource reads dumps written by the marketplace scrapers, laid out as
// <dir>/<platform>/<brand>-<model>-*.json with each file holding a JSON
// array of records.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Fetch returns the listings of the query's brand and model dumps with at
// least the query's year. Records that fail to normalize are logged and
// skipped.
func (s *DirSource) Fetch(ctx context.Context, q models.SearchQuery, platform string) ([]models.Listing, error) {
	platforms := []string{platform}
	if platform == "" || platform == models.PlatformAll {
		platforms = Platforms
	}

	var listings []models.Listing
	for _, p := range platforms {
		if err := ctx.Err(); err != nil {
			return listings, err
		}
		found, err := s.fetchPlatform(q, p)
		if err != nil {
			return listings, err
		}
		log.Info().Str("platform", p).Int("listings", len(found)).Msg("listings loaded")
		listings = append(listings, found...)
	}
	return listings, nil
}

func (s *DirSource) fetchPlatform(q models.SearchQuery, platform string) ([]models.Listing, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, platform, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	prefix := strings.ToLower(q.Brand + "-" + q.Model + "-")

	var listings []models.Listing
	for _, path := range files {
		if q.Brand != "" && !strings.HasPrefix(strings.ToLower(filepath.Base(path)), prefix) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		for i, raw := range records {
			rec, err := DecodeRecord(platform, raw)
			if err != nil {
				log.Warn().Err(err).Str("file", path).Int("index", i).Msg("skipping record")
				continue
			}
			l, err := rec.Normalize()
			if err != nil {
				log.Debug().Err(err).Str("file", path).Int("index", i).Msg("skipping record")
				continue
			}
			l.Car.Brand, l.Car.Model = q.Brand, q.Model
			if q.Year == 0 || l.Car.Year >= q.Year {
				listings = append(listings, l)
			}
		}
	}
	return listings, nil
}

// StaticSource serves a fixed set of listings, e.g. a file passed on the
// command line.
type StaticSource []models.Listing

func (s StaticSource) Fetch(context.Context, models.SearchQuery, string) ([]models.Listing, error) {
	return s, nil
}
