package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"auto_sniper/config"
	"auto_sniper/httputil"
	"auto_sniper/models"
	"auto_sniper/parsers"
)

const DefaultDescriptionBatchSize = 4

// Details is what a listing's detail page adds to its search card.
type Details struct {
	Description       string
	VIN               string
	PlateNumber       string
	FirstRegistration string
}

// DescriptionEnricher fetches listing detail pages and fills in the
// description and the keys needed for a vehicle history lookup.
type DescriptionEnricher struct {
	cfg       *config.Config
	client    *http.Client
	batchSize int
	retry     httputil.Retry
}

// NewDescriptionEnricher creates a new DescriptionEnricher
func NewDescriptionEnricher(cfg *config.Config, client *http.Client, batchSize int) *DescriptionEnricher {
	if batchSize <= 0 {
		batchSize = DefaultDescriptionBatchSize
	}
	return &DescriptionEnricher{
		cfg:       cfg,
		client:    client,
		batchSize: batchSize,
		retry:     httputil.DefaultRetry,
	}
}

// Enrich fills in listings that have no description yet. Sites are handled
// in parallel; within a site, listings are fetched in concurrent batches. A
// failed fetch leaves its whole batch unchanged. It returns how many
// listings were enriched.
func (e *DescriptionEnricher) Enrich(ctx context.Context, listings []models.Listing) int {
	bySite := make(map[*config.SiteConfig][]int)
	for i, l := range listings {
		if l.Metadata.Description != "" || l.Metadata.Link == "" {
			continue
		}
		site := e.cfg.SiteForLink(l.Metadata.Link)
		if site == nil {
			continue
		}
		bySite[site] = append(bySite[site], i)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enriched int
	)
	for site, idx := range bySite {
		wg.Add(1)
		go func(site *config.SiteConfig, idx []int) {
			defer wg.Done()
			n := e.enrichSite(ctx, site, listings, idx)
			mu.Lock()
			enriched += n
			mu.Unlock()
		}(site, idx)
	}
	wg.Wait()

	log.Info().Int("enriched", enriched).Int("listings", len(listings)).Msg("descriptions fetched")
	return enriched
}

func (e *DescriptionEnricher) enrichSite(ctx context.Context, site *config.SiteConfig, listings []models.Listing, idx []int) int {
	enriched := 0
	for start := 0; start < len(idx); start += e.batchSize {
		if ctx.Err() != nil {
			return enriched
		}
		batch := idx[start:min(start+e.batchSize, len(idx))]
		details := make([]*Details, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, li := range batch {
			g.Go(func() error {
				d, err := e.Fetch(gctx, site, listings[li].Metadata.Link)
				if err != nil {
					return fmt.Errorf("%s: %w", listings[li].Metadata.Link, err)
				}
				details[i] = d
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			log.Warn().Err(err).Str("site", site.ID).Int("batch_size", len(batch)).Msg("description batch failed")
		} else {
			for i, li := range batch {
				apply(&listings[li].Metadata, details[i])
				enriched++
			}
		}

		if start+e.batchSize < len(idx) && site.RateLimitMS > 0 {
			select {
			case <-ctx.Done():
				return enriched
			case <-time.After(time.Duration(site.RateLimitMS) * time.Millisecond):
			}
		}
	}
	return enriched
}

func apply(m *models.ListingMetadata, d *Details) {
	m.Description = d.Description
	if d.VIN != "" {
		m.VIN = d.VIN
	}
	if d.PlateNumber != "" {
		m.PlateNumber = d.PlateNumber
	}
	if d.FirstRegistration != "" {
		m.FirstRegistrationDate = d.FirstRegistration
	}
}

// Fetch downloads and parses one detail page.
func (e *DescriptionEnricher) Fetch(ctx context.Context, site *config.SiteConfig, link string) (*Details, error) {
	var details *Details
	err := e.retry.Do(ctx, "detail page", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return httputil.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return httputil.Permanent(fmt.Errorf("listing not found: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		details, err = ParseDetails(resp.Body, site)
		return err
	})
	return details, err
}

// ParseDetails extracts the description and the parameter rows named by the
// site's selectors. Rows without label/value selectors are read as
// "Label: value" text.
func ParseDetails(r io.Reader, site *config.SiteConfig) (*Details, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, httputil.Permanent(fmt.Errorf("parse html: %w", err))
	}

	sel := site.Selectors
	d := &Details{
		Description: collapseSpaces(doc.Find(sel.Description).First().Text()),
	}

	if sel.Params == "" {
		return d, nil
	}
	doc.Find(sel.Params).Each(func(_ int, s *goquery.Selection) {
		label, value := paramRow(s, sel)
		if label == "" || value == "" {
			return
		}
		switch {
		case sel.VIN != "" && strings.EqualFold(label, sel.VIN):
			d.VIN = strings.ToUpper(strings.ReplaceAll(value, " ", ""))
		case sel.Plate != "" && strings.EqualFold(label, sel.Plate):
			d.PlateNumber = value
		case sel.FirstRegistration != "" && strings.EqualFold(label, sel.FirstRegistration):
			d.FirstRegistration = normalizeRegistrationDate(value)
		}
	})
	return d, nil
}

func paramRow(s *goquery.Selection, sel config.SiteSelectors) (label, value string) {
	if sel.ParamLabel != "" && sel.ParamValue != "" {
		label = s.Find(sel.ParamLabel).First().Text()
		value = s.Find(sel.ParamValue).First().Text()
	} else {
		label, value, _ = strings.Cut(s.Text(), ":")
	}
	label = strings.TrimSuffix(collapseSpaces(label), ":")
	return strings.TrimSpace(label), collapseSpaces(value)
}

// normalizeRegistrationDate brings long Polish and ISO dates to DD.MM.YYYY.
// Anything else is kept as written.
func normalizeRegistrationDate(s string) string {
	if d, err := parsers.ParseDateString(s); err == nil {
		return d
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("02.01.2006")
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
