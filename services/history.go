package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"auto_sniper/models"
	"auto_sniper/oracle"
)

// PlausibleVIN rejects empty VINs and the masked ones marketplaces show
// when the seller hides it (more than half the characters are 'x').
func PlausibleVIN(vin string) bool {
	vin = strings.TrimSpace(vin)
	if vin == "" {
		return false
	}
	masked := strings.Count(strings.ToLower(vin), "x")
	return masked*2 <= len(vin)
}

// ensureHistory fetches the vehicle history once per listing. A listing that
// already carries a history, even an empty one from a failed lookup, is left
// alone. It reports whether a lookup was made.
func ensureHistory(ctx context.Context, lookup oracle.HistoryLookup, l *models.ProcessedListing) bool {
	if lookup == nil || l.Processed.CarHistory != nil {
		return false
	}
	if !l.HasHistoryKeys() {
		return false
	}

	h, err := lookup.Lookup(ctx, l.Metadata.PlateNumber, l.Metadata.VIN, l.Metadata.FirstRegistrationDate)
	if err != nil {
		log.Warn().Err(err).Str("link", l.Metadata.Link).Msg("vehicle history lookup failed")
		h = &models.CarHistory{}
	}
	if h == nil {
		h = &models.CarHistory{}
	}
	l.Processed.CarHistory = h
	return true
}
