package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"auto_sniper/models"
)

var (
	parenRegex       = regexp.MustCompile(`\([^)]*\)`)
	trailingSepRegex = regexp.MustCompile(`[,\s]+$`)
	multiSpaceRegex  = regexp.MustCompile(`\s+`)
)

// NormalizeLocation reduces a marketplace location to the town name:
// parenthesized qualifiers are dropped, trailing separators trimmed and
// anything after the first comma (district, street) removed.
func NormalizeLocation(loc string) string {
	loc = parenRegex.ReplaceAllString(loc, "")
	loc = trailingSepRegex.ReplaceAllString(loc, "")
	if i := strings.Index(loc, ","); i >= 0 {
		loc = loc[:i]
	}
	loc = multiSpaceRegex.ReplaceAllString(loc, " ")
	return strings.TrimSpace(loc)
}

// MergeKey identifies the same physical car posted on several marketplaces.
// Price, mileage and year must match exactly.
func MergeKey(l models.Listing) string {
	return fmt.Sprintf("%d|%d|%s|%s",
		l.Car.Year,
		l.Car.Mileage,
		strconv.FormatFloat(l.Metadata.Price, 'f', -1, 64),
		NormalizeLocation(l.Metadata.Location),
	)
}

// Fingerprint is a stable identifier for a listing derived from its merge key.
func Fingerprint(l models.Listing) string {
	hash := sha256.Sum256([]byte(MergeKey(l)))
	return hex.EncodeToString(hash[:16])
}
