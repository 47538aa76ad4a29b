package parsers

import (
	"regexp"
	"strings"
)

var priceCharsRe = regexp.MustCompile(`[^\d,. ]`)

// ParsePrice parses a price with any of the separator conventions seen on
// the marketplaces: "100 000", "100, 000", "100,000", "100,50", "1,234.56".
// Currency symbols and words are ignored.
func ParsePrice(s string) (float64, bool) {
	clean := strings.TrimSpace(priceCharsRe.ReplaceAllString(s, ""))
	if clean == "" {
		return 0, false
	}

	switch {
	case strings.Contains(clean, ", "):
		clean = strings.ReplaceAll(clean, ", ", "")
	case strings.Contains(clean, ",") && !strings.Contains(clean, "."):
		parts := strings.Split(clean, ",")
		if len(parts) == 2 && len(parts[1]) == 3 {
			clean = strings.Replace(clean, ",", "", 1)
		} else if len(parts) == 2 && len(parts[1]) <= 2 {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case strings.Contains(clean, ",") && strings.Contains(clean, "."):
		clean = strings.ReplaceAll(clean, ",", "")
	}

	clean = whitespaceRe.ReplaceAllString(clean, "")
	return leadingFloat(clean)
}
