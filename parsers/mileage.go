// Package parsers turns the free-text numbers and dates scraped from
// marketplaces into typed values.
package parsers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonNumericRe = regexp.MustCompile(`[^\d.]`)
	leadingIntRe = regexp.MustCompile(`^\d+`)
	leadingNumRe = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)
)

// ParseMileage parses "120 000 km", "120k" or "120 tys" into kilometers.
func ParseMileage(s string) (int, bool) {
	s = whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
	if s == "" {
		return 0, false
	}

	for _, suffix := range []string{"k", "tys"} {
		if strings.HasSuffix(s, suffix) {
			n, ok := leadingFloat(strings.Replace(s, suffix, "", 1))
			if !ok {
				return 0, false
			}
			return int(math.Round(n * 1000)), true
		}
	}

	s = strings.Replace(s, "km", "", 1)
	s = nonNumericRe.ReplaceAllString(s, "")
	digits := leadingIntRe.FindString(s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingFloat parses the longest numeric prefix of s.
func leadingFloat(s string) (float64, bool) {
	m := leadingNumRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
