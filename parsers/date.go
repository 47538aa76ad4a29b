package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var polishMonths = map[string]string{
	"styczeń": "01", "stycznia": "01",
	"luty": "02", "lutego": "02",
	"marzec": "03", "marca": "03",
	"kwiecień": "04", "kwietnia": "04",
	"maj": "05", "maja": "05",
	"czerwiec": "06", "czerwca": "06",
	"lipiec": "07", "lipca": "07",
	"sierpień": "08", "sierpnia": "08",
	"wrzesień": "09", "września": "09",
	"październik": "10", "października": "10",
	"listopad": "11", "listopada": "11",
	"grudzień": "12", "grudnia": "12",
}

var (
	longDateRe = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// ParseDateString converts a Polish long-form date such as "1 stycznia 2020"
// into the "DD.MM.YYYY" form expected by the vehicle registry.
func ParseDateString(s string) (string, error) {
	m := longDateRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("invalid date format: %q", s)
	}
	month, ok := polishMonths[strings.ToLower(m[2])]
	if !ok {
		return "", fmt.Errorf("invalid date format: unknown month %q in %q", m[2], s)
	}
	day := m[1]
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s.%s.%s", day, month, m[3]), nil
}

// ParseYear extracts the first plausible production year from s.
func ParseYear(s string) (int, bool) {
	m := yearRe.FindString(s)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}
