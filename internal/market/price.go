package market

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`(\d[\d.,]*)`)

// ParsePriceCents converts a localized marketplace price string into integer
// cents. Handles both "1,234.56" and "1.234,56" groupings, bare "3,50"
// decimals, currency symbols and the "or more" suffix the listing page
// appends. Returns false when the text holds no number.
func ParsePriceCents(text string) (int64, bool) {
	t := strings.TrimSpace(html.UnescapeString(text))
	t = strings.TrimSpace(strings.ReplaceAll(t, "or more", ""))
	m := numberRe.FindString(t)
	if m == "" {
		return 0, false
	}

	switch {
	case strings.Contains(m, ".") && strings.Contains(m, ","):
		if strings.LastIndex(m, ",") > strings.LastIndex(m, ".") {
			// "1.234,56" — dot groups, comma is the decimal separator
			m = strings.ReplaceAll(m, ".", "")
			m = strings.ReplaceAll(m, ",", ".")
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case strings.Count(m, ",") == 1:
		m = strings.ReplaceAll(m, ",", ".")
	default:
		m = strings.ReplaceAll(m, ",", "")
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// parseInt extracts the digits of a text cell ("1,532 listings" → 1532).
func parseInt(text string) int64 {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, _ := strconv.ParseInt(b.String(), 10, 64)
	return n
}
