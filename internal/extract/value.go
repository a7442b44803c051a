package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// valuePatterns find dollar deal values near a shape match. Text is
// already lowercased.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$([0-9,]+(?:\.[0-9]+)?)\s*(billion|million|bn|mn|b|m)\b`),
	regexp.MustCompile(`worth\s+\$([0-9,]+(?:\.[0-9]+)?)\s*(billion|million|bn|mn|b|m)?`),
	regexp.MustCompile(`valued\s+at\s+\$([0-9,]+(?:\.[0-9]+)?)\s*(billion|million|bn|mn|b|m)?`),
	regexp.MustCompile(`for\s+\$([0-9,]+(?:\.[0-9]+)?)\s*(billion|million|bn|mn|b|m)?`),
}

// parseValue scans lowercased context for a deal value in USD. Returned
// value is in dollars; ok is false when no parseable value appears.
func parseValue(context string) (float64, bool) {
	for _, re := range valuePatterns {
		m := re.FindStringSubmatch(context)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		unit := ""
		if len(m) > 2 {
			unit = m[2]
		}
		switch unit {
		case "billion", "bn", "b":
			v *= 1e9
		case "million", "mn", "m":
			v *= 1e6
		}
		return v, true
	}
	return 0, false
}
