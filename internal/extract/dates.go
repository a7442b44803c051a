package extract

import (
	"regexp"
	"time"

	"github.com/araddon/dateparse"
)

var (
	announcedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)announced\s+(?:on\s+)?([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)said\s+(?:on\s+)?([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)\bon\s+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	}
	expectedClosePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)expected\s+to\s+(?:close|complete)\s+(?:by\s+)?(?:in\s+)?([A-Za-z]+\s+\d{4})`),
		regexp.MustCompile(`(?i)completion\s+(?:by\s+)?([A-Za-z]+\s+\d{4})`),
	}
)

// parseDates pulls the announcement and expected-completion dates from
// the context around a shape match. Unparseable dates are dropped rather
// than guessed at.
func parseDates(context string) (announced, expectedClose time.Time) {
	for _, re := range announcedPatterns {
		if m := re.FindStringSubmatch(context); m != nil {
			if t, err := dateparse.ParseAny(m[1]); err == nil {
				announced = t
				break
			}
		}
	}
	for _, re := range expectedClosePatterns {
		if m := re.FindStringSubmatch(context); m != nil {
			if t, err := dateparse.ParseAny(m[1]); err == nil {
				expectedClose = t
				break
			}
		}
	}
	return announced, expectedClose
}
