package extract

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

const extractorName = "pattern/v1"

// Confidence weight groups. Each signal contributes its pattern weight
// scaled by the group factor; the sum clamps to [0, 1].
const (
	shapeFactor   = 0.2
	companyFactor = 0.25
	valueFactor   = 0.2
	statusFactor  = 0.1

	industryBonus = 0.1
	regionBonus   = 0.05
	advisorBonus  = 0.05
	dateBonus     = 0.1

	valueWeight = 0.9
)

// context windows around a shape match, in bytes
const (
	valueContextRadius = 200
	dateContextRadius  = 200
)

// Engine turns article text into candidate deals using layered pattern
// matching with additive confidence scoring.
type Engine struct {
	industry *categoryMatcher
	region   *categoryMatcher
	logger   *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		industry: newIndustryMatcher(),
		region:   newRegionMatcher(),
		logger:   logger,
	}
}

// Extract scans text for deal announcements. Text with no recognizable
// deal shape yields an empty result; callers decide what confidence is
// too low to keep.
func (e *Engine) Extract(text string) []pipeline.CandidateDeal {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	textLower := strings.ToLower(text)

	industry := e.industry.Match(textLower, "other")
	region := e.region.Match(textLower, "")
	status, statusWeight := detectStatus(textLower)
	finAdvisors, legalAdvisors, advisorHits := extractAdvisors(text)

	var deals []pipeline.CandidateDeal
	seen := make(map[string]struct{})
	// Rules for a shape are ordered most-specific first; once one
	// matches, the rest of that shape's rules would only re-report the
	// same sentences.
	matched := make(map[pipeline.DealShape]bool)

	for _, rule := range shapeRules {
		if matched[rule.shape] {
			continue
		}
		locs := rule.re.FindAllStringSubmatchIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		matched[rule.shape] = true
		for _, loc := range locs {
			deal := e.buildDeal(text, rule, loc)
			deal.Industry = industry
			deal.Region = region
			deal.Status = status
			deal.FinancialAdvisors = finAdvisors
			deal.LegalAdvisors = legalAdvisors

			deal.Confidence += statusWeight * statusFactor
			if industry != "other" {
				deal.Confidence += industryBonus
			}
			if region != "" {
				deal.Confidence += regionBonus
			}
			deal.Confidence += float64(advisorHits) * advisorBonus
			deal.Confidence = clamp01(deal.Confidence)

			deal.Fingerprint = Fingerprint(&deal)
			if _, dup := seen[deal.Fingerprint]; dup {
				continue
			}
			seen[deal.Fingerprint] = struct{}{}
			deals = append(deals, deal)
		}
	}
	return deals
}

func (e *Engine) buildDeal(text string, rule shapeRule, loc []int) pipeline.CandidateDeal {
	deal := pipeline.CandidateDeal{
		Shape:     rule.shape,
		Extractor: extractorName,
		CreatedAt: time.Now().UTC(),
	}
	deal.Confidence = rule.weight * shapeFactor

	first := groupText(text, loc, 1)
	second := groupText(text, loc, 2)
	switch {
	case rule.singleC:
		deal.Target = cleanCompanyName(first)
	case rule.swap:
		deal.Target = cleanCompanyName(first)
		deal.Acquirer = cleanCompanyName(second)
	default:
		deal.Acquirer = cleanCompanyName(first)
		deal.Target = cleanCompanyName(second)
	}
	if deal.Acquirer != "" || deal.Target != "" {
		deal.Confidence += rule.weight * companyFactor
	}

	// Match offsets index the original text; lowercasing can change byte
	// lengths, so slice first and lowercase the window after.
	valueCtx := strings.ToLower(window(text, loc[0], loc[1], valueContextRadius))
	if v, ok := parseValue(valueCtx); ok {
		deal.Value = &v
		deal.Currency = "USD"
		deal.Confidence += valueWeight * valueFactor
	}

	dateCtx := window(text, loc[0], loc[1], dateContextRadius)
	announced, expectedClose := parseDates(dateCtx)
	if !announced.IsZero() {
		deal.Announced = announced
		deal.Confidence += dateBonus
	}
	if !expectedClose.IsZero() {
		deal.ExpectedClose = expectedClose
		deal.Confidence += dateBonus
	}
	return deal
}

func detectStatus(textLower string) (pipeline.DealStatus, float64) {
	for _, rule := range statusRules {
		if rule.re.MatchString(textLower) {
			return rule.status, rule.weight
		}
	}
	return pipeline.StatusAnnounced, 0
}

func extractAdvisors(text string) (financial, legal []string, hits int) {
	for _, rule := range advisorRules {
		matches := rule.re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		hits++
		for _, m := range matches {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			if rule.legal {
				legal = appendUnique(legal, name)
			} else {
				financial = appendUnique(financial, name)
			}
		}
	}
	return financial, legal, hits
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}

func groupText(text string, loc []int, group int) string {
	i := 2 * group
	if i+1 >= len(loc) || loc[i] < 0 {
		return ""
	}
	return text[loc[i]:loc[i+1]]
}

func window(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
