package extract

import (
	"github.com/cloudflare/ahocorasick"
)

// categoryMatcher resolves lowercased text to the first category, in
// declaration order, with any keyword present. Aho-Corasick gives one
// scan over the text regardless of dictionary size.
type categoryMatcher struct {
	matcher    *ahocorasick.Matcher
	categories []string
	// rank of the category each dictionary entry belongs to
	entryRank []int
}

func newCategoryMatcher(ordered []string, keywords map[string][]string) *categoryMatcher {
	var dict []string
	var ranks []int
	for rank, cat := range ordered {
		for _, kw := range keywords[cat] {
			dict = append(dict, kw)
			ranks = append(ranks, rank)
		}
	}
	return &categoryMatcher{
		matcher:    ahocorasick.NewStringMatcher(dict),
		categories: ordered,
		entryRank:  ranks,
	}
}

// Match returns the winning category for lowercased text, or fallback.
func (m *categoryMatcher) Match(textLower, fallback string) string {
	hits := m.matcher.Match([]byte(textLower))
	best := -1
	for _, hit := range hits {
		rank := m.entryRank[hit]
		if best == -1 || rank < best {
			best = rank
		}
	}
	if best == -1 {
		return fallback
	}
	return m.categories[best]
}

var industryOrder = []string{
	"technology", "healthcare", "financial_services", "energy",
	"real_estate", "retail", "manufacturing", "telecommunications",
}

var industryKeywords = map[string][]string{
	"technology":         {"technology", "tech", "software", "saas", "artificial intelligence", "cloud", "digital"},
	"healthcare":         {"healthcare", "pharma", "pharmaceutical", "biotech", "medical", "drug"},
	"financial_services": {"financial", "banking", "bank", "insurance", "fintech", "payments", "credit"},
	"energy":             {"energy", "oil", "gas", "renewable", "solar", "wind", "utilities", "petroleum"},
	"real_estate":        {"real estate", "property", "reit", "construction"},
	"retail":             {"retail", "consumer", "e-commerce", "fashion", "apparel"},
	"manufacturing":      {"manufacturing", "industrial", "automotive", "aerospace"},
	"telecommunications": {"telecom", "telecommunications", "wireless", "broadband"},
}

var regionOrder = []string{"north_america", "europe", "asia_pacific", "global"}

var regionKeywords = map[string][]string{
	"north_america": {"united states", "usa", "canada", "north america", "american"},
	"europe":        {"europe", "european", "germany", "france", "britain", "england"},
	"asia_pacific":  {"asia", "china", "japan", "singapore", "australia", "korea", "india"},
	"global":        {"global", "worldwide", "international", "multinational"},
}

func newIndustryMatcher() *categoryMatcher {
	return newCategoryMatcher(industryOrder, industryKeywords)
}

func newRegionMatcher() *categoryMatcher {
	return newCategoryMatcher(regionOrder, regionKeywords)
}
