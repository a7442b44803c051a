package extract

import (
	"regexp"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// shapeRule is one deal-shape detection pattern. Patterns run
// case-insensitively against the original text so capture groups keep
// company-name casing intact. swap means group 1 is the target and
// group 2 the acquirer.
type shapeRule struct {
	shape   pipeline.DealShape
	re      *regexp.Regexp
	weight  float64
	swap    bool
	singleC bool
}

var shapeRules = []shapeRule{
	// Acquisitions.
	{
		shape:  pipeline.ShapeAcquisition,
		re:     regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:agrees to acquire|will acquire|is acquiring|agreed to buy|will buy|is buying)\s+(\w+(?:[^\S\r\n]+\w+)*?)(?:\s+for|\s+in a deal)`),
		weight: 0.9,
	},
	{
		shape:  pipeline.ShapeAcquisition,
		re:     regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+to\s+(?:acquire|buy|purchase)\s+(\w+(?:[^\S\r\n]+\w+)*?)(?:\s+for|\s+in)`),
		weight: 0.8,
	},
	{
		shape:  pipeline.ShapeAcquisition,
		re:     regexp.MustCompile(`(?i)acquisition\s+of\s+(\w+(?:[^\S\r\n]+\w+)*?)\s+by\s+(\w+(?:[^\S\r\n]+\w+)*?)\b`),
		weight: 0.8,
		swap:   true,
	},
	{
		shape:  pipeline.ShapeAcquisition,
		re:     regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:acquires|bought|purchased)\s+(\w+(?:[^\S\r\n]+\w+)*?)\b`),
		weight: 0.9,
	},
	// Mergers.
	{
		shape:  pipeline.ShapeMerger,
		re:     regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:merges with|to merge with|merging with)\s+(\w+(?:[^\S\r\n]+\w+)*?)\b`),
		weight: 0.9,
	},
	{
		shape:  pipeline.ShapeMerger,
		re:     regexp.MustCompile(`(?i)merger\s+(?:between|of)\s+(\w+(?:[^\S\r\n]+\w+)*?)\s+and\s+(\w+(?:[^\S\r\n]+\w+)*?)\b`),
		weight: 0.9,
	},
	{
		shape:  pipeline.ShapeMerger,
		re:     regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+and\s+(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:to merge|will merge|are merging)`),
		weight: 0.8,
	},
	// IPOs carry a single company.
	{
		shape:   pipeline.ShapeIPO,
		re:      regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:files for|plans|prepares for)\s+(?:ipo|initial public offering)`),
		weight:  0.9,
		singleC: true,
	},
	{
		shape:   pipeline.ShapeIPO,
		re:      regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:goes public|going public)`),
		weight:  0.7,
		singleC: true,
	},
	// Divestitures.
	{
		shape:  pipeline.ShapeDivestiture,
		re:     regexp.MustCompile(`(?i)(\w+(?:[^\S\r\n]+\w+)*?)\s+(?:divests|spins off|sells)\s+(\w+(?:[^\S\r\n]+\w+)*?)\b`),
		weight: 0.8,
	},
}

// statusRule detects deal lifecycle status in lowercased text.
type statusRule struct {
	re     *regexp.Regexp
	status pipeline.DealStatus
	weight float64
}

var statusRules = []statusRule{
	{regexp.MustCompile(`\b(?:completed|closed|finalized)\b`), pipeline.StatusCompleted, 0.9},
	{regexp.MustCompile(`\b(?:terminated|cancelled|abandoned)\b`), pipeline.StatusCanceled, 0.9},
	{regexp.MustCompile(`\b(?:pending|awaiting|subject to)\b`), pipeline.StatusPending, 0.7},
	{regexp.MustCompile(`\b(?:announced|announces|agrees|agreed)\b`), pipeline.StatusAnnounced, 0.8},
}

// advisorRule pulls financial and legal advisors from original-case text.
type advisorRule struct {
	re    *regexp.Regexp
	legal bool
}

var advisorRules = []advisorRule{
	{re: regexp.MustCompile(`advised by ([A-Z][a-zA-Z\s&]+?)(?:[.,]|$)`)},
	{re: regexp.MustCompile(`([A-Z][a-zA-Z\s&]+?) advised\b`)},
	{re: regexp.MustCompile(`legal counsel[:\s]+([A-Z][a-zA-Z\s&]+?)(?:[.,]|$)`), legal: true},
	{re: regexp.MustCompile(`represented by ([A-Z][a-zA-Z\s&]+?)(?:[.,]|$)`), legal: true},
}
