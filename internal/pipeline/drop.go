package pipeline

// DropReason explains why a pipeline stage discarded an item. Stages
// return it instead of raising; the caller decides whether dropping is
// log-worthy or fatal for the source.
type DropReason string

// Drop reasons emitted by the crawl and dedup stages.
const (
	DropNone          DropReason = ""
	DropDuplicateURL  DropReason = "duplicate_url"
	DropDuplicateDeal DropReason = "duplicate_deal"
	DropPaywalled     DropReason = "paywalled"
	DropIrrelevant    DropReason = "irrelevant"
	DropEmptyBody     DropReason = "empty_body"
	DropLowConfidence DropReason = "low_confidence"
)

// Dropped pairs an item with the reason it was discarded, for run
// accounting and debug logging.
type Dropped struct {
	Item   ScrapedItem
	Reason DropReason
}
