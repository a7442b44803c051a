// Package pipeline defines the item types flowing between crawl stages.
package pipeline

import "time"

// DealShape is the transaction category inferred from matched text.
type DealShape string

// Recognized deal shapes.
const (
	ShapeAcquisition DealShape = "acquisition"
	ShapeMerger      DealShape = "merger"
	ShapeIPO         DealShape = "ipo"
	ShapeDivestiture DealShape = "divestiture"
	ShapeUnknown     DealShape = "unknown"
)

// DealStatus tracks where an announced transaction stands.
type DealStatus string

// Recognized deal statuses.
const (
	StatusAnnounced DealStatus = "announced"
	StatusPending   DealStatus = "pending"
	StatusCompleted DealStatus = "completed"
	StatusCanceled  DealStatus = "canceled"
)

// RawArticle is one successfully fetched and parsed news page.
// Immutable once created; the canonical URL identifies it within a run.
type RawArticle struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Body        string    `json:"content"`
	Author      string    `json:"author,omitempty"`
	Published   time.Time `json:"published_date,omitempty"`
	Source      string    `json:"source"`
	WordCount   int       `json:"word_count"`
	ReadingTime int       `json:"reading_time"`
	FetchedAt   time.Time `json:"scraped_date"`
}

// CandidateDeal is one extracted transaction candidate. Many deals may
// reference the same article. Value and dates are optional: a nil Value
// means no monetary figure was recognized, and zero times mean no date
// was recognized.
type CandidateDeal struct {
	Fingerprint       string     `json:"deal_id"`
	Shape             DealShape  `json:"deal_type"`
	Status            DealStatus `json:"deal_status,omitempty"`
	Acquirer          string     `json:"acquirer_company,omitempty"`
	Target            string     `json:"target_company,omitempty"`
	Value             *float64   `json:"deal_value,omitempty"`
	Currency          string     `json:"deal_value_currency,omitempty"`
	Industry          string     `json:"industry_sector"`
	Region            string     `json:"geographic_region,omitempty"`
	Announced         time.Time  `json:"announcement_date,omitempty"`
	ExpectedClose     time.Time  `json:"expected_completion_date,omitempty"`
	FinancialAdvisors []string   `json:"financial_advisors,omitempty"`
	LegalAdvisors     []string   `json:"legal_advisors,omitempty"`
	Confidence        float64    `json:"confidence_score"`
	ArticleURL        string     `json:"source_url"`
	Extractor         string     `json:"extraction_method"`
	CreatedAt         time.Time  `json:"created_date"`
}

// CompanyInfo carries standalone company facts picked up during a crawl.
type CompanyInfo struct {
	Name      string    `json:"company_name"`
	Ticker    string    `json:"ticker_symbol,omitempty"`
	Exchange  string    `json:"exchange,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Source    string    `json:"data_source"`
	UpdatedAt time.Time `json:"last_updated"`
}

// ScrapedItem is the closed set of item kinds a crawler can emit. Sinks
// switch on the concrete type instead of sniffing fields.
type ScrapedItem interface {
	isScrapedItem()
}

func (RawArticle) isScrapedItem()    {}
func (CandidateDeal) isScrapedItem() {}
func (CompanyInfo) isScrapedItem()   {}
