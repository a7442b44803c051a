package crawl

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// Report is one source's crawl outcome.
type Report struct {
	Source   string                      `json:"source"`
	Pages    int                         `json:"pages_fetched"`
	Articles int                         `json:"articles_saved"`
	Deals    int                         `json:"deals_extracted"`
	Dropped  map[pipeline.DropReason]int `json:"dropped,omitempty"`
	Errors   int                         `json:"errors"`
	Duration time.Duration               `json:"duration"`
	Err      string                      `json:"error,omitempty"`
}

// Succeeded reports whether the source completed without a fatal error
// and reached at least one page. Individual page failures count in
// Errors but do not fail the source on their own.
func (r *Report) Succeeded() bool {
	if r.Err != "" {
		return false
	}
	return r.Pages > 0 || r.Errors == 0
}

// reportBuilder accumulates counts from concurrent article workers.
type reportBuilder struct {
	mu     sync.Mutex
	report Report
}

func newReportBuilder(source string) *reportBuilder {
	return &reportBuilder{report: Report{
		Source:  source,
		Dropped: make(map[pipeline.DropReason]int),
	}}
}

func (b *reportBuilder) page() {
	b.mu.Lock()
	b.report.Pages++
	b.mu.Unlock()
}

func (b *reportBuilder) article() {
	b.mu.Lock()
	b.report.Articles++
	b.mu.Unlock()
}

func (b *reportBuilder) deal() {
	b.mu.Lock()
	b.report.Deals++
	b.mu.Unlock()
}

func (b *reportBuilder) drop(reason pipeline.DropReason) {
	b.mu.Lock()
	b.report.Dropped[reason]++
	b.mu.Unlock()
}

func (b *reportBuilder) errored() {
	b.mu.Lock()
	b.report.Errors++
	b.mu.Unlock()
}

func (b *reportBuilder) finish(start time.Time, err error) Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report.Duration = time.Since(start)
	if err != nil {
		b.report.Err = err.Error()
	}
	return b.report
}

// Budget caps total items across every source in a run.
type Budget struct {
	remaining int64
	unlimited bool
}

// NewBudget builds a budget allowing max items; max <= 0 means unlimited.
func NewBudget(max int) *Budget {
	if max <= 0 {
		return &Budget{unlimited: true}
	}
	return &Budget{remaining: int64(max)}
}

// TryAcquire claims one item slot, reporting false once the budget is
// spent.
func (b *Budget) TryAcquire() bool {
	if b == nil || b.unlimited {
		return true
	}
	for {
		cur := atomic.LoadInt64(&b.remaining)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.remaining, cur, cur-1) {
			return true
		}
	}
}

// Exhausted reports whether the budget is spent.
func (b *Budget) Exhausted() bool {
	if b == nil || b.unlimited {
		return false
	}
	return atomic.LoadInt64(&b.remaining) <= 0
}
