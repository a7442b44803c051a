// Package sink persists scraped items.
package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// Sink persists scraped items. Save returns the stored item's
// identifier; SaveBatch returns one identifier per item, in order.
type Sink interface {
	Save(ctx context.Context, item pipeline.ScrapedItem) (string, error)
	SaveBatch(ctx context.Context, items []pipeline.ScrapedItem) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Memory keeps everything in process. Used in tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	Articles []*pipeline.RawArticle
	Deals    []*pipeline.CandidateDeal
	Profiles []*pipeline.CompanyInfo
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Save(ctx context.Context, item pipeline.ScrapedItem) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := item.(type) {
	case *pipeline.RawArticle:
		m.Articles = append(m.Articles, v)
		return v.URL, nil
	case *pipeline.CandidateDeal:
		m.Deals = append(m.Deals, v)
		return v.Fingerprint, nil
	case *pipeline.CompanyInfo:
		m.Profiles = append(m.Profiles, v)
		return v.Name, nil
	default:
		return "", fmt.Errorf("unsupported item type %T", item)
	}
}

func (m *Memory) SaveBatch(ctx context.Context, items []pipeline.ScrapedItem) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := m.Save(ctx, item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Counts reports stored totals per item kind.
func (m *Memory) Counts() (articles, deals, profiles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Articles), len(m.Deals), len(m.Profiles)
}
