package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// FileSystem appends items as JSON lines, one file per item kind per
// day. Useful as a durable fallback when no database is configured.
type FileSystem struct {
	mu     sync.Mutex
	root   string
	logger *zap.Logger
}

// NewFileSystem returns a sink rooted at dir.
func NewFileSystem(root string, logger *zap.Logger) (*FileSystem, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", root, err)
	}
	return &FileSystem{root: root, logger: logger}, nil
}

// Save implements Sink.
func (s *FileSystem) Save(ctx context.Context, item pipeline.ScrapedItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	var kind string
	switch item.(type) {
	case *pipeline.RawArticle:
		kind = "articles"
	case *pipeline.CandidateDeal:
		kind = "deals"
	case *pipeline.CompanyInfo:
		kind = "companies"
	default:
		return "", fmt.Errorf("unsupported item type %T", item)
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("marshal item: %w", err)
	}
	target := filepath.Join(s.root, fmt.Sprintf("%s-%s.jsonl", kind, time.Now().UTC().Format(time.DateOnly)))

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", target, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Debug("failed to close sink file", zap.Error(cerr))
		}
	}()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return "", fmt.Errorf("append to %s: %w", target, err)
	}
	return target, nil
}

// SaveBatch implements Sink.
func (s *FileSystem) SaveBatch(ctx context.Context, items []pipeline.ScrapedItem) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := s.Save(ctx, item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Ping implements Sink.
func (s *FileSystem) Ping(context.Context) error {
	_, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat sink dir: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *FileSystem) Close() error { return nil }
