package sink

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

func TestFileSystemAppendsJSONLines(t *testing.T) {
	t.Parallel()

	s, err := NewFileSystem(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	path1, err := s.Save(ctx, &pipeline.RawArticle{URL: "https://example.com/a", Title: "A", Source: "s"})
	require.NoError(t, err)
	path2, err := s.Save(ctx, &pipeline.RawArticle{URL: "https://example.com/b", Title: "B", Source: "s"})
	require.NoError(t, err)
	require.Equal(t, path1, path2)

	raw, err := os.ReadFile(path1)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var got pipeline.RawArticle
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	require.Equal(t, "https://example.com/a", got.URL)
}

func TestFileSystemSeparatesKinds(t *testing.T) {
	t.Parallel()

	s, err := NewFileSystem(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	articlePath, err := s.Save(ctx, &pipeline.RawArticle{URL: "https://example.com/a"})
	require.NoError(t, err)
	dealPath, err := s.Save(ctx, &pipeline.CandidateDeal{Fingerprint: "abcd1234abcd1234", Industry: "other"})
	require.NoError(t, err)
	require.NotEqual(t, articlePath, dealPath)
	require.Contains(t, articlePath, "articles-")
	require.Contains(t, dealPath, "deals-")
}

func TestFileSystemPing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileSystem(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
}

func TestFileSystemSaveBatch(t *testing.T) {
	t.Parallel()

	s, err := NewFileSystem(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	ids, err := s.SaveBatch(context.Background(), []pipeline.ScrapedItem{
		&pipeline.RawArticle{URL: "https://example.com/a", Title: "A", Source: "s"},
		&pipeline.CandidateDeal{Fingerprint: "abcd1234abcd1234", Industry: "other"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids[0], "articles-")
	require.Contains(t, ids[1], "deals-")
}
