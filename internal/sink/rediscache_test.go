package sink

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

func newCacheUnderTest(t *testing.T) (*RedisCache, *Memory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mem := NewMemory()
	return NewRedisCache(mem, client, 24*time.Hour, zap.NewNop()), mem, mr
}

func TestRedisCacheSkipsRecentDuplicates(t *testing.T) {
	t.Parallel()

	c, mem, _ := newCacheUnderTest(t)
	ctx := context.Background()
	article := &pipeline.RawArticle{URL: "https://example.com/a", Title: "T", Body: "B", Source: "s"}

	id1, err := c.Save(ctx, article)
	require.NoError(t, err)
	id2, err := c.Save(ctx, article)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	// Only one write reached the underlying sink.
	articles, _, _ := mem.Counts()
	require.Equal(t, 1, articles)
}

func TestRedisCacheExpiryAllowsRewrite(t *testing.T) {
	t.Parallel()

	c, mem, mr := newCacheUnderTest(t)
	ctx := context.Background()
	deal := &pipeline.CandidateDeal{Fingerprint: "abcd1234abcd1234", Industry: "other"}

	_, err := c.Save(ctx, deal)
	require.NoError(t, err)

	mr.FastForward(25 * time.Hour)

	_, err = c.Save(ctx, deal)
	require.NoError(t, err)
	_, deals, _ := mem.Counts()
	require.Equal(t, 2, deals)
}

func TestRedisCacheFailureDoesNotBlockSave(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mem := NewMemory()
	c := NewRedisCache(mem, client, time.Hour, zap.NewNop())
	mr.Close()

	_, err := c.Save(context.Background(), &pipeline.RawArticle{URL: "https://example.com/a"})
	require.NoError(t, err)
	articles, _, _ := mem.Counts()
	require.Equal(t, 1, articles)
}

func TestRedisCacheBatchForwardsOnlyMisses(t *testing.T) {
	t.Parallel()

	c, mem, _ := newCacheUnderTest(t)
	ctx := context.Background()
	article := &pipeline.RawArticle{URL: "https://example.com/a", Title: "T", Body: "B", Source: "s"}
	deal := &pipeline.CandidateDeal{Fingerprint: "abcd1234abcd1234", Industry: "other"}

	cachedID, err := c.Save(ctx, article)
	require.NoError(t, err)

	ids, err := c.SaveBatch(ctx, []pipeline.ScrapedItem{article, deal})
	require.NoError(t, err)
	require.Equal(t, []string{cachedID, deal.Fingerprint}, ids)

	// The article was cached, so only the deal reached the sink.
	articles, deals, _ := mem.Counts()
	require.Equal(t, 1, articles)
	require.Equal(t, 1, deals)

	// A second batch is served entirely from cache.
	_, err = c.SaveBatch(ctx, []pipeline.ScrapedItem{article, deal})
	require.NoError(t, err)
	articles, deals, _ = mem.Counts()
	require.Equal(t, 1, articles)
	require.Equal(t, 1, deals)
}
