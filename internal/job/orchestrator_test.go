package job

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/crawl"
	"github.com/mergertracker/dealcrawl/internal/fetch"
	"github.com/mergertracker/dealcrawl/internal/sink"
)

func newArticleServer(t *testing.T, articles map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>")
		for path := range articles {
			fmt.Fprintf(w, `<a class="story" href="%s">x</a>`, path)
		}
		fmt.Fprint(w, "</body></html>")
	})
	for path, body := range articles {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><body><h1 class="headline">Deal</h1><div class="article-body"><p>%s</p></div></body></html>`, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sourceFor(name, baseURL string) config.SourceConfig {
	return config.SourceConfig{
		Name:        name,
		StartURLs:   []string{baseURL + "/news"},
		Concurrency: 1,
		Selectors: config.Selectors{
			ArticleLinks: "a.story",
			Title:        "h1.headline",
			Body:         "div.article-body p",
		},
	}
}

func testConfig(sources ...config.SourceConfig) config.Config {
	return config.Config{
		Crawl: config.CrawlConfig{
			MinConfidence: 0.3,
			DefaultDelay:  time.Millisecond,
		},
		Retry: config.RetryConfig{
			MaxAttempts:   2,
			BaseDelay:     5 * time.Millisecond,
			MaxDelay:      50 * time.Millisecond,
			BlockCooldown: 10 * time.Millisecond,
		},
		Sink:    config.SinkConfig{SaveArticles: true},
		Sources: sources,
	}
}

func newTestOrchestrator(t *testing.T, cfg config.Config) (*Orchestrator, *sink.Memory) {
	t.Helper()
	logger := zap.NewNop()
	client := fetch.NewCollyClient(fetch.CollyConfig{Timeout: 5 * time.Second}, logger)
	mem := sink.NewMemory()
	return NewOrchestrator(cfg, client, mem, logger), mem
}

func TestRunIsolatesFailingSource(t *testing.T) {
	t.Parallel()

	good := newArticleServer(t, map[string]string{
		"/news/deal-1": "BigCorp agrees to acquire SmallCo for $1.2 billion.",
		"/news/deal-2": "AlphaWidgets merges with BetaGadgets in a deal worth $4 billion.",
	})

	cfg := testConfig(
		sourceFor("good_source", good.URL),
		// Nothing listens on this port.
		sourceFor("bad_source", "http://127.0.0.1:1"),
	)
	o, mem := newTestOrchestrator(t, cfg)

	summary, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.InDelta(t, 0.5, summary.SuccessRate, 0.001)
	require.True(t, summary.Healthy())

	articles, deals, _ := mem.Counts()
	require.Equal(t, 2, articles)
	require.Equal(t, 2, deals)
	require.Equal(t, summary.Articles, articles)
	require.Equal(t, summary.Deals, deals)
}

func TestRunAllSourcesFailIsUnhealthy(t *testing.T) {
	t.Parallel()

	cfg := testConfig(
		sourceFor("bad_one", "http://127.0.0.1:1"),
		sourceFor("bad_two", "http://127.0.0.1:1"),
	)
	o, _ := newTestOrchestrator(t, cfg)

	summary, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Succeeded)
	require.Equal(t, 2, summary.Failed)
	require.False(t, summary.Healthy())
}

func TestRunSelectsNamedSource(t *testing.T) {
	t.Parallel()

	good := newArticleServer(t, map[string]string{
		"/news/deal-1": "BigCorp agrees to acquire SmallCo for $2 billion.",
	})
	cfg := testConfig(
		sourceFor("first", good.URL),
		sourceFor("second", "http://127.0.0.1:1"),
	)
	o, _ := newTestOrchestrator(t, cfg)

	summary, err := o.Run(context.Background(), []string{"first"})
	require.NoError(t, err)
	require.Len(t, summary.Sources, 1)
	require.Equal(t, "first", summary.Sources[0].Source)
	require.Equal(t, 1, summary.Succeeded)
}

func TestRunUnknownSource(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, testConfig(sourceFor("only", "http://127.0.0.1:1")))
	_, err := o.Run(context.Background(), []string{"missing"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestRunNoSourcesConfigured(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, testConfig())
	_, err := o.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestRunHonorsMaxRuntime(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(slow.Close)

	cfg := testConfig(sourceFor("slow_source", slow.URL))
	cfg.Crawl.MaxRuntime = 100 * time.Millisecond
	o, _ := newTestOrchestrator(t, cfg)

	start := time.Now()
	summary, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1, summary.Failed)
}

func TestRunGlobalItemCap(t *testing.T) {
	t.Parallel()

	articles := make(map[string]string)
	for i := 0; i < 8; i++ {
		articles[fmt.Sprintf("/news/deal-%d", i)] = fmt.Sprintf("Firm%d agrees to acquire Unit%d for $1 billion.", i, i)
	}
	srv := newArticleServer(t, articles)

	cfg := testConfig(sourceFor("capped", srv.URL))
	cfg.Crawl.GlobalMaxItems = 3
	o, mem := newTestOrchestrator(t, cfg)

	_, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	saved, _, _ := mem.Counts()
	require.LessOrEqual(t, saved, 3)
}

func TestMergeSummaryMath(t *testing.T) {
	t.Parallel()

	reports := []crawl.Report{
		{Source: "a", Pages: 3, Articles: 3, Deals: 2},
		{Source: "b", Err: "boom"},
	}
	s := merge("run-1", time.Now().Add(-time.Minute), reports)
	require.Equal(t, 1, s.Succeeded)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, 3, s.Articles)
	require.Equal(t, 2, s.Deals)
	require.InDelta(t, 0.5, s.SuccessRate, 0.001)
	require.Greater(t, s.ItemsPerMin, 0.0)
}
