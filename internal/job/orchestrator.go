// Package job runs crawls across many sources in parallel and reports
// run-level outcomes.
package job

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/crawl"
	"github.com/mergertracker/dealcrawl/internal/dedupe"
	"github.com/mergertracker/dealcrawl/internal/extract"
	"github.com/mergertracker/dealcrawl/internal/fetch"
	"github.com/mergertracker/dealcrawl/internal/metrics"
	"github.com/mergertracker/dealcrawl/internal/politeness"
	"github.com/mergertracker/dealcrawl/internal/retry"
	"github.com/mergertracker/dealcrawl/internal/sink"
)

// RunSummary aggregates one run across all requested sources.
type RunSummary struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Duration    time.Duration  `json:"duration"`
	Sources     []crawl.Report `json:"sources"`
	Succeeded   int            `json:"sources_succeeded"`
	Failed      int            `json:"sources_failed"`
	Pages       int            `json:"pages_fetched"`
	Articles    int            `json:"articles_saved"`
	Deals       int            `json:"deals_extracted"`
	SuccessRate float64        `json:"success_rate"`
	ItemsPerMin float64        `json:"items_per_minute"`
}

// Healthy reports whether at least half the sources completed.
func (s *RunSummary) Healthy() bool {
	return s.SuccessRate >= 0.5
}

// Orchestrator fans a run out across sources, one goroutine per source,
// sharing politeness, dedup, budget, and sink state.
type Orchestrator struct {
	cfg    config.Config
	client fetch.Client
	sink   sink.Sink
	logger *zap.Logger
}

// NewOrchestrator wires an orchestrator over a prepared fetch client and
// sink.
func NewOrchestrator(cfg config.Config, client fetch.Client, snk sink.Sink, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, client: client, sink: snk, logger: logger}
}

// Run crawls the named sources (all configured sources when names is
// empty) and returns the merged summary. A panicking source is isolated:
// it fails alone while its siblings finish.
func (o *Orchestrator) Run(ctx context.Context, names []string) (RunSummary, error) {
	sources, err := o.selectSources(names)
	if err != nil {
		return RunSummary{}, err
	}

	if o.cfg.Crawl.MaxRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Crawl.MaxRuntime)
		defer cancel()
	}

	runID := uuid.NewString()
	started := time.Now()
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("starting crawl run", zap.Int("sources", len(sources)))

	deps := o.sharedDeps(logger)

	reports := make([]crawl.Report, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("source crawler panicked",
						zap.String("source", src.Name),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					reports[i] = crawl.Report{
						Source: src.Name,
						Err:    fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			crawler, cerr := crawl.New(src, o.cfg.Crawl, o.cfg.Sink.SaveArticles, deps)
			if cerr != nil {
				reports[i] = crawl.Report{Source: src.Name, Err: cerr.Error()}
				return
			}
			reports[i] = crawler.Crawl(ctx)
		}()
	}
	wg.Wait()

	summary := merge(runID, started, reports)
	result := "ok"
	if !summary.Healthy() {
		result = "degraded"
	}
	metrics.RunsTotal.WithLabelValues(result).Inc()
	logger.Info("crawl run finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("articles", summary.Articles),
		zap.Int("deals", summary.Deals),
		zap.Float64("success_rate", summary.SuccessRate),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (o *Orchestrator) selectSources(names []string) ([]config.SourceConfig, error) {
	if len(names) == 0 {
		if len(o.cfg.Sources) == 0 {
			return nil, fmt.Errorf("no sources configured")
		}
		return o.cfg.Sources, nil
	}
	var out []config.SourceConfig
	for _, name := range names {
		src, ok := o.cfg.Source(name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		out = append(out, src)
	}
	return out, nil
}

// sharedDeps builds the per-run state every source crawler shares.
func (o *Orchestrator) sharedDeps(logger *zap.Logger) crawl.Deps {
	rotator := fetch.NewRotator(0)
	var global *rate.Limiter
	if o.cfg.Crawl.GlobalRPS > 0 {
		global = rate.NewLimiter(rate.Limit(o.cfg.Crawl.GlobalRPS), 1)
	}
	return crawl.Deps{
		Client:  o.client,
		Limiter: politeness.NewLimiter(o.cfg.Crawl.DefaultDelay, o.cfg.Crawl.DelayJitterFrac, logger),
		Robots: politeness.NewRobotsEnforcer(
			o.cfg.Crawl.RespectRobots, fetch.DesktopIdentities()[0].UserAgent,
			o.cfg.Crawl.RobotsCacheTTL, logger),
		Rotator:    rotator,
		Ladder:     retry.NewLadder(rotator, o.cfg.Retry.BlockCooldown, logger),
		Retry:      retry.NewPolicy(o.cfg.Retry.MaxAttempts, o.cfg.Retry.BaseDelay, o.cfg.Retry.MaxDelay),
		Engine:     extract.NewEngine(logger),
		Dedupe:     dedupe.NewSet(),
		Sink:       o.sink,
		GlobalRate: global,
		Budget:     crawl.NewBudget(o.cfg.Crawl.GlobalMaxItems),
		Logger:     logger,
	}
}

func merge(runID string, started time.Time, reports []crawl.Report) RunSummary {
	summary := RunSummary{
		RunID:     runID,
		StartedAt: started,
		Sources:   reports,
	}
	for _, r := range reports {
		if r.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Pages += r.Pages
		summary.Articles += r.Articles
		summary.Deals += r.Deals
	}
	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(started)
	if len(reports) > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(len(reports))
	}
	if minutes := summary.Duration.Minutes(); minutes > 0 {
		summary.ItemsPerMin = float64(summary.Articles+summary.Deals) / minutes
	}
	return summary
}
