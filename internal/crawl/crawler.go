// Package crawl drives one source through listing discovery, article
// fetching, extraction, and persistence.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/dedupe"
	"github.com/mergertracker/dealcrawl/internal/extract"
	"github.com/mergertracker/dealcrawl/internal/fetch"
	"github.com/mergertracker/dealcrawl/internal/metrics"
	"github.com/mergertracker/dealcrawl/internal/pipeline"
	"github.com/mergertracker/dealcrawl/internal/politeness"
	"github.com/mergertracker/dealcrawl/internal/retry"
	"github.com/mergertracker/dealcrawl/internal/sink"
)

const (
	defaultConcurrency = 4
	maxListingPages    = 10
)

// Deps carries everything a SourceCrawler shares with its siblings in a
// run: transport, policies, run-scoped dedup state, and the sink.
type Deps struct {
	Client     fetch.Client
	Limiter    *politeness.Limiter
	Robots     politeness.RobotsPolicy
	Rotator    *fetch.Rotator
	Ladder     *retry.Ladder
	Retry      retry.Policy
	Engine     *extract.Engine
	Dedupe     *dedupe.Set
	Sink       sink.Sink
	GlobalRate *rate.Limiter
	Budget     *Budget
	Logger     *zap.Logger
}

// SourceCrawler crawls one configured source end to end.
type SourceCrawler struct {
	source        config.SourceConfig
	deps          Deps
	minConfidence float64
	keywords      []string
	saveArticles  bool
	logger        *zap.Logger

	identityMu sync.Mutex
	identity   fetch.Identity
}

func (c *SourceCrawler) currentIdentity() fetch.Identity {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()
	return c.identity
}

func (c *SourceCrawler) setIdentity(id fetch.Identity) {
	c.identityMu.Lock()
	c.identity = id
	c.identityMu.Unlock()
}

// New builds a crawler for one source.
func New(source config.SourceConfig, crawlCfg config.CrawlConfig, saveArticles bool, deps Deps) (*SourceCrawler, error) {
	if source.Name == "" {
		return nil, fmt.Errorf("source name is required")
	}
	if len(source.StartURLs) == 0 {
		return nil, fmt.Errorf("source %s has no start urls", source.Name)
	}
	return &SourceCrawler{
		source:        source,
		deps:          deps,
		minConfidence: crawlCfg.MinConfidence,
		keywords:      crawlCfg.RelevanceKeywords,
		saveArticles:  saveArticles,
		identity:      deps.Rotator.Pick(),
		logger:        deps.Logger.With(zap.String("source", source.Name)),
	}, nil
}

// Crawl walks every start URL. A listing failure abandons that branch
// only; the crawl fails outright only when the context dies.
func (c *SourceCrawler) Crawl(ctx context.Context) Report {
	start := time.Now()
	rb := newReportBuilder(c.source.Name)
	c.logger.Info("starting source crawl", zap.Int("start_urls", len(c.source.StartURLs)))

	var fatal error
	for _, startURL := range c.source.StartURLs {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}
		if c.itemCapReached(rb) || c.deps.Budget.Exhausted() {
			break
		}
		if err := c.crawlBranch(ctx, startURL, rb); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				fatal = err
				break
			}
			c.logger.Warn("listing branch failed", zap.String("start_url", startURL), zap.Error(err))
			rb.errored()
		}
	}

	report := rb.finish(start, fatal)
	c.logger.Info("source crawl finished",
		zap.Int("pages", report.Pages),
		zap.Int("articles", report.Articles),
		zap.Int("deals", report.Deals),
		zap.Int("errors", report.Errors),
		zap.Duration("duration", report.Duration))
	return report
}

// crawlBranch processes one start URL and its pagination chain.
func (c *SourceCrawler) crawlBranch(ctx context.Context, startURL string, rb *reportBuilder) error {
	pageURL := startURL
	for page := 0; page < maxListingPages && pageURL != ""; page++ {
		if c.itemCapReached(rb) || c.deps.Budget.Exhausted() {
			return nil
		}
		resp, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("fetch listing %s: %w", pageURL, err)
		}
		rb.page()
		metrics.PagesFetched.WithLabelValues(c.source.Name, "ok").Inc()

		base, err := url.Parse(pageURL)
		if err != nil {
			return fmt.Errorf("parse listing url: %w", err)
		}
		listing, err := parseListing(resp.Body, base, c.source.Selectors)
		if err != nil {
			return err
		}

		c.processArticles(ctx, listing.articleLinks, rb)

		pageURL = listing.nextPage
	}
	return nil
}

// processArticles fans article fetches out across a bounded worker group.
func (c *SourceCrawler) processArticles(ctx context.Context, links []string, rb *reportBuilder) {
	concurrency := c.source.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, link := range links {
		link := link
		if !allowedDomain(link, c.source.AllowedDomains) {
			continue
		}
		if !relevant(link, c.keywords) {
			rb.drop(pipeline.DropIrrelevant)
			metrics.ItemsDropped.WithLabelValues(string(pipeline.DropIrrelevant)).Inc()
			continue
		}
		// Claim the URL before fetching so a second appearance in any
		// source never costs a request.
		if !c.deps.Dedupe.MarkURL(link) {
			rb.drop(pipeline.DropDuplicateURL)
			metrics.ItemsDropped.WithLabelValues(string(pipeline.DropDuplicateURL)).Inc()
			continue
		}
		if c.itemCapReached(rb) || !c.deps.Budget.TryAcquire() {
			break
		}
		g.Go(func() error {
			if err := c.processArticle(gctx, link, rb); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				c.logger.Debug("article failed", zap.String("url", link), zap.Error(err))
				rb.errored()
				metrics.PagesFetched.WithLabelValues(c.source.Name, "error").Inc()
			}
			return nil
		})
	}
	// Worker errors are recorded per article; only context death
	// propagates, and the caller sees it via ctx.
	_ = g.Wait()
}

func (c *SourceCrawler) processArticle(ctx context.Context, link string, rb *reportBuilder) error {
	resp, err := c.fetchPage(ctx, link)
	if err != nil {
		return err
	}
	rb.page()
	metrics.PagesFetched.WithLabelValues(c.source.Name, "ok").Inc()

	if paywalled(resp.Body) {
		rb.drop(pipeline.DropPaywalled)
		metrics.ItemsDropped.WithLabelValues(string(pipeline.DropPaywalled)).Inc()
		return nil
	}

	article, err := parseArticle(resp.Body, link, c.source.Name, c.source.Selectors)
	if err != nil {
		return err
	}
	if article.Body == "" {
		rb.drop(pipeline.DropEmptyBody)
		metrics.ItemsDropped.WithLabelValues(string(pipeline.DropEmptyBody)).Inc()
		return nil
	}
	article.FetchedAt = time.Now().UTC()

	items := make([]pipeline.ScrapedItem, 0, 4)
	if c.saveArticles {
		items = append(items, article)
	}
	var accepted int
	for _, deal := range c.deps.Engine.Extract(article.Title + "\n" + article.Body) {
		deal := deal
		deal.ArticleURL = link
		if deal.Confidence < c.minConfidence {
			rb.drop(pipeline.DropLowConfidence)
			metrics.ItemsDropped.WithLabelValues(string(pipeline.DropLowConfidence)).Inc()
			continue
		}
		if !c.deps.Dedupe.MarkDeal(deal.Fingerprint) {
			rb.drop(pipeline.DropDuplicateDeal)
			metrics.ItemsDropped.WithLabelValues(string(pipeline.DropDuplicateDeal)).Inc()
			continue
		}
		items = append(items, &deal)
		accepted++
	}

	// One batch per article: the article row plus every deal it yielded.
	if len(items) > 0 {
		if _, err := c.deps.Sink.SaveBatch(ctx, items); err != nil {
			return fmt.Errorf("save article batch: %w", err)
		}
	}
	rb.article()
	for i := 0; i < accepted; i++ {
		rb.deal()
		metrics.DealsExtracted.WithLabelValues(c.source.Name).Inc()
	}
	return nil
}

// fetchPage runs one URL through politeness, the global rate ceiling,
// retry classification, and the evasion ladder.
func (c *SourceCrawler) fetchPage(ctx context.Context, pageURL string) (fetch.Response, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fetch.Response{}, fmt.Errorf("parse url: %w", err)
	}
	domain := parsed.Hostname()

	if !c.deps.Robots.Allowed(ctx, pageURL) {
		return fetch.Response{}, fmt.Errorf("disallowed by robots.txt: %s", pageURL)
	}

	identity := c.currentIdentity()
	var attempts int
	for {
		if c.deps.Ladder.Exhausted(domain) {
			return fetch.Response{}, fmt.Errorf("domain %s abandoned after repeated blocks", domain)
		}

		waitStart := time.Now()
		if err := c.deps.Limiter.Wait(ctx, domain); err != nil {
			return fetch.Response{}, fmt.Errorf("politeness wait: %w", err)
		}
		if c.deps.GlobalRate != nil {
			if err := c.deps.GlobalRate.Wait(ctx); err != nil {
				return fetch.Response{}, fmt.Errorf("global rate wait: %w", err)
			}
		}
		metrics.PolitenessDelay.Observe(time.Since(waitStart).Seconds())

		fetchStart := time.Now()
		resp, err := c.deps.Client.Fetch(ctx, fetch.Request{
			URL:      pageURL,
			Identity: identity,
			Render:   c.source.Render,
		})
		metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
		if err == nil {
			c.setIdentity(identity)
			return resp, nil
		}

		attempts++
		class := retry.Classify(err)
		metrics.Retries.WithLabelValues(class.String()).Inc()
		switch class {
		case retry.Blocked:
			metrics.BlockedResponses.WithLabelValues(domain).Inc()
			esc := c.deps.Ladder.Escalate(domain, identity)
			if esc.GiveUp {
				return fetch.Response{}, fmt.Errorf("blocked by %s: %w", domain, err)
			}
			identity = esc.Identity
			if serr := sleepCtx(ctx, esc.Cooldown); serr != nil {
				return fetch.Response{}, serr
			}
		case retry.Retryable:
			if !c.deps.Retry.ShouldRetry(attempts) {
				return fetch.Response{}, fmt.Errorf("retries exhausted for %s: %w", pageURL, err)
			}
			if serr := sleepCtx(ctx, c.deps.Retry.NextDelay(attempts-1)); serr != nil {
				return fetch.Response{}, serr
			}
		default:
			return fetch.Response{}, err
		}
	}
}

func (c *SourceCrawler) itemCapReached(rb *reportBuilder) bool {
	if c.source.MaxItems <= 0 {
		return false
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.report.Articles >= c.source.MaxItems
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
