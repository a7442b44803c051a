package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/fetch"
	"github.com/mergertracker/dealcrawl/internal/sink"
)

// buildClient assembles the fetch stack: the colly static path, plus the
// chromedp renderer behind a composite when headless is enabled. The
// returned func releases the renderer's browser.
func buildClient(cfg config.Config, logger *zap.Logger) (fetch.Client, func(), error) {
	static := fetch.NewCollyClient(fetch.CollyConfig{
		Timeout:      cfg.Crawl.RequestTimeout,
		MaxBodyBytes: cfg.Crawl.ArticleMaxBytes,
	}, logger)

	if !cfg.Headless.Enabled {
		return static, func() {}, nil
	}

	renderer, err := fetch.NewRenderer(fetch.RendererConfig{
		MaxParallel: cfg.Headless.MaxParallel,
		NavTimeout:  cfg.Headless.NavTimeout,
	}, logger)
	switch {
	case err == nil:
	case errors.Is(err, fetch.ErrRendererDisabled):
		logger.Warn("headless rendering unavailable, continuing with static fetches")
		return static, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("init renderer: %w", err)
	}

	composite := fetch.NewComposite(static, renderer, fetch.PromotionConfig{
		Enabled:      cfg.Headless.PromoteOnThin,
		MinHTMLBytes: cfg.Headless.MinHTMLBytes,
	}, logger)
	return composite, func() { _ = renderer.Close() }, nil
}

// buildSink constructs the configured persistence sink, wrapped in the
// Redis dedup cache when a Redis address is set.
func buildSink(ctx context.Context, cfg config.SinkConfig, logger *zap.Logger) (sink.Sink, error) {
	var base sink.Sink
	switch cfg.Provider {
	case "postgres":
		pg, err := sink.NewPostgres(ctx, sink.PostgresConfig{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		base = pg
	case "file", "":
		fs, err := sink.NewFileSystem(cfg.OutputDir, logger)
		if err != nil {
			return nil, fmt.Errorf("init file sink: %w", err)
		}
		base = fs
	case "memory":
		base = sink.NewMemory()
	default:
		return nil, fmt.Errorf("unknown sink provider %q", cfg.Provider)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		base = sink.NewRedisCache(base, client, cfg.RedisTTL, logger)
	}
	return base, nil
}
