// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Sources   []SourceConfig  `mapstructure:"sources"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlConfig governs the run-wide crawl budget and politeness baseline.
type CrawlConfig struct {
	MaxRuntime        time.Duration `mapstructure:"max_runtime"`
	GlobalMaxItems    int           `mapstructure:"global_max_items"`
	GlobalRPS         float64       `mapstructure:"global_rps"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
	RobotsCacheTTL    time.Duration `mapstructure:"robots_cache_ttl"`
	DefaultDelay      time.Duration `mapstructure:"default_delay"`
	DelayJitterFrac   float64       `mapstructure:"delay_jitter_frac"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MinConfidence     float64       `mapstructure:"min_confidence"`
	ArticleMaxBytes   int64         `mapstructure:"article_max_bytes"`
	RelevanceKeywords []string      `mapstructure:"relevance_keywords"`
}

// RetryConfig controls transient-failure retry behavior.
type RetryConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BlockCooldown time.Duration `mapstructure:"block_cooldown"`
}

// HeadlessConfig configures the chromedp rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxParallel   int           `mapstructure:"max_parallel"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"`
	MinHTMLBytes  int           `mapstructure:"min_html_bytes"`
	PromoteOnThin bool          `mapstructure:"promote_on_thin_html"`
}

// SinkConfig selects and configures the persistence sink.
type SinkConfig struct {
	Provider     string        `mapstructure:"provider"`
	DSN          string        `mapstructure:"dsn"`
	MaxConns     int32         `mapstructure:"max_conns"`
	OutputDir    string        `mapstructure:"output_dir"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisTTL     time.Duration `mapstructure:"redis_ttl"`
	SaveArticles bool          `mapstructure:"save_articles"`
}

// SchedulerConfig configures the long-running schedule daemon.
type SchedulerConfig struct {
	Timezone string         `mapstructure:"timezone"`
	Jobs     []ScheduledJob `mapstructure:"jobs"`
}

// ScheduledJob describes one recurring crawl job from static config.
type ScheduledJob struct {
	ID       string        `mapstructure:"id"`
	Sources  []string      `mapstructure:"sources"`
	Every    time.Duration `mapstructure:"every"`
	Cron     string        `mapstructure:"cron"`
	Disabled bool          `mapstructure:"disabled"`
}

// AdminConfig controls the metrics/status HTTP listener.
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// SourceConfig describes one news site to crawl.
type SourceConfig struct {
	Name           string        `mapstructure:"name"`
	StartURLs      []string      `mapstructure:"start_urls"`
	AllowedDomains []string      `mapstructure:"allowed_domains"`
	DownloadDelay  time.Duration `mapstructure:"download_delay"`
	MaxItems       int           `mapstructure:"max_items"`
	Concurrency    int           `mapstructure:"concurrency"`
	Render         bool          `mapstructure:"render"`
	Selectors      Selectors     `mapstructure:"selectors"`
}

// Selectors holds the source-specific CSS selectors. Each field is a
// comma-separated list tried in order; empty fields fall back to
// readability extraction.
type Selectors struct {
	ArticleLinks string `mapstructure:"article_links"`
	Title        string `mapstructure:"title"`
	Body         string `mapstructure:"body"`
	Author       string `mapstructure:"author"`
	Published    string `mapstructure:"published"`
	NextPage     string `mapstructure:"next_page"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEALCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("crawl.max_runtime", 2*time.Hour)
	v.SetDefault("crawl.global_max_items", 200)
	v.SetDefault("crawl.global_rps", 4.0)
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("crawl.robots_cache_ttl", time.Hour)
	v.SetDefault("crawl.default_delay", 3*time.Second)
	v.SetDefault("crawl.delay_jitter_frac", 0.3)
	v.SetDefault("crawl.request_timeout", 15*time.Second)
	v.SetDefault("crawl.min_confidence", 0.3)
	v.SetDefault("crawl.article_max_bytes", int64(2<<20))
	v.SetDefault("crawl.relevance_keywords", []string{
		"deal", "merger", "acquisition", "buyout", "takeover",
		"m-a", "ipo", "spac", "private-equity", "divestiture",
	})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 250*time.Millisecond)
	v.SetDefault("retry.max_delay", 60*time.Second)
	v.SetDefault("retry.block_cooldown", 30*time.Second)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout", 25*time.Second)
	v.SetDefault("headless.min_html_bytes", 2048)
	v.SetDefault("headless.promote_on_thin_html", true)
	v.SetDefault("sink.provider", "file")
	v.SetDefault("sink.output_dir", "out")
	v.SetDefault("sink.redis_ttl", 24*time.Hour)
	v.SetDefault("sink.save_articles", true)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("admin.addr", ":9090")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.MaxRuntime <= 0 {
		return fmt.Errorf("crawl.max_runtime must be > 0")
	}
	if c.Crawl.GlobalMaxItems <= 0 {
		return fmt.Errorf("crawl.global_max_items must be > 0")
	}
	if c.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}
	if c.Crawl.MinConfidence < 0 || c.Crawl.MinConfidence > 1 {
		return fmt.Errorf("crawl.min_confidence must be in [0,1]")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	for _, j := range c.Scheduler.Jobs {
		if j.ID == "" {
			return fmt.Errorf("scheduler job is missing an id")
		}
		if j.Every <= 0 && j.Cron == "" {
			return fmt.Errorf("scheduler job %q needs either every or cron", j.ID)
		}
	}
	return nil
}

// Validate checks a single source entry.
func (s SourceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name must be set")
	}
	if len(s.StartURLs) == 0 {
		return fmt.Errorf("source %q needs at least one start URL", s.Name)
	}
	if s.MaxItems < 0 {
		return fmt.Errorf("source %q max_items must be >= 0", s.Name)
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("source %q concurrency must be >= 0", s.Name)
	}
	return nil
}

// Source returns the named source config, if present.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}
