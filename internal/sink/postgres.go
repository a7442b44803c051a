package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
	Close()
}

// Postgres upserts items so re-crawled articles and re-reported deals
// update their existing rows instead of duplicating them.
type Postgres struct {
	pool   pgPool
	logger *zap.Logger
}

// NewPostgres connects a pool from config.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sink.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// NewPostgresWithPool constructs a sink from an existing pool (primarily
// for testing).
func NewPostgresWithPool(pool pgPool, logger *zap.Logger) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

const upsertArticleSQL = `
INSERT INTO news_articles (
	url, title, content, author, published_date, source, word_count, reading_time, scraped_date
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	content = EXCLUDED.content,
	author = EXCLUDED.author,
	published_date = EXCLUDED.published_date,
	word_count = EXCLUDED.word_count,
	reading_time = EXCLUDED.reading_time,
	scraped_date = EXCLUDED.scraped_date`

const upsertDealSQL = `
INSERT INTO deals (
	deal_id, deal_type, deal_status, acquirer_company, target_company,
	deal_value, deal_value_currency, industry_sector, geographic_region,
	announcement_date, expected_completion_date, financial_advisors,
	legal_advisors, confidence_score, source_url, extraction_method, created_date
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (deal_id) DO UPDATE SET
	deal_status = EXCLUDED.deal_status,
	deal_value = EXCLUDED.deal_value,
	confidence_score = GREATEST(deals.confidence_score, EXCLUDED.confidence_score),
	expected_completion_date = EXCLUDED.expected_completion_date`

const upsertCompanySQL = `
INSERT INTO companies (
	company_name, ticker_symbol, exchange, industry, data_source, last_updated
) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (company_name) DO UPDATE SET
	ticker_symbol = EXCLUDED.ticker_symbol,
	exchange = EXCLUDED.exchange,
	industry = EXCLUDED.industry,
	last_updated = EXCLUDED.last_updated`

// Save implements Sink.
func (p *Postgres) Save(ctx context.Context, item pipeline.ScrapedItem) (string, error) {
	switch v := item.(type) {
	case *pipeline.RawArticle:
		return p.saveArticle(ctx, v)
	case *pipeline.CandidateDeal:
		return p.saveDeal(ctx, v)
	case *pipeline.CompanyInfo:
		return p.saveCompany(ctx, v)
	default:
		return "", fmt.Errorf("unsupported item type %T", item)
	}
}

// SaveBatch implements Sink. Items go out in a single pgx batch so one
// article and its deals cost one round trip.
func (p *Postgres) SaveBatch(ctx context.Context, items []pipeline.ScrapedItem) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		query, args, id, err := upsertQuery(item)
		if err != nil {
			return nil, err
		}
		batch.Queue(query, args...)
		ids = append(ids, id)
	}
	results := p.pool.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("batch upsert: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}
	return ids, nil
}

func (p *Postgres) saveArticle(ctx context.Context, a *pipeline.RawArticle) (string, error) {
	_, err := p.pool.Exec(ctx, upsertArticleSQL, articleArgs(a)...)
	if err != nil {
		return "", fmt.Errorf("upsert article: %w", err)
	}
	return a.URL, nil
}

func (p *Postgres) saveDeal(ctx context.Context, d *pipeline.CandidateDeal) (string, error) {
	_, err := p.pool.Exec(ctx, upsertDealSQL, dealArgs(d)...)
	if err != nil {
		return "", fmt.Errorf("upsert deal: %w", err)
	}
	return d.Fingerprint, nil
}

func (p *Postgres) saveCompany(ctx context.Context, c *pipeline.CompanyInfo) (string, error) {
	_, err := p.pool.Exec(ctx, upsertCompanySQL, companyArgs(c)...)
	if err != nil {
		return "", fmt.Errorf("upsert company: %w", err)
	}
	return c.Name, nil
}

func upsertQuery(item pipeline.ScrapedItem) (query string, args []any, id string, err error) {
	switch v := item.(type) {
	case *pipeline.RawArticle:
		return upsertArticleSQL, articleArgs(v), v.URL, nil
	case *pipeline.CandidateDeal:
		return upsertDealSQL, dealArgs(v), v.Fingerprint, nil
	case *pipeline.CompanyInfo:
		return upsertCompanySQL, companyArgs(v), v.Name, nil
	default:
		return "", nil, "", fmt.Errorf("unsupported item type %T", item)
	}
}

func articleArgs(a *pipeline.RawArticle) []any {
	return []any{
		a.URL, a.Title, a.Body, nullString(a.Author), nullTime(a.Published),
		a.Source, a.WordCount, a.ReadingTime, a.FetchedAt,
	}
}

func dealArgs(d *pipeline.CandidateDeal) []any {
	return []any{
		d.Fingerprint, string(d.Shape), string(d.Status),
		nullString(d.Acquirer), nullString(d.Target),
		d.Value, nullString(d.Currency), d.Industry, nullString(d.Region),
		nullTime(d.Announced), nullTime(d.ExpectedClose),
		d.FinancialAdvisors, d.LegalAdvisors,
		d.Confidence, d.ArticleURL, d.Extractor, d.CreatedAt,
	}
}

func companyArgs(c *pipeline.CompanyInfo) []any {
	return []any{
		c.Name, nullString(c.Ticker), nullString(c.Exchange),
		nullString(c.Industry), c.Source, c.UpdatedAt,
	}
}

// Ping implements Sink.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close implements Sink.
func (p *Postgres) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
