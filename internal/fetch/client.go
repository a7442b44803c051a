// Package fetch implements the HTTP(S) fetch primitive: a colly-backed
// fast path plus an optional chromedp renderer for JS-heavy pages.
// Retries are the caller's responsibility; a Client issues exactly one
// request per Fetch call.
package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Request captures everything needed to fetch a URL once.
type Request struct {
	URL      string
	Identity Identity
	Render   bool
	Timeout  time.Duration
}

// Response is the raw result of a single fetch.
type Response struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Client fetches a URL with a chosen identity and returns the raw
// response or a typed *Error.
type Client interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// CollyConfig controls the static-HTML fetch path.
type CollyConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// CollyClient implements Client using a gocolly collector per request.
type CollyClient struct {
	cfg       CollyConfig
	base      *colly.Collector
	transport http.RoundTripper
	logger    *zap.Logger
}

// NewCollyClient builds the static fetch client.
func NewCollyClient(cfg CollyConfig, logger *zap.Logger) *CollyClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true // robots compliance lives in the politeness layer
	transport := newHTTPTransport()
	c.WithTransport(transport)
	return &CollyClient{
		cfg:       cfg,
		base:      c,
		transport: transport,
		logger:    logger,
	}
}

// Fetch executes a single HTTP GET using a cloned collector.
func (c *CollyClient) Fetch(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	var (
		result   Response
		fetchErr error
	)

	collector := c.base.Clone()
	collector.IgnoreRobotsTxt = true
	if c.cfg.MaxBodyBytes > 0 {
		collector.MaxBodySize = int(c.cfg.MaxBodyBytes)
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	collector.SetRequestTimeout(timeout)
	if req.Identity.UserAgent != "" {
		collector.UserAgent = req.Identity.UserAgent
	}
	collector.WithTransport(c.transport)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range req.Identity.Headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = Response{
			URL:        req.URL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Header:     r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = classifyStatus(req.URL, r.StatusCode)
			return
		}
		fetchErr = classifyNetError(req.URL, err)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(req.URL)
	}()

	select {
	case <-ctx.Done():
		return Response{}, &Error{Kind: KindTimeout, URL: req.URL, Err: ctx.Err()}
	case err := <-done:
		if fetchErr != nil {
			return Response{}, fetchErr
		}
		if err != nil {
			return Response{}, classifyNetError(req.URL, err)
		}
		return result, nil
	}
}

func classifyNetError(url string, err error) *Error {
	switch {
	case err == nil:
		return &Error{Kind: KindConnection, URL: url}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &Error{Kind: KindTimeout, URL: url, Err: err}
		}
		return &Error{Kind: KindConnection, URL: url, Err: err}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
