package fetch

import (
	"bytes"
	"context"

	"go.uber.org/zap"
)

// PromotionConfig controls when a plain-HTTP fetch is retried through
// the renderer because the response looks like an unhydrated JS shell.
type PromotionConfig struct {
	Enabled      bool
	MinHTMLBytes int
}

// Composite routes requests to the static colly client or the headless
// renderer. Requests flagged Render go straight to the renderer; static
// responses that look too thin to contain article content are promoted
// when promotion is enabled.
type Composite struct {
	static    Client
	renderer  Client
	promotion PromotionConfig
	logger    *zap.Logger
}

func NewComposite(static, renderer Client, promotion PromotionConfig, logger *zap.Logger) *Composite {
	return &Composite{static: static, renderer: renderer, promotion: promotion, logger: logger}
}

func (c *Composite) Fetch(ctx context.Context, req Request) (Response, error) {
	if req.Render {
		if c.renderer == nil {
			return Response{}, ErrRendererDisabled
		}
		return c.renderer.Fetch(ctx, req)
	}

	resp, err := c.static.Fetch(ctx, req)
	if err != nil {
		return resp, err
	}
	if c.renderer != nil && c.promotion.Enabled && looksThin(resp.Body, c.promotion.MinHTMLBytes) {
		c.logger.Debug("thin response, promoting to renderer",
			zap.String("url", req.URL),
			zap.Int("bytes", len(resp.Body)))
		rendered, rerr := c.renderer.Fetch(ctx, req)
		if rerr != nil {
			// Keep the static response rather than failing the page.
			return resp, nil
		}
		return rendered, nil
	}
	return resp, nil
}

// looksThin reports whether the body is probably a JS application shell:
// small, or a document whose <body> carries almost no text.
func looksThin(body []byte, minBytes int) bool {
	if minBytes <= 0 {
		minBytes = 2048
	}
	if len(body) < minBytes {
		return true
	}
	lower := bytes.ToLower(body)
	if bytes.Contains(lower, []byte("<noscript")) &&
		bytes.Contains(lower, []byte("enable javascript")) {
		return true
	}
	return false
}
