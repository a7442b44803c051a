package fetch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClient struct {
	resp  Response
	err   error
	calls int
}

func (s *stubClient) Fetch(ctx context.Context, req Request) (Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestCompositeRoutesRenderRequests(t *testing.T) {
	t.Parallel()

	static := &stubClient{resp: Response{Body: []byte("static")}}
	render := &stubClient{resp: Response{Body: []byte("rendered"), Rendered: true}}
	c := NewComposite(static, render, PromotionConfig{}, zap.NewNop())

	resp, err := c.Fetch(context.Background(), Request{URL: "http://x", Render: true})
	require.NoError(t, err)
	require.True(t, resp.Rendered)
	require.Zero(t, static.calls)
	require.Equal(t, 1, render.calls)
}

func TestCompositeRenderWithoutRenderer(t *testing.T) {
	t.Parallel()

	c := NewComposite(&stubClient{}, nil, PromotionConfig{}, zap.NewNop())
	_, err := c.Fetch(context.Background(), Request{URL: "http://x", Render: true})
	require.ErrorIs(t, err, ErrRendererDisabled)
}

func TestCompositePromotesThinResponse(t *testing.T) {
	t.Parallel()

	static := &stubClient{resp: Response{Body: []byte("<html></html>")}}
	render := &stubClient{resp: Response{Body: []byte("<html>" + strings.Repeat("deal ", 1000) + "</html>"), Rendered: true}}
	c := NewComposite(static, render, PromotionConfig{Enabled: true, MinHTMLBytes: 2048}, zap.NewNop())

	resp, err := c.Fetch(context.Background(), Request{URL: "http://x"})
	require.NoError(t, err)
	require.True(t, resp.Rendered)
	require.Equal(t, 1, static.calls)
	require.Equal(t, 1, render.calls)
}

func TestCompositeKeepsStaticOnRenderFailure(t *testing.T) {
	t.Parallel()

	static := &stubClient{resp: Response{Body: []byte("tiny")}}
	render := &stubClient{err: ErrRendererDisabled}
	c := NewComposite(static, render, PromotionConfig{Enabled: true}, zap.NewNop())

	resp, err := c.Fetch(context.Background(), Request{URL: "http://x"})
	require.NoError(t, err)
	require.False(t, resp.Rendered)
	require.Equal(t, "tiny", string(resp.Body))
}

func TestLooksThin(t *testing.T) {
	t.Parallel()

	require.True(t, looksThin([]byte("<html></html>"), 2048))
	big := []byte(strings.Repeat("a", 4096))
	require.False(t, looksThin(big, 2048))
	shell := []byte(strings.Repeat("x", 4096) + "<noscript>Please enable JavaScript</noscript>")
	require.True(t, looksThin(shell, 2048))
}
