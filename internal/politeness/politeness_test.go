package politeness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiterDelayEscalates(t *testing.T) {
	t.Parallel()

	l := NewLimiter(time.Millisecond, 0, zap.NewNop())
	ctx := context.Background()

	var prev time.Duration
	for i := 0; i < 25; i++ {
		d := l.Delay("example.com")
		require.GreaterOrEqual(t, d, prev, "delay decreased at request %d", i)
		prev = d
		require.NoError(t, l.Wait(ctx, "example.com"))
	}
	require.Equal(t, 2*time.Millisecond, l.Delay("example.com"))
}

func TestLimiterTiers(t *testing.T) {
	t.Parallel()

	l := NewLimiter(time.Second, 0, zap.NewNop())
	st := l.state("example.com")

	st.requests = 0
	require.Equal(t, time.Second, l.Delay("example.com"))
	st.requests = 9
	require.Equal(t, time.Second, l.Delay("example.com"))
	st.requests = 10
	require.Equal(t, 1400*time.Millisecond, l.Delay("example.com"))
	st.requests = 19
	require.Equal(t, 1400*time.Millisecond, l.Delay("example.com"))
	st.requests = 20
	require.Equal(t, 2*time.Second, l.Delay("example.com"))
	st.requests = 1000
	require.Equal(t, 2*time.Second, l.Delay("example.com"))
}

func TestLimiterDomainsIndependent(t *testing.T) {
	t.Parallel()

	l := NewLimiter(time.Millisecond, 0, zap.NewNop())
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		require.NoError(t, l.Wait(ctx, "busy.example.com"))
	}
	require.Equal(t, 1400*time.Microsecond, l.Delay("busy.example.com"))
	require.Equal(t, time.Millisecond, l.Delay("quiet.example.com"))
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewLimiter(5*time.Second, 0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "example.com"))

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := l.Wait(cancelCtx, "example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterFirstRequestImmediate(t *testing.T) {
	t.Parallel()

	l := NewLimiter(10*time.Second, 0, zap.NewNop())
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "example.com"))
	require.Less(t, time.Since(start), time.Second)
}

func TestRobotsEnforcerDisallowedPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewRobotsEnforcer(true, "dealcrawl", time.Hour, zap.NewNop())
	ctx := context.Background()
	require.True(t, p.Allowed(ctx, srv.URL+"/news/article"))
	require.False(t, p.Allowed(ctx, srv.URL+"/private/report"))
}

func TestRobotsEnforcerFailOpen(t *testing.T) {
	t.Parallel()

	p := NewRobotsEnforcer(true, "dealcrawl", time.Hour, zap.NewNop())
	// Nothing listens here, so the robots fetch fails and access is allowed.
	require.True(t, p.Allowed(context.Background(), "http://127.0.0.1:1/article"))
}

func TestRobotsEnforcerCaches(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits++
			_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
		}
	}))
	defer srv.Close()

	p := NewRobotsEnforcer(true, "dealcrawl", time.Hour, zap.NewNop())
	ctx := context.Background()
	require.True(t, p.Allowed(ctx, srv.URL+"/a"))
	require.True(t, p.Allowed(ctx, srv.URL+"/b"))
	require.Equal(t, 1, hits)
}

func TestRobotsDisabledAllowsAll(t *testing.T) {
	t.Parallel()

	p := NewRobotsEnforcer(false, "dealcrawl", time.Hour, zap.NewNop())
	require.True(t, p.Allowed(context.Background(), "http://anything.example/x"))
}
