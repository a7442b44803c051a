package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/scheduler"
)

func newTestServer(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	run := func(context.Context, []string) error {
		if calls != nil {
			atomic.AddInt64(calls, 1)
		}
		return nil
	}
	sched, err := scheduler.New("UTC", run, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, sched.AddJob(config.ScheduledJob{ID: "nightly", Cron: "0 2 * * *"}))

	srv := httptest.NewServer(NewServer(sched, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/v1/jobs/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Jobs []scheduler.Status `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Jobs, 1)
	require.Equal(t, "nightly", body.Jobs[0].ID)
}

func TestRunJob(t *testing.T) {
	t.Parallel()

	var calls int64
	srv := newTestServer(t, &calls)
	resp, err := http.Post(srv.URL+"/v1/jobs/nightly/run", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPauseResumeJob(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/v1/jobs/nightly/pause", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/jobs/nightly/")
	require.NoError(t, err)
	var status scheduler.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	_ = resp.Body.Close()
	require.Equal(t, scheduler.StatePaused, status.State)

	resp, err = http.Post(srv.URL+"/v1/jobs/nightly/resume", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownJobIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/v1/jobs/missing/run", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
