package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/crawler"
	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/logger"
)

// fakeRunner scripts outcomes and counts invocations.
type fakeRunner struct {
	outcomes []crawler.Outcome
	calls    int
}

func (f *fakeRunner) Run(ctx context.Context, job crawler.Job) crawler.Outcome {
	idx := f.calls
	if idx >= len(f.outcomes) {
		idx = len(f.outcomes) - 1
	}
	f.calls++

	out := f.outcomes[idx]
	out.Platform = job.Platform
	out.Mode = job.Mode
	return out
}

func newTestServer(t *testing.T, runner JobRunner, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(runner, cfg, logger.NewNopLogger())
}

func postCrawl(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/crawl", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestCrawlCompletedJob(t *testing.T) {
	runner := &fakeRunner{outcomes: []crawler.Outcome{{
		State:   crawler.StateCompleted,
		Message: "collected 3 items",
		Count:   3,
	}}}
	s := newTestServer(t, runner, nil)

	rec := postCrawl(t, s, `{"platform":"dy","type":"search","keywords":["golang"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp crawlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "dy", resp.Platform)
	assert.Equal(t, []string{"golang"}, resp.Keywords)
	assert.Equal(t, 1, runner.calls)
}

func TestCrawlRejectsInvalidJobBeforeRunner(t *testing.T) {
	runner := &fakeRunner{outcomes: []crawler.Outcome{{State: crawler.StateCompleted}}}
	s := newTestServer(t, runner, nil)

	tests := []struct {
		name string
		body string
	}{
		{"search without keywords", `{"platform":"dy","type":"search"}`},
		{"detail without ids", `{"platform":"dy","type":"detail"}`},
		{"creator without id", `{"platform":"dy","type":"creator"}`},
		{"unknown mode", `{"platform":"dy","type":"firehose"}`},
		{"not json", `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCrawl(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, runner.calls, "invalid jobs must not reach the runner")
}

func TestCrawlMapsErrorKindsToStatus(t *testing.T) {
	tests := []struct {
		kind errs.Kind
		want int
	}{
		{errs.KindUnsupportedPlatform, http.StatusBadRequest},
		{errs.KindAccountBlocked, http.StatusForbidden},
		{errs.KindLoginFailed, http.StatusForbidden},
		{errs.KindTransport, http.StatusBadGateway},
		{errs.KindDataFetch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			runner := &fakeRunner{outcomes: []crawler.Outcome{{
				State:   crawler.StateFailed,
				Message: "boom",
				ErrKind: tt.kind,
				Err:     &errs.Error{Kind: tt.kind, Message: "boom"},
			}}}
			s := newTestServer(t, runner, nil)

			rec := postCrawl(t, s, `{"platform":"wb","type":"search","keywords":["k"]}`)
			assert.Equal(t, tt.want, rec.Code)

			var resp crawlResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.kind), resp.ErrorKind)
		})
	}
}

func TestCrawlRetriesTransientFailures(t *testing.T) {
	transient := crawler.Outcome{
		State:   crawler.StateFailed,
		ErrKind: errs.KindTransport,
		Err:     &errs.Error{Kind: errs.KindTransport, Message: "connection reset"},
	}
	runner := &fakeRunner{outcomes: []crawler.Outcome{
		transient,
		{State: crawler.StateCompleted, Message: "collected 1 items", Count: 1},
	}}
	s := newTestServer(t, runner, func(cfg *config.Config) {
		cfg.Retry.Enabled = true
		cfg.Retry.MaxAttempts = 3
		cfg.Retry.RetryDelay = time.Millisecond
	})

	rec := postCrawl(t, s, `{"platform":"dy","type":"detail","detail_ids":["1"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, runner.calls)
}

func TestCrawlDoesNotRetryBlockedAccount(t *testing.T) {
	blocked := crawler.Outcome{
		State:   crawler.StateFailed,
		ErrKind: errs.KindAccountBlocked,
		Err:     &errs.Error{Kind: errs.KindAccountBlocked, Message: "blocked"},
	}
	runner := &fakeRunner{outcomes: []crawler.Outcome{blocked, blocked, blocked}}
	s := newTestServer(t, runner, func(cfg *config.Config) {
		cfg.Retry.Enabled = true
		cfg.Retry.MaxAttempts = 3
		cfg.Retry.RetryDelay = time.Millisecond
	})

	rec := postCrawl(t, s, `{"platform":"dy","type":"detail","detail_ids":["1"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, runner.calls, "a blocked account must not be retried")
}

// blockingRunner holds a job open until released so tests can overlap
// requests.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, job crawler.Job) crawler.Outcome {
	b.started <- struct{}{}
	<-b.release
	return crawler.Outcome{State: crawler.StateCompleted, Count: 1}
}

func TestCrawlRefusesOverlappingJobs(t *testing.T) {
	runner := &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestServer(t, runner, nil)

	first := make(chan *httptest.ResponseRecorder)
	go func() {
		first <- postCrawl(t, s, `{"platform":"dy","type":"search","keywords":["a"]}`)
	}()
	<-runner.started

	// The session is in use: a second job must be refused, not run
	// alongside the first.
	rec := postCrawl(t, s, `{"platform":"dy","type":"search","keywords":["b"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(runner.release)
	assert.Equal(t, http.StatusOK, (<-first).Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeRunner{outcomes: []crawler.Outcome{{}}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	runner := &fakeRunner{outcomes: []crawler.Outcome{{State: crawler.StateCompleted}}}
	s := newTestServer(t, runner, nil)

	postCrawl(t, s, `{"platform":"dy","type":"search","keywords":["k"]}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crawl_jobs_total")
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
