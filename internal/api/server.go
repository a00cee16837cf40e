package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/logger"
)

// JobRunner executes one crawl job to completion.
type JobRunner interface {
	Run(ctx context.Context, job crawler.Job) crawler.Outcome
}

// Server accepts crawl jobs over HTTP and hands them to a runner. It is the
// operational front of the engine: validation, metrics and the retry policy
// live here, never inside the crawl itself.
type Server struct {
	runner  JobRunner
	crawl   config.CrawlConfig
	retry   config.RetryConfig
	metrics *Metrics
	log     logger.Logger
	handler http.Handler

	// jobMu serializes job execution. The runner drives a single crawl
	// session, which belongs to one job at a time.
	jobMu sync.Mutex
}

// NewServer builds the intake server over a runner.
func NewServer(runner JobRunner, cfg *config.Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		runner:  runner,
		crawl:   cfg.Crawl,
		retry:   cfg.Retry,
		metrics: newMetrics(),
		log:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /crawl", s.handleCrawl)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handler = s.logging(s.metrics.instrument(mux))
	return s
}

// ServeHTTP implements http.Handler so tests can drive the server directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWithFields("intake server listening", map[string]interface{}{
			"addr": addr,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.DebugWithFields("http request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
	})
}
