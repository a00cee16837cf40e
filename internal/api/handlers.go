package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mediacrawl/pkg/crawler"
	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/retry"
)

// crawlRequest is the intake payload for one crawl job.
type crawlRequest struct {
	Platform  string   `json:"platform"`
	Type      string   `json:"type"`
	Keywords  []string `json:"keywords,omitempty"`
	DetailIDs []string `json:"detail_ids,omitempty"`
	CreatorID string   `json:"creator_id,omitempty"`
	MaxCount  int      `json:"max_count,omitempty"`
}

// crawlResponse echoes the job parameters alongside the outcome so callers
// can correlate without holding local state.
type crawlResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Platform  string   `json:"platform"`
	Type      string   `json:"type"`
	Keywords  []string `json:"keywords,omitempty"`
	DetailIDs []string `json:"detail_ids,omitempty"`
	CreatorID string   `json:"creator_id,omitempty"`
	Count     int      `json:"count"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job := crawler.Job{
		Platform:         crawler.Platform(req.Platform),
		Mode:             crawler.Mode(req.Type),
		Keywords:         req.Keywords,
		TargetIDs:        req.DetailIDs,
		CreatorID:        req.CreatorID,
		MaxCount:         req.MaxCount,
		CommentCeiling:   s.crawl.CommentCeiling,
		FetchComments:    s.crawl.FetchComments,
		FetchSubComments: s.crawl.FetchSubComments,
	}
	if job.MaxCount == 0 {
		job.MaxCount = s.crawl.MaxItems
	}

	// Reject malformed jobs before any engine work happens.
	if err := job.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The crawl session belongs to one job at a time, so overlapping
	// requests are refused rather than run concurrently over it.
	if !s.jobMu.TryLock() {
		s.writeError(w, http.StatusConflict, "a crawl job is already running")
		return
	}
	defer s.jobMu.Unlock()

	start := time.Now()
	outcome := s.run(r.Context(), job)
	s.metrics.JobsTotal.WithLabelValues(req.Platform, req.Type, string(outcome.State)).Inc()
	s.metrics.JobDuration.WithLabelValues(req.Platform, req.Type).Observe(time.Since(start).Seconds())

	resp := crawlResponse{
		Status:    string(outcome.State),
		Message:   outcome.Message,
		Platform:  req.Platform,
		Type:      req.Type,
		Keywords:  req.Keywords,
		DetailIDs: req.DetailIDs,
		CreatorID: req.CreatorID,
		Count:     outcome.Count,
		ErrorKind: string(outcome.ErrKind),
	}

	if outcome.Failed() {
		s.writeJSON(w, statusForKind(outcome.ErrKind), resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// run executes the job, re-running it per the configured retry policy when
// the failure is classified as transient.
func (s *Server) run(ctx context.Context, job crawler.Job) crawler.Outcome {
	var outcome crawler.Outcome
	if !s.retry.Enabled {
		return s.runner.Run(ctx, job)
	}

	_ = retry.Do(func() error {
		outcome = s.runner.Run(ctx, job)
		return outcome.Err
	}, &retry.Config{
		MaxAttempts: s.retry.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: s.retry.RetryDelay},
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      s.log,
	})
	return outcome
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForKind maps the error taxonomy to HTTP status codes.
func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindInvalidJob, errs.KindUnsupportedPlatform:
		return http.StatusBadRequest
	case errs.KindLoginFailed, errs.KindAccountBlocked:
		return http.StatusForbidden
	case errs.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("writing json response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
