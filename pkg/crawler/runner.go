package crawler

import (
	"context"
	"errors"
	"fmt"

	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/logger"
)

// JobState tracks where a job is in its lifecycle.
type JobState string

const (
	StateIdle        JobState = "idle"
	StateDispatching JobState = "dispatching"
	StateRunning     JobState = "running"
	StateCompleted   JobState = "completed"
	StateFailed      JobState = "failed"
)

// Outcome is the result envelope a job resolves to.
type Outcome struct {
	State    JobState  `json:"state"`
	Platform Platform  `json:"platform"`
	Mode     Mode      `json:"mode"`
	Message  string    `json:"message"`
	Items    []Item    `json:"-"`
	Count    int       `json:"count"`
	ErrKind  errs.Kind `json:"error_kind,omitempty"`
	Err      error     `json:"-"`
}

// Failed reports whether the job ended in the failed state.
func (o Outcome) Failed() bool { return o.State == StateFailed }

// Runner resolves jobs against the registry and executes them. It applies
// no retries: transient-vs-permanent classification belongs to the caller,
// and retrying a blocked account blindly makes the block worse.
type Runner struct {
	registry *Registry
	log      logger.Logger
}

// NewRunner creates a runner over a registry.
func NewRunner(registry *Registry, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Runner{registry: registry, log: log}
}

// Run executes one job to completion. Invalid jobs fail before any engine
// is resolved or any network call is issued.
func (r *Runner) Run(ctx context.Context, job Job) Outcome {
	log := r.log.WithFields(map[string]interface{}{
		"platform": string(job.Platform),
		"mode":     string(job.Mode),
	})

	if err := job.Validate(); err != nil {
		return r.fail(log, job, err)
	}

	log.InfoWithFields("dispatching job", map[string]interface{}{
		"state": string(StateDispatching),
	})
	engine, err := r.registry.Resolve(job.Platform)
	if err != nil {
		return r.fail(log, job, err)
	}

	log.InfoWithFields("running job", map[string]interface{}{
		"state": string(StateRunning),
	})
	var items []Item
	switch job.Mode {
	case ModeSearch:
		items, err = engine.Search(ctx, job)
	case ModeDetail:
		items, err = engine.FetchDetail(ctx, job)
	case ModeCreator:
		items, err = engine.FetchTimeline(ctx, job)
	default:
		err = errs.New(errs.KindInvalidJob, "unknown mode %q", job.Mode)
	}
	if err != nil {
		return r.fail(log, job, err)
	}

	log.InfoWithFields("job completed", map[string]interface{}{
		"state": string(StateCompleted),
		"count": len(items),
	})
	return Outcome{
		State:    StateCompleted,
		Platform: job.Platform,
		Mode:     job.Mode,
		Message:  fmt.Sprintf("collected %d items", len(items)),
		Items:    items,
		Count:    len(items),
	}
}

func (r *Runner) fail(log logger.Logger, job Job, err error) Outcome {
	kind := errs.KindUnknown
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		kind = apiErr.Kind
	}

	log.ErrorWithFields("job failed", map[string]interface{}{
		"state":      string(StateFailed),
		"error":      err.Error(),
		"error_kind": string(kind),
	})
	return Outcome{
		State:    StateFailed,
		Platform: job.Platform,
		Mode:     job.Mode,
		Message:  err.Error(),
		ErrKind:  kind,
		Err:      err,
	}
}
