package recorder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/sink"
)

// writeJob is one record handoff to the sink.
type writeJob struct {
	platform crawler.Platform
	item     crawler.Item
}

// Recorder fans crawled items out to the sink on a small worker pool, so
// the crawl loop never waits on persistence.
type Recorder struct {
	numWorkers int
	jobQueue   chan writeJob
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	sink       sink.Sink
	logger     logger.Logger

	written uint64
	failed  uint64
}

// New creates a recorder over a sink.
func New(numWorkers int, s sink.Sink, log logger.Logger) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	return &Recorder{
		numWorkers: numWorkers,
		jobQueue:   make(chan writeJob, numWorkers*2),
		ctx:        ctx,
		cancel:     cancel,
		sink:       s,
		logger:     log,
	}
}

// Start launches the workers.
func (r *Recorder) Start() {
	r.logger.InfoWithFields("starting recorder", map[string]interface{}{
		"num_workers": r.numWorkers,
	})

	for i := 0; i < r.numWorkers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
}

// Stop drains the queue, waits for the workers and closes the sink.
func (r *Recorder) Stop() {
	close(r.jobQueue)
	r.wg.Wait()
	r.cancel()

	if err := r.sink.Close(); err != nil {
		r.logger.ErrorWithFields("closing sink", map[string]interface{}{
			"error": err.Error(),
		})
	}

	r.logger.InfoWithFields("recorder stopped", map[string]interface{}{
		"written": atomic.LoadUint64(&r.written),
		"failed":  atomic.LoadUint64(&r.failed),
	})
}

// Submit queues one item for persistence. It blocks only when the queue is
// full, which throttles a crawl that outruns the sink.
func (r *Recorder) Submit(platform crawler.Platform, item crawler.Item) error {
	select {
	case r.jobQueue <- writeJob{platform: platform, item: item}:
		return nil
	case <-r.ctx.Done():
		return fmt.Errorf("recorder is shutting down")
	}
}

// Record submits every item of a batch; it is shaped to serve as a
// per-batch crawl callback.
func (r *Recorder) Record(platform crawler.Platform, items []crawler.Item) {
	for _, item := range items {
		if err := r.Submit(platform, item); err != nil {
			r.logger.WarnWithFields("dropping record", map[string]interface{}{
				"platform": string(platform),
				"item_id":  item.ID,
				"error":    err.Error(),
			})
			return
		}
	}
}

// Written returns the number of records persisted so far.
func (r *Recorder) Written() uint64 {
	return atomic.LoadUint64(&r.written)
}

// Failed returns the number of records the sink rejected.
func (r *Recorder) Failed() uint64 {
	return atomic.LoadUint64(&r.failed)
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	r.logger.DebugWithFields("recorder worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range r.jobQueue {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		err := r.sink.Write(r.ctx, sink.NewRecord(job.platform, job.item))
		if err != nil {
			atomic.AddUint64(&r.failed, 1)
		} else {
			atomic.AddUint64(&r.written, 1)
		}
		logger.LogRecord(string(job.platform), job.item.ID, string(job.item.Kind), err == nil, err)
	}

	r.logger.DebugWithFields("recorder worker stopping, queue closed", map[string]interface{}{
		"worker_id": id,
	})
}
