package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/sink"
)

// memorySink collects records in memory.
type memorySink struct {
	mu      sync.Mutex
	records []sink.Record
	err     error
	closed  bool
}

func (m *memorySink) Write(ctx context.Context, rec sink.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func TestRecorderWritesAllSubmitted(t *testing.T) {
	ms := &memorySink{}
	r := New(3, ms, nil)
	r.Start()

	for i := 0; i < 20; i++ {
		require.NoError(t, r.Submit(crawler.PlatformDouyin, crawler.Item{
			ID:   string(rune('a' + i)),
			Kind: crawler.KindPost,
		}))
	}
	r.Stop()

	assert.Equal(t, uint64(20), r.Written())
	assert.Equal(t, uint64(0), r.Failed())
	assert.Len(t, ms.records, 20)
	assert.True(t, ms.closed, "Stop must close the sink")
}

func TestRecorderCountsFailures(t *testing.T) {
	ms := &memorySink{err: errors.New("disk full")}
	r := New(1, ms, nil)
	r.Start()

	require.NoError(t, r.Submit(crawler.PlatformDouyin, crawler.Item{ID: "p1", Kind: crawler.KindPost}))
	r.Stop()

	assert.Equal(t, uint64(0), r.Written())
	assert.Equal(t, uint64(1), r.Failed())
}

func TestRecorderRecordBatch(t *testing.T) {
	ms := &memorySink{}
	r := New(2, ms, nil)
	r.Start()

	r.Record(crawler.PlatformDouyin, []crawler.Item{
		{ID: "p1", Kind: crawler.KindPost},
		{ID: "c1", Kind: crawler.KindComment},
	})
	r.Stop()

	assert.Equal(t, uint64(2), r.Written())
}
