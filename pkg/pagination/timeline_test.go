package pagination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	id string
	ts int64
}

func postCreatedAt(p post) int64 { return p.ts }

func ids(posts []post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.id)
	}
	return out
}

func TestTimelineMaxCountCeiling(t *testing.T) {
	fetch, calls := scriptedFetch(t, []Page[post]{
		{Items: []post{{"p1", 100}, {"p2", 99}, {"p3", 98}}, Cursor: "10", HasMore: true},
		{Items: []post{{"p4", 97}, {"p5", 96}, {"p6", 95}}, Cursor: "20", HasMore: true},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		MaxCount:  4,
		CreatedAt: postCreatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(got))
	assert.Equal(t, 2, *calls)
}

func TestTimelineMaxCountExactPageBoundary(t *testing.T) {
	fetch, calls := scriptedFetch(t, []Page[post]{
		{Items: []post{{"p1", 100}, {"p2", 99}}, Cursor: "10", HasMore: true},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		MaxCount:  2,
		CreatedAt: postCreatedAt,
	})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, *calls)
}

func TestTimelineStopHeuristic(t *testing.T) {
	// Two qualifying items followed by five older ones. Once a qualifying
	// item has been seen and more than the threshold of items processed,
	// the first older item must end the crawl.
	const cutoff = int64(1000)
	fetch, calls := scriptedFetch(t, []Page[post]{
		{Items: []post{
			{"n1", 1500}, {"n2", 1400},
			{"o1", 900}, {"o2", 800}, {"o3", 700}, {"o4", 600}, {"o5", 500},
		}, Cursor: "10", HasMore: true},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		Cutoff:          cutoff,
		PinnedThreshold: 4,
		CreatedAt:       postCreatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, ids(got))
	// No further page is requested after the stop.
	assert.Equal(t, 1, *calls)
}

func TestTimelinePinnedItemTolerance(t *testing.T) {
	// Pinned (older) items at the head must not end the crawl before any
	// qualifying item has been seen.
	const cutoff = int64(1000)
	fetch, _ := scriptedFetch(t, []Page[post]{
		{Items: []post{
			{"pin1", 500}, {"pin2", 400},
			{"n1", 1500}, {"n2", 1400},
		}, Cursor: "10", HasMore: false},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		Cutoff:          cutoff,
		PinnedThreshold: 4,
		CreatedAt:       postCreatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, ids(got))
}

func TestTimelineStopSpansPages(t *testing.T) {
	const cutoff = int64(1000)
	fetch, calls := scriptedFetch(t, []Page[post]{
		{Items: []post{{"n1", 1500}, {"n2", 1400}, {"n3", 1300}}, Cursor: "10", HasMore: true},
		{Items: []post{{"n4", 1200}, {"o1", 900}}, Cursor: "20", HasMore: true},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		Cutoff:          cutoff,
		PinnedThreshold: 4,
		CreatedAt:       postCreatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3", "n4"}, ids(got))
	assert.Equal(t, 2, *calls)
}

func TestTimelineCursorStallGuard(t *testing.T) {
	fetch, calls := scriptedFetch(t, []Page[post]{
		{Items: []post{{"p1", 100}}, Cursor: "10", HasMore: true},
		{Items: []post{{"p2", 99}}, Cursor: "10", HasMore: true},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		CreatedAt: postCreatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(got))
	assert.Equal(t, 2, *calls)
}

func TestTimelineSkipsItemsWithoutTimestamp(t *testing.T) {
	const cutoff = int64(1000)
	fetch, _ := scriptedFetch(t, []Page[post]{
		{Items: []post{{"n1", 1500}, {"bad", 0}, {"n2", 1400}}, Cursor: "10", HasMore: false},
	})

	got, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		Cutoff:    cutoff,
		CreatedAt: postCreatedAt,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, ids(got))
}

func TestTimelineBatchCallbackSeesKeptItemsOnly(t *testing.T) {
	const cutoff = int64(1000)
	fetch, _ := scriptedFetch(t, []Page[post]{
		{Items: []post{{"pin", 500}, {"n1", 1500}}, Cursor: "10", HasMore: false},
	})

	var batches [][]string
	_, err := CollectTimeline(context.Background(), "0", fetch, TimelineOptions[post]{
		Cutoff:    cutoff,
		CreatedAt: postCreatedAt,
		OnBatch:   func(items []post) { batches = append(batches, ids(items)) },
	})

	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"n1"}, batches[0])
}

func TestTimelineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, cursor string) (Page[post], error) {
		t.Fatal("no request should be issued after cancellation")
		return Page[post]{}, nil
	}

	_, err := CollectTimeline(ctx, "0", fetch, TimelineOptions[post]{CreatedAt: postCreatedAt})
	assert.ErrorIs(t, err, context.Canceled)
}
