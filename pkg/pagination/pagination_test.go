package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetch serves a fixed page sequence and counts requests. Requests
// past the end of the script fail the test.
func scriptedFetch[T any](t *testing.T, pages []Page[T]) (FetchFunc[T], *int) {
	t.Helper()
	calls := 0
	fetch := func(ctx context.Context, cursor string) (Page[T], error) {
		if calls >= len(pages) {
			t.Fatalf("unexpected request %d with cursor %q", calls+1, cursor)
		}
		page := pages[calls]
		calls++
		return page, nil
	}
	return fetch, &calls
}

func TestCollectCeilingTruncation(t *testing.T) {
	fetch, calls := scriptedFetch(t, []Page[string]{
		{Items: []string{"c1", "c2", "c3"}, Cursor: "10", HasMore: true},
		{Items: []string{"c4", "c5", "c6"}, Cursor: "20", HasMore: true},
	})

	var pages [][]string
	got, err := Collect(context.Background(), "0", fetch, CollectOptions[string]{
		Ceiling: 5,
		OnPage:  func(items []string) { pages = append(pages, items) },
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, got)
	assert.Equal(t, 2, *calls)
	// The callback sees exactly the truncated page, not the raw one.
	require.Len(t, pages, 2)
	assert.Equal(t, []string{"c4", "c5"}, pages[1])
}

func TestCollectStopsWhenNoMorePages(t *testing.T) {
	fetch, calls := scriptedFetch(t, []Page[string]{
		{Items: []string{"c1"}, Cursor: "10", HasMore: true},
		{Items: []string{"c2"}, Cursor: "20", HasMore: false},
	})

	got, err := Collect(context.Background(), "0", fetch, CollectOptions[string]{Ceiling: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, got)
	assert.Equal(t, 2, *calls)
}

func TestCollectCursorStallGuard(t *testing.T) {
	// Two consecutive pages with the same cursor and hasMore still set:
	// the loop must end after the second page without a third request.
	fetch, calls := scriptedFetch(t, []Page[string]{
		{Items: []string{"c1"}, Cursor: "10", HasMore: true},
		{Items: []string{"c2"}, Cursor: "10", HasMore: true},
	})

	got, err := Collect(context.Background(), "0", fetch, CollectOptions[string]{Ceiling: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, got)
	assert.Equal(t, 2, *calls)
}

func TestCollectToleratesTransientEmptyPage(t *testing.T) {
	requestCursors := []string{}
	pages := []Page[string]{
		{Items: nil, Cursor: "0", HasMore: true},
		{Items: []string{"c1"}, Cursor: "10", HasMore: false},
	}
	calls := 0
	fetch := func(ctx context.Context, cursor string) (Page[string], error) {
		requestCursors = append(requestCursors, cursor)
		page := pages[calls]
		calls++
		return page, nil
	}

	got, err := Collect(context.Background(), "0", fetch, CollectOptions[string]{Ceiling: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, got)
	// The empty page must not advance the cursor.
	assert.Equal(t, []string{"0", "0"}, requestCursors)
}

func TestCollectPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	fetch := func(ctx context.Context, cursor string) (Page[string], error) {
		calls++
		if calls == 2 {
			return Page[string]{}, boom
		}
		return Page[string]{Items: []string{"c1"}, Cursor: "10", HasMore: true}, nil
	}

	got, err := Collect(context.Background(), "0", fetch, CollectOptions[string]{Ceiling: 100})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"c1"}, got)
}

func TestCollectHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, cursor string) (Page[string], error) {
		t.Fatal("no request should be issued after cancellation")
		return Page[string]{}, nil
	}

	_, err := Collect(ctx, "0", fetch, CollectOptions[string]{Ceiling: 100})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectCallbackOrder(t *testing.T) {
	fetch, _ := scriptedFetch(t, []Page[string]{
		{Items: []string{"a", "b"}, Cursor: "10", HasMore: true},
		{Items: []string{"c"}, Cursor: "20", HasMore: false},
	})

	var seen []string
	_, err := Collect(context.Background(), "0", fetch, CollectOptions[string]{
		OnPage: func(items []string) { seen = append(seen, items...) },
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}
