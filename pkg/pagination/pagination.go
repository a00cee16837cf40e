package pagination

import (
	"context"

	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/ratelimit"
)

// Page is one page of a paginated API response.
type Page[T any] struct {
	Items   []T
	Cursor  string
	HasMore bool
}

// FetchFunc fetches the page starting at cursor. Implementations issue
// exactly one HTTP call per invocation.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// CollectOptions configures a flat collection loop.
type CollectOptions[T any] struct {
	// Ceiling caps the number of collected items. 0 means unlimited.
	Ceiling int
	// Sleeper paces dependent page fetches. Nil means no pacing.
	Sleeper ratelimit.Sleeper
	// OnPage is invoked with each page's kept items, in fetch order.
	OnPage func(items []T)
	// Log receives stall-guard anomalies.
	Log logger.Logger
}

// Collect runs the page loop from the start cursor until the API stops
// reporting more pages, the ceiling is reached, or the cursor stalls.
//
// An empty page does not advance the cursor: some APIs return transient
// empty pages that succeed on re-request. The stall guard below keeps that
// tolerance from looping forever. Fetch errors propagate along with the
// items collected so far.
func Collect[T any](ctx context.Context, start string, fetch FetchFunc[T], opts CollectOptions[T]) ([]T, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNopLogger()
	}

	var collected []T
	cursor := start
	hasMore := true
	lastCursor := ""
	firstPage := true

	for hasMore && (opts.Ceiling == 0 || len(collected) < opts.Ceiling) {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return collected, err
		}
		hasMore = page.HasMore

		// Cursor-stall guard: a response that claims more pages but
		// repeats the previous response's cursor would loop forever.
		if !firstPage && page.HasMore && page.Cursor == lastCursor {
			log.WarnWithFields("cursor stalled, forcing pagination stop", map[string]interface{}{
				"cursor":    page.Cursor,
				"collected": len(collected),
			})
			hasMore = false
		}
		lastCursor = page.Cursor
		firstPage = false

		if len(page.Items) > 0 {
			take := page.Items
			if opts.Ceiling > 0 && len(collected)+len(take) > opts.Ceiling {
				take = take[:opts.Ceiling-len(collected)]
			}
			if opts.OnPage != nil {
				opts.OnPage(take)
			}
			collected = append(collected, take...)
			cursor = page.Cursor
		}

		if hasMore && (opts.Ceiling == 0 || len(collected) < opts.Ceiling) && opts.Sleeper != nil {
			if err := opts.Sleeper.Sleep(ctx); err != nil {
				return collected, err
			}
		}
	}

	return collected, nil
}
