package pagination

import (
	"context"

	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/ratelimit"
)

// TimelineOptions configures a creator-timeline collection loop.
type TimelineOptions[T any] struct {
	// MaxCount caps collection when no cutoff is set. 0 means unlimited.
	MaxCount int
	// Cutoff is a Unix timestamp; items created before it are outside the
	// crawl window. 0 means no cutoff, in which case MaxCount governs.
	Cutoff int64
	// PinnedThreshold is how many items must have been processed before an
	// old item is trusted as genuine end-of-timeline rather than a pinned
	// entry. Defaults to 4.
	PinnedThreshold int
	// CreatedAt extracts an item's creation timestamp.
	CreatedAt func(T) int64
	// OnBatch is invoked with each page's kept items, in fetch order.
	OnBatch func(items []T)
	// Sleeper paces dependent page fetches. Nil means no pacing.
	Sleeper ratelimit.Sleeper
	// Log receives stall-guard anomalies.
	Log logger.Logger
}

// CollectTimeline walks a newest-first creator feed.
//
// Platforms pin promoted items at the head of the feed, so the first items
// older than the cutoff cannot be trusted as end-of-timeline. The loop
// skips old items until at least one qualifying item has been seen and more
// than PinnedThreshold items have been processed in total; only then does an
// old item stop the crawl. Without a cutoff the loop simply collects until
// MaxCount.
func CollectTimeline[T any](ctx context.Context, start string, fetch FetchFunc[T], opts TimelineOptions[T]) ([]T, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNopLogger()
	}
	threshold := opts.PinnedThreshold
	if threshold <= 0 {
		threshold = 4
	}

	var collected []T
	cursor := start
	hasMore := true
	lastCursor := ""
	firstPage := true

	seenQualifying := false
	processed := 0

	for hasMore {
		if opts.Cutoff == 0 && opts.MaxCount > 0 && len(collected) >= opts.MaxCount {
			break
		}
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return collected, err
		}
		hasMore = page.HasMore

		if !firstPage && page.HasMore && page.Cursor == lastCursor {
			log.WarnWithFields("cursor stalled, forcing timeline stop", map[string]interface{}{
				"cursor":    page.Cursor,
				"collected": len(collected),
			})
			hasMore = false
		}
		lastCursor = page.Cursor
		firstPage = false

		var kept []T
		reachedEnd := false
		for _, item := range page.Items {
			processed++

			if opts.Cutoff != 0 {
				ts := opts.CreatedAt(item)
				if ts == 0 {
					// Items without a timestamp cannot be placed
					// against the cutoff; skip them.
					continue
				}
				if ts >= opts.Cutoff {
					kept = append(kept, item)
					seenQualifying = true
					continue
				}
				if seenQualifying && processed > threshold {
					log.InfoWithFields("reached items older than cutoff, stopping timeline", map[string]interface{}{
						"processed": processed,
						"collected": len(collected) + len(kept),
					})
					reachedEnd = true
					break
				}
				// Possibly a pinned item; skip without stopping.
				continue
			}

			kept = append(kept, item)
			if opts.MaxCount > 0 && len(collected)+len(kept) >= opts.MaxCount {
				reachedEnd = true
				break
			}
		}

		if len(kept) > 0 {
			if opts.OnBatch != nil {
				opts.OnBatch(kept)
			}
			collected = append(collected, kept...)
		}
		if reachedEnd {
			break
		}

		if len(page.Items) > 0 {
			cursor = page.Cursor
		}

		if hasMore && opts.Sleeper != nil {
			if err := opts.Sleeper.Sleep(ctx); err != nil {
				return collected, err
			}
		}
	}

	return collected, nil
}
