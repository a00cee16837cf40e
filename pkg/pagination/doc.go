// Package pagination drives cursor-based multi-page fetch loops.
//
// Platform APIs report a cursor and a has-more flag per page; neither can be
// trusted. The loops here bound collection with a caller ceiling, tolerate
// transient empty pages, and terminate on a stalled cursor rather than
// repeating the identical request forever. Timeline collection additionally
// applies a stop heuristic that survives pinned items at the head of an
// otherwise chronological feed.
package pagination
