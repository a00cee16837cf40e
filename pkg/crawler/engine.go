package crawler

import (
	"context"
)

// ItemKind distinguishes record types flowing to the sink.
type ItemKind string

const (
	KindPost    ItemKind = "post"
	KindComment ItemKind = "comment"
	KindCreator ItemKind = "creator"
)

// Item is one platform-native record with the fields the engine itself
// needs. Data holds the untouched platform payload.
type Item struct {
	ID        string      `json:"id"`
	Kind      ItemKind    `json:"kind"`
	CreatedAt int64       `json:"created_at"`
	Data      interface{} `json:"data"`
}

// Engine is the capability set one platform implements. Engines are
// stateless across jobs: all per-job inputs arrive in the Job value, and
// all methods honor cancellation between page fetches.
type Engine interface {
	Platform() Platform

	// Search crawls posts matching the job's keywords.
	Search(ctx context.Context, job Job) ([]Item, error)

	// FetchDetail crawls the job's target posts by id.
	FetchDetail(ctx context.Context, job Job) ([]Item, error)

	// FetchComments crawls the comment tree of one post, descending into
	// replies when the job asks for sub-comments.
	FetchComments(ctx context.Context, job Job, postID string) ([]Item, error)

	// FetchTimeline crawls the job's creator's post listing.
	FetchTimeline(ctx context.Context, job Job) ([]Item, error)
}
