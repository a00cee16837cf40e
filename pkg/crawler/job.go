package crawler

import (
	errs "mediacrawl/pkg/errors"
)

// Platform identifies a supported site. The set is closed: adding a platform
// means adding a constant and registering an Engine for it, not reflection.
type Platform string

const (
	PlatformDouyin   Platform = "dy"
	PlatformXhs      Platform = "xhs"
	PlatformKuaishou Platform = "ks"
	PlatformBilibili Platform = "bili"
	PlatformWeibo    Platform = "wb"
	PlatformTieba    Platform = "tieba"
	PlatformZhihu    Platform = "zhihu"
)

// Mode selects what a job crawls.
type Mode string

const (
	ModeSearch  Mode = "search"
	ModeDetail  Mode = "detail"
	ModeCreator Mode = "creator"
)

// Job describes one crawl. It is immutable once dispatched: engines receive
// it by value and never write back.
type Job struct {
	Platform Platform
	Mode     Mode

	// Keywords drives search mode, one search per keyword.
	Keywords []string
	// TargetIDs drives detail mode.
	TargetIDs []string
	// CreatorID drives creator mode.
	CreatorID string

	// MaxCount caps collected posts; 0 means unlimited. Ignored by the
	// creator timeline when TargetCutoff is set.
	MaxCount int
	// TargetCutoff is a Unix timestamp; creator-timeline items older than
	// it are outside the crawl window. 0 means no cutoff.
	TargetCutoff int64
	// CommentCeiling caps top-level comments fetched per post.
	CommentCeiling int

	FetchComments    bool
	FetchSubComments bool
}

// Validate checks that the fields required by the job's mode are present.
// It runs before any network activity.
func (j Job) Validate() error {
	switch j.Mode {
	case ModeSearch:
		if len(j.Keywords) == 0 {
			return errs.New(errs.KindInvalidJob, "search job requires at least one keyword")
		}
	case ModeDetail:
		if len(j.TargetIDs) == 0 {
			return errs.New(errs.KindInvalidJob, "detail job requires at least one target id")
		}
	case ModeCreator:
		if j.CreatorID == "" {
			return errs.New(errs.KindInvalidJob, "creator job requires a creator id")
		}
	default:
		return errs.New(errs.KindInvalidJob, "unknown mode %q", j.Mode)
	}

	if j.MaxCount < 0 {
		return errs.New(errs.KindInvalidJob, "max count cannot be negative")
	}
	if j.CommentCeiling < 0 {
		return errs.New(errs.KindInvalidJob, "comment ceiling cannot be negative")
	}
	return nil
}
