package douyin

import (
	"context"
	"strconv"

	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/pagination"
	"mediacrawl/pkg/ratelimit"
)

// Engine implements the crawl capability set for the short-video platform.
// One engine instance serves one job at a time: it shares the client's
// session and must not be used by concurrent jobs.
type Engine struct {
	client  *Client
	sleeper ratelimit.Sleeper
	opts    EngineOptions
	log     logger.Logger
}

// EngineOptions carries the crawl tunables that live outside the job.
type EngineOptions struct {
	Search SearchOptions
	// PinnedThreshold feeds the timeline stop heuristic. Zero selects the
	// pagination default.
	PinnedThreshold int
}

// NewEngine wraps a client into a crawler.Engine.
func NewEngine(client *Client, sleeper ratelimit.Sleeper, opts EngineOptions, log logger.Logger) *Engine {
	if sleeper == nil {
		sleeper = ratelimit.NoDelay{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Engine{client: client, sleeper: sleeper, opts: opts, log: log}
}

// Platform implements crawler.Engine.
func (e *Engine) Platform() crawler.Platform { return crawler.PlatformDouyin }

// Search crawls posts for each of the job's keywords, then their comment
// trees when the job asks for comments.
func (e *Engine) Search(ctx context.Context, job crawler.Job) ([]crawler.Item, error) {
	var items []crawler.Item

	for _, keyword := range job.Keywords {
		searchID := ""
		fetch := func(ctx context.Context, cursor string) (pagination.Page[Post], error) {
			offset, _ := strconv.Atoi(cursor)
			page, err := e.client.Search(ctx, keyword, offset, searchID, e.opts.Search)
			if err != nil {
				return pagination.Page[Post]{}, err
			}
			if page.SearchID != "" {
				searchID = page.SearchID
			}
			return pagination.Page[Post]{
				Items:   page.Posts,
				Cursor:  strconv.FormatInt(page.Cursor, 10),
				HasMore: page.HasMore,
			}, nil
		}

		posts, err := pagination.Collect(ctx, "0", fetch, pagination.CollectOptions[Post]{
			Ceiling: job.MaxCount,
			Sleeper: e.sleeper,
			Log:     e.log,
		})
		if err != nil {
			return items, err
		}

		logger.LogCrawlProgress(string(crawler.PlatformDouyin), keyword, len(posts), job.MaxCount)

		items = append(items, postItems(posts)...)
		if job.FetchComments {
			commentItems, err := e.commentsForPosts(ctx, job, posts)
			if err != nil {
				return items, err
			}
			items = append(items, commentItems...)
		}
	}

	return items, nil
}

// FetchDetail crawls each target post by id, then its comment tree when the
// job asks for comments.
func (e *Engine) FetchDetail(ctx context.Context, job crawler.Job) ([]crawler.Item, error) {
	var items []crawler.Item
	var posts []Post

	for i, awemeID := range job.TargetIDs {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		if i > 0 {
			if err := e.sleeper.Sleep(ctx); err != nil {
				return items, err
			}
		}

		post, err := e.client.Detail(ctx, awemeID)
		if err != nil {
			return items, err
		}
		posts = append(posts, post)
		items = append(items, postItem(post))
	}

	if job.FetchComments {
		commentItems, err := e.commentsForPosts(ctx, job, posts)
		if err != nil {
			return items, err
		}
		items = append(items, commentItems...)
	}
	return items, nil
}

// FetchComments crawls one post's comment tree: top-level comments up to
// the job's ceiling, and each comment's reply thread when sub-comments are
// requested. Reply threads have no ceiling of their own.
func (e *Engine) FetchComments(ctx context.Context, job crawler.Job, postID string) ([]crawler.Item, error) {
	var items []crawler.Item
	var replyErr error

	fetch := func(ctx context.Context, cursor string) (pagination.Page[Comment], error) {
		// A failed reply thread poisons the whole crawl; issuing more
		// top-level requests over the same session only digs deeper.
		if replyErr != nil {
			return pagination.Page[Comment]{}, replyErr
		}
		return e.commentPage(ctx, cursor, func(c int64) ([]Comment, int64, bool, error) {
			return e.client.Comments(ctx, postID, c)
		})
	}

	_, err := pagination.Collect(ctx, "0", fetch, pagination.CollectOptions[Comment]{
		Ceiling: job.CommentCeiling,
		Sleeper: e.sleeper,
		Log:     e.log,
		OnPage: func(comments []Comment) {
			if replyErr != nil {
				return
			}
			for _, c := range comments {
				items = append(items, commentItem(c))
			}
			if !job.FetchSubComments {
				return
			}
			for _, c := range comments {
				if c.Meta.ReplyCommentTotal <= 0 {
					continue
				}
				replies, err := e.fetchReplies(ctx, postID, c.Meta.CID)
				for _, rc := range replies {
					items = append(items, commentItem(rc))
				}
				if err != nil {
					replyErr = err
					return
				}
			}
		},
	})
	if err != nil {
		return items, err
	}
	return items, replyErr
}

func (e *Engine) fetchReplies(ctx context.Context, postID, commentID string) ([]Comment, error) {
	fetch := func(ctx context.Context, cursor string) (pagination.Page[Comment], error) {
		return e.commentPage(ctx, cursor, func(c int64) ([]Comment, int64, bool, error) {
			return e.client.SubComments(ctx, postID, commentID, c)
		})
	}
	return pagination.Collect(ctx, "0", fetch, pagination.CollectOptions[Comment]{
		Sleeper: e.sleeper,
		Log:     e.log,
	})
}

// commentPage adapts the client's numeric comment cursors to the generic
// page loop.
func (e *Engine) commentPage(ctx context.Context, cursor string, call func(int64) ([]Comment, int64, bool, error)) (pagination.Page[Comment], error) {
	c, _ := strconv.ParseInt(cursor, 10, 64)
	comments, next, hasMore, err := call(c)
	if err != nil {
		return pagination.Page[Comment]{}, err
	}
	return pagination.Page[Comment]{
		Items:   comments,
		Cursor:  strconv.FormatInt(next, 10),
		HasMore: hasMore,
	}, nil
}

// FetchTimeline crawls a creator's profile and post listing, honoring the
// job's cutoff or max count, then comment trees when requested.
func (e *Engine) FetchTimeline(ctx context.Context, job crawler.Job) ([]crawler.Item, error) {
	var items []crawler.Item

	profile, err := e.client.UserInfo(ctx, job.CreatorID)
	if err != nil {
		return nil, err
	}
	items = append(items, crawler.Item{
		ID:   job.CreatorID,
		Kind: crawler.KindCreator,
		Data: profile,
	})

	fetch := func(ctx context.Context, cursor string) (pagination.Page[Post], error) {
		posts, next, hasMore, err := e.client.UserPosts(ctx, job.CreatorID, cursor)
		if err != nil {
			return pagination.Page[Post]{}, err
		}
		return pagination.Page[Post]{
			Items:   posts,
			Cursor:  strconv.FormatInt(next, 10),
			HasMore: hasMore,
		}, nil
	}

	posts, err := pagination.CollectTimeline(ctx, "", fetch, pagination.TimelineOptions[Post]{
		MaxCount:        job.MaxCount,
		Cutoff:          job.TargetCutoff,
		PinnedThreshold: e.opts.PinnedThreshold,
		CreatedAt:       func(p Post) int64 { return p.Meta.CreateTime },
		Sleeper:         e.sleeper,
		Log:             e.log,
	})
	if err != nil {
		return items, err
	}

	logger.LogCrawlProgress(string(crawler.PlatformDouyin), job.CreatorID, len(posts), job.MaxCount)

	items = append(items, postItems(posts)...)
	if job.FetchComments {
		commentItems, err := e.commentsForPosts(ctx, job, posts)
		if err != nil {
			return items, err
		}
		items = append(items, commentItems...)
	}
	return items, nil
}

func (e *Engine) commentsForPosts(ctx context.Context, job crawler.Job, posts []Post) ([]crawler.Item, error) {
	var items []crawler.Item
	for i, post := range posts {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		if i > 0 {
			if err := e.sleeper.Sleep(ctx); err != nil {
				return items, err
			}
		}
		commentItems, err := e.FetchComments(ctx, job, post.Meta.AwemeID)
		items = append(items, commentItems...)
		if err != nil {
			return items, err
		}
	}
	return items, nil
}

func postItem(p Post) crawler.Item {
	return crawler.Item{
		ID:        p.Meta.AwemeID,
		Kind:      crawler.KindPost,
		CreatedAt: p.Meta.CreateTime,
		Data:      p.Raw,
	}
}

func postItems(posts []Post) []crawler.Item {
	items := make([]crawler.Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, postItem(p))
	}
	return items
}

func commentItem(c Comment) crawler.Item {
	return crawler.Item{
		ID:        c.Meta.CID,
		Kind:      crawler.KindComment,
		CreatedAt: c.Meta.CreateTime,
		Data:      c.Raw,
	}
}
