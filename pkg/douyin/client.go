package douyin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/proxy"
	"mediacrawl/pkg/ratelimit"
	"mediacrawl/pkg/session"
)

// signExpr computes the per-request anti-bot token inside the live page.
// The signing algorithm itself belongs to the site's own bundle; the client
// only invokes it.
const signExpr = "window.bdms.init._v[2].p[42].apply(null, [0, 1, 14, %s, %s, %s])"

// Client issues signed calls against the short-video platform's private web
// API. It owns one session for its lifetime and is not safe for concurrent
// jobs; each job gets its own client.
type Client struct {
	host     string
	http     *http.Client
	provider session.Provider
	state    session.State
	limiter  ratelimit.Limiter
	log      logger.Logger
}

// NewClient builds a client over an established session. A non-nil lease
// routes traffic through that proxy for the whole session.
func NewClient(provider session.Provider, state session.State, lease *proxy.Lease, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	transport := http.DefaultTransport
	if lease != nil {
		transport = &http.Transport{Proxy: http.ProxyURL(lease.URL())}
	}

	return &Client{
		host: host,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		provider: provider,
		state:    state,
		log:      log,
	}
}

// SetLimiter caps the client's overall API call volume. The jittered
// inter-page delay is the engine's concern; this guards the minute budget.
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// LoggedIn probes a session snapshot for a login marker: the localStorage
// flag first, the login-status cookie as fallback. It never fails.
func LoggedIn(state session.State) bool {
	if state.LocalStorage["HasUserLogin"] == "1" {
		return true
	}
	return state.Cookies["LOGIN_STATUS"] == "1"
}

// IsLoggedIn reports whether the client's current session carries a login
// marker.
func (c *Client) IsLoggedIn() bool {
	return LoggedIn(c.state)
}

// UpdateSession re-reads cookies and localStorage from the live browser.
// Callers must invoke this after any external login step before issuing
// further API calls.
func (c *Client) UpdateSession(ctx context.Context) error {
	state, err := c.provider.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	c.state = state
	return nil
}

// signParams merges the device-fingerprint parameters into params and
// appends the computed anti-bot token.
func (c *Client) signParams(ctx context.Context, params url.Values, postData string) error {
	for k, v := range commonParams() {
		params.Set(k, v)
	}
	params.Set("webid", webID())
	params.Set("msToken", c.state.LocalStorage["xmst"])

	query := params.Encode()
	expr := fmt.Sprintf(signExpr,
		jsString(query), jsString(postData), jsString(c.state.UserAgent))

	var aBogus string
	if err := c.provider.Evaluate(ctx, expr, &aBogus); err != nil {
		return fmt.Errorf("computing request signature: %w", err)
	}
	params.Set("a_bogus", aBogus)
	return nil
}

// get issues one signed GET and decodes the classified response into out.
func (c *Client) get(ctx context.Context, uri string, params url.Values, referer string, out interface{}) error {
	if c.limiter != nil {
		c.limiter.Wait()
	}
	if err := c.signParams(ctx, params, ""); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+uri+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.state.UserAgent)
	req.Header.Set("Cookie", c.state.CookieHeader)
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	if referer != "" {
		req.Header.Set("Referer", quoteReferer(referer))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.New(errs.KindTransport, "request to %s failed: %v", uri, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.KindTransport, "reading response from %s: %v", uri, err)
	}
	logger.LogRequest(http.MethodGet, uri, resp.StatusCode, time.Since(start).Seconds())

	return c.classify(uri, resp.StatusCode, body, out)
}

// classify maps a raw response to the error taxonomy: an empty or "blocked"
// body means the session is compromised, a body that fails to decode is a
// data-fetch failure carrying the raw text for diagnosis.
func (c *Client) classify(uri string, status int, body []byte, out interface{}) error {
	text := string(body)
	if text == "" || text == "blocked" {
		c.log.ErrorWithFields("blocked response", map[string]interface{}{
			"uri":    uri,
			"status": status,
			"body":   text,
		})
		return &errs.Error{
			Kind:    errs.KindAccountBlocked,
			Message: fmt.Sprintf("blocked response from %s", uri),
			Code:    status,
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errs.NewDataFetch(text, "decoding response from %s: %v", uri, err)
	}
	return nil
}

// SearchOptions narrows a keyword search.
type SearchOptions struct {
	// SortType: 0 relevance, 1 most liked, 2 newest.
	SortType int
	// PublishTime: 0 unlimited, 1 last day, 7 last week, 180 last half year.
	PublishTime int
}

// SearchPage is one page of keyword search results. SearchID must be fed
// back into the next page's request.
type SearchPage struct {
	Posts    []Post
	Cursor   int64
	HasMore  bool
	SearchID string
}

// Search fetches one page of keyword search results starting at offset.
func (c *Client) Search(ctx context.Context, keyword string, offset int, searchID string, opts SearchOptions) (SearchPage, error) {
	params := url.Values{}
	params.Set("search_channel", "aweme_general")
	params.Set("enable_history", "1")
	params.Set("keyword", keyword)
	params.Set("search_source", "tab_search")
	params.Set("query_correct_type", "1")
	params.Set("is_filter_search", "0")
	params.Set("from_group_id", "7378810571505847586")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("count", strconv.Itoa(searchPageSize))
	params.Set("need_filter_settings", "1")
	params.Set("list_type", "multi")
	params.Set("search_id", searchID)

	if opts.SortType != 0 || opts.PublishTime != 0 {
		filter, _ := json.Marshal(map[string]string{
			"sort_type":    strconv.Itoa(opts.SortType),
			"publish_time": strconv.Itoa(opts.PublishTime),
		})
		params.Set("filter_selected", string(filter))
		params.Set("is_filter_search", "1")
	}

	referer := fmt.Sprintf("%s/search/%s?aid=f594bbd9-a0e2-4651-9319-ebe3cb6298c1&type=general", c.host, keyword)

	var resp searchResponse
	if err := c.get(ctx, searchPath, params, referer, &resp); err != nil {
		return SearchPage{}, err
	}

	posts := make([]Post, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if len(entry.AwemeInfo) == 0 {
			continue
		}
		posts = append(posts, parsePost(entry.AwemeInfo))
	}
	return SearchPage{
		Posts:    posts,
		Cursor:   resp.Cursor,
		HasMore:  resp.HasMore == 1,
		SearchID: resp.Extra.Logid,
	}, nil
}

// Detail fetches one post by id.
func (c *Client) Detail(ctx context.Context, awemeID string) (Post, error) {
	params := url.Values{}
	params.Set("aweme_id", awemeID)

	var resp detailResponse
	if err := c.get(ctx, detailPath, params, "", &resp); err != nil {
		return Post{}, err
	}
	if len(resp.AwemeDetail) == 0 {
		return Post{}, errs.NewDataFetch("", "detail response for %s has no aweme_detail", awemeID)
	}
	return parsePost(resp.AwemeDetail), nil
}

// Comments fetches one page of a post's top-level comments.
func (c *Client) Comments(ctx context.Context, awemeID string, cursor int64) ([]Comment, int64, bool, error) {
	params := url.Values{}
	params.Set("aweme_id", awemeID)
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	params.Set("count", strconv.Itoa(commentPageSize))
	params.Set("item_type", "0")

	var resp commentListResponse
	if err := c.get(ctx, commentListPath, params, "", &resp); err != nil {
		return nil, 0, false, err
	}
	return parseComments(resp), resp.Cursor, resp.HasMore == 1, nil
}

// SubComments fetches one page of replies under a comment.
func (c *Client) SubComments(ctx context.Context, awemeID, commentID string, cursor int64) ([]Comment, int64, bool, error) {
	params := url.Values{}
	params.Set("comment_id", commentID)
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	params.Set("count", strconv.Itoa(commentPageSize))
	params.Set("item_type", "0")
	params.Set("item_id", awemeID)

	var resp commentListResponse
	if err := c.get(ctx, commentReplyPath, params, "", &resp); err != nil {
		return nil, 0, false, err
	}
	return parseComments(resp), resp.Cursor, resp.HasMore == 1, nil
}

// UserInfo fetches a creator's profile.
func (c *Client) UserInfo(ctx context.Context, secUserID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("sec_user_id", secUserID)
	params.Set("publish_video_strategy_type", "2")
	params.Set("personal_center_strategy", "1")

	var resp json.RawMessage
	if err := c.get(ctx, userProfilePath, params, "", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UserPosts fetches one page of a creator's post listing.
func (c *Client) UserPosts(ctx context.Context, secUserID, maxCursor string) ([]Post, int64, bool, error) {
	params := url.Values{}
	params.Set("sec_user_id", secUserID)
	params.Set("count", strconv.Itoa(timelinePageSize))
	params.Set("max_cursor", maxCursor)
	params.Set("locate_query", "false")
	params.Set("publish_video_strategy_type", "2")
	params.Set("verifyFp", verifyFp)
	params.Set("fp", verifyFp)

	var resp userPostsResponse
	if err := c.get(ctx, userPostsPath, params, "", &resp); err != nil {
		return nil, 0, false, err
	}

	posts := make([]Post, 0, len(resp.AwemeList))
	for _, raw := range resp.AwemeList {
		posts = append(posts, parsePost(raw))
	}
	return posts, resp.MaxCursor, resp.HasMore == 1, nil
}

func parseComments(resp commentListResponse) []Comment {
	comments := make([]Comment, 0, len(resp.Comments))
	for _, raw := range resp.Comments {
		comments = append(comments, parseComment(raw))
	}
	return comments
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// quoteReferer percent-encodes a referer URL leaving only ':' and '/'
// unescaped, matching what the platform's own frontend sends.
func quoteReferer(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~', c == ':', c == '/':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
