package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// State is a snapshot of one platform's authenticated browser session.
// It is owned by a single client for the lifetime of one crawl job and is
// replaced wholesale on refresh, never mutated in place.
type State struct {
	// CookieHeader is the serialized Cookie request header.
	CookieHeader string
	// Cookies maps cookie names to values.
	Cookies map[string]string
	// LocalStorage is a snapshot of the page's localStorage.
	LocalStorage map[string]string
	// UserAgent is the browser's user agent, reused on API calls so the
	// fingerprint matches the session that produced the cookies.
	UserAgent string
}

// Provider establishes and exposes an authenticated browser session.
// Implementations own the browser lifecycle; callers only consume the
// resulting state and the script sandbox.
type Provider interface {
	// EnsureLoggedIn drives the login flow (QR scan or pre-seeded cookies)
	// and returns the resulting session state.
	EnsureLoggedIn(ctx context.Context) (State, error)

	// Snapshot re-reads cookies and localStorage from the live browser
	// without touching the login flow. Callers refresh their state through
	// this after any external login step.
	Snapshot(ctx context.Context) (State, error)

	// Evaluate runs a JavaScript expression in the page context and
	// unmarshals its result into out. Used only to compute anti-bot
	// signatures; never for scraping.
	Evaluate(ctx context.Context, expr string, out interface{}) error

	// Close releases the browser.
	Close() error
}

// NewState builds a State from cookie name/value pairs and a localStorage
// snapshot, deriving the serialized header.
func NewState(cookies map[string]string, localStorage map[string]string, userAgent string) State {
	return State{
		CookieHeader: FormatCookieHeader(cookies),
		Cookies:      cookies,
		LocalStorage: localStorage,
		UserAgent:    userAgent,
	}
}

// ParseCookieString splits a raw Cookie header into a name→value map.
// Malformed fragments without '=' are dropped.
func ParseCookieString(raw string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return cookies
}

// FormatCookieHeader serializes a cookie map into a Cookie request header.
// Names are sorted so the header is stable across calls.
func FormatCookieHeader(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, cookies[name]))
	}
	return strings.Join(pairs, "; ")
}
