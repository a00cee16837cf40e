package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/session"
)

// localStorageExpr snapshots the page's localStorage as a plain object.
const localStorageExpr = `(() => {
	const out = {};
	for (let i = 0; i < localStorage.length; i++) {
		const key = localStorage.key(i);
		out[key] = localStorage.getItem(key);
	}
	return out;
})()`

// Options configures a browser-backed session provider for one platform.
type Options struct {
	// HomeURL is the platform's logged-in landing page.
	HomeURL string
	// LoginType selects the login flow: "qrcode" waits for a manual scan,
	// "cookie" seeds a pre-extracted Cookie header.
	LoginType string
	// Cookies is the pre-extracted Cookie header for cookie login.
	Cookies string
	// UserAgent overrides the browser's default user agent.
	UserAgent string
	// LoggedIn probes a session snapshot for the platform's login marker.
	LoggedIn func(session.State) bool

	Headless     bool
	UserDataDir  string
	LoginTimeout time.Duration
}

// Chrome drives a headless browser and implements session.Provider.
// One Chrome serves one platform for the lifetime of a crawl job.
type Chrome struct {
	opts    Options
	home    *url.URL
	browser context.Context
	cancels []context.CancelFunc
	log     logger.Logger
}

// New launches the browser and navigates to the platform's home page.
func New(opts Options, log logger.Logger) (*Chrome, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	home, err := url.Parse(opts.HomeURL)
	if err != nil || home.Host == "" {
		return nil, fmt.Errorf("invalid home url %q", opts.HomeURL)
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = 2 * time.Minute
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	c := &Chrome{
		opts:    opts,
		home:    home,
		browser: browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		log:     log,
	}

	if err := chromedp.Run(browserCtx, chromedp.Navigate(opts.HomeURL)); err != nil {
		c.Close()
		return nil, fmt.Errorf("opening %s: %w", opts.HomeURL, err)
	}

	log.InfoWithFields("browser started", map[string]interface{}{
		"home":     opts.HomeURL,
		"headless": opts.Headless,
	})
	return c, nil
}

// EnsureLoggedIn drives the configured login flow and returns the resulting
// session state. Cookie login seeds the provided cookies and verifies them
// with one probe; QR login polls until the user completes the scan or the
// login timeout expires.
func (c *Chrome) EnsureLoggedIn(ctx context.Context) (session.State, error) {
	state, err := c.Snapshot(ctx)
	if err != nil {
		return session.State{}, err
	}
	if c.loggedIn(state) {
		return state, nil
	}

	switch c.opts.LoginType {
	case "cookie":
		if err := c.seedCookies(ctx); err != nil {
			return session.State{}, err
		}
		if err := c.reload(ctx); err != nil {
			return session.State{}, err
		}
		state, err = c.Snapshot(ctx)
		if err != nil {
			return session.State{}, err
		}
		if !c.loggedIn(state) {
			return session.State{}, errs.New(errs.KindLoginFailed, "cookie login rejected by %s", c.home.Host)
		}
		return state, nil

	case "qrcode":
		c.log.Info("waiting for QR code login, scan with the platform app")
		return c.waitForLogin(ctx)

	default:
		return session.State{}, errs.New(errs.KindLoginFailed, "unknown login type %q", c.opts.LoginType)
	}
}

// Snapshot re-reads cookies and localStorage from the live page.
func (c *Chrome) Snapshot(ctx context.Context) (session.State, error) {
	var (
		cookies      []*network.Cookie
		localStorage map[string]string
		userAgent    string
	)

	err := chromedp.Run(c.runCtx(ctx),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(localStorageExpr, &localStorage),
		chromedp.Evaluate("navigator.userAgent", &userAgent),
	)
	if err != nil {
		return session.State{}, fmt.Errorf("reading session state: %w", err)
	}

	pairs := make(map[string]string, len(cookies))
	for _, ck := range cookies {
		pairs[ck.Name] = ck.Value
	}
	if c.opts.UserAgent != "" {
		userAgent = c.opts.UserAgent
	}
	return session.NewState(pairs, localStorage, userAgent), nil
}

// Evaluate runs a JavaScript expression in the page context.
func (c *Chrome) Evaluate(ctx context.Context, expr string, out interface{}) error {
	return chromedp.Run(c.runCtx(ctx), chromedp.Evaluate(expr, out))
}

// Close releases the browser.
func (c *Chrome) Close() error {
	for _, cancel := range c.cancels {
		cancel()
	}
	return nil
}

func (c *Chrome) loggedIn(state session.State) bool {
	if c.opts.LoggedIn == nil {
		return false
	}
	return c.opts.LoggedIn(state)
}

// seedCookies injects the configured Cookie header into the browser.
func (c *Chrome) seedCookies(ctx context.Context) error {
	domain := CookieDomain(c.home.Hostname())
	parsed := session.ParseCookieString(c.opts.Cookies)
	if len(parsed) == 0 {
		return errs.New(errs.KindLoginFailed, "cookie login selected but no cookies configured")
	}

	return chromedp.Run(c.runCtx(ctx), chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range parsed {
			err := network.SetCookie(name, value).
				WithDomain(domain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return fmt.Errorf("setting cookie %s: %w", name, err)
			}
		}
		return nil
	}))
}

func (c *Chrome) reload(ctx context.Context) error {
	return chromedp.Run(c.runCtx(ctx), chromedp.Reload())
}

// waitForLogin polls the session until the login marker appears.
func (c *Chrome) waitForLogin(ctx context.Context) (session.State, error) {
	deadline := time.Now().Add(c.opts.LoginTimeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return session.State{}, ctx.Err()
		case <-ticker.C:
		}

		state, err := c.Snapshot(ctx)
		if err != nil {
			return session.State{}, err
		}
		if c.loggedIn(state) {
			c.log.Info("login detected")
			return state, nil
		}
		if time.Now().After(deadline) {
			return session.State{}, errs.New(errs.KindLoginFailed,
				"no login detected within %s", c.opts.LoginTimeout)
		}
	}
}

// runCtx binds the caller's cancellation to the browser context.
func (c *Chrome) runCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return c.browser
	}
	merged, cancel := context.WithCancel(c.browser)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}

// CookieDomain derives the cookie scope for a page host: the registrable
// domain with a leading dot, so cookies cover api subdomains too.
func CookieDomain(host string) string {
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return host
	}
	return "." + host
}
