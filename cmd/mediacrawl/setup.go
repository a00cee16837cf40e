package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"mediacrawl/internal/browser"
	"mediacrawl/internal/recorder"
	"mediacrawl/pkg/auth"
	"mediacrawl/pkg/config"
	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/douyin"
	"mediacrawl/pkg/logger"
	"mediacrawl/pkg/proxy"
	"mediacrawl/pkg/ratelimit"
	"mediacrawl/pkg/sink"
)

// stack is the assembled crawl runtime: a logged-in browser session, the
// platform engines behind a runner, and the recorder draining into the
// configured sink.
type stack struct {
	runner   *crawler.Runner
	recorder *recorder.Recorder
	chrome   *browser.Chrome
	log      logger.Logger
}

// buildStack wires the whole pipeline from configuration. The browser login
// happens here, so a returned stack is ready to run jobs.
func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	log := logger.GetLogger()

	cookies, userAgent, err := resolveSession(cfg, log)
	if err != nil {
		return nil, err
	}

	chrome, err := browser.New(browser.Options{
		HomeURL:      douyin.HomeURL,
		LoginType:    strings.ToLower(cfg.Platform.LoginType),
		Cookies:      cookies,
		UserAgent:    userAgent,
		LoggedIn:     douyin.LoggedIn,
		Headless:     cfg.Browser.Headless,
		UserDataDir:  cfg.Browser.UserDataDir,
		LoginTimeout: cfg.Browser.LoginTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	state, err := chrome.EnsureLoggedIn(ctx)
	if err != nil {
		chrome.Close()
		return nil, err
	}

	var lease *proxy.Lease
	if cfg.Proxy.Enabled {
		entries := make([]proxy.Lease, 0, len(cfg.Proxy.Entries))
		for _, e := range cfg.Proxy.Entries {
			entries = append(entries, proxy.Lease{
				Protocol: e.Protocol,
				Host:     e.Host,
				Port:     e.Port,
				User:     e.User,
				Password: e.Password,
			})
		}
		pool := proxy.NewStaticPool(entries, log)
		leases, err := pool.Lease(ctx, 1, cfg.Proxy.Validate)
		if err != nil {
			chrome.Close()
			return nil, err
		}
		lease = &leases[0]
	}

	client := douyin.NewClient(chrome, state, lease, log)
	client.SetLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute))
	sleeper := ratelimit.NewInterval(cfg.RateLimit.MinInterval, cfg.RateLimit.MaxInterval)
	engine := douyin.NewEngine(client, sleeper, douyin.EngineOptions{
		Search: douyin.SearchOptions{
			SortType:    cfg.Crawl.SearchSortType,
			PublishTime: cfg.Crawl.SearchPublishTime,
		},
		PinnedThreshold: cfg.Crawl.PinnedThreshold,
	}, log)

	registry := crawler.NewRegistry()
	registry.Register(engine)

	snk, err := sink.New(cfg.Sink, log)
	if err != nil {
		chrome.Close()
		return nil, err
	}
	rec := recorder.New(cfg.Sink.Workers, snk, log)
	rec.Start()

	return &stack{
		runner:   crawler.NewRunner(registry, log),
		recorder: rec,
		chrome:   chrome,
		log:      log,
	}, nil
}

// Close drains the recorder and releases the browser.
func (s *stack) Close() {
	s.recorder.Stop()
	if err := s.chrome.Close(); err != nil {
		s.log.WithError(err).Warn("closing browser")
	}
}

// resolveSession picks the session cookies for cookie login: explicit config
// first, the credential store as fallback.
func resolveSession(cfg *config.Config, log logger.Logger) (cookies, userAgent string, err error) {
	cookies = cfg.Platform.Cookies
	userAgent = cfg.Platform.UserAgent

	if strings.EqualFold(cfg.Platform.LoginType, "qrcode") {
		return cookies, userAgent, nil
	}

	if cookies == "" {
		manager, mErr := auth.NewManager()
		if mErr == nil {
			if account, rErr := manager.Retrieve(string(crawler.PlatformDouyin)); rErr == nil {
				cookies = account.Cookies
				if account.UserAgent != "" {
					userAgent = account.UserAgent
				}
				log.InfoWithFields("using stored session", map[string]interface{}{
					"platform": account.Platform,
				})
			}
		}
	}

	if cookies == "" {
		return "", "", errors.New("cookie login selected but no cookies configured; run 'mediacrawl auth login dy' or set MEDIACRAWL_COOKIES")
	}
	return cookies, userAgent, nil
}
