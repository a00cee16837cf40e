package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/logger"
)

// Lease is one proxy borrowed from the pool for the duration of a crawl
// session. The engine never renews a lease mid-session; that belongs to
// the pool.
type Lease struct {
	Protocol string
	Host     string
	Port     int
	User     string
	Password string
}

// URL renders the lease as a proxy URL usable in an http.Transport.
func (l Lease) URL() *url.URL {
	u := &url.URL{
		Scheme: l.Protocol,
		Host:   net.JoinHostPort(l.Host, fmt.Sprintf("%d", l.Port)),
	}
	if l.User != "" {
		u.User = url.UserPassword(l.User, l.Password)
	}
	return u
}

// Pool hands out proxy leases.
type Pool interface {
	// Lease returns up to n proxies. With validate set, unreachable
	// proxies are skipped. Fewer than n available leases is a
	// pool_exhausted error.
	Lease(ctx context.Context, n int, validate bool) ([]Lease, error)
}

// StaticPool serves leases round-robin from a fixed list.
type StaticPool struct {
	mu      sync.Mutex
	entries []Lease
	next    int

	dialTimeout time.Duration
	log         logger.Logger
}

// NewStaticPool creates a pool over a fixed proxy list.
func NewStaticPool(entries []Lease, log logger.Logger) *StaticPool {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &StaticPool{
		entries:     entries,
		dialTimeout: 5 * time.Second,
		log:         log,
	}
}

// Lease implements Pool.
func (p *StaticPool) Lease(ctx context.Context, n int, validate bool) ([]Lease, error) {
	if n <= 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	leases := make([]Lease, 0, n)
	tried := 0
	for len(leases) < n && tried < len(p.entries) {
		entry := p.entries[p.next%len(p.entries)]
		p.next++
		tried++

		if validate && !p.reachable(ctx, entry) {
			p.log.WarnWithFields("skipping unreachable proxy", map[string]interface{}{
				"host": entry.Host,
				"port": entry.Port,
			})
			continue
		}
		leases = append(leases, entry)
	}

	if len(leases) < n {
		return nil, errs.New(errs.KindPoolExhausted,
			"proxy pool exhausted: wanted %d, got %d", n, len(leases))
	}
	return leases, nil
}

func (p *StaticPool) reachable(ctx context.Context, l Lease) bool {
	d := net.Dialer{Timeout: p.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(l.Host, fmt.Sprintf("%d", l.Port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
