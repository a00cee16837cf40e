package crawler

import (
	"sort"
	"strings"
	"sync"

	errs "mediacrawl/pkg/errors"
)

// Registry maps platform identifiers to their Engine implementations.
type Registry struct {
	mu      sync.RWMutex
	engines map[Platform]Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[Platform]Engine)}
}

// Register binds an engine to its platform. A later registration for the
// same platform replaces the earlier one.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Platform()] = e
}

// Resolve returns the engine for a platform. An unknown platform is an
// unsupported_platform error listing the registered identifiers.
func (r *Registry) Resolve(p Platform) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.engines[p]
	if !ok {
		return nil, errs.New(errs.KindUnsupportedPlatform,
			"unsupported platform %q, supported: %s", p, strings.Join(r.platformsLocked(), ", "))
	}
	return e, nil
}

// Platforms lists the registered platform identifiers, sorted.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.platformsLocked()
}

func (r *Registry) platformsLocked() []string {
	ids := make([]string, 0, len(r.engines))
	for p := range r.engines {
		ids = append(ids, string(p))
	}
	sort.Strings(ids)
	return ids
}
