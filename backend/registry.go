package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/texcache"
)

// BackendFactory returns a fresh, uninitialized backend. A factory may
// return nil when the backend cannot exist in this build.
type BackendFactory func() HostBackend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)

	// backendPriority orders Default and InitDefault. Names not listed
	// follow in lexical order.
	backendPriority = []string{BackendHAL, BackendSoft}
)

// Register makes a backend selectable under name, replacing any previous
// registration. Backend packages call it from init.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes name from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered names in selection order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return orderedLocked()
}

func orderedLocked() []string {
	names := make([]string, 0, len(backends))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range backends {
		if !slices.Contains(backendPriority, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

// IsRegistered reports whether name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a new backend registered under name, or nil.
func Get(name string) HostBackend {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// candidates instantiates every registered backend in selection order,
// skipping factories that return nil.
func candidates() []HostBackend {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var out []HostBackend
	for _, name := range orderedLocked() {
		if b := backends[name](); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// Default returns the first backend in selection order, uninitialized, or
// nil when none is registered.
func Default() HostBackend {
	if c := candidates(); len(c) > 0 {
		return c[0]
	}
	return nil
}

// MustDefault is like Default but panics when no backend is registered.
func MustDefault() HostBackend {
	b := Default()
	if b == nil {
		panic("backend: no backend available")
	}
	return b
}

// InitDefault initializes backends in selection order and returns the
// first that succeeds. A machine without a GPU thus ends up on the soft
// backend. The error joins every failure when none succeeds.
func InitDefault() (HostBackend, error) {
	var errs []error
	for _, b := range candidates() {
		if err := b.Init(); err != nil {
			texcache.Logger().Debug("backend: init failed", "name", b.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		texcache.Logger().Info("backend: selected", "name", b.Name())
		return b, nil
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errors.Join(errs...))
}

// Open returns the backend registered under name, initialized. An empty
// name behaves like InitDefault.
func Open(name string) (HostBackend, error) {
	if name == "" {
		return InitDefault()
	}
	b := Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	texcache.Logger().Info("backend: opened", "name", b.Name())
	return b, nil
}
