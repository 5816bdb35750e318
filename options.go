package texcache

// Option configures a Cache during creation.
// Use functional options to customize Cache behavior.
//
// Example:
//
//	// Default configuration
//	c, err := texcache.New(backend, memory, rasterizer, targets)
//
//	// Accurate emulation with an unbounded reserve
//	c, err := texcache.New(backend, memory, rasterizer, targets,
//	    texcache.WithAccurateEmulation(true),
//	    texcache.WithReserveLimit(0))
type Option func(*options)

// StrategyFunc picks the recycle strategy for a request that could not be
// resolved against the overlapping surfaces.
type StrategyFunc func(overlaps []*Surface, params SurfaceParams, topology MatchTopologyResult) RecycleStrategy

// options holds optional configuration for Cache creation.
type options struct {
	accurate           bool
	reserveLimit       int
	stagingSlots       int
	guardRenderTargets bool
	guardSamplers      bool
	workers            int
	strategy           StrategyFunc
}

// defaultOptions returns the default cache options.
func defaultOptions() options {
	return options{
		reserveLimit: DefaultReserveLimit,
		stagingSlots: 2,
	}
}

// WithAccurateEmulation makes every recycle flush overlapping surfaces and
// makes reconstruction require every overlap to fit the new surface.
func WithAccurateEmulation(enabled bool) Option {
	return func(o *options) {
		o.accurate = enabled
	}
}

// WithReserveLimit bounds the number of unregistered surfaces kept for
// reuse. A limit of 0 keeps every surface. Negative limits are ignored.
func WithReserveLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.reserveLimit = n
		}
	}
}

// WithStagingSlots sets the number of staging buffers. At least two are
// always allocated.
func WithStagingSlots(n int) Option {
	return func(o *options) {
		o.stagingSlots = max(n, 2)
	}
}

// WithConversionWorkers converts large layered or mipmapped surfaces
// between guest and host layouts on n worker goroutines. Values below two
// keep conversions on the calling goroutine.
func WithConversionWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithGuardRenderTargets sets the initial render target guard.
// See Cache.GuardRenderTargets.
func WithGuardRenderTargets(enabled bool) Option {
	return func(o *options) {
		o.guardRenderTargets = enabled
	}
}

// WithGuardSamplers sets the initial sampler guard.
// See Cache.GuardSamplers.
func WithGuardSamplers(enabled bool) Option {
	return func(o *options) {
		o.guardSamplers = enabled
	}
}

// WithStrategyOverride replaces the recycle strategy policy. It is meant
// for backends that need strict format preservation, which the default
// policy never selects.
func WithStrategyOverride(fn StrategyFunc) Option {
	return func(o *options) {
		o.strategy = fn
	}
}
