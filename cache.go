package texcache

import (
	"fmt"
	"sync"

	"github.com/gogpu/texcache/internal/parallel"
)

// Render target slots.
const (
	NumRenderTargets = 8
	DepthSlot        = NumRenderTargets
	numSlots         = NumRenderTargets + 1
)

// framebufferSlot caches the surface bound to a render target slot.
type framebufferSlot struct {
	surface *Surface
	view    *View
}

// pageNotification is a rasterizer callback deferred until the cache lock
// is released.
type pageNotification struct {
	cpuAddr VAddr
	size    uint64
	delta   int
}

// Cache reconciles guest surface memory with host surfaces.
//
// Every exported method is safe for concurrent use. Rasterizer
// notifications are delivered without the cache lock held, one goroutine at
// a time, in the order they were produced across all callers, so a
// Rasterizer may call back into the Cache. A notification queued while
// another goroutine is delivering is handed to that goroutine and may
// arrive after the call that produced it has returned.
type Cache struct {
	mu sync.Mutex

	backend    Backend
	memory     GuestMemory
	rasterizer Rasterizer
	targets    RenderTargetState
	opts       options

	ticks              uint64
	guardRenderTargets bool
	guardSamplers      bool
	siblings           siblingTable

	registry *registry
	reserve  *reserve
	staging  StagingCache
	pool     *parallel.Pool
	dummies  map[SurfaceParams]*Surface

	slots   [numSlots]framebufferSlot
	sampled []*Surface
	pending    []pageNotification
	delivering bool

	stats counters
}

// New creates a Cache on top of a backend and guest memory. rasterizer and
// targets may be nil; without targets the render target accessors always
// return the cached slot contents.
func New(backend Backend, memory GuestMemory, rasterizer Rasterizer, targets RenderTargetState, opts ...Option) (*Cache, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if memory == nil {
		return nil, ErrNilMemory
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{
		backend:            backend,
		memory:             memory,
		rasterizer:         rasterizer,
		targets:            targets,
		opts:               o,
		guardRenderTargets: o.guardRenderTargets,
		guardSamplers:      o.guardSamplers,
		siblings:           newSiblingTable(),
		registry:           newRegistry(),
		reserve:            newReserve(o.reserveLimit),
		dummies:            make(map[SurfaceParams]*Surface),
		sampled:            make([]*Surface, 0, 64),
	}
	c.staging.SetSize(o.stagingSlots)
	if o.workers > 1 {
		c.pool = parallel.NewPool(o.workers)
	}
	Logger().Info("texcache: cache created",
		"accurate", o.accurate, "reserve_limit", o.reserveLimit)
	return c, nil
}

func (c *Cache) lock() {
	c.mu.Lock()
}

// unlock releases the cache lock and delivers queued notifications, unless
// another call is already delivering them.
func (c *Cache) unlock() {
	if c.delivering || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.pending) > 0 {
		batch := c.pending
		c.pending = nil
		c.mu.Unlock()
		for _, n := range batch {
			c.rasterizer.NotifyPagesCached(n.cpuAddr, n.size, n.delta)
		}
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

func (c *Cache) notify(cpuAddr VAddr, size uint64, delta int) {
	if c.rasterizer == nil {
		return
	}
	c.pending = append(c.pending, pageNotification{cpuAddr, size, delta})
}

// Tick advances and returns the modification counter.
func (c *Cache) Tick() uint64 {
	c.lock()
	defer c.unlock()
	return c.tick()
}

func (c *Cache) tick() uint64 {
	c.ticks++
	return c.ticks
}

// GuardRenderTargets sets whether bound render targets are protected from
// unregistration. While the guard is clear, unregistering a render target
// marks its slot dirty so the next access resolves it again.
func (c *Cache) GuardRenderTargets(guard bool) {
	c.lock()
	defer c.unlock()
	c.guardRenderTargets = guard
}

// GuardSamplers sets whether sampled surfaces are recorded for TextureBarrier.
func (c *Cache) GuardSamplers(guard bool) {
	c.lock()
	defer c.unlock()
	c.guardSamplers = guard
}

// InvalidateRegion unregisters every surface overlapping the cache range
// without writing its contents back.
func (c *Cache) InvalidateRegion(addr CacheAddr, size uint64) {
	c.lock()
	defer c.unlock()
	for _, s := range c.registry.overlaps(addr, size) {
		c.unregister(s)
	}
}

// FlushRegion writes every modified surface overlapping the cache range
// back to guest memory, oldest modification first.
func (c *Cache) FlushRegion(addr CacheAddr, size uint64) error {
	c.lock()
	defer c.unlock()
	return c.flushAll(c.registry.overlaps(addr, size))
}

// GetSurface resolves the surface for a guest address and shape.
//
// preserveContents loads new surfaces from guest memory. isRender marks a
// render target request, which disables format sibling reinterpretation.
// An untranslatable address yields an unregistered 1x1x1 surface and a nil
// view.
func (c *Cache) GetSurface(gpuAddr GPUVAddr, params SurfaceParams, preserveContents, isRender bool) (*Surface, *View, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	c.lock()
	defer c.unlock()
	return c.getSurface(gpuAddr, params, preserveContents, isRender)
}

// GetTextureSurface resolves a sampled texture.
func (c *Cache) GetTextureSurface(desc TextureDescriptor, entry SamplerEntry) (*View, error) {
	if desc.Address == 0 {
		return nil, nil
	}
	return c.getSampled(desc.Address, ParamsForTexture(desc, entry))
}

// GetImageSurface resolves a storage image.
func (c *Cache) GetImageSurface(desc TextureDescriptor, imageType ImageType) (*View, error) {
	if desc.Address == 0 {
		return nil, nil
	}
	return c.getSampled(desc.Address, ParamsForImage(desc, imageType))
}

func (c *Cache) getSampled(gpuAddr GPUVAddr, params SurfaceParams) (*View, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()
	s, v, err := c.getSurface(gpuAddr, params, true, false)
	if err != nil {
		return nil, err
	}
	if c.guardSamplers {
		c.sampled = append(c.sampled, s)
	}
	return v, nil
}

// TextureBarrier reports whether any surface sampled since the last call is
// bound as a render target, and forgets the sampled surfaces.
func (c *Cache) TextureBarrier() bool {
	c.lock()
	defer c.unlock()
	anyTarget := false
	for _, s := range c.sampled {
		if s.IsRenderTarget() {
			anyTarget = true
			break
		}
	}
	clear(c.sampled)
	c.sampled = c.sampled[:0]
	return anyTarget
}

// TryFindFramebufferSurface returns the registered surface starting at addr.
func (c *Cache) TryFindFramebufferSurface(addr CacheAddr) *Surface {
	c.lock()
	defer c.unlock()
	if addr == 0 {
		return nil
	}
	if s, ok := c.registry.lookup(addr); ok {
		return s
	}
	return c.registry.findInPage(addr)
}

// Close destroys every host surface held by the cache. The cache must not
// be used afterwards.
func (c *Cache) Close() {
	c.lock()
	defer c.unlock()
	for _, s := range c.registry.all() {
		c.registry.remove(s)
		s.registered = false
		s.destroy()
	}
	c.reserve.clear()
	for _, s := range c.dummies {
		s.destroy()
	}
	clear(c.dummies)
	for i := range c.slots {
		c.slots[i] = framebufferSlot{}
	}
	if c.pool != nil {
		c.pool.Close()
	}
}

// uncached returns a new unregistered surface for params at gpuAddr. The
// host resource of a reserved surface is reused when possible, but the
// returned surface is always a fresh object.
func (c *Cache) uncached(gpuAddr GPUVAddr, params SurfaceParams) (*Surface, error) {
	if s := c.reserve.take(params); s != nil {
		return s.rebind(gpuAddr), nil
	}
	host, err := c.backend.CreateSurface(gpuAddr, params)
	if err != nil {
		return nil, fmt.Errorf("texcache: create surface %s: %w", params, err)
	}
	s, err := newSurface(gpuAddr, params, host)
	if err != nil {
		host.Destroy()
		return nil, err
	}
	c.stats.created++
	return s, nil
}

// register inserts s into the registry. When the address no longer
// translates it reports false and parks s in the reserve, so its host
// resource is reused or released instead of leaking.
func (c *Cache) register(s *Surface) bool {
	cacheAddr, ok := c.memory.Translate(s.gpuAddr)
	cpuAddr, cpuOK := c.memory.GpuToCpuAddress(s.gpuAddr)
	if !ok || !cpuOK {
		Logger().Warn("texcache: register surface with unmapped address",
			"gpu_addr", uint64(s.gpuAddr), "params", s.params.String())
		c.reserve.put(s)
		return false
	}
	s.continuous = c.memory.IsRangeContiguous(s.gpuAddr, s.guestSize)
	s.cacheAddr = cacheAddr
	s.cpuAddr = cpuAddr
	c.registry.add(s)
	s.registered = true
	c.notify(cpuAddr, s.guestSize, 1)
	return true
}

// unregister removes s from the registry and places it in the reserve.
// Protected surfaces stay registered while render targets are guarded.
func (c *Cache) unregister(s *Surface) {
	if !s.registered {
		return
	}
	if c.guardRenderTargets && s.protected {
		return
	}
	if !c.guardRenderTargets && s.IsRenderTarget() && c.targets != nil {
		c.targets.SetDirty(int(s.renderTarget), true)
	}
	c.notify(s.cpuAddr, s.guestSize, -1)
	c.registry.remove(s)
	s.registered = false
	c.reserve.put(s)
}

// initialize creates and registers a surface, loading it from guest memory
// when load is set.
func (c *Cache) initialize(gpuAddr GPUVAddr, params SurfaceParams, load bool) (*Surface, *View, error) {
	s, err := c.uncached(gpuAddr, params)
	if err != nil {
		return nil, nil, err
	}
	if !c.register(s) {
		return s, s.mainView, nil
	}
	if load {
		if err := c.load(s); err != nil {
			return nil, nil, err
		}
	}
	return s, s.mainView, nil
}

// dummy returns the placeholder surface for an untranslatable address.
func (c *Cache) dummy(gpuAddr GPUVAddr, params SurfaceParams) (*Surface, *View, error) {
	params.Width, params.Height, params.Depth = 1, 1, 1
	params.BlockHeight, params.BlockDepth = 0, 0
	if s, ok := c.dummies[params]; ok {
		return s, nil, nil
	}
	host, err := c.backend.CreateSurface(gpuAddr, params)
	if err != nil {
		return nil, nil, fmt.Errorf("texcache: create placeholder surface: %w", err)
	}
	s, err := newSurface(gpuAddr, params, host)
	if err != nil {
		host.Destroy()
		return nil, nil, err
	}
	c.dummies[params] = s
	Logger().Debug("texcache: untranslatable address", "gpu_addr", uint64(gpuAddr))
	return s, nil, nil
}
