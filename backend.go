package texcache

// GuestMemory translates guest GPU addresses and moves bytes in and out of
// guest memory.
type GuestMemory interface {
	// Translate returns the cache address of gpuAddr, or false when the
	// address is not mapped.
	Translate(gpuAddr GPUVAddr) (CacheAddr, bool)

	// GpuToCpuAddress returns the guest CPU address backing gpuAddr.
	GpuToCpuAddress(gpuAddr GPUVAddr) (VAddr, bool)

	// IsRangeContiguous reports whether [gpuAddr, gpuAddr+size) maps to
	// one contiguous host range.
	IsRangeContiguous(gpuAddr GPUVAddr, size uint64) bool

	ReadBlock(gpuAddr GPUVAddr, dst []byte) error
	WriteBlock(gpuAddr GPUVAddr, src []byte) error
}

// Backend creates host surfaces and performs copies between them.
// A Backend is implemented once per host graphics API.
type Backend interface {
	CreateSurface(gpuAddr GPUVAddr, params SurfaceParams) (HostSurface, error)
	ImageCopy(src, dst HostSurface, region CopyParams) error
	ImageBlit(src, dst *View, cfg BlitConfig) error

	// BufferCopy reinterprets the bytes of src as the contents of dst.
	BufferCopy(src, dst HostSurface) error
}

// HostSurface is the host graphics resource owned by a Surface.
type HostSurface interface {
	// Upload replaces the contents with data in host layout.
	Upload(data []byte) error

	// Download reads the contents in host layout into data.
	Download(data []byte) error

	CreateView(desc ViewParams) (HostView, error)
	Destroy()
}

// HostView is a backend specific view handle.
type HostView = any

// Rasterizer tracks which guest CPU pages are backed by cached surfaces.
// delta is +1 when a surface is registered and -1 when it is unregistered.
type Rasterizer interface {
	NotifyPagesCached(cpuAddr VAddr, size uint64, delta int)
}

// RenderTargetState exposes the render target configuration owned by the
// command processor. Slots 0 through NumRenderTargets-1 are color targets,
// DepthSlot is the depth target.
type RenderTargetState interface {
	Dirty(slot int) bool
	SetDirty(slot int, dirty bool)

	// RenderTarget returns the bound target of a slot, or false when the
	// slot is disabled.
	RenderTarget(slot int) (GPUVAddr, SurfaceParams, bool)
}
