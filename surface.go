package texcache

import (
	"fmt"
	"slices"

	"github.com/gogpu/texcache/internal/lru"
)

// NoRenderTarget is the render target slot of a surface that is not bound.
const NoRenderTarget = ^uint32(0)

// Surface is a cached host resource backing a range of guest memory.
//
// Surfaces are owned by the Cache. Accessors are not synchronized and must
// be called from the goroutine that drives the cache, or while no other
// goroutine mutates it.
type Surface struct {
	params SurfaceParams
	host   HostSurface

	gpuAddr   GPUVAddr
	cacheAddr CacheAddr
	cpuAddr   VAddr

	guestSize  uint64
	hostSize   uint64
	layerSize  uint64
	mipOffsets []uint64
	mipSizes   []uint64

	modified bool
	tick     uint64

	registered   bool
	picked       bool
	continuous   bool
	protected    bool
	renderTarget uint32

	views    map[ViewParams]*View
	mainView *View

	reserveNode *lru.Node[*Surface]
	destroyed   bool
}

func newSurface(gpuAddr GPUVAddr, params SurfaceParams, host HostSurface) (*Surface, error) {
	s := &Surface{
		params:       params,
		host:         host,
		gpuAddr:      gpuAddr,
		guestSize:    params.GuestSizeInBytes(),
		hostSize:     params.HostSizeInBytes(),
		layerSize:    params.GuestLayerSize(),
		mipOffsets:   make([]uint64, params.NumLevels),
		mipSizes:     make([]uint64, params.NumLevels),
		renderTarget: NoRenderTarget,
		views:        make(map[ViewParams]*View),
	}
	for level := uint32(0); level < params.NumLevels; level++ {
		s.mipOffsets[level] = params.GuestMipOffset(level)
		s.mipSizes[level] = params.GuestMipSize(level)
	}
	main, err := s.view(ViewParams{
		Target:    params.Target,
		NumLayers: params.NumLayers(),
		NumLevels: params.NumLevels,
	})
	if err != nil {
		return nil, err
	}
	s.mainView = main
	return s, nil
}

// Params returns the shape of the surface.
func (s *Surface) Params() SurfaceParams { return s.params }

// Format returns the pixel format of the surface.
func (s *Surface) Format() PixelFormat { return s.params.Format }

// Host returns the backend resource.
func (s *Surface) Host() HostSurface { return s.host }

// GPUAddr returns the guest GPU address the surface starts at.
func (s *Surface) GPUAddr() GPUVAddr { return s.gpuAddr }

// CacheAddr returns the translated start address. It is set on registration.
func (s *Surface) CacheAddr() CacheAddr { return s.cacheAddr }

// CacheAddrEnd returns the exclusive end of the translated range.
func (s *Surface) CacheAddrEnd() CacheAddr { return s.cacheAddr + CacheAddr(s.guestSize) }

// CPUAddr returns the guest CPU address. It is set on registration.
func (s *Surface) CPUAddr() VAddr { return s.cpuAddr }

// SizeInBytes returns the guest memory size of the surface.
func (s *Surface) SizeInBytes() uint64 { return s.guestSize }

// HostSizeInBytes returns the size of the host layout of the surface.
func (s *Surface) HostSizeInBytes() uint64 { return s.hostSize }

// IsModified reports whether the host contents are newer than guest memory.
func (s *Surface) IsModified() bool { return s.modified }

// ModificationTick returns the tick of the last modification or transfer.
func (s *Surface) ModificationTick() uint64 { return s.tick }

// IsRegistered reports whether the surface is present in the registry.
func (s *Surface) IsRegistered() bool { return s.registered }

// IsContinuous reports whether the guest range was contiguous on registration.
func (s *Surface) IsContinuous() bool { return s.continuous }

// IsRenderTarget reports whether the surface is bound to a render target slot.
func (s *Surface) IsRenderTarget() bool { return s.renderTarget != NoRenderTarget }

// RenderTargetSlot returns the bound slot, or NoRenderTarget.
func (s *Surface) RenderTargetSlot() uint32 { return s.renderTarget }

// IsProtected reports whether the surface is protected from unregistration
// while render targets are guarded.
func (s *Surface) IsProtected() bool { return s.protected }

// MainView returns the view covering every layer and level.
func (s *Surface) MainView() *View { return s.mainView }

func (s *Surface) markModified(modified bool, tick uint64) {
	s.modified = modified
	s.tick = tick
}

func (s *Surface) markRenderTarget(bound bool, slot uint32) {
	if !bound {
		slot = NoRenderTarget
	}
	s.renderTarget = slot
	s.protected = bound
}

// MatchesFormat reports whether the surface uses format.
func (s *Surface) MatchesFormat(format PixelFormat) bool {
	return s.params.Format == format
}

// MatchesTarget reports whether the surface has target.
func (s *Surface) MatchesTarget(target SurfaceTarget) bool {
	return s.params.Target == target
}

// MatchesTopology compares the surface against requested params.
func (s *Surface) MatchesTopology(params SurfaceParams) MatchTopologyResult {
	return s.params.MatchesTopology(params)
}

// MatchesStructure compares the surface against requested params.
func (s *Surface) MatchesStructure(params SurfaceParams) MatchStructureResult {
	return s.params.MatchesStructure(params)
}

// Contains reports whether [start, end) lies within the guest range of s.
func (s *Surface) Contains(start, end GPUVAddr) bool {
	return s.gpuAddr <= start && end <= s.gpuAddr+GPUVAddr(s.guestSize)
}

// Overlaps reports whether [start, end) intersects the cache range of s.
func (s *Surface) Overlaps(start, end CacheAddr) bool {
	return s.cacheAddr < end && s.CacheAddrEnd() > start
}

// LocateMip returns the layer and level that start at gpuAddr.
func (s *Surface) LocateMip(gpuAddr GPUVAddr) (layer, level uint32, ok bool) {
	if gpuAddr == s.gpuAddr {
		return 0, 0, true
	}
	if gpuAddr < s.gpuAddr || s.layerSize == 0 {
		return 0, 0, false
	}
	rel := uint64(gpuAddr - s.gpuAddr)
	l := rel / s.layerSize
	if l >= uint64(s.params.NumLayers()) {
		return 0, 0, false
	}
	idx, found := slices.BinarySearch(s.mipOffsets, rel-l*s.layerSize)
	if !found {
		return 0, 0, false
	}
	return uint32(l), uint32(idx), true
}

// MipByteSize returns the guest size of one layer of a level.
func (s *Surface) MipByteSize(level uint32) uint64 {
	if int(level) >= len(s.mipSizes) {
		return 0
	}
	return s.mipSizes[level]
}

// BreakDown returns the region copies that move the contents of s into a
// surface shaped like dst.
func (s *Surface) BreakDown(dst SurfaceParams) []CopyParams {
	levels := min(s.params.NumLevels, dst.NumLevels)
	if s.params.Layered {
		layers := min(s.params.NumLayers(), dst.NumLayers())
		regions := make([]CopyParams, 0, int(layers)*int(levels))
		for layer := uint32(0); layer < layers; layer++ {
			for level := uint32(0); level < levels; level++ {
				c := levelCopy(IntersectWidth(s.params, dst, level, level),
					IntersectHeight(s.params, dst, level, level), 1, level)
				c.SrcZ, c.DstZ = layer, layer
				regions = append(regions, c)
			}
		}
		return regions
	}
	regions := make([]CopyParams, 0, levels)
	for level := uint32(0); level < levels; level++ {
		regions = append(regions, levelCopy(
			IntersectWidth(s.params, dst, level, level),
			IntersectHeight(s.params, dst, level, level),
			min(s.params.MipDepth(level), dst.MipDepth(level)),
			level))
	}
	return regions
}

// EmplaceView carves a single layer and level of s that starts at gpuAddr
// and spans size bytes. It returns nil when no such sub-resource exists.
func (s *Surface) EmplaceView(params SurfaceParams, gpuAddr GPUVAddr, size uint64) (*View, error) {
	if s.params.Target == Texture3D || params.Target == Texture3D ||
		(s.params.NumLevels == 1 && !s.params.Layered) {
		return nil, nil
	}
	layer, level, ok := s.LocateMip(gpuAddr)
	if !ok || s.MipByteSize(level) != size {
		return nil, nil
	}
	return s.view(ViewParams{
		Target:    params.Target,
		BaseLayer: layer,
		NumLayers: 1,
		BaseLevel: level,
		NumLevels: 1,
	})
}

// EmplaceOverview returns a view of every level of s under the target of
// params. A layered surface seen through a non-layered target exposes its
// first layer only.
func (s *Surface) EmplaceOverview(params SurfaceParams) (*View, error) {
	layers := s.params.Depth
	if s.params.Layered && !params.Layered {
		layers = 1
	}
	return s.view(ViewParams{
		Target:    params.Target,
		NumLayers: layers,
		NumLevels: s.params.NumLevels,
	})
}

func (s *Surface) view(vp ViewParams) (*View, error) {
	if v, ok := s.views[vp]; ok {
		return v, nil
	}
	hv, err := s.host.CreateView(vp)
	if err != nil {
		return nil, fmt.Errorf("texcache: create view %+v: %w", vp, err)
	}
	v := &View{surface: s, params: vp, host: hv}
	s.views[vp] = v
	return v, nil
}

func (s *Surface) destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.host.Destroy()
}

// rebind returns a new surface at gpuAddr that takes over the host resource
// and host views of s. Callers still holding s or its views see a retired
// surface: it is never registered again and destroying it is a no-op.
func (s *Surface) rebind(gpuAddr GPUVAddr) *Surface {
	ns := &Surface{
		params:       s.params,
		host:         s.host,
		gpuAddr:      gpuAddr,
		guestSize:    s.guestSize,
		hostSize:     s.hostSize,
		layerSize:    s.layerSize,
		mipOffsets:   s.mipOffsets,
		mipSizes:     s.mipSizes,
		renderTarget: NoRenderTarget,
		views:        make(map[ViewParams]*View, len(s.views)),
	}
	for vp, v := range s.views {
		nv := &View{surface: ns, params: vp, host: v.host}
		ns.views[vp] = nv
		if v == s.mainView {
			ns.mainView = nv
		}
	}
	s.destroyed = true
	return ns
}
