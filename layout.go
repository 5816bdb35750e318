package texcache

import (
	"github.com/gogpu/texcache/internal/parallel"
	"github.com/gogpu/texcache/internal/tiling"
)

// Guest memory stores every mip level of a layer before the next layer.
// The host layout stores every layer of a level before the next level,
// with rows tightly packed.

// parallelLayoutBytes is the host size from which conversions of surfaces
// with several subresources are spread over a worker pool.
const parallelLayoutBytes = 256 << 10

// guestToHost converts the guest bytes of a surface into its host layout.
// guest must hold GuestSizeInBytes and host HostSizeInBytes bytes. pool may
// be nil.
func (p SurfaceParams) guestToHost(host, guest []byte, pool *parallel.Pool) {
	p.convertLayout(host, guest, true, pool)
}

// hostToGuest converts host bytes back into guest memory layout. Bytes of
// guest that are padding in the host layout are left untouched.
func (p SurfaceParams) hostToGuest(guest, host []byte, pool *parallel.Pool) {
	p.convertLayout(host, guest, false, pool)
}

// convertLayout converts every layer and level. Subresources occupy
// disjoint ranges of both buffers, so they convert independently.
func (p SurfaceParams) convertLayout(host, guest []byte, toHost bool, pool *parallel.Pool) {
	layers := p.NumLayers()
	if pool == nil || layers*p.NumLevels < 2 || p.HostSizeInBytes() < parallelLayoutBytes {
		for layer := range layers {
			for level := range p.NumLevels {
				p.convertSubresource(host, guest, layer, level, toHost)
			}
		}
		return
	}
	jobs := make([]func(), 0, layers*p.NumLevels)
	for layer := range layers {
		for level := range p.NumLevels {
			jobs = append(jobs, func() { p.convertSubresource(host, guest, layer, level, toHost) })
		}
	}
	pool.Run(jobs)
}

func (p SurfaceParams) convertSubresource(host, guest []byte, layer, level uint32, toHost bool) {
	bpp := p.BytesPerPixel()
	guestOff := uint64(layer)*p.GuestLayerSize() + p.GuestMipOffset(level)
	hostSize := p.HostMipSize(level)
	hostOff := p.HostMipOffset(level) + uint64(layer)*hostSize
	hostMip := host[hostOff : hostOff+hostSize]
	w, h, d := p.MipExtent(level)

	switch {
	case p.Tiled:
		l := tiling.Layout{
			BytesPerPixel: bpp,
			Width:         w,
			Height:        h,
			Depth:         d,
			BlockHeight:   p.MipBlockHeight(level),
			BlockDepth:    p.MipBlockDepth(level),
		}
		guestMip := guest[guestOff : guestOff+l.Size()]
		if toHost {
			l.Unswizzle(hostMip, guestMip)
		} else {
			l.Swizzle(guestMip, hostMip)
		}
	case p.IsBuffer() || p.Pitch == w*bpp:
		guestMip := guest[guestOff : guestOff+hostSize]
		if toHost {
			copy(hostMip, guestMip)
		} else {
			copy(guestMip, hostMip)
		}
	default:
		row := uint64(w) * uint64(bpp)
		n := min(row, uint64(p.Pitch))
		for i := uint64(0); i < uint64(h)*uint64(d); i++ {
			g := guest[guestOff+i*uint64(p.Pitch):][:n]
			hs := hostMip[i*row:][:n]
			if toHost {
				copy(hs, g)
			} else {
				copy(g, hs)
			}
		}
	}
}
