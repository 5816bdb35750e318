package texcache

import (
	"fmt"

	"github.com/gogpu/texcache/internal/tiling"
)

// GPUVAddr is an address in the guest GPU virtual address space.
type GPUVAddr uint64

// VAddr is an address in the guest CPU virtual address space.
type VAddr uint64

// CacheAddr is the host-side key a guest GPU address translates to.
// Surfaces whose [CacheAddr, CacheAddr+size) ranges intersect overlap.
type CacheAddr uint64

// SurfaceParams describes the shape of a guest surface.
//
// SurfaceParams is comparable and is used directly as a map key. Two params
// that compare equal describe surfaces that can replace one another.
type SurfaceParams struct {
	Tiled            bool
	BlockWidth       uint32 // log2 of GOBs
	BlockHeight      uint32 // log2 of GOBs
	BlockDepth       uint32 // log2 of GOBs
	TileWidthSpacing uint32
	Width            uint32
	Height           uint32
	Depth            uint32
	Pitch            uint32 // bytes per row of linear surfaces
	NumLevels        uint32
	Format           PixelFormat
	ComponentType    ComponentType
	Type             SurfaceType
	Target           SurfaceTarget
	Layered          bool
}

// String returns a compact description for logs.
func (p SurfaceParams) String() string {
	layout := "linear"
	if p.Tiled {
		layout = fmt.Sprintf("tiled(bh=%d,bd=%d)", p.BlockHeight, p.BlockDepth)
	}
	return fmt.Sprintf("%s %s %dx%dx%d levels=%d %s", p.Target, p.Format,
		p.Width, p.Height, p.Depth, p.NumLevels, layout)
}

// Validate reports whether p describes a non-empty surface of a known format.
func (p SurfaceParams) Validate() error {
	switch {
	case !p.Format.Valid():
		return fmt.Errorf("%w: format %v", ErrInvalidParams, p.Format)
	case p.Width == 0 || p.Height == 0 || p.Depth == 0:
		return fmt.Errorf("%w: extent %dx%dx%d", ErrInvalidParams, p.Width, p.Height, p.Depth)
	case p.NumLevels == 0:
		return fmt.Errorf("%w: zero mip levels", ErrInvalidParams)
	case !p.Tiled && !p.IsBuffer() && p.Pitch == 0:
		return fmt.Errorf("%w: linear surface without pitch", ErrInvalidParams)
	}
	return nil
}

// IsBuffer reports whether p describes a texture buffer.
func (p SurfaceParams) IsBuffer() bool {
	return p.Target == TextureBuffer
}

// IsCompressed reports whether p uses a block-compressed format.
func (p SurfaceParams) IsCompressed() bool {
	return p.Format.Compressed()
}

// IsDepth reports whether p uses a depth or depth/stencil format.
func (p SurfaceParams) IsDepth() bool {
	return p.Format.IsDepth()
}

// BytesPerPixel returns the size of one pixel, or one compressed block.
func (p SurfaceParams) BytesPerPixel() uint32 {
	return p.Format.BytesPerPixel()
}

// DefaultBlockWidth returns the compression block width of the format.
func (p SurfaceParams) DefaultBlockWidth() uint32 {
	return p.Format.TileWidth()
}

// DefaultBlockHeight returns the compression block height of the format.
func (p SurfaceParams) DefaultBlockHeight() uint32 {
	return p.Format.TileHeight()
}

// NumLayers returns the number of array layers. Non-layered surfaces have one.
func (p SurfaceParams) NumLayers() uint32 {
	if p.Layered {
		return p.Depth
	}
	return 1
}

// MipWidth returns the width of a mip level in pixels.
func (p SurfaceParams) MipWidth(level uint32) uint32 {
	return max(1, p.Width>>level)
}

// MipHeight returns the height of a mip level in pixels.
func (p SurfaceParams) MipHeight(level uint32) uint32 {
	return max(1, p.Height>>level)
}

// MipDepth returns the depth of a mip level. Layered surfaces keep their
// layer count at every level.
func (p SurfaceParams) MipDepth(level uint32) uint32 {
	if p.Layered {
		return p.Depth
	}
	return max(1, p.Depth>>level)
}

// MipBlockHeight returns the block height used by a mip level. Smaller
// levels shrink the block so it does not exceed the level height.
func (p SurfaceParams) MipBlockHeight(level uint32) uint32 {
	if level == 0 {
		return p.BlockHeight
	}
	h := p.MipHeight(level)
	dbh := p.DefaultBlockHeight()
	blocksY := (h + dbh - 1) / dbh
	return min(max(tiling.Log2Ceil(blocksY), 3), 7) - 3
}

// MipBlockDepth returns the block depth used by a mip level.
func (p SurfaceParams) MipBlockDepth(level uint32) uint32 {
	if level == 0 {
		return p.BlockDepth
	}
	if p.Layered {
		return 0
	}
	bd := tiling.Log2Ceil(p.MipDepth(level))
	if bd > 4 {
		if p.MipBlockHeight(level) >= 2 {
			return 4
		}
		return 5
	}
	return bd
}

// MaxPossibleMipmap returns the number of levels a full chain of p would have.
func (p SurfaceParams) MaxPossibleMipmap() uint32 {
	levels := max(tiling.Log2Ceil(p.Width), tiling.Log2Ceil(p.Height)) + 1
	if p.Target != Texture3D {
		return levels
	}
	return max(levels, tiling.Log2Ceil(p.Depth)+1)
}

// EmulatedLevels returns the number of levels a host surface allocates.
func (p SurfaceParams) EmulatedLevels() uint32 {
	return min(p.NumLevels, p.MaxPossibleMipmap())
}

// blocks divides a pixel extent into compression blocks.
func blocks(size, tile uint32) uint32 {
	return max(1, (size+tile-1)/tile)
}

// MipExtent returns the extent of one layer of a mip level in compression
// blocks. Layered surfaces report a depth of one.
func (p SurfaceParams) MipExtent(level uint32) (w, h, d uint32) {
	w = blocks(p.MipWidth(level), p.DefaultBlockWidth())
	h = blocks(p.MipHeight(level), p.DefaultBlockHeight())
	d = 1
	if !p.Layered {
		d = p.MipDepth(level)
	}
	return w, h, d
}

// innerMipSize returns the size of one layer of a mip level, either in
// guest memory or in the tightly packed host layout.
func (p SurfaceParams) innerMipSize(level uint32, asHost bool) uint64 {
	w, h, d := p.MipExtent(level)
	switch {
	case p.Tiled:
		return tiling.CalculateSize(!asHost, p.BytesPerPixel(), w, h, d,
			p.MipBlockHeight(level), p.MipBlockDepth(level))
	case asHost || p.IsBuffer():
		return uint64(p.BytesPerPixel()) * uint64(w) * uint64(h) * uint64(d)
	default:
		return uint64(p.Pitch) * uint64(h) * uint64(d)
	}
}

// GuestMipSize returns the guest memory size of one layer of a mip level.
func (p SurfaceParams) GuestMipSize(level uint32) uint64 {
	return p.innerMipSize(level, false)
}

// HostMipSize returns the host size of one layer of a mip level.
func (p SurfaceParams) HostMipSize(level uint32) uint64 {
	return p.innerMipSize(level, true)
}

// GuestLayerSize returns the guest memory stride between array layers.
// Tiled layered surfaces align each layer to a whole block.
func (p SurfaceParams) GuestLayerSize() uint64 {
	var size uint64
	for level := uint32(0); level < p.NumLevels; level++ {
		size += p.GuestMipSize(level)
	}
	if p.Tiled && p.Layered {
		return tiling.AlignBits(size, tiling.GOBSizeShift+p.BlockHeight+p.BlockDepth)
	}
	return size
}

// GuestMipOffset returns the offset of a mip level inside a guest layer.
func (p SurfaceParams) GuestMipOffset(level uint32) uint64 {
	var offset uint64
	for i := uint32(0); i < level; i++ {
		offset += p.GuestMipSize(i)
	}
	return offset
}

// HostMipOffset returns the offset of a mip level in the host layout, where
// all layers of a level are stored together.
func (p SurfaceParams) HostMipOffset(level uint32) uint64 {
	var offset uint64
	for i := uint32(0); i < level; i++ {
		offset += p.HostMipSize(i) * uint64(p.NumLayers())
	}
	return offset
}

// GuestSizeInBytes returns the number of guest memory bytes the surface spans.
func (p SurfaceParams) GuestSizeInBytes() uint64 {
	return p.GuestLayerSize() * uint64(p.NumLayers())
}

// HostSizeInBytes returns the size of the tightly packed host layout.
func (p SurfaceParams) HostSizeInBytes() uint64 {
	return p.HostMipOffset(p.NumLevels)
}

// BlockAlignedWidth returns the width rounded up to a whole GOB row.
func (p SurfaceParams) BlockAlignedWidth() uint32 {
	bpp := p.BytesPerPixel()
	if bpp == 0 {
		return p.Width
	}
	return tiling.AlignUp(p.Width, tiling.GOBSizeX/bpp)
}

// ConvertWidth converts a width between the compression blocks of two formats.
func ConvertWidth(width uint32, from, to PixelFormat) uint32 {
	bw1 := from.TileWidth()
	bw2 := to.TileWidth()
	return (width*bw2 + bw1 - 1) / bw1
}

// ConvertHeight converts a height between the compression blocks of two formats.
func ConvertHeight(height uint32, from, to PixelFormat) uint32 {
	bh1 := from.TileHeight()
	bh2 := to.TileHeight()
	return (height*bh2 + bh1 - 1) / bh1
}

// IntersectWidth returns the width shared by a level of src and a level of dst.
func IntersectWidth(src, dst SurfaceParams, srcLevel, dstLevel uint32) uint32 {
	return min(src.MipWidth(srcLevel), dst.MipWidth(dstLevel))
}

// IntersectHeight returns the height shared by a level of src and a level of dst.
func IntersectHeight(src, dst SurfaceParams, srcLevel, dstLevel uint32) uint32 {
	return min(src.MipHeight(srcLevel), dst.MipHeight(dstLevel))
}

// MatchTopologyResult is the outcome of a topology comparison.
type MatchTopologyResult uint8

// Topology comparison results.
const (
	TopologyNone MatchTopologyResult = iota
	TopologyCompressUnmatch
	TopologyFullMatch
)

func (r MatchTopologyResult) String() string {
	switch r {
	case TopologyFullMatch:
		return "FullMatch"
	case TopologyCompressUnmatch:
		return "CompressUnmatch"
	default:
		return "None"
	}
}

// MatchStructureResult is the outcome of a structure comparison.
type MatchStructureResult uint8

// Structure comparison results.
const (
	StructureNone MatchStructureResult = iota
	StructureSemiMatch
	StructureFullMatch
)

func (r MatchStructureResult) String() string {
	switch r {
	case StructureFullMatch:
		return "FullMatch"
	case StructureSemiMatch:
		return "SemiMatch"
	default:
		return "None"
	}
}

// MatchesTopology reports whether rhs addresses memory the same way as p:
// same element size, tiling and buffer-ness. Differing compression is
// reported separately.
func (p SurfaceParams) MatchesTopology(rhs SurfaceParams) MatchTopologyResult {
	if p.BytesPerPixel() != rhs.BytesPerPixel() || p.Tiled != rhs.Tiled || p.IsBuffer() != rhs.IsBuffer() {
		return TopologyNone
	}
	if p.IsCompressed() != rhs.IsCompressed() {
		return TopologyCompressUnmatch
	}
	return TopologyFullMatch
}

// MatchesStructure reports whether rhs lays out bytes like p.
func (p SurfaceParams) MatchesStructure(rhs SurfaceParams) MatchStructureResult {
	if p.IsBuffer() {
		if p.Width*p.BytesPerPixel() == rhs.Width*rhs.BytesPerPixel() {
			return StructureFullMatch
		}
		return StructureNone
	}

	if !p.Tiled {
		if p.Height != rhs.Height || p.Pitch != rhs.Pitch {
			return StructureNone
		}
		if p.Width == rhs.Width {
			return StructureFullMatch
		}
		return StructureSemiMatch
	}

	if p.Depth != rhs.Depth || p.BlockWidth != rhs.BlockWidth || p.BlockHeight != rhs.BlockHeight ||
		p.BlockDepth != rhs.BlockDepth || p.TileWidthSpacing != rhs.TileWidthSpacing ||
		p.NumLevels != rhs.NumLevels {
		return StructureNone
	}
	if p.Width == rhs.Width && p.Height == rhs.Height {
		return StructureFullMatch
	}
	ws := ConvertWidth(rhs.BlockAlignedWidth(), p.Format, rhs.Format)
	hs := ConvertHeight(rhs.Height, p.Format, rhs.Format)
	if p.BlockAlignedWidth() == ws && p.Height == hs {
		return StructureSemiMatch
	}
	return StructureNone
}
