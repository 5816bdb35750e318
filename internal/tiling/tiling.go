// Package tiling implements the block-linear memory layout used by guest
// GPU surfaces.
//
// Block-linear surfaces are stored as a grid of blocks. Each block is one
// GOB (group of bytes, 64 bytes x 8 rows) wide, 1<<blockHeight GOBs tall
// and 1<<blockDepth GOBs deep. Within a GOB, bytes are interleaved in
// 16-byte runs.
package tiling

import "math/bits"

// GOB geometry as log2 shifts.
const (
	GOBSizeXShift = 6
	GOBSizeYShift = 3
	GOBSizeZShift = 0
	GOBSizeShift  = GOBSizeXShift + GOBSizeYShift + GOBSizeZShift

	GOBSizeX = 1 << GOBSizeXShift
	GOBSizeY = 1 << GOBSizeYShift
	GOBSize  = 1 << GOBSizeShift
)

// AlignBits rounds v up to a multiple of 1<<align.
func AlignBits(v uint64, align uint32) uint64 {
	mask := uint64(1)<<align - 1
	return (v + mask) &^ mask
}

// AlignUp rounds v up to a multiple of size. A zero size returns v.
func AlignUp(v, size uint32) uint32 {
	if size == 0 {
		return v
	}
	return (v + size - 1) / size * size
}

// Log2Ceil returns ceil(log2(v)). Log2Ceil(0) and Log2Ceil(1) are 0.
func Log2Ceil(v uint32) uint32 {
	if v <= 1 {
		return 0
	}
	return uint32(bits.Len32(v - 1))
}

// CalculateSize returns the byte size of a width x height x depth region of
// bytesPerPixel elements. Tiled regions are padded to whole blocks.
func CalculateSize(tiled bool, bytesPerPixel, width, height, depth, blockHeight, blockDepth uint32) uint64 {
	if !tiled {
		return uint64(width) * uint64(height) * uint64(depth) * uint64(bytesPerPixel)
	}
	alignedWidth := AlignBits(uint64(width)*uint64(bytesPerPixel), GOBSizeXShift)
	alignedHeight := AlignBits(uint64(height), GOBSizeYShift+blockHeight)
	alignedDepth := AlignBits(uint64(depth), GOBSizeZShift+blockDepth)
	return alignedWidth * alignedHeight * alignedDepth
}

// gobOffset returns the offset of byte column x, row y inside one GOB.
func gobOffset(x, y uint32) uint32 {
	return (x%64)/32*256 + (y%8)/2*64 + (x%32)/16*32 + (y%2)*16 + x%16
}

// Layout describes one block-linear region.
type Layout struct {
	BytesPerPixel uint32
	Width         uint32
	Height        uint32
	Depth         uint32
	BlockHeight   uint32
	BlockDepth    uint32
}

// Offset returns the swizzled byte offset of pixel (x, y, z).
func (l Layout) Offset(x, y, z uint32) uint64 {
	gobsX := uint64(AlignBits(uint64(l.Width)*uint64(l.BytesPerPixel), GOBSizeXShift) / GOBSizeX)
	blockRows := uint32(GOBSizeY) << l.BlockHeight
	blockGOBs := uint64(1) << l.BlockDepth << l.BlockHeight
	blocksY := AlignBits(uint64(l.Height), GOBSizeYShift+l.BlockHeight) / uint64(blockRows)
	blockSize := blockGOBs * GOBSize
	sliceSize := gobsX * blocksY * blockSize

	xb := x * l.BytesPerPixel
	slices := uint32(1) << l.BlockDepth
	block := uint64(y/blockRows)*gobsX + uint64(xb/GOBSizeX)

	return uint64(z/slices)*sliceSize +
		block*blockSize +
		uint64(z%slices)*(GOBSize<<l.BlockHeight) +
		uint64((y%blockRows)/GOBSizeY)*GOBSize +
		uint64(gobOffset(xb, y))
}

// Size returns the padded byte size of the region.
func (l Layout) Size() uint64 {
	return CalculateSize(true, l.BytesPerPixel, l.Width, l.Height, l.Depth, l.BlockHeight, l.BlockDepth)
}

// Unswizzle copies the block-linear src into the tightly packed dst.
// dst must hold Width*Height*Depth*BytesPerPixel bytes and src Size() bytes.
func (l Layout) Unswizzle(dst, src []byte) {
	l.copy(dst, src, true)
}

// Swizzle copies the tightly packed src into the block-linear dst.
func (l Layout) Swizzle(dst, src []byte) {
	l.copy(src, dst, false)
}

func (l Layout) copy(linear, swizzled []byte, unswizzle bool) {
	bpp := uint64(l.BytesPerPixel)
	pitch := uint64(l.Width) * bpp
	for z := uint32(0); z < l.Depth; z++ {
		for y := uint32(0); y < l.Height; y++ {
			row := (uint64(z)*uint64(l.Height) + uint64(y)) * pitch
			for x := uint32(0); x < l.Width; x++ {
				lin := row + uint64(x)*bpp
				sw := l.Offset(x, y, z)
				if unswizzle {
					copy(linear[lin:lin+bpp], swizzled[sw:sw+bpp])
				} else {
					copy(swizzled[sw:sw+bpp], linear[lin:lin+bpp])
				}
			}
		}
	}
}
