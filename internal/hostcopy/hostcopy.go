// Package hostcopy moves texels between surfaces stored in the texcache
// host layout.
//
// The host layout stores every layer of a mip level before the next level.
// Inside a level, slices or layers are stored one after another and rows of
// compression blocks are tightly packed.
package hostcopy

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/texcache"
)

var (
	// ErrOutOfBounds is returned when a region exceeds its surface.
	ErrOutOfBounds = errors.New("hostcopy: region out of bounds")

	// ErrFormatMismatch is returned when two surfaces have different
	// texel sizes.
	ErrFormatMismatch = errors.New("hostcopy: texel size mismatch")

	// ErrUnsupportedBlit is returned for scaled blits of compressed surfaces.
	ErrUnsupportedBlit = errors.New("hostcopy: unsupported blit")
)

// Image is a surface in host layout.
type Image struct {
	Params texcache.SurfaceParams
	Data   []byte
}

// Offset returns the host layout offset of block (x, y) in slice or layer z
// of a mip level.
func Offset(p texcache.SurfaceParams, level, z, x, y uint32) uint64 {
	w, h, _ := p.MipExtent(level)
	row := uint64(z)*uint64(h) + uint64(y)
	return p.HostMipOffset(level) + (row*uint64(w)+uint64(x))*uint64(p.BytesPerPixel())
}

// Contains reports whether a block region lies inside one mip level of p.
func Contains(p texcache.SurfaceParams, level, z, depth, x, y, width, height uint32) bool {
	if level >= p.NumLevels {
		return false
	}
	w, h, d := p.MipExtent(level)
	slices := p.NumLayers() * d
	return uint64(x)+uint64(width) <= uint64(w) &&
		uint64(y)+uint64(height) <= uint64(h) &&
		uint64(z)+uint64(depth) <= uint64(slices)
}

// blocks converts a pixel extent to compression blocks.
func blocks(size, tile uint32) uint32 {
	return (size + tile - 1) / tile
}

// Copy copies region of src into dst row by row. Region coordinates are in
// pixels and are converted to compression blocks of the source format.
func Copy(dst, src Image, region texcache.CopyParams) error {
	bpp := src.Params.BytesPerPixel()
	if bpp != dst.Params.BytesPerPixel() {
		return fmt.Errorf("%w: %s to %s", ErrFormatMismatch, src.Params.Format, dst.Params.Format)
	}
	tw, th := src.Params.DefaultBlockWidth(), src.Params.DefaultBlockHeight()
	width := blocks(region.Width, tw)
	height := blocks(region.Height, th)
	srcX, srcY := region.SrcX/tw, region.SrcY/th
	dstX, dstY := region.DstX/tw, region.DstY/th

	if !Contains(src.Params, region.SrcLevel, region.SrcZ, region.Depth, srcX, srcY, width, height) {
		return fmt.Errorf("%w: source %+v of %s", ErrOutOfBounds, region, src.Params)
	}
	if !Contains(dst.Params, region.DstLevel, region.DstZ, region.Depth, dstX, dstY, width, height) {
		return fmt.Errorf("%w: destination %+v of %s", ErrOutOfBounds, region, dst.Params)
	}

	rowBytes := uint64(width) * uint64(bpp)
	for z := uint32(0); z < region.Depth; z++ {
		for y := uint32(0); y < height; y++ {
			so := Offset(src.Params, region.SrcLevel, region.SrcZ+z, srcX, srcY+y)
			do := Offset(dst.Params, region.DstLevel, region.DstZ+z, dstX, dstY+y)
			if so+rowBytes > uint64(len(src.Data)) || do+rowBytes > uint64(len(dst.Data)) {
				return fmt.Errorf("%w: row %d exceeds the buffer", ErrOutOfBounds, y)
			}
			copy(dst.Data[do:do+rowBytes], src.Data[so:so+rowBytes])
		}
	}
	return nil
}

// Plane selects one layer of one mip level.
type Plane struct {
	Layer uint32
	Level uint32
}

// Blit copies cfg.Src of a plane of src into cfg.Dst of a plane of dst.
// Blits of equal size copy texels unchanged. Scaled blits of 8-bit
// four-channel formats are resampled with x/image/draw; other formats use
// point sampling. scaled reports whether the blit resized its source.
func Blit(dst Image, dp Plane, src Image, sp Plane, cfg texcache.BlitConfig) (scaled bool, err error) {
	if !cfg.Scaled() {
		if cfg.Src.Min.X < 0 || cfg.Src.Min.Y < 0 || cfg.Dst.Min.X < 0 || cfg.Dst.Min.Y < 0 {
			return false, fmt.Errorf("%w: blit %v to %v", ErrOutOfBounds, cfg.Src, cfg.Dst)
		}
		return false, Copy(dst, src, texcache.CopyParams{
			SrcX:     uint32(cfg.Src.Min.X),
			SrcY:     uint32(cfg.Src.Min.Y),
			SrcZ:     sp.Layer,
			DstX:     uint32(cfg.Dst.Min.X),
			DstY:     uint32(cfg.Dst.Min.Y),
			DstZ:     dp.Layer,
			SrcLevel: sp.Level,
			DstLevel: dp.Level,
			Width:    uint32(cfg.Src.Dx()),
			Height:   uint32(cfg.Src.Dy()),
			Depth:    1,
		})
	}

	if src.Params.IsCompressed() || dst.Params.IsCompressed() {
		return true, fmt.Errorf("%w: scaled %s to %s", ErrUnsupportedBlit, src.Params.Format, dst.Params.Format)
	}
	if src.Params.BytesPerPixel() != dst.Params.BytesPerPixel() {
		return true, fmt.Errorf("%w: %s to %s", ErrFormatMismatch, src.Params.Format, dst.Params.Format)
	}
	si, err := src.plane(sp)
	if err != nil {
		return true, err
	}
	di, err := dst.plane(dp)
	if err != nil {
		return true, err
	}
	if !cfg.Src.In(si.bounds()) || !cfg.Dst.In(di.bounds()) {
		return true, fmt.Errorf("%w: blit %v to %v", ErrOutOfBounds, cfg.Src, cfg.Dst)
	}

	if byteChannels(src.Params.Format) && byteChannels(dst.Params.Format) {
		var scaler draw.Interpolator = draw.NearestNeighbor
		if cfg.Filter == texcache.FilterLinear {
			scaler = draw.ApproxBiLinear
		}
		scaler.Scale(di.rgba(), cfg.Dst, si.rgba(), cfg.Src, draw.Src, nil)
		return true, nil
	}
	if cfg.Filter == texcache.FilterLinear {
		texcache.Logger().Debug("hostcopy: linear blit falls back to point sampling",
			"format", src.Params.Format.String())
	}
	pointScale(di, cfg.Dst, si, cfg.Src)
	return true, nil
}

// byteChannels reports whether a format stores four 8-bit channels, which
// image.RGBA can resample channel by channel.
func byteChannels(f texcache.PixelFormat) bool {
	switch f {
	case texcache.FormatABGR8U, texcache.FormatABGR8UI, texcache.FormatBGRA8,
		texcache.FormatRGBA8SRGB, texcache.FormatBGRA8SRGB:
		return true
	}
	return false
}

// plane is one layer of one mip level in host layout.
type plane struct {
	pix    []byte
	width  int
	height int
	bpp    int
}

func (img Image) plane(p Plane) (plane, error) {
	if !Contains(img.Params, p.Level, p.Layer, 1, 0, 0, 0, 0) {
		return plane{}, fmt.Errorf("%w: plane %+v of %s", ErrOutOfBounds, p, img.Params)
	}
	w, h, _ := img.Params.MipExtent(p.Level)
	start := Offset(img.Params, p.Level, p.Layer, 0, 0)
	size := uint64(w) * uint64(h) * uint64(img.Params.BytesPerPixel())
	if start+size > uint64(len(img.Data)) {
		return plane{}, fmt.Errorf("%w: plane %+v exceeds the buffer", ErrOutOfBounds, p)
	}
	return plane{
		pix:    img.Data[start : start+size],
		width:  int(w),
		height: int(h),
		bpp:    int(img.Params.BytesPerPixel()),
	}, nil
}

func (p plane) bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// rgba wraps a plane of four byte texels without copying.
func (p plane) rgba() *image.RGBA {
	return &image.RGBA{Pix: p.pix, Stride: p.width * 4, Rect: p.bounds()}
}

// pointScale resamples sr of src into dr of dst with nearest texel
// selection, copying whole texels of any size.
func pointScale(dst plane, dr image.Rectangle, src plane, sr image.Rectangle) {
	dw, dh := dr.Dx(), dr.Dy()
	sw, sh := sr.Dx(), sr.Dy()
	for y := 0; y < dh; y++ {
		sy := sr.Min.Y + (2*y+1)*sh/(2*dh)
		for x := 0; x < dw; x++ {
			sx := sr.Min.X + (2*x+1)*sw/(2*dw)
			so := (sy*src.width + sx) * src.bpp
			do := ((dr.Min.Y+y)*dst.width + dr.Min.X + x) * dst.bpp
			copy(dst.pix[do:do+dst.bpp], src.pix[so:so+src.bpp])
		}
	}
}
