package texcache

import "image"

// CopyParams describes one region copy between two host surfaces.
// Z selects the array layer of layered surfaces and the slice of 3D ones.
type CopyParams struct {
	SrcX, SrcY, SrcZ uint32
	DstX, DstY, DstZ uint32
	SrcLevel         uint32
	DstLevel         uint32
	Width            uint32
	Height           uint32
	Depth            uint32
}

// levelCopy returns a copy of a whole level region at the origin.
func levelCopy(width, height, depth, level uint32) CopyParams {
	return CopyParams{
		SrcLevel: level,
		DstLevel: level,
		Width:    width,
		Height:   height,
		Depth:    depth,
	}
}

// ViewParams selects a sub-resource of a surface.
type ViewParams struct {
	Target    SurfaceTarget
	BaseLayer uint32
	NumLayers uint32
	BaseLevel uint32
	NumLevels uint32
}

// BlitFilter selects the sampling used by a scaled blit.
type BlitFilter uint8

// Blit filters.
const (
	FilterPoint BlitFilter = iota
	FilterLinear
)

func (f BlitFilter) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "point"
}

// BlitConfig describes a 2D blit between two views.
type BlitConfig struct {
	Src    image.Rectangle
	Dst    image.Rectangle
	Filter BlitFilter
}

// Scaled reports whether the blit resizes its source.
func (c BlitConfig) Scaled() bool {
	return c.Src.Dx() != c.Dst.Dx() || c.Src.Dy() != c.Dst.Dy()
}
