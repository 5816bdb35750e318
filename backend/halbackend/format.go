package halbackend

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/texcache"
)

// textureFormats maps guest formats to host texture formats with the same
// texel layout. Formats missing here are rejected by CreateSurface.
var textureFormats = map[texcache.PixelFormat]gputypes.TextureFormat{
	texcache.FormatABGR8U:    gputypes.TextureFormatRGBA8Unorm,
	texcache.FormatRGBA8SRGB: gputypes.TextureFormatRGBA8UnormSrgb,
	texcache.FormatBGRA8:     gputypes.TextureFormatBGRA8Unorm,
	texcache.FormatBGRA8SRGB: gputypes.TextureFormatBGRA8UnormSrgb,
	texcache.FormatR8U:       gputypes.TextureFormatR8Unorm,
	texcache.FormatR32F:      gputypes.TextureFormatR32Float,
	texcache.FormatRG32F:     gputypes.TextureFormatRG32Float,
	texcache.FormatRGBA32F:   gputypes.TextureFormatRGBA32Float,
	texcache.FormatZ24S8:     gputypes.TextureFormatDepth24PlusStencil8,
	texcache.FormatS8Z24:     gputypes.TextureFormatDepth24PlusStencil8,
}

func textureFormat(f texcache.PixelFormat) (gputypes.TextureFormat, bool) {
	tf, ok := textureFormats[f]
	return tf, ok
}

func textureDimension(t texcache.SurfaceTarget) gputypes.TextureDimension {
	switch t {
	case texcache.Texture1D, texcache.Texture1DArray, texcache.TextureBuffer:
		return gputypes.TextureDimension1D
	case texcache.Texture3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

// viewDimension returns the view dimension of a target. Array and cube
// views inherit their dimension from the texture.
func viewDimension(t texcache.SurfaceTarget) gputypes.TextureViewDimension {
	switch t {
	case texcache.Texture1D, texcache.TextureBuffer:
		return gputypes.TextureViewDimension1D
	case texcache.Texture2D:
		return gputypes.TextureViewDimension2D
	case texcache.Texture3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimensionUndefined
	}
}
