package texcache

// TextureDescriptor is the decoded texture header of a sampled texture or
// storage image.
type TextureDescriptor struct {
	Address          GPUVAddr
	Format           PixelFormat
	ComponentType    ComponentType // ComponentInvalid selects the format's natural type
	Tiled            bool
	BlockWidth       uint32
	BlockHeight      uint32
	BlockDepth       uint32
	TileWidthSpacing uint32 // log2
	Width            uint32
	Height           uint32
	Depth            uint32
	Pitch            uint32
	MaxMipLevel      uint32
	Buffer           bool
}

// TextureType is the dimensionality a shader samples a texture with.
type TextureType uint8

// Texture types.
const (
	TextureType1D TextureType = iota
	TextureType2D
	TextureType3D
	TextureTypeCube
)

// SamplerEntry describes how a shader samples a texture.
type SamplerEntry struct {
	Type   TextureType
	Array  bool
	Shadow bool
}

// ImageType is the dimensionality of a storage image binding.
type ImageType uint8

// Image types.
const (
	ImageType1D ImageType = iota
	ImageTypeBuffer
	ImageType1DArray
	ImageType2D
	ImageType2DArray
	ImageType3D
)

// MemoryLayout selects between block-linear and pitch-linear render targets.
type MemoryLayout uint8

// Memory layouts.
const (
	LayoutBlockLinear MemoryLayout = iota
	LayoutPitch
)

// DepthBufferConfig is the depth render target configuration.
type DepthBufferConfig struct {
	Address     GPUVAddr
	Width       uint32
	Height      uint32
	Format      PixelFormat
	Layout      MemoryLayout
	BlockWidth  uint32
	BlockHeight uint32
	BlockDepth  uint32
}

// FramebufferConfig is a color render target configuration. For pitch
// layouts Width holds the row pitch in bytes.
type FramebufferConfig struct {
	Address     GPUVAddr
	Width       uint32
	Height      uint32
	Format      PixelFormat
	Layout      MemoryLayout
	BlockWidth  uint32
	BlockHeight uint32
	BlockDepth  uint32
}

// FermiSurface is a surface operand of the 2D engine.
type FermiSurface struct {
	Address     GPUVAddr
	Format      PixelFormat
	Linear      bool
	BlockWidth  uint32
	BlockHeight uint32
	BlockDepth  uint32
	Width       uint32
	Height      uint32
	Pitch       uint32
}

// maxBlockShift bounds render target block dimensions.
const maxBlockShift = 5

func textureTarget(t TextureType, array bool) SurfaceTarget {
	switch t {
	case TextureType1D:
		if array {
			return Texture1DArray
		}
		return Texture1D
	case TextureType3D:
		return Texture3D
	case TextureTypeCube:
		if array {
			return TextureCubeArray
		}
		return TextureCubemap
	default:
		if array {
			return Texture2DArray
		}
		return Texture2D
	}
}

func imageTarget(t ImageType) SurfaceTarget {
	switch t {
	case ImageType1D:
		return Texture1D
	case ImageTypeBuffer:
		return TextureBuffer
	case ImageType1DArray:
		return Texture1DArray
	case ImageType2DArray:
		return Texture2DArray
	case ImageType3D:
		return Texture3D
	default:
		return Texture2D
	}
}

// shadowFormat promotes a color format sampled by a depth comparison.
func shadowFormat(f PixelFormat) PixelFormat {
	switch f {
	case FormatR16U, FormatR16F:
		return FormatZ16
	case FormatR32F:
		return FormatZ32F
	default:
		return f
	}
}

// headerParams fills the layout fields shared by textures and images.
func headerParams(desc TextureDescriptor) SurfaceParams {
	p := SurfaceParams{
		Tiled:            desc.Tiled,
		TileWidthSpacing: 1,
		Format:           desc.Format,
		ComponentType:    desc.ComponentType,
	}
	if p.ComponentType == ComponentInvalid {
		p.ComponentType = desc.Format.Component()
	}
	if desc.Tiled {
		p.BlockWidth = desc.BlockWidth
		p.BlockHeight = desc.BlockHeight
		p.BlockDepth = desc.BlockDepth
		p.TileWidthSpacing = 1 << desc.TileWidthSpacing
	}
	return p
}

// finishHeaderParams fills the extent of a texture or image for target.
func finishHeaderParams(p SurfaceParams, desc TextureDescriptor) SurfaceParams {
	p.Type = p.Format.Type()
	if desc.Buffer {
		p.Target = TextureBuffer
		p.Width = desc.Width
		p.Pitch = p.Width * p.BytesPerPixel()
		p.Height = 1
		p.Depth = 1
		p.NumLevels = 1
		p.Layered = false
		return p
	}
	p.Width = desc.Width
	p.Height = desc.Height
	p.Depth = max(desc.Depth, 1)
	if !desc.Tiled {
		p.Pitch = desc.Pitch
	}
	if p.Target == TextureCubemap || p.Target == TextureCubeArray {
		p.Depth *= 6
	}
	p.NumLevels = desc.MaxMipLevel + 1
	p.Layered = p.Target.Layered()
	return p
}

// ParamsForTexture returns the params of a sampled texture.
func ParamsForTexture(desc TextureDescriptor, entry SamplerEntry) SurfaceParams {
	p := headerParams(desc)
	if entry.Shadow && p.Format.Type() == SurfaceColor {
		p.Format = shadowFormat(p.Format)
		if p.Format.IsDepth() {
			p.ComponentType = p.Format.Component()
		}
	}
	p.Target = textureTarget(entry.Type, entry.Array)
	return finishHeaderParams(p, desc)
}

// ParamsForImage returns the params of a storage image.
func ParamsForImage(desc TextureDescriptor, imageType ImageType) SurfaceParams {
	p := headerParams(desc)
	p.Target = imageTarget(imageType)
	return finishHeaderParams(p, desc)
}

// ParamsForDepthBuffer returns the params of the depth render target.
func ParamsForDepthBuffer(cfg DepthBufferConfig) SurfaceParams {
	return SurfaceParams{
		Tiled:            cfg.Layout == LayoutBlockLinear,
		BlockWidth:       min(cfg.BlockWidth, maxBlockShift),
		BlockHeight:      min(cfg.BlockHeight, maxBlockShift),
		BlockDepth:       min(cfg.BlockDepth, maxBlockShift),
		TileWidthSpacing: 1,
		Width:            cfg.Width,
		Height:           cfg.Height,
		Depth:            1,
		NumLevels:        1,
		Format:           cfg.Format,
		ComponentType:    cfg.Format.Component(),
		Type:             cfg.Format.Type(),
		Target:           Texture2D,
	}
}

// ParamsForFramebuffer returns the params of a color render target.
func ParamsForFramebuffer(cfg FramebufferConfig) SurfaceParams {
	p := SurfaceParams{
		Tiled:            cfg.Layout == LayoutBlockLinear,
		BlockWidth:       cfg.BlockWidth,
		BlockHeight:      cfg.BlockHeight,
		BlockDepth:       cfg.BlockDepth,
		TileWidthSpacing: 1,
		Height:           cfg.Height,
		Depth:            1,
		NumLevels:        1,
		Format:           cfg.Format,
		ComponentType:    cfg.Format.Component(),
		Type:             cfg.Format.Type(),
		Target:           Texture2D,
	}
	if p.Tiled {
		p.Width = cfg.Width
	} else {
		p.Pitch = cfg.Width
		if bpp := cfg.Format.BytesPerPixel(); bpp > 0 {
			p.Width = p.Pitch / bpp
		}
	}
	return p
}

// ParamsForFermiSurface returns the params of a 2D engine surface.
func ParamsForFermiSurface(s FermiSurface) SurfaceParams {
	p := SurfaceParams{
		Tiled:            !s.Linear,
		TileWidthSpacing: 1,
		Width:            s.Width,
		Height:           s.Height,
		Pitch:            s.Pitch,
		Depth:            1,
		NumLevels:        1,
		Format:           s.Format,
		ComponentType:    s.Format.Component(),
		Type:             s.Format.Type(),
		Target:           Texture2D,
	}
	if p.Tiled {
		p.BlockWidth = min(s.BlockWidth, maxBlockShift)
		p.BlockHeight = min(s.BlockHeight, maxBlockShift)
		p.BlockDepth = min(s.BlockDepth, maxBlockShift)
	}
	return p
}
