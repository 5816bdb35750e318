package texcache

import (
	"fmt"
	"strings"
)

// PixelFormat identifies the memory format of a guest surface.
type PixelFormat uint8

// Guest pixel formats. Color formats come first, depth formats last.
const (
	FormatABGR8U PixelFormat = iota
	FormatABGR8S
	FormatABGR8UI
	FormatB5G6R5U
	FormatA2B10G10R10U
	FormatA1B5G5R5U
	FormatR8U
	FormatR8UI
	FormatRGBA16F
	FormatRGBA16U
	FormatRGBA16UI
	FormatR11FG11FB10F
	FormatRGBA32UI
	FormatDXT1
	FormatDXT23
	FormatDXT45
	FormatDXN1
	FormatDXN2UNORM
	FormatBC7U
	FormatASTC2D4x4
	FormatBGRA8
	FormatRGBA32F
	FormatRG32F
	FormatR32F
	FormatR16F
	FormatR16U
	FormatR16S
	FormatR16UI
	FormatRG16
	FormatRG16F
	FormatRGBA8SRGB
	FormatRG8U
	FormatRG32UI
	FormatR32UI
	FormatASTC2D8x8
	FormatBGRA8SRGB
	FormatDXT1SRGB

	FormatZ32F
	FormatZ16
	FormatZ24S8
	FormatS8Z24
	FormatZ32FS8

	formatCount

	// FormatInvalid marks the absence of a format, e.g. in the sibling table.
	FormatInvalid PixelFormat = 0xFF
)

// firstDepthFormat is the first format that is not a color format.
const firstDepthFormat = FormatZ32F

// ComponentType describes how the components of a format are interpreted.
type ComponentType uint8

// Component types.
const (
	ComponentInvalid ComponentType = iota
	ComponentSNorm
	ComponentUNorm
	ComponentSInt
	ComponentUInt
	ComponentFloat
)

// SurfaceType classifies a format as color or depth/stencil.
type SurfaceType uint8

// Surface types.
const (
	SurfaceColor SurfaceType = iota
	SurfaceDepth
	SurfaceDepthStencil
	SurfaceInvalid
)

// SurfaceTarget is the dimensionality of a surface.
type SurfaceTarget uint8

// Surface targets.
const (
	Texture1D SurfaceTarget = iota
	TextureBuffer
	Texture2D
	Texture3D
	Texture1DArray
	Texture2DArray
	TextureCubemap
	TextureCubeArray
)

type formatInfo struct {
	name      string
	bpp       uint32 // bits per pixel, or per compressed block
	tileW     uint32
	tileH     uint32
	typ       SurfaceType
	component ComponentType
}

var formatTable = [formatCount]formatInfo{
	FormatABGR8U:       {"ABGR8U", 32, 1, 1, SurfaceColor, ComponentUNorm},
	FormatABGR8S:       {"ABGR8S", 32, 1, 1, SurfaceColor, ComponentSNorm},
	FormatABGR8UI:      {"ABGR8UI", 32, 1, 1, SurfaceColor, ComponentUInt},
	FormatB5G6R5U:      {"B5G6R5U", 16, 1, 1, SurfaceColor, ComponentUNorm},
	FormatA2B10G10R10U: {"A2B10G10R10U", 32, 1, 1, SurfaceColor, ComponentUNorm},
	FormatA1B5G5R5U:    {"A1B5G5R5U", 16, 1, 1, SurfaceColor, ComponentUNorm},
	FormatR8U:          {"R8U", 8, 1, 1, SurfaceColor, ComponentUNorm},
	FormatR8UI:         {"R8UI", 8, 1, 1, SurfaceColor, ComponentUInt},
	FormatRGBA16F:      {"RGBA16F", 64, 1, 1, SurfaceColor, ComponentFloat},
	FormatRGBA16U:      {"RGBA16U", 64, 1, 1, SurfaceColor, ComponentUNorm},
	FormatRGBA16UI:     {"RGBA16UI", 64, 1, 1, SurfaceColor, ComponentUInt},
	FormatR11FG11FB10F: {"R11FG11FB10F", 32, 1, 1, SurfaceColor, ComponentFloat},
	FormatRGBA32UI:     {"RGBA32UI", 128, 1, 1, SurfaceColor, ComponentUInt},
	FormatDXT1:         {"DXT1", 64, 4, 4, SurfaceColor, ComponentUNorm},
	FormatDXT23:        {"DXT23", 128, 4, 4, SurfaceColor, ComponentUNorm},
	FormatDXT45:        {"DXT45", 128, 4, 4, SurfaceColor, ComponentUNorm},
	FormatDXN1:         {"DXN1", 64, 4, 4, SurfaceColor, ComponentUNorm},
	FormatDXN2UNORM:    {"DXN2UNORM", 128, 4, 4, SurfaceColor, ComponentUNorm},
	FormatBC7U:         {"BC7U", 128, 4, 4, SurfaceColor, ComponentUNorm},
	FormatASTC2D4x4:    {"ASTC_2D_4X4", 128, 4, 4, SurfaceColor, ComponentUNorm},
	FormatBGRA8:        {"BGRA8", 32, 1, 1, SurfaceColor, ComponentUNorm},
	FormatRGBA32F:      {"RGBA32F", 128, 1, 1, SurfaceColor, ComponentFloat},
	FormatRG32F:        {"RG32F", 64, 1, 1, SurfaceColor, ComponentFloat},
	FormatR32F:         {"R32F", 32, 1, 1, SurfaceColor, ComponentFloat},
	FormatR16F:         {"R16F", 16, 1, 1, SurfaceColor, ComponentFloat},
	FormatR16U:         {"R16U", 16, 1, 1, SurfaceColor, ComponentUNorm},
	FormatR16S:         {"R16S", 16, 1, 1, SurfaceColor, ComponentSNorm},
	FormatR16UI:        {"R16UI", 16, 1, 1, SurfaceColor, ComponentUInt},
	FormatRG16:         {"RG16", 32, 1, 1, SurfaceColor, ComponentUNorm},
	FormatRG16F:        {"RG16F", 32, 1, 1, SurfaceColor, ComponentFloat},
	FormatRGBA8SRGB:    {"RGBA8_SRGB", 32, 1, 1, SurfaceColor, ComponentUNorm},
	FormatRG8U:         {"RG8U", 16, 1, 1, SurfaceColor, ComponentUNorm},
	FormatRG32UI:       {"RG32UI", 64, 1, 1, SurfaceColor, ComponentUInt},
	FormatR32UI:        {"R32UI", 32, 1, 1, SurfaceColor, ComponentUInt},
	FormatASTC2D8x8:    {"ASTC_2D_8X8", 128, 8, 8, SurfaceColor, ComponentUNorm},
	FormatBGRA8SRGB:    {"BGRA8_SRGB", 32, 1, 1, SurfaceColor, ComponentUNorm},
	FormatDXT1SRGB:     {"DXT1_SRGB", 64, 4, 4, SurfaceColor, ComponentUNorm},
	FormatZ32F:         {"Z32F", 32, 1, 1, SurfaceDepth, ComponentFloat},
	FormatZ16:          {"Z16", 16, 1, 1, SurfaceDepth, ComponentUNorm},
	FormatZ24S8:        {"Z24S8", 32, 1, 1, SurfaceDepthStencil, ComponentUNorm},
	FormatS8Z24:        {"S8Z24", 32, 1, 1, SurfaceDepthStencil, ComponentUNorm},
	FormatZ32FS8:       {"Z32FS8", 64, 1, 1, SurfaceDepthStencil, ComponentFloat},
}

// Valid reports whether f is a known format.
func (f PixelFormat) Valid() bool {
	return f < formatCount
}

// String returns the format name.
func (f PixelFormat) String() string {
	if !f.Valid() {
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
	return formatTable[f].name
}

// ParsePixelFormat returns the format with the given name, as printed by
// String. Names are case-insensitive.
func ParsePixelFormat(name string) (PixelFormat, error) {
	for f := range formatCount {
		if strings.EqualFold(formatTable[f].name, name) {
			return f, nil
		}
	}
	return FormatInvalid, fmt.Errorf("%w: unknown format %q", ErrInvalidParams, name)
}

// MarshalText implements encoding.TextMarshaler.
func (f PixelFormat) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: format %d", ErrInvalidParams, uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *PixelFormat) UnmarshalText(text []byte) error {
	v, err := ParsePixelFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Bits returns the size of one pixel, or one compressed block, in bits.
func (f PixelFormat) Bits() uint32 {
	if !f.Valid() {
		return 0
	}
	return formatTable[f].bpp
}

// BytesPerPixel returns the size of one pixel, or one compressed block, in bytes.
func (f PixelFormat) BytesPerPixel() uint32 {
	return f.Bits() / 8
}

// TileWidth returns the width in pixels of one compressed block, 1 for
// uncompressed formats.
func (f PixelFormat) TileWidth() uint32 {
	if !f.Valid() {
		return 1
	}
	return formatTable[f].tileW
}

// TileHeight returns the height in pixels of one compressed block, 1 for
// uncompressed formats.
func (f PixelFormat) TileHeight() uint32 {
	if !f.Valid() {
		return 1
	}
	return formatTable[f].tileH
}

// Compressed reports whether f is a block-compressed format.
func (f PixelFormat) Compressed() bool {
	return f.TileWidth() > 1 || f.TileHeight() > 1
}

// Type returns the surface type of f.
func (f PixelFormat) Type() SurfaceType {
	if !f.Valid() {
		return SurfaceInvalid
	}
	return formatTable[f].typ
}

// Component returns the natural component type of f.
func (f PixelFormat) Component() ComponentType {
	if !f.Valid() {
		return ComponentInvalid
	}
	return formatTable[f].component
}

// IsDepth reports whether f is a depth or depth/stencil format.
func (f PixelFormat) IsDepth() bool {
	return f.Valid() && f >= firstDepthFormat
}

// siblingTable maps formats that can be reinterpreted as one another
// without a copy. It is only consulted outside of rendering.
type siblingTable [formatCount]PixelFormat

func newSiblingTable() siblingTable {
	var t siblingTable
	for i := range t {
		t[i] = FormatInvalid
	}
	pair := func(a, b PixelFormat) {
		t[a] = b
		t[b] = a
	}
	pair(FormatZ16, FormatR16U)
	pair(FormatZ32F, FormatR32F)
	pair(FormatZ32FS8, FormatRG32F)
	return t
}

func (t *siblingTable) sibling(f PixelFormat) PixelFormat {
	if !f.Valid() {
		return FormatInvalid
	}
	return t[f]
}

func (c ComponentType) String() string {
	switch c {
	case ComponentSNorm:
		return "SNorm"
	case ComponentUNorm:
		return "UNorm"
	case ComponentSInt:
		return "SInt"
	case ComponentUInt:
		return "UInt"
	case ComponentFloat:
		return "Float"
	default:
		return "Invalid"
	}
}

func (s SurfaceType) String() string {
	switch s {
	case SurfaceColor:
		return "Color"
	case SurfaceDepth:
		return "Depth"
	case SurfaceDepthStencil:
		return "DepthStencil"
	default:
		return "Invalid"
	}
}

// String returns the short target name used in logs.
func (t SurfaceTarget) String() string {
	switch t {
	case Texture1D:
		return "1D"
	case TextureBuffer:
		return "TexBuffer"
	case Texture2D:
		return "2D"
	case Texture3D:
		return "3D"
	case Texture1DArray:
		return "1DArray"
	case Texture2DArray:
		return "2DArray"
	case TextureCubemap:
		return "Cube"
	case TextureCubeArray:
		return "CubeArray"
	default:
		return fmt.Sprintf("SurfaceTarget(%d)", uint8(t))
	}
}

// ParseSurfaceTarget returns the target with the given short name, as
// printed by String. Names are case-insensitive.
func ParseSurfaceTarget(name string) (SurfaceTarget, error) {
	for t := Texture1D; t <= TextureCubeArray; t++ {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown target %q", ErrInvalidParams, name)
}

// MarshalText implements encoding.TextMarshaler.
func (t SurfaceTarget) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SurfaceTarget) UnmarshalText(text []byte) error {
	v, err := ParseSurfaceTarget(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Layered reports whether surfaces of this target store array layers.
func (t SurfaceTarget) Layered() bool {
	switch t {
	case Texture1DArray, Texture2DArray, TextureCubemap, TextureCubeArray:
		return true
	default:
		return false
	}
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (PixelFormat, error) {
	for i := range formatTable {
		if formatTable[i].name == name {
			return PixelFormat(i), nil
		}
	}
	return FormatInvalid, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ParseTarget returns the target with the given short name.
func ParseTarget(name string) (SurfaceTarget, error) {
	for t := Texture1D; t <= TextureCubeArray; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return Texture2D, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}
