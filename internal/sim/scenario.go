// Package sim replays guest GPU command scenarios against a texture cache
// backed by the soft backend and reports what the cache did.
//
// Scenarios are JSONC files:
//
//	{
//		// cache options, see texcache.Config
//		"config": {"accurate_emulation": false},
//		"mappings": [{"gpu": "0x100000", "cpu": "0x80000", "size": "0x40000"}],
//		"ops": [
//			{"op": "color", "index": 0, "framebuffer": {"address": "0x100000", "width": 64, "height": 64, "format": "ABGR8U", "block_height": 3}},
//			{"op": "draw", "colors": [0]},
//			{"op": "flush", "addr": "0x100000", "size": 16384}
//		]
//	}
package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/gogpu/texcache"
)

var (
	errScenarioRead    = errors.New("sim: cannot read scenario")
	errScenarioInvalid = errors.New("sim: invalid scenario")
)

// Addr is a guest address or size. It decodes from a JSON number or from a
// string in any base strconv.ParseUint accepts, such as "0x100000".
type Addr uint64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Addr) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 64)
	if err != nil {
		return fmt.Errorf("address %s: %w", data, err)
	}
	*a = Addr(v)
	return nil
}

// MarshalJSON implements json.Marshaler. Addresses encode as hex strings.
func (a Addr) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%#x"`, uint64(a))), nil
}

// Mapping maps a range of guest GPU addresses onto guest CPU memory.
type Mapping struct {
	GPU  Addr `json:"gpu"`
	CPU  Addr `json:"cpu"`
	Size Addr `json:"size"`
}

// Surface describes a surface by its shape.
type Surface struct {
	Format      texcache.PixelFormat   `json:"format"`
	Target      texcache.SurfaceTarget `json:"target,omitempty"`
	Width       uint32                 `json:"width"`
	Height      uint32                 `json:"height"`
	Depth       uint32                 `json:"depth,omitempty"`
	Levels      uint32                 `json:"levels,omitempty"`
	Linear      bool                   `json:"linear,omitempty"`
	Pitch       uint32                 `json:"pitch,omitempty"`
	BlockHeight uint32                 `json:"block_height,omitempty"`
	BlockDepth  uint32                 `json:"block_depth,omitempty"`
}

// Params returns the surface params s describes. Targets default to 2D,
// depth and levels to one.
func (s Surface) Params() texcache.SurfaceParams {
	target := s.Target
	if target == texcache.Texture1D && s.Height > 1 {
		target = texcache.Texture2D
	}
	p := texcache.SurfaceParams{
		Tiled:            !s.Linear,
		TileWidthSpacing: 1,
		Width:            s.Width,
		Height:           max(s.Height, 1),
		Depth:            max(s.Depth, 1),
		Pitch:            s.Pitch,
		NumLevels:        max(s.Levels, 1),
		Format:           s.Format,
		ComponentType:    s.Format.Component(),
		Type:             s.Format.Type(),
		Target:           target,
		Layered:          target.Layered(),
	}
	if p.Tiled {
		p.BlockHeight = s.BlockHeight
		p.BlockDepth = s.BlockDepth
	}
	return p
}

// Texture is a sampled texture binding.
type Texture struct {
	Address Addr   `json:"address"`
	Type    string `json:"type,omitempty"` // 1d, 2d, 3d or cube
	Array   bool   `json:"array,omitempty"`
	Shadow  bool   `json:"shadow,omitempty"`
	Surface
}

func (t Texture) descriptor() (texcache.TextureDescriptor, texcache.SamplerEntry, error) {
	var typ texcache.TextureType
	switch strings.ToLower(t.Type) {
	case "", "2d":
		typ = texcache.TextureType2D
	case "1d":
		typ = texcache.TextureType1D
	case "3d":
		typ = texcache.TextureType3D
	case "cube":
		typ = texcache.TextureTypeCube
	default:
		return texcache.TextureDescriptor{}, texcache.SamplerEntry{}, fmt.Errorf("unknown texture type %q", t.Type)
	}
	desc := texcache.TextureDescriptor{
		Address:     texcache.GPUVAddr(t.Address),
		Format:      t.Format,
		Tiled:       !t.Linear,
		BlockHeight: t.BlockHeight,
		BlockDepth:  t.BlockDepth,
		Width:       t.Width,
		Height:      max(t.Height, 1),
		Depth:       max(t.Depth, 1),
		Pitch:       t.Pitch,
		MaxMipLevel: max(t.Levels, 1) - 1,
	}
	return desc, texcache.SamplerEntry{Type: typ, Array: t.Array, Shadow: t.Shadow}, nil
}

// Target is a render target register write.
type Target struct {
	Address     Addr                 `json:"address"`
	Width       uint32               `json:"width"`
	Height      uint32               `json:"height"`
	Format      texcache.PixelFormat `json:"format"`
	Pitch       bool                 `json:"pitch,omitempty"` // Width holds the row pitch in bytes
	BlockHeight uint32               `json:"block_height,omitempty"`
	BlockDepth  uint32               `json:"block_depth,omitempty"`
}

func (t Target) layout() texcache.MemoryLayout {
	if t.Pitch {
		return texcache.LayoutPitch
	}
	return texcache.LayoutBlockLinear
}

// Framebuffer returns t as a color target configuration.
func (t Target) Framebuffer() texcache.FramebufferConfig {
	return texcache.FramebufferConfig{
		Address:     texcache.GPUVAddr(t.Address),
		Width:       t.Width,
		Height:      t.Height,
		Format:      t.Format,
		Layout:      t.layout(),
		BlockHeight: t.BlockHeight,
		BlockDepth:  t.BlockDepth,
	}
}

// DepthBuffer returns t as a depth target configuration.
func (t Target) DepthBuffer() texcache.DepthBufferConfig {
	return texcache.DepthBufferConfig{
		Address:     texcache.GPUVAddr(t.Address),
		Width:       t.Width,
		Height:      t.Height,
		Format:      t.Format,
		Layout:      t.layout(),
		BlockHeight: t.BlockHeight,
		BlockDepth:  t.BlockDepth,
	}
}

// Fermi is a 2D engine blit operand.
type Fermi struct {
	Address     Addr                 `json:"address"`
	Format      texcache.PixelFormat `json:"format"`
	Width       uint32               `json:"width"`
	Height      uint32               `json:"height"`
	Pitch       uint32               `json:"pitch,omitempty"` // non-zero selects a linear surface
	BlockHeight uint32               `json:"block_height,omitempty"`
	Rect        [4]int               `json:"rect"` // x0, y0, x1, y1
}

func (f Fermi) surface() texcache.FermiSurface {
	return texcache.FermiSurface{
		Address:     texcache.GPUVAddr(f.Address),
		Format:      f.Format,
		Linear:      f.Pitch != 0,
		BlockHeight: f.BlockHeight,
		Width:       f.Width,
		Height:      f.Height,
		Pitch:       f.Pitch,
	}
}

func (f Fermi) rect() image.Rectangle {
	r := image.Rect(f.Rect[0], f.Rect[1], f.Rect[2], f.Rect[3])
	if r.Empty() {
		return image.Rect(0, 0, int(f.Width), int(f.Height))
	}
	return r
}

// Op kinds.
const (
	OpSurface    = "surface"
	OpTexture    = "texture"
	OpColor      = "color"
	OpDepth      = "depth"
	OpDraw       = "draw"
	OpInvalidate = "invalidate"
	OpFlush      = "flush"
	OpBlit       = "blit"
	OpCPUWrite   = "cpu_write"
	OpBarrier    = "barrier"
)

// Op is one scenario step. Which fields are used depends on Op.
type Op struct {
	Op string `json:"op"`

	// surface
	Addr     Addr     `json:"addr,omitempty"`
	Surface  *Surface `json:"surface,omitempty"`
	Preserve bool     `json:"preserve,omitempty"`
	Render   bool     `json:"render,omitempty"`

	// texture
	Texture *Texture `json:"texture,omitempty"`

	// color and depth; a missing target disables the slot
	Index  int     `json:"index,omitempty"`
	Target *Target `json:"target,omitempty"`

	// draw
	Colors []int `json:"colors,omitempty"`
	Depth  bool  `json:"depth,omitempty"`

	// invalidate, flush and cpu_write; flush and invalidate take GPU
	// addresses, cpu_write a CPU address
	Size Addr `json:"size,omitempty"`
	Fill byte `json:"fill,omitempty"`

	// blit
	Src    *Fermi `json:"src,omitempty"`
	Dst    *Fermi `json:"dst,omitempty"`
	Linear bool   `json:"linear,omitempty"`
}

// Scenario is a replayable list of operations.
type Scenario struct {
	Name     string          `json:"name,omitempty"`
	Config   texcache.Config `json:"config"`
	Mappings []Mapping       `json:"mappings"`
	Ops      []Op            `json:"ops"`
}

// ParseScenario decodes a JSONC scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSONC: %w", errScenarioInvalid, err)
	}
	var s Scenario
	if err := json.Unmarshal(standardized, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", errScenarioInvalid, err)
	}
	if len(s.Mappings) == 0 {
		return nil, fmt.Errorf("%w: no mappings", errScenarioInvalid)
	}
	return &s, nil
}

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errScenarioRead, path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
