package texcache

import (
	"errors"
	"testing"
)

func TestGuestSizeInBytes(t *testing.T) {
	tests := []struct {
		name   string
		params SurfaceParams
		want   uint64
	}{
		{"tiled 256x256 rgba8", tiled2D(256, 256, 4, FormatABGR8U), 262144},
		{"tiled 64x64 rgba8", tiled2D(64, 64, 3, FormatABGR8U), 16384},
		{"tiled pads to a gob", tiled2D(1, 1, 0, FormatABGR8U), 512},
		{"linear uses pitch", linear2D(10, 4, 64, FormatABGR8U), 256},
		{"dxt1 in blocks", tiled2D(64, 64, 1, FormatDXT1), 2048},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.GuestSizeInBytes(); got != tt.want {
				t.Errorf("GuestSizeInBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHostSizeIsTightlyPacked(t *testing.T) {
	p := linear2D(10, 4, 64, FormatABGR8U)
	if got := p.HostSizeInBytes(); got != 160 {
		t.Errorf("HostSizeInBytes() = %d, want 160", got)
	}
	chain := tiled2D(256, 256, 4, FormatABGR8U)
	chain.NumLevels = 3
	want := uint64(256*256*4 + 128*128*4 + 64*64*4)
	if got := chain.HostSizeInBytes(); got != want {
		t.Errorf("chain HostSizeInBytes() = %d, want %d", got, want)
	}
}

func TestMipOffsets(t *testing.T) {
	chain := tiled2D(256, 256, 4, FormatABGR8U)
	chain.NumLevels = 4
	wantSizes := []uint64{262144, 65536, 16384, 4096}
	var offset uint64
	for level, want := range wantSizes {
		if got := chain.GuestMipOffset(uint32(level)); got != offset {
			t.Errorf("GuestMipOffset(%d) = %d, want %d", level, got, offset)
		}
		if got := chain.GuestMipSize(uint32(level)); got != want {
			t.Errorf("GuestMipSize(%d) = %d, want %d", level, got, want)
		}
		offset += want
	}
	if got := chain.GuestSizeInBytes(); got != 348160 {
		t.Errorf("GuestSizeInBytes() = %d, want 348160", got)
	}
}

func TestMipBlockHeightShrinks(t *testing.T) {
	p := tiled2D(256, 256, 4, FormatABGR8U)
	p.NumLevels = 6
	want := []uint32{4, 4, 3, 2, 1, 0}
	for level, w := range want {
		if got := p.MipBlockHeight(uint32(level)); got != w {
			t.Errorf("MipBlockHeight(%d) = %d, want %d", level, got, w)
		}
	}
}

func TestLayeredTiledLayerAlignment(t *testing.T) {
	p := tiled2D(16, 16, 2, FormatABGR8U)
	p.Target = Texture2DArray
	p.Layered = true
	p.Depth = 3
	// 16 rows pad to one 4 gob block, which is also the layer alignment.
	if got := p.GuestLayerSize(); got != 2048 {
		t.Errorf("GuestLayerSize() = %d, want 2048", got)
	}
	if got := p.GuestSizeInBytes(); got != 3*2048 {
		t.Errorf("GuestSizeInBytes() = %d, want %d", got, 3*2048)
	}
	if got := p.NumLayers(); got != 3 {
		t.Errorf("NumLayers() = %d, want 3", got)
	}
}

func TestMaxPossibleMipmap(t *testing.T) {
	tests := []struct {
		params SurfaceParams
		want   uint32
	}{
		{tiled2D(256, 256, 4, FormatABGR8U), 9},
		{tiled2D(300, 20, 4, FormatABGR8U), 10},
		{tiled2D(1, 1, 0, FormatABGR8U), 1},
	}
	for _, tt := range tests {
		if got := tt.params.MaxPossibleMipmap(); got != tt.want {
			t.Errorf("%s MaxPossibleMipmap() = %d, want %d", tt.params, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	good := tiled2D(8, 8, 0, FormatABGR8U)
	if err := good.Validate(); err != nil {
		t.Errorf("Validate(good) = %v", err)
	}
	bad := []SurfaceParams{
		func() SurfaceParams { p := good; p.Format = FormatInvalid; return p }(),
		func() SurfaceParams { p := good; p.Height = 0; return p }(),
		func() SurfaceParams { p := good; p.NumLevels = 0; return p }(),
		linear2D(8, 8, 0, FormatABGR8U),
	}
	for i, p := range bad {
		if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("Validate(bad[%d]) = %v, want %v", i, err, ErrInvalidParams)
		}
	}
}

func TestMatchesTopology(t *testing.T) {
	base := tiled2D(64, 64, 3, FormatABGR8U)
	buffer := linear2D(64, 1, 256, FormatABGR8U)
	buffer.Target = TextureBuffer
	tests := []struct {
		name string
		rhs  SurfaceParams
		want MatchTopologyResult
	}{
		{"same", base, TopologyFullMatch},
		{"sibling width", tiled2D(64, 64, 3, FormatR32F), TopologyFullMatch},
		{"element size", tiled2D(64, 64, 3, FormatRG32F), TopologyNone},
		{"linear", linear2D(64, 64, 256, FormatABGR8U), TopologyNone},
		{"compressed", tiled2D(64, 64, 3, FormatDXT23), TopologyNone},
		{"wider element", tiled2D(64, 64, 3, FormatRGBA32UI), TopologyNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.MatchesTopology(tt.rhs); got != tt.want {
				t.Errorf("MatchesTopology() = %v, want %v", got, tt.want)
			}
		})
	}

	bc := tiled2D(64, 64, 3, FormatDXT23)
	if got := bc.MatchesTopology(tiled2D(16, 16, 3, FormatRGBA32UI)); got != TopologyCompressUnmatch {
		t.Errorf("DXT23 vs RGBA32UI = %v, want %v", got, TopologyCompressUnmatch)
	}
	if got := linear2D(64, 1, 256, FormatABGR8U).MatchesTopology(buffer); got != TopologyNone {
		t.Errorf("linear vs buffer = %v, want %v", got, TopologyNone)
	}
}

func TestMatchesStructure(t *testing.T) {
	base := tiled2D(64, 64, 3, FormatABGR8U)
	tests := []struct {
		name string
		lhs  SurfaceParams
		rhs  SurfaceParams
		want MatchStructureResult
	}{
		{"tiled same", base, base, StructureFullMatch},
		{"tiled width within gob", base, tiled2D(60, 64, 3, FormatABGR8U), StructureSemiMatch},
		{"tiled other block", base, tiled2D(64, 64, 4, FormatABGR8U), StructureNone},
		{"tiled other height", base, tiled2D(64, 32, 3, FormatABGR8U), StructureNone},
		{"linear same", linear2D(16, 16, 64, FormatABGR8U), linear2D(16, 16, 64, FormatABGR8U), StructureFullMatch},
		{"linear width", linear2D(16, 16, 64, FormatABGR8U), linear2D(12, 16, 64, FormatABGR8U), StructureSemiMatch},
		{"linear pitch", linear2D(16, 16, 64, FormatABGR8U), linear2D(16, 16, 128, FormatABGR8U), StructureNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lhs.MatchesStructure(tt.rhs); got != tt.want {
				t.Errorf("MatchesStructure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertExtent(t *testing.T) {
	if got := ConvertWidth(16, FormatRGBA32UI, FormatDXT23); got != 64 {
		t.Errorf("ConvertWidth(16, RGBA32UI, DXT23) = %d, want 64", got)
	}
	if got := ConvertHeight(64, FormatDXT23, FormatRGBA32UI); got != 16 {
		t.Errorf("ConvertHeight(64, DXT23, RGBA32UI) = %d, want 16", got)
	}
	if got := ConvertWidth(7, FormatABGR8U, FormatR32F); got != 7 {
		t.Errorf("ConvertWidth(7, ABGR8U, R32F) = %d, want 7", got)
	}
}

func TestParamsForTextureCube(t *testing.T) {
	desc := TextureDescriptor{
		Address:          testBase,
		Format:           FormatABGR8U,
		Tiled:            true,
		BlockHeight:      3,
		TileWidthSpacing: 1,
		Width:            32,
		Height:           32,
		Depth:            1,
		MaxMipLevel:      2,
	}
	p := ParamsForTexture(desc, SamplerEntry{Type: TextureTypeCube})
	if p.Target != TextureCubemap || !p.Layered {
		t.Errorf("target = %v layered = %v, want layered Cube", p.Target, p.Layered)
	}
	if p.Depth != 6 || p.NumLevels != 3 {
		t.Errorf("depth = %d levels = %d, want 6 and 3", p.Depth, p.NumLevels)
	}
	if p.TileWidthSpacing != 2 {
		t.Errorf("TileWidthSpacing = %d, want 2", p.TileWidthSpacing)
	}
}

func TestParamsForTextureShadow(t *testing.T) {
	desc := TextureDescriptor{Format: FormatR32F, Width: 8, Height: 8, Pitch: 32}
	p := ParamsForTexture(desc, SamplerEntry{Type: TextureType2D, Shadow: true})
	if p.Format != FormatZ32F || p.Type != SurfaceDepth {
		t.Errorf("shadow params = %v %v, want Z32F depth", p.Format, p.Type)
	}
}

func TestParamsForTextureBuffer(t *testing.T) {
	desc := TextureDescriptor{Format: FormatR32F, Width: 1024, Height: 7, Buffer: true}
	p := ParamsForTexture(desc, SamplerEntry{Type: TextureType1D})
	if p.Target != TextureBuffer || p.Height != 1 || p.Pitch != 4096 {
		t.Errorf("buffer params = %s pitch %d, want 1024x1 buffer with pitch 4096", p, p.Pitch)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParamsForImage(t *testing.T) {
	desc := TextureDescriptor{Format: FormatABGR8U, Tiled: true, Width: 16, Height: 16, Depth: 4}
	p := ParamsForImage(desc, ImageType2DArray)
	if p.Target != Texture2DArray || !p.Layered || p.NumLayers() != 4 {
		t.Errorf("image params = %s, want 4 layer 2D array", p)
	}
}

func TestParamsForFramebufferPitch(t *testing.T) {
	p := ParamsForFramebuffer(FramebufferConfig{
		Address: testBase,
		Width:   1280 * 4,
		Height:  720,
		Format:  FormatABGR8U,
		Layout:  LayoutPitch,
	})
	if p.Tiled || p.Pitch != 5120 || p.Width != 1280 {
		t.Errorf("pitch framebuffer = %s pitch %d, want 1280 wide linear", p, p.Pitch)
	}
}

func TestParamsForDepthBufferClampsBlocks(t *testing.T) {
	p := ParamsForDepthBuffer(DepthBufferConfig{
		Width:       640,
		Height:      480,
		Format:      FormatZ24S8,
		BlockHeight: 9,
	})
	if p.BlockHeight != maxBlockShift || !p.Tiled || p.Type != SurfaceDepthStencil {
		t.Errorf("depth params = %s type %v", p, p.Type)
	}
}

func TestParamsForFermiSurfaceLinear(t *testing.T) {
	p := ParamsForFermiSurface(FermiSurface{Format: FormatABGR8U, Linear: true, BlockHeight: 4, Width: 8, Height: 8, Pitch: 32})
	if p.Tiled || p.BlockHeight != 0 || p.Pitch != 32 {
		t.Errorf("linear fermi params = %s", p)
	}
}
