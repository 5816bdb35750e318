package texcache

import "testing"

func arrayParams(layers, levels uint32) SurfaceParams {
	p := tiled2D(64, 64, 3, FormatABGR8U)
	p.Target = Texture2DArray
	p.Layered = true
	p.Depth = layers
	p.NumLevels = levels
	return p
}

func TestLocateMip(t *testing.T) {
	p := arrayParams(3, 2)
	s := placed(t, 0, p)
	layerSize := p.GuestLayerSize()
	level1 := p.GuestMipOffset(1)

	tests := []struct {
		name   string
		addr   GPUVAddr
		layer  uint32
		level  uint32
		wantOK bool
	}{
		{"base", 0, 0, 0, true},
		{"level 1", GPUVAddr(level1), 0, 1, true},
		{"layer 2", GPUVAddr(2 * layerSize), 2, 0, true},
		{"layer 1 level 1", GPUVAddr(layerSize + level1), 1, 1, true},
		{"mid level", GPUVAddr(level1 + 64), 0, 0, false},
		{"past end", GPUVAddr(3 * layerSize), 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer, level, ok := s.LocateMip(tt.addr)
			if ok != tt.wantOK || layer != tt.layer || level != tt.level {
				t.Errorf("LocateMip(0x%x) = %d, %d, %v, want %d, %d, %v",
					uint64(tt.addr), layer, level, ok, tt.layer, tt.level, tt.wantOK)
			}
		})
	}
}

func TestBreakDownLayered(t *testing.T) {
	src := placed(t, 0, arrayParams(3, 2))
	dst := arrayParams(2, 3)
	regions := src.BreakDown(dst)
	if len(regions) != 4 {
		t.Fatalf("BreakDown() = %d regions, want 4", len(regions))
	}
	last := regions[3]
	if last.SrcZ != 1 || last.DstZ != 1 || last.SrcLevel != 1 || last.Width != 32 || last.Depth != 1 {
		t.Errorf("last region = %+v, want layer 1 level 1 of 32 pixels", last)
	}
}

func TestBreakDownVolume(t *testing.T) {
	p := tiled2D(32, 32, 0, FormatABGR8U)
	p.Target = Texture3D
	p.Depth = 8
	p.NumLevels = 2
	regions := placed(t, 0, p).BreakDown(p)
	if len(regions) != 2 {
		t.Fatalf("BreakDown() = %d regions, want 2", len(regions))
	}
	if regions[0].Depth != 8 || regions[1].Depth != 4 {
		t.Errorf("depths = %d, %d, want 8, 4", regions[0].Depth, regions[1].Depth)
	}
}

func TestEmplaceView(t *testing.T) {
	p := arrayParams(3, 1)
	s := placed(t, 0, p)
	layer := tiled2D(64, 64, 3, FormatABGR8U)

	v, err := s.EmplaceView(layer, GPUVAddr(p.GuestLayerSize()), p.GuestMipSize(0))
	if err != nil || v == nil {
		t.Fatalf("EmplaceView(layer 1) = %v, %v", v, err)
	}
	want := ViewParams{Target: Texture2D, BaseLayer: 1, NumLayers: 1, NumLevels: 1}
	if v.Params() != want {
		t.Errorf("view params = %+v, want %+v", v.Params(), want)
	}
	again, _ := s.EmplaceView(layer, GPUVAddr(p.GuestLayerSize()), p.GuestMipSize(0))
	if again != v {
		t.Error("EmplaceView() did not reuse the view")
	}

	if v, _ := s.EmplaceView(layer, GPUVAddr(p.GuestLayerSize()), 512); v != nil {
		t.Error("EmplaceView() with mismatched size returned a view")
	}
}

func TestEmplaceViewSingleLevel(t *testing.T) {
	s := placed(t, 0, tiled2D(64, 64, 3, FormatABGR8U))
	if v, _ := s.EmplaceView(s.params, 0, s.guestSize); v != nil {
		t.Error("EmplaceView() on a single level surface returned a view")
	}
}

func TestEmplaceOverview(t *testing.T) {
	s := placed(t, 0, arrayParams(4, 2))
	v, err := s.EmplaceOverview(tiled2D(64, 64, 3, FormatABGR8U))
	if err != nil {
		t.Fatal(err)
	}
	want := ViewParams{Target: Texture2D, NumLayers: 1, NumLevels: 2}
	if v.Params() != want {
		t.Errorf("overview = %+v, want %+v", v.Params(), want)
	}
	if v.Surface() != s {
		t.Error("overview does not belong to its surface")
	}
}

func TestSurfaceRangeChecks(t *testing.T) {
	s := placed(t, 0x1000, linear2D(16, 16, 64, FormatABGR8U))
	if !s.Contains(0x1000, 0x1400) {
		t.Error("Contains(whole) = false")
	}
	if s.Contains(0x1000, 0x1401) {
		t.Error("Contains(past end) = true")
	}
	if !s.Overlaps(0x13FF, 0x1500) || s.Overlaps(0x1400, 0x1500) {
		t.Error("Overlaps() does not treat the end as exclusive")
	}
}

func TestDestroyOnce(t *testing.T) {
	host := &fakeSurface{}
	s, err := newSurface(0, tiled2D(8, 8, 0, FormatABGR8U), host)
	if err != nil {
		t.Fatal(err)
	}
	s.destroy()
	host.destroyed = false
	s.destroy()
	if host.destroyed {
		t.Error("host destroyed twice")
	}
}
