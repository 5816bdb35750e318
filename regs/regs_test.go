package regs

import (
	"errors"
	"testing"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend/soft"
	"github.com/gogpu/texcache/guestmem"
)

func colorConfig(addr texcache.GPUVAddr) texcache.FramebufferConfig {
	return texcache.FramebufferConfig{
		Address:     addr,
		Width:       64,
		Height:      64,
		Format:      texcache.FormatABGR8U,
		Layout:      texcache.LayoutBlockLinear,
		BlockHeight: 3,
	}
}

func TestNewTableIsDirty(t *testing.T) {
	tbl := New()
	for i := 0; i <= texcache.DepthSlot; i++ {
		if !tbl.Dirty(i) {
			t.Errorf("Dirty(%d) = false on a new table", i)
		}
		if _, _, ok := tbl.RenderTarget(i); ok {
			t.Errorf("RenderTarget(%d) enabled on a new table", i)
		}
	}
}

func TestSetColor(t *testing.T) {
	tbl := New()
	tbl.SetDirty(2, false)

	cfg := colorConfig(0x10_0000)
	if err := tbl.SetColor(2, cfg); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}
	if !tbl.Dirty(2) {
		t.Error("SetColor() did not mark the slot dirty")
	}
	addr, params, ok := tbl.RenderTarget(2)
	if !ok || addr != 0x10_0000 || params != texcache.ParamsForFramebuffer(cfg) {
		t.Errorf("RenderTarget(2) = 0x%x, %v, %v", uint64(addr), params, ok)
	}

	// Writing the same configuration again is not a change.
	tbl.SetDirty(2, false)
	if err := tbl.SetColor(2, cfg); err != nil {
		t.Fatal(err)
	}
	if tbl.Dirty(2) {
		t.Error("unchanged SetColor() marked the slot dirty")
	}

	if err := tbl.DisableColor(2); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := tbl.RenderTarget(2); ok || !tbl.Dirty(2) {
		t.Errorf("DisableColor() left slot enabled=%v dirty=%v", ok, tbl.Dirty(2))
	}
}

func TestSlotRange(t *testing.T) {
	tbl := New()
	for _, i := range []int{-1, texcache.NumRenderTargets} {
		if err := tbl.SetColor(i, colorConfig(0x1000)); !errors.Is(err, ErrSlot) {
			t.Errorf("SetColor(%d) error = %v, want %v", i, err, ErrSlot)
		}
		if err := tbl.DisableColor(i); !errors.Is(err, ErrSlot) {
			t.Errorf("DisableColor(%d) error = %v, want %v", i, err, ErrSlot)
		}
	}
	if tbl.Dirty(-1) || tbl.Dirty(texcache.DepthSlot+1) {
		t.Error("out of range slot reported dirty")
	}
	tbl.SetDirty(99, true)
}

func TestDepth(t *testing.T) {
	tbl := New()
	cfg := texcache.DepthBufferConfig{
		Address: 0x20_0000,
		Width:   32,
		Height:  32,
		Format:  texcache.FormatZ24S8,
	}
	tbl.SetDepth(cfg)
	_, params, ok := tbl.RenderTarget(texcache.DepthSlot)
	if !ok || params.Type != texcache.SurfaceDepthStencil {
		t.Errorf("depth slot = %v, %v", params, ok)
	}
	tbl.DisableDepth()
	if _, _, ok := tbl.RenderTarget(texcache.DepthSlot); ok {
		t.Error("DisableDepth() left the slot enabled")
	}
}

func TestMarkAllDirty(t *testing.T) {
	tbl := New()
	for i := 0; i <= texcache.DepthSlot; i++ {
		tbl.SetDirty(i, false)
	}
	tbl.MarkAllDirty()
	if !tbl.Dirty(0) || !tbl.Dirty(texcache.DepthSlot) {
		t.Error("MarkAllDirty() missed a slot")
	}
}

// The cache resolves a slot only after the table marks it dirty.
func TestTableDrivesCache(t *testing.T) {
	m := guestmem.New()
	if err := m.Map(0x10_0000, 0x8_0000, 16*guestmem.PageSize); err != nil {
		t.Fatal(err)
	}
	b := soft.New()
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	tbl := New()
	c, err := texcache.New(b, m, m.Tracker(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if v, err := c.GetColorBufferSurface(0, true); err != nil || v != nil {
		t.Fatalf("GetColorBufferSurface(disabled) = %v, %v, want nil view", v, err)
	}

	if err := tbl.SetColor(0, colorConfig(0x10_0000)); err != nil {
		t.Fatal(err)
	}
	v, err := c.GetColorBufferSurface(0, true)
	if err != nil || v == nil {
		t.Fatalf("GetColorBufferSurface() = %v, %v", v, err)
	}
	if tbl.Dirty(0) {
		t.Error("cache did not clear the dirty flag")
	}
	again, err := c.GetColorBufferSurface(0, true)
	if err != nil || again != v {
		t.Errorf("clean slot resolved to %v, want %v", again, v)
	}
	if got := m.Tracker().Count(0x8_0000); got != 1 {
		t.Errorf("tracked count = %d, want 1", got)
	}
}
