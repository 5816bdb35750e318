// Package regs holds the render target registers of the guest 3D engine.
//
// A Table implements texcache.RenderTargetState: the command processor
// writes render target configurations into it and the cache reads them
// back the next time a slot is resolved.
package regs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/texcache"
)

// ErrSlot is returned for a color target index outside
// [0, texcache.NumRenderTargets).
var ErrSlot = errors.New("regs: render target index out of range")

type slot struct {
	addr    texcache.GPUVAddr
	params  texcache.SurfaceParams
	enabled bool
	dirty   bool
}

// Table is the render target register file. The zero value has every slot
// disabled. A Table is safe for concurrent use.
type Table struct {
	mu    sync.Mutex
	slots [texcache.NumRenderTargets + 1]slot
}

// New returns a table with every slot disabled and dirty, so the first
// resolve of each slot reads the registers.
func New() *Table {
	t := &Table{}
	t.MarkAllDirty()
	return t
}

// SetColor configures a color render target. The slot only becomes dirty
// when its configuration changes.
func (t *Table) SetColor(index int, cfg texcache.FramebufferConfig) error {
	if index < 0 || index >= texcache.NumRenderTargets {
		return fmt.Errorf("%w: %d", ErrSlot, index)
	}
	t.set(index, cfg.Address, texcache.ParamsForFramebuffer(cfg), true)
	return nil
}

// SetDepth configures the depth render target.
func (t *Table) SetDepth(cfg texcache.DepthBufferConfig) {
	t.set(texcache.DepthSlot, cfg.Address, texcache.ParamsForDepthBuffer(cfg), true)
}

// DisableColor disables a color render target.
func (t *Table) DisableColor(index int) error {
	if index < 0 || index >= texcache.NumRenderTargets {
		return fmt.Errorf("%w: %d", ErrSlot, index)
	}
	t.set(index, 0, texcache.SurfaceParams{}, false)
	return nil
}

// DisableDepth disables the depth render target.
func (t *Table) DisableDepth() {
	t.set(texcache.DepthSlot, 0, texcache.SurfaceParams{}, false)
}

func (t *Table) set(i int, addr texcache.GPUVAddr, params texcache.SurfaceParams, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.slots[i]
	if s.addr == addr && s.params == params && s.enabled == enabled {
		return
	}
	*s = slot{addr: addr, params: params, enabled: enabled, dirty: true}
}

// MarkAllDirty forces every slot to be resolved again.
func (t *Table) MarkAllDirty() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		t.slots[i].dirty = true
	}
}

// Dirty reports whether a slot changed since the cache last resolved it.
// Slots outside the table are never dirty.
func (t *Table) Dirty(i int) bool {
	if i < 0 || i >= len(t.slots) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[i].dirty
}

// SetDirty sets the dirty flag of a slot.
func (t *Table) SetDirty(i int, dirty bool) {
	if i < 0 || i >= len(t.slots) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[i].dirty = dirty
}

// RenderTarget returns the configuration of a slot, or false when the slot
// is disabled.
func (t *Table) RenderTarget(i int) (texcache.GPUVAddr, texcache.SurfaceParams, bool) {
	if i < 0 || i >= len(t.slots) {
		return 0, texcache.SurfaceParams{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.slots[i]
	return s.addr, s.params, s.enabled
}

var _ texcache.RenderTargetState = (*Table)(nil)
