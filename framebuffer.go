package texcache

import "fmt"

// GetColorBufferSurface returns the view bound to a color render target.
// The slot is resolved again only when its dirty flag is set; a disabled
// slot yields a nil view.
func (c *Cache) GetColorBufferSurface(index int, preserveContents bool) (*View, error) {
	if index < 0 || index >= NumRenderTargets {
		return nil, fmt.Errorf("%w: %d", ErrRenderTargetIndex, index)
	}
	c.lock()
	defer c.unlock()
	return c.resolveSlot(index, preserveContents)
}

// GetDepthBufferSurface returns the view bound to the depth render target.
func (c *Cache) GetDepthBufferSurface(preserveContents bool) (*View, error) {
	c.lock()
	defer c.unlock()
	return c.resolveSlot(DepthSlot, preserveContents)
}

// MarkColorBufferInUse stamps the surface of a color slot as modified.
func (c *Cache) MarkColorBufferInUse(index int) error {
	if index < 0 || index >= NumRenderTargets {
		return fmt.Errorf("%w: %d", ErrRenderTargetIndex, index)
	}
	c.lock()
	defer c.unlock()
	c.markSlotInUse(index)
	return nil
}

// MarkDepthBufferInUse stamps the surface of the depth slot as modified.
func (c *Cache) MarkDepthBufferInUse() {
	c.lock()
	defer c.unlock()
	c.markSlotInUse(DepthSlot)
}

// SetEmptyColorBuffer unbinds a color slot.
func (c *Cache) SetEmptyColorBuffer(index int) error {
	if index < 0 || index >= NumRenderTargets {
		return fmt.Errorf("%w: %d", ErrRenderTargetIndex, index)
	}
	c.lock()
	defer c.unlock()
	c.setEmptySlot(index)
	return nil
}

// SetEmptyDepthBuffer unbinds the depth slot.
func (c *Cache) SetEmptyDepthBuffer() {
	c.lock()
	defer c.unlock()
	c.setEmptySlot(DepthSlot)
}

func (c *Cache) resolveSlot(slot int, preserve bool) (*View, error) {
	fb := &c.slots[slot]
	if c.targets == nil || !c.targets.Dirty(slot) {
		return fb.view, nil
	}
	c.targets.SetDirty(slot, false)

	gpuAddr, params, ok := c.targets.RenderTarget(slot)
	if !ok || gpuAddr == 0 || params.Validate() != nil {
		c.setEmptySlot(slot)
		return nil, nil
	}
	s, v, err := c.getSurface(gpuAddr, params, preserve, true)
	if err != nil {
		c.targets.SetDirty(slot, true)
		return nil, err
	}
	if fb.surface != nil {
		fb.surface.markRenderTarget(false, NoRenderTarget)
	}
	fb.surface, fb.view = s, v
	s.markRenderTarget(true, uint32(slot))
	return v, nil
}

func (c *Cache) markSlotInUse(slot int) {
	if s := c.slots[slot].surface; s != nil {
		s.markModified(true, c.tick())
	}
}

func (c *Cache) setEmptySlot(slot int) {
	fb := &c.slots[slot]
	if fb.surface == nil {
		return
	}
	fb.surface.markRenderTarget(false, NoRenderTarget)
	*fb = framebufferSlot{}
}
