package texcache

// load fills s from guest memory through the staging buffers.
func (c *Cache) load(s *Surface) error {
	guest := c.staging.Buffer(stagingGuest, s.guestSize)
	if err := c.memory.ReadBlock(s.gpuAddr, guest); err != nil {
		return &TransferError{Op: "load", GPUAddr: s.gpuAddr, Err: err}
	}
	host := c.staging.Buffer(stagingHost, s.hostSize)
	s.params.guestToHost(host, guest, c.pool)
	if err := s.host.Upload(host); err != nil {
		return &TransferError{Op: "load", GPUAddr: s.gpuAddr, Err: err}
	}
	s.markModified(false, c.tick())
	c.stats.loads++
	return nil
}

// flush writes a modified surface back to guest memory. Unmodified surfaces
// are skipped.
func (c *Cache) flush(s *Surface) error {
	if !s.modified {
		return nil
	}
	host := c.staging.Buffer(stagingHost, s.hostSize)
	if err := s.host.Download(host); err != nil {
		return &TransferError{Op: "flush", GPUAddr: s.gpuAddr, Err: err}
	}
	// Padding between rows and blocks keeps its guest contents.
	guest := c.staging.Buffer(stagingGuest, s.guestSize)
	if err := c.memory.ReadBlock(s.gpuAddr, guest); err != nil {
		return &TransferError{Op: "flush", GPUAddr: s.gpuAddr, Err: err}
	}
	s.params.hostToGuest(guest, host, c.pool)
	if err := c.memory.WriteBlock(s.gpuAddr, guest); err != nil {
		return &TransferError{Op: "flush", GPUAddr: s.gpuAddr, Err: err}
	}
	s.markModified(false, c.tick())
	c.stats.flushes++
	return nil
}
