package texcache

// Staging slots used for guest transfers.
const (
	stagingHost  = 0 // host layout
	stagingGuest = 1 // guest layout
)

// StagingCache holds reusable scratch buffers indexed by slot. Buffers grow
// on demand and are never shrunk.
type StagingCache struct {
	buffers [][]byte
}

// SetSize sets the number of slots. Existing buffers within the new size
// are kept.
func (c *StagingCache) SetSize(n int) {
	if n < len(c.buffers) {
		c.buffers = c.buffers[:n]
		return
	}
	for len(c.buffers) < n {
		c.buffers = append(c.buffers, nil)
	}
}

// Size returns the number of slots.
func (c *StagingCache) Size() int {
	return len(c.buffers)
}

// Buffer returns the buffer of slot resized to size bytes. The contents are
// unspecified. Slots beyond Size are added as needed.
func (c *StagingCache) Buffer(slot int, size uint64) []byte {
	if slot >= len(c.buffers) {
		c.SetSize(slot + 1)
	}
	buf := c.buffers[slot]
	if uint64(cap(buf)) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	c.buffers[slot] = buf
	return buf
}
