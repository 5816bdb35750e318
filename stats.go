package texcache

// counters accumulates event counts while the cache lock is held.
type counters struct {
	created           uint64
	loads             uint64
	flushes           uint64
	rebuilds          uint64
	reconstructions   uint64
	recycleIgnore     uint64
	recycleFlush      uint64
	recycleBufferCopy uint64
	blits             uint64
}

// Stats is a snapshot of cache occupancy and activity.
type Stats struct {
	Registered        int    `json:"registered"`
	Reserved          int    `json:"reserved"`
	Buckets           int    `json:"buckets"`
	Placeholders      int    `json:"placeholders"`
	ReserveEvictions  uint64 `json:"reserve_evictions"`
	Created           uint64 `json:"created"`
	Loads             uint64 `json:"loads"`
	Flushes           uint64 `json:"flushes"`
	Rebuilds          uint64 `json:"rebuilds"`
	Reconstructions   uint64 `json:"reconstructions"`
	RecycleIgnore     uint64 `json:"recycle_ignore"`
	RecycleFlush      uint64 `json:"recycle_flush"`
	RecycleBufferCopy uint64 `json:"recycle_buffer_copy"`
	Blits             uint64 `json:"blits"`
	Ticks             uint64 `json:"ticks"`
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.lock()
	defer c.unlock()
	return Stats{
		Registered:        c.registry.count,
		Reserved:          c.reserve.len(),
		Buckets:           len(c.registry.pages),
		Placeholders:      len(c.dummies),
		ReserveEvictions:  c.reserve.evictions,
		Created:           c.stats.created,
		Loads:             c.stats.loads,
		Flushes:           c.stats.flushes,
		Rebuilds:          c.stats.rebuilds,
		Reconstructions:   c.stats.reconstructions,
		RecycleIgnore:     c.stats.recycleIgnore,
		RecycleFlush:      c.stats.recycleFlush,
		RecycleBufferCopy: c.stats.recycleBufferCopy,
		Blits:             c.stats.blits,
		Ticks:             c.ticks,
	}
}
