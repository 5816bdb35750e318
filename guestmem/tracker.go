package guestmem

import (
	"sync"

	"github.com/gogpu/texcache"
)

// PageTracker counts how many cached surfaces back each CPU page.
// It implements texcache.Rasterizer and is safe for concurrent use.
type PageTracker struct {
	mu     sync.Mutex
	counts map[uint64]int
}

// NewPageTracker creates an empty tracker.
func NewPageTracker() *PageTracker {
	return &PageTracker{counts: make(map[uint64]int)}
}

// NotifyPagesCached adds delta to every page in [cpuAddr, cpuAddr+size).
func (t *PageTracker) NotifyPagesCached(cpuAddr texcache.VAddr, size uint64, delta int) {
	if size == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	first := uint64(cpuAddr) >> PageBits
	last := (uint64(cpuAddr) + size - 1) >> PageBits
	for page := first; page <= last; page++ {
		n := t.counts[page] + delta
		switch {
		case n > 0:
			t.counts[page] = n
		case n == 0:
			delete(t.counts, page)
		default:
			texcache.Logger().Warn("guestmem: page cache count below zero",
				"page", page<<PageBits, "count", n)
			delete(t.counts, page)
		}
	}
}

// Count returns the cache count of the page containing cpuAddr.
func (t *PageTracker) Count(cpuAddr texcache.VAddr) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[uint64(cpuAddr)>>PageBits]
}

// Cached reports whether any page of [cpuAddr, cpuAddr+size) is cached.
func (t *PageTracker) Cached(cpuAddr texcache.VAddr, size uint64) bool {
	if size == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	first := uint64(cpuAddr) >> PageBits
	last := (uint64(cpuAddr) + size - 1) >> PageBits
	for page := first; page <= last; page++ {
		if t.counts[page] > 0 {
			return true
		}
	}
	return false
}

// Pages returns the number of cached pages.
func (t *PageTracker) Pages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}
