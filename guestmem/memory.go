// Package guestmem provides a sparse guest memory with a GPU page table.
//
// Memory implements texcache.GuestMemory. CPU writes to pages that back
// cached surfaces are reported through a write watch, which is how a cache
// learns that guest code overwrote texture memory.
package guestmem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/texcache"
)

// Page geometry of the GPU page table and the CPU backing store.
const (
	PageBits = 12
	PageSize = 1 << PageBits
	pageMask = PageSize - 1
)

// HostBase offsets CPU addresses into cache addresses so that no mapped
// address translates to zero.
const HostBase texcache.CacheAddr = 1 << 40

// Sentinel errors for guestmem package.
var (
	// ErrUnaligned is returned when a mapping is not page aligned.
	ErrUnaligned = errors.New("guestmem: mapping is not page aligned")

	// ErrUnmapped is returned when an access touches an unmapped GPU page.
	ErrUnmapped = errors.New("guestmem: access to unmapped address")
)

// WriteWatch is called after a CPU write touches pages backing cached
// surfaces. It runs without any Memory lock held.
type WriteWatch func(addr texcache.CacheAddr, size uint64)

// Memory is a guest address space. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	gpu     map[uint64]texcache.VAddr // GPU page -> CPU page address
	cpu     map[uint64][]byte         // CPU page -> backing bytes
	tracker *PageTracker
	watch   WriteWatch
}

// New creates an empty address space.
func New() *Memory {
	return &Memory{
		gpu:     make(map[uint64]texcache.VAddr),
		cpu:     make(map[uint64][]byte),
		tracker: NewPageTracker(),
	}
}

// Tracker returns the page tracker to pass to texcache.New as rasterizer.
func (m *Memory) Tracker() *PageTracker {
	return m.tracker
}

// SetWriteWatch installs the callback for CPU writes to cached pages.
func (m *Memory) SetWriteWatch(w WriteWatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watch = w
}

// Map maps [gpuAddr, gpuAddr+size) onto CPU memory at cpuAddr.
func (m *Memory) Map(gpuAddr texcache.GPUVAddr, cpuAddr texcache.VAddr, size uint64) error {
	if uint64(gpuAddr)&pageMask != 0 || uint64(cpuAddr)&pageMask != 0 || size&pageMask != 0 {
		return fmt.Errorf("%w: gpu 0x%x cpu 0x%x size 0x%x", ErrUnaligned, uint64(gpuAddr), uint64(cpuAddr), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for off := uint64(0); off < size; off += PageSize {
		m.gpu[(uint64(gpuAddr)+off)>>PageBits] = cpuAddr + texcache.VAddr(off)
	}
	texcache.Logger().Debug("guestmem: mapped",
		"gpu_addr", uint64(gpuAddr), "cpu_addr", uint64(cpuAddr), "size", size)
	return nil
}

// Unmap removes the GPU mapping of [gpuAddr, gpuAddr+size). CPU memory is kept.
func (m *Memory) Unmap(gpuAddr texcache.GPUVAddr, size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	first := uint64(gpuAddr) >> PageBits
	last := (uint64(gpuAddr) + size + pageMask) >> PageBits
	for page := first; page < last; page++ {
		delete(m.gpu, page)
	}
}

// GpuToCpuAddress returns the CPU address backing gpuAddr.
func (m *Memory) GpuToCpuAddress(gpuAddr texcache.GPUVAddr) (texcache.VAddr, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gpuToCPU(gpuAddr)
}

func (m *Memory) gpuToCPU(gpuAddr texcache.GPUVAddr) (texcache.VAddr, bool) {
	base, ok := m.gpu[uint64(gpuAddr)>>PageBits]
	if !ok {
		return 0, false
	}
	return base + texcache.VAddr(uint64(gpuAddr)&pageMask), true
}

// Translate returns the cache address of gpuAddr.
func (m *Memory) Translate(gpuAddr texcache.GPUVAddr) (texcache.CacheAddr, bool) {
	cpuAddr, ok := m.GpuToCpuAddress(gpuAddr)
	if !ok {
		return 0, false
	}
	return CacheAddrOf(cpuAddr), true
}

// CacheAddrOf returns the cache address of a CPU address.
func CacheAddrOf(cpuAddr texcache.VAddr) texcache.CacheAddr {
	return HostBase + texcache.CacheAddr(cpuAddr)
}

// IsRangeContiguous reports whether the GPU range maps to consecutive CPU pages.
func (m *Memory) IsRangeContiguous(gpuAddr texcache.GPUVAddr, size uint64) bool {
	if size == 0 {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	start, ok := m.gpuToCPU(gpuAddr)
	if !ok {
		return false
	}
	first := uint64(gpuAddr) >> PageBits
	last := (uint64(gpuAddr) + size - 1) >> PageBits
	for page := first + 1; page <= last; page++ {
		cpu, ok := m.gpu[page]
		want := start&^pageMask + texcache.VAddr((page-first)<<PageBits)
		if !ok || cpu != want {
			return false
		}
	}
	return true
}

// ReadBlock reads guest memory at gpuAddr into dst.
func (m *Memory) ReadBlock(gpuAddr texcache.GPUVAddr, dst []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.walk(gpuAddr, uint64(len(dst)), func(cpuAddr texcache.VAddr, off, n uint64) {
		m.readCPU(cpuAddr, dst[off:off+n])
	})
}

// WriteBlock writes src to guest memory at gpuAddr. GPU writes do not
// trigger the write watch.
func (m *Memory) WriteBlock(gpuAddr texcache.GPUVAddr, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walk(gpuAddr, uint64(len(src)), func(cpuAddr texcache.VAddr, off, n uint64) {
		m.writeCPU(cpuAddr, src[off:off+n])
	})
}

// walk splits a GPU range at page boundaries.
func (m *Memory) walk(gpuAddr texcache.GPUVAddr, size uint64, fn func(cpuAddr texcache.VAddr, off, n uint64)) error {
	for off := uint64(0); off < size; {
		addr := gpuAddr + texcache.GPUVAddr(off)
		cpuAddr, ok := m.gpuToCPU(addr)
		if !ok {
			return fmt.Errorf("%w: gpu 0x%x", ErrUnmapped, uint64(addr))
		}
		n := min(PageSize-uint64(addr)&pageMask, size-off)
		fn(cpuAddr, off, n)
		off += n
	}
	return nil
}

// ReadCPU reads CPU memory. Unwritten memory reads as zero.
func (m *Memory) ReadCPU(cpuAddr texcache.VAddr, dst []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.readCPU(cpuAddr, dst)
}

// WriteCPU writes CPU memory and reports the write to the write watch when
// it touches cached pages.
func (m *Memory) WriteCPU(cpuAddr texcache.VAddr, src []byte) {
	m.mu.Lock()
	m.writeCPU(cpuAddr, src)
	watch := m.watch
	m.mu.Unlock()

	size := uint64(len(src))
	if watch != nil && m.tracker.Cached(cpuAddr, size) {
		watch(CacheAddrOf(cpuAddr), size)
	}
}

func (m *Memory) readCPU(cpuAddr texcache.VAddr, dst []byte) {
	for off := 0; off < len(dst); {
		addr := uint64(cpuAddr) + uint64(off)
		page := m.cpu[addr>>PageBits]
		n := min(PageSize-int(addr&pageMask), len(dst)-off)
		if page == nil {
			clear(dst[off : off+n])
		} else {
			copy(dst[off:off+n], page[addr&pageMask:])
		}
		off += n
	}
}

func (m *Memory) writeCPU(cpuAddr texcache.VAddr, src []byte) {
	for off := 0; off < len(src); {
		addr := uint64(cpuAddr) + uint64(off)
		key := addr >> PageBits
		page := m.cpu[key]
		if page == nil {
			page = make([]byte, PageSize)
			m.cpu[key] = page
		}
		n := copy(page[addr&pageMask:], src[off:])
		off += n
	}
}
