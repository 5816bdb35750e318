package texcache

import (
	"errors"
	"fmt"
	"testing"
)

// testBase is the first mapped guest address of fakeMemory.
const testBase GPUVAddr = 0x1000_0000

// testCacheOffset separates cache addresses from GPU addresses so tests
// notice when one is used in place of the other.
const testCacheOffset = 0x4000_0000_0000

var errFake = errors.New("fake failure")

// fakeMemory maps [testBase, testBase+len(data)) one to one onto CPU memory.
type fakeMemory struct {
	data      []byte
	failRead  bool
	failWrite bool
	noCPU     bool
	writes    []GPUVAddr
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) mapped(gpuAddr GPUVAddr) bool {
	return gpuAddr >= testBase && gpuAddr < testBase+GPUVAddr(len(m.data))
}

func (m *fakeMemory) Translate(gpuAddr GPUVAddr) (CacheAddr, bool) {
	if !m.mapped(gpuAddr) {
		return 0, false
	}
	return CacheAddr(gpuAddr) + testCacheOffset, true
}

func (m *fakeMemory) GpuToCpuAddress(gpuAddr GPUVAddr) (VAddr, bool) {
	if m.noCPU || !m.mapped(gpuAddr) {
		return 0, false
	}
	return VAddr(gpuAddr), true
}

func (m *fakeMemory) IsRangeContiguous(gpuAddr GPUVAddr, size uint64) bool {
	return m.mapped(gpuAddr) && m.mapped(gpuAddr+GPUVAddr(size)-1)
}

func (m *fakeMemory) slice(gpuAddr GPUVAddr, n int) ([]byte, error) {
	if !m.IsRangeContiguous(gpuAddr, uint64(n)) {
		return nil, fmt.Errorf("unmapped 0x%x", uint64(gpuAddr))
	}
	off := int(gpuAddr - testBase)
	return m.data[off : off+n], nil
}

func (m *fakeMemory) ReadBlock(gpuAddr GPUVAddr, dst []byte) error {
	if m.failRead {
		return errFake
	}
	src, err := m.slice(gpuAddr, len(dst))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

func (m *fakeMemory) WriteBlock(gpuAddr GPUVAddr, src []byte) error {
	if m.failWrite {
		return errFake
	}
	dst, err := m.slice(gpuAddr, len(src))
	if err != nil {
		return err
	}
	copy(dst, src)
	m.writes = append(m.writes, gpuAddr)
	return nil
}

// fakeBackend records every operation performed on it.
type fakeBackend struct {
	created     []*fakeSurface
	imageCopies []CopyParams
	bufferCopy  int
	blits       int
	failCreate  bool
	failCopy    bool
}

type fakeSurface struct {
	params    SurfaceParams
	data      []byte
	views     []ViewParams
	uploads   int
	destroyed bool
}

func (b *fakeBackend) CreateSurface(_ GPUVAddr, params SurfaceParams) (HostSurface, error) {
	if b.failCreate {
		return nil, errFake
	}
	s := &fakeSurface{params: params, data: make([]byte, params.HostSizeInBytes())}
	b.created = append(b.created, s)
	return s, nil
}

func (b *fakeBackend) ImageCopy(_, _ HostSurface, region CopyParams) error {
	if b.failCopy {
		return errFake
	}
	b.imageCopies = append(b.imageCopies, region)
	return nil
}

func (b *fakeBackend) ImageBlit(_, _ *View, _ BlitConfig) error {
	b.blits++
	return nil
}

func (b *fakeBackend) BufferCopy(src, dst HostSurface) error {
	if b.failCopy {
		return errFake
	}
	copy(dst.(*fakeSurface).data, src.(*fakeSurface).data)
	b.bufferCopy++
	return nil
}

func (s *fakeSurface) Upload(data []byte) error {
	copy(s.data, data)
	s.uploads++
	return nil
}

func (s *fakeSurface) Download(data []byte) error {
	if s.destroyed {
		return errFake
	}
	copy(data, s.data)
	return nil
}

func (s *fakeSurface) CreateView(desc ViewParams) (HostView, error) {
	s.views = append(s.views, desc)
	return desc, nil
}

func (s *fakeSurface) Destroy() {
	s.destroyed = true
}

// fakeTargets is a RenderTargetState with settable slots.
type fakeTargets struct {
	dirty   [numSlots]bool
	addrs   [numSlots]GPUVAddr
	params  [numSlots]SurfaceParams
	enabled [numSlots]bool
}

func (t *fakeTargets) bind(slot int, addr GPUVAddr, params SurfaceParams) {
	t.addrs[slot] = addr
	t.params[slot] = params
	t.enabled[slot] = true
	t.dirty[slot] = true
}

func (t *fakeTargets) Dirty(slot int) bool           { return t.dirty[slot] }
func (t *fakeTargets) SetDirty(slot int, dirty bool) { t.dirty[slot] = dirty }

func (t *fakeTargets) RenderTarget(slot int) (GPUVAddr, SurfaceParams, bool) {
	return t.addrs[slot], t.params[slot], t.enabled[slot]
}

// countingRasterizer sums page notifications per CPU address.
type countingRasterizer struct {
	counts map[VAddr]int
	calls  int
	hook   func()
}

func newCountingRasterizer() *countingRasterizer {
	return &countingRasterizer{counts: make(map[VAddr]int)}
}

func (r *countingRasterizer) NotifyPagesCached(cpuAddr VAddr, _ uint64, delta int) {
	r.counts[cpuAddr] += delta
	r.calls++
	if r.hook != nil {
		r.hook()
	}
}

// tiled2D returns block-linear 2D params.
func tiled2D(w, h, blockHeight uint32, format PixelFormat) SurfaceParams {
	return SurfaceParams{
		Tiled:            true,
		BlockHeight:      blockHeight,
		TileWidthSpacing: 1,
		Width:            w,
		Height:           h,
		Depth:            1,
		NumLevels:        1,
		Format:           format,
		ComponentType:    format.Component(),
		Type:             format.Type(),
		Target:           Texture2D,
	}
}

// linear2D returns pitch-linear 2D params.
func linear2D(w, h, pitch uint32, format PixelFormat) SurfaceParams {
	return SurfaceParams{
		TileWidthSpacing: 1,
		Width:            w,
		Height:           h,
		Depth:            1,
		Pitch:            pitch,
		NumLevels:        1,
		Format:           format,
		ComponentType:    format.Component(),
		Type:             format.Type(),
		Target:           Texture2D,
	}
}

type testEnv struct {
	cache   *Cache
	backend *fakeBackend
	memory  *fakeMemory
	targets *fakeTargets
	raster  *countingRasterizer
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		backend: &fakeBackend{},
		memory:  newFakeMemory(16 << 20),
		targets: &fakeTargets{},
		raster:  newCountingRasterizer(),
	}
	c, err := New(env.backend, env.memory, env.raster, env.targets, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.cache = c
	return env
}

func (e *testEnv) get(t *testing.T, addr GPUVAddr, params SurfaceParams, preserve, isRender bool) (*Surface, *View) {
	t.Helper()
	s, v, err := e.cache.GetSurface(addr, params, preserve, isRender)
	if err != nil {
		t.Fatalf("GetSurface(0x%x, %s) error = %v", uint64(addr), params, err)
	}
	return s, v
}

// modify marks s as written by the host.
func (e *testEnv) modify(s *Surface) {
	e.cache.lock()
	s.markModified(true, e.cache.tick())
	e.cache.unlock()
}
