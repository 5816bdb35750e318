// Package soft provides a texcache host backend that keeps surfaces in
// host memory.
//
// Surfaces store their pixels in the cache's host layout: every layer of a
// mip level precedes the next level, and rows are tightly packed. The
// backend is always available and serves as the reference for GPU
// backends.
//
// Importing the package registers it under [backend.BackendSoft]:
//
//	import _ "github.com/gogpu/texcache/backend/soft"
package soft

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/internal/hostcopy"
)

// Soft backend errors.
var (
	// ErrForeignSurface is returned when a surface or view was created by
	// another backend.
	ErrForeignSurface = errors.New("soft: surface belongs to another backend")

	// ErrSurfaceDestroyed is returned when operating on a destroyed surface.
	ErrSurfaceDestroyed = errors.New("soft: surface has been destroyed")

	// ErrOutOfBounds is returned when a region exceeds its surface.
	ErrOutOfBounds = hostcopy.ErrOutOfBounds

	// ErrFormatMismatch is returned when two surfaces have different
	// texel sizes.
	ErrFormatMismatch = hostcopy.ErrFormatMismatch

	// ErrShortBuffer is returned when an upload or download buffer is
	// smaller than the surface.
	ErrShortBuffer = errors.New("soft: buffer smaller than surface")

	// ErrUnsupportedBlit is returned for scaled blits of compressed surfaces.
	ErrUnsupportedBlit = hostcopy.ErrUnsupportedBlit
)

func init() {
	backend.Register(backend.BackendSoft, func() backend.HostBackend {
		return New()
	})
}

// Stats counts the operations a Backend performed.
type Stats struct {
	Surfaces     uint64 `json:"surfaces"`
	ImageCopies  uint64 `json:"image_copies"`
	Blits        uint64 `json:"blits"`
	ScaledBlits  uint64 `json:"scaled_blits"`
	BufferCopies uint64 `json:"buffer_copies"`
	Uploads      uint64 `json:"uploads"`
	Downloads    uint64 `json:"downloads"`
}

// Backend is a texcache host backend backed by byte slices.
type Backend struct {
	initialized atomic.Bool

	surfaces     atomic.Uint64
	imageCopies  atomic.Uint64
	blits        atomic.Uint64
	scaledBlits  atomic.Uint64
	bufferCopies atomic.Uint64
	uploads      atomic.Uint64
	downloads    atomic.Uint64
}

// New creates a soft backend. Call Init before creating surfaces.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendSoft
}

// Init initializes the backend.
func (b *Backend) Init() error {
	b.initialized.Store(true)
	return nil
}

// Close releases all backend resources.
func (b *Backend) Close() {
	b.initialized.Store(false)
}

// Stats returns a snapshot of the operation counters.
func (b *Backend) Stats() Stats {
	return Stats{
		Surfaces:     b.surfaces.Load(),
		ImageCopies:  b.imageCopies.Load(),
		Blits:        b.blits.Load(),
		ScaledBlits:  b.scaledBlits.Load(),
		BufferCopies: b.bufferCopies.Load(),
		Uploads:      b.uploads.Load(),
		Downloads:    b.downloads.Load(),
	}
}

// CreateSurface allocates a zeroed surface holding params in host layout.
func (b *Backend) CreateSurface(gpuAddr texcache.GPUVAddr, params texcache.SurfaceParams) (texcache.HostSurface, error) {
	if !b.initialized.Load() {
		return nil, backend.ErrNotInitialized
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Surface{
		backend: b,
		params:  params,
		data:    make([]byte, params.HostSizeInBytes()),
	}
	b.surfaces.Add(1)
	texcache.Logger().Debug("soft: surface created",
		"gpu_addr", uint64(gpuAddr), "params", params.String(), "size", len(s.data))
	return s, nil
}

// ImageCopy copies a region between two surfaces of the same texel size.
func (b *Backend) ImageCopy(src, dst texcache.HostSurface, region texcache.CopyParams) error {
	s, err := hostSurface(src)
	if err != nil {
		return err
	}
	d, err := hostSurface(dst)
	if err != nil {
		return err
	}
	if err := hostcopy.Copy(d.image(), s.image(), region); err != nil {
		return err
	}
	b.imageCopies.Add(1)
	return nil
}

// BufferCopy reinterprets the bytes of src as the contents of dst. Bytes
// past the shorter surface are left untouched.
func (b *Backend) BufferCopy(src, dst texcache.HostSurface) error {
	s, err := hostSurface(src)
	if err != nil {
		return err
	}
	d, err := hostSurface(dst)
	if err != nil {
		return err
	}
	copy(d.data, s.data)
	b.bufferCopies.Add(1)
	return nil
}

func hostSurface(h texcache.HostSurface) (*Surface, error) {
	s, ok := h.(*Surface)
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignSurface, h)
	}
	if s.data == nil {
		return nil, ErrSurfaceDestroyed
	}
	return s, nil
}
