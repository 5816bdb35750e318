package backend

import (
	"errors"

	"github.com/gogpu/texcache"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendSoft is the name of the CPU backend that keeps surfaces in
	// host memory.
	BackendSoft = "soft"
	// BackendHAL is the name of the GPU backend built on gogpu/wgpu HAL.
	BackendHAL = "hal"
)

// HostBackend is a texcache.Backend that can be selected by name.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type HostBackend interface {
	texcache.Backend

	// Name returns the backend identifier (e.g., "soft", "hal").
	Name() string

	// Init acquires the host resources the backend needs.
	// It must be called before any surface is created.
	Init() error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}
