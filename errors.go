package texcache

import (
	"errors"
	"fmt"
)

// Sentinel errors for texcache package.
var (
	// ErrNilBackend is returned by New when no backend is provided.
	ErrNilBackend = errors.New("texcache: nil backend")

	// ErrNilMemory is returned by New when no guest memory is provided.
	ErrNilMemory = errors.New("texcache: nil guest memory")

	// ErrRenderTargetIndex is returned for a color buffer index outside [0, NumRenderTargets).
	ErrRenderTargetIndex = errors.New("texcache: render target index out of range")

	// ErrUnknownFormat is returned when a format name cannot be parsed.
	ErrUnknownFormat = errors.New("texcache: unknown pixel format")

	// ErrUnknownTarget is returned when a target name cannot be parsed.
	ErrUnknownTarget = errors.New("texcache: unknown surface target")

	// ErrInvalidParams is returned when surface params describe an empty or
	// malformed surface.
	ErrInvalidParams = errors.New("texcache: invalid surface params")
)

// TransferError reports a failed transfer between guest memory and a host surface.
type TransferError struct {
	Op      string // "load" or "flush"
	GPUAddr GPUVAddr
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("texcache: %s surface at 0x%016x: %v", e.Op, uint64(e.GPUAddr), e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
