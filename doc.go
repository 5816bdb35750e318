// Package texcache provides a guest GPU surface cache for emulators.
//
// # Overview
//
// texcache reconciles the texture and render target memory of an emulated
// GPU with host graphics resources. Given a guest GPU address and a surface
// shape it decides whether an existing host surface can be reused as is,
// viewed as a sub-resource, reinterpreted, rebuilt, reconstructed from
// overlapping fragments, or must be recycled and created again.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/texcache"
//	    "github.com/gogpu/texcache/backend/soft"
//	    "github.com/gogpu/texcache/guestmem"
//	)
//
//	mem := guestmem.New()
//	mem.Map(0x1000_0000, 0x8000_0000, 64<<20)
//
//	c, err := texcache.New(soft.New(), mem, mem.Tracker(), nil)
//	if err != nil {
//	    return err
//	}
//	surface, view, err := c.GetSurface(0x1000_0000, params, true, false)
//
// # Architecture
//
// The package is organized into:
//   - SurfaceParams: comparable shape descriptors and their size math
//   - Surface and View: cached host resources and their sub-resources
//   - registry: 1 MiB page buckets plus an exact start address index
//   - reserve: unregistered surfaces kept for reuse, bounded by an LRU
//   - Cache: resolution, recycling, invalidation, flush and render targets
//
// Host resources are created through a Backend. Two backends ship with the
// module: backend/soft keeps surfaces in memory, backend/halbackend uses
// gogpu/wgpu HAL textures.
//
// # Concurrency
//
// A Cache is guarded by a single mutex. Guest memory write watches may call
// InvalidateRegion from any goroutine. Rasterizer page notifications are
// delivered after the lock is released, so the rasterizer may call back
// into the cache.
package texcache

// Version is the current version of the library.
const Version = "0.1.0"
