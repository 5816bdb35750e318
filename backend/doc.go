// Package backend provides a named registry of texcache host backends.
//
// A host backend owns the host copies of guest surfaces: it creates them,
// moves pixels between them and converts them to and from the tightly
// packed host layout the cache stages guest memory through.
//
// # Backend Registration
//
// Each backend package registers itself from init. Import the ones the
// program should be able to select:
//
//	import (
//		_ "github.com/gogpu/texcache/backend/halbackend"
//		_ "github.com/gogpu/texcache/backend/soft"
//	)
//
// # Backend Selection
//
// Backends are tried in the order hal, soft, then any other registered
// name. InitDefault initializes them in that order and keeps the first one
// that comes up, so a headless machine lands on soft. Open selects one
// backend by name and fails if it cannot initialize:
//
//	b, err := backend.InitDefault()
//
//	b, err := backend.Open(backend.BackendHAL)
//
// # Usage with the Cache
//
//	b, err := backend.Open(backend.BackendSoft)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	cache, err := texcache.New(b, memory, rasterizer, targets)
//
// # Available Backends
//
//   - "soft": surfaces held in host memory (always available)
//   - "hal": surfaces held in gogpu/wgpu HAL textures
package backend
