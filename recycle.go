package texcache

import (
	"context"
	"fmt"
	"slices"
)

// RecycleStrategy selects how overlapping surfaces are retired when a
// request cannot be resolved against them.
type RecycleStrategy uint8

// Recycle strategies.
const (
	// RecycleIgnore discards the overlaps' contents.
	RecycleIgnore RecycleStrategy = 0
	// RecycleFlush writes the overlaps back to guest memory first and then
	// loads the new surface from it.
	RecycleFlush RecycleStrategy = 1
	// RecycleBufferCopy copies the bytes of the first overlap into the new
	// surface. The default policy never selects it.
	RecycleBufferCopy RecycleStrategy = 3
)

func (s RecycleStrategy) String() string {
	switch s {
	case RecycleIgnore:
		return "ignore"
	case RecycleFlush:
		return "flush"
	case RecycleBufferCopy:
		return "buffer_copy"
	default:
		return fmt.Sprintf("RecycleStrategy(%d)", uint8(s))
	}
}

// pickStrategy returns the default recycle policy.
func (c *Cache) pickStrategy(overlaps []*Surface, params SurfaceParams, topology MatchTopologyResult) RecycleStrategy {
	if c.opts.strategy != nil {
		return c.opts.strategy(overlaps, params, topology)
	}
	if c.opts.accurate {
		return RecycleFlush
	}
	// 3D surfaces and multi-slice blocks cannot be reinterpreted.
	if params.BlockDepth > 1 || params.Target == Texture3D {
		return RecycleFlush
	}
	for _, s := range overlaps {
		if s.params.BlockDepth > 1 || s.params.Target == Texture3D {
			return RecycleFlush
		}
	}
	if topology == TopologyCompressUnmatch {
		return RecycleFlush
	}
	if topology == TopologyFullMatch && !params.Tiled {
		return RecycleFlush
	}
	return RecycleIgnore
}

// recycle retires overlaps and creates a surface for params in their place.
// Overlaps stay registered until their contents have been written back or
// copied, so a bounded reserve can never evict one that is still needed.
func (c *Cache) recycle(overlaps []*Surface, params SurfaceParams, gpuAddr GPUVAddr, preserve bool, topology MatchTopologyResult) (*Surface, *View, error) {
	strategy := c.pickStrategy(overlaps, params, topology)
	Logger().Debug("texcache: recycle",
		"gpu_addr", uint64(gpuAddr), "params", params.String(),
		"overlaps", len(overlaps), "topology", topology.String(), "strategy", strategy.String())

	switch strategy {
	case RecycleIgnore:
		c.stats.recycleIgnore++
		c.retire(overlaps)
		return c.initialize(gpuAddr, params, preserve)
	case RecycleFlush:
		c.stats.recycleFlush++
		if err := c.flushAll(overlaps); err != nil {
			return nil, nil, err
		}
		c.retire(overlaps)
		return c.initialize(gpuAddr, params, preserve || c.opts.accurate)
	case RecycleBufferCopy:
		c.stats.recycleBufferCopy++
		s, err := c.uncached(gpuAddr, params)
		if err != nil {
			return nil, nil, err
		}
		src := overlaps[0]
		if err := c.backend.BufferCopy(src.host, s.host); err != nil {
			c.reserve.put(s)
			return nil, nil, fmt.Errorf("texcache: buffer copy recycle: %w", err)
		}
		modified := src.modified
		c.retire(overlaps)
		c.register(s)
		s.markModified(modified, c.tick())
		return s, s.mainView, nil
	default:
		c.stats.recycleIgnore++
		Logger().Log(context.Background(), LevelCritical, "texcache: unimplemented recycle strategy",
			"strategy", strategy.String())
		c.retire(overlaps)
		return c.initialize(gpuAddr, params, preserve)
	}
}

func (c *Cache) retire(overlaps []*Surface) {
	for _, s := range overlaps {
		c.unregister(s)
	}
}

// flushAll flushes surfaces oldest modification first.
func (c *Cache) flushAll(surfaces []*Surface) error {
	slices.SortStableFunc(surfaces, func(a, b *Surface) int {
		switch {
		case a.tick < b.tick:
			return -1
		case a.tick > b.tick:
			return 1
		default:
			return 0
		}
	})
	for _, s := range surfaces {
		if err := c.flush(s); err != nil {
			return err
		}
	}
	return nil
}
