package texcache

import "fmt"

// getSurface resolves a request in three steps:
//
//  1. The exact-address index is checked for a structural match.
//  2. If nothing overlaps the candidate range, a new surface is loaded.
//  3. Otherwise the relationship with the overlaps decides between a view
//     of a single overlap, a reconstruction from many, or a recycle.
func (c *Cache) getSurface(gpuAddr GPUVAddr, params SurfaceParams, preserve, isRender bool) (*Surface, *View, error) {
	cacheAddr, ok := c.memory.Translate(gpuAddr)
	if !ok {
		return c.dummy(gpuAddr, params)
	}

	if current, ok := c.registry.lookup(cacheAddr); ok {
		topology := current.MatchesTopology(params)
		if topology != TopologyFullMatch {
			return c.recycle([]*Surface{current}, params, gpuAddr, preserve, topology)
		}
		structure := current.MatchesStructure(params)
		if structure != StructureNone && (params.Target != Texture3D || current.MatchesTarget(params.Target)) {
			if structure == StructureFullMatch {
				return c.manageStructuralMatch(current, params, isRender)
			}
			return c.rebuild(current, params, isRender)
		}
	}

	size := params.GuestSizeInBytes()
	overlaps := c.registry.overlaps(cacheAddr, size)
	if len(overlaps) == 0 {
		return c.initialize(gpuAddr, params, preserve)
	}

	for _, s := range overlaps {
		if topology := s.MatchesTopology(params); topology != TopologyFullMatch {
			return c.recycle(overlaps, params, gpuAddr, preserve, topology)
		}
	}

	if len(overlaps) == 1 {
		current := overlaps[0]
		if !current.Contains(gpuAddr, gpuAddr+GPUVAddr(size)) {
			if current.gpuAddr == gpuAddr {
				s, v, ok, err := c.tryReconstruct(overlaps, params, gpuAddr)
				if err != nil || ok {
					return s, v, err
				}
			}
			return c.recycle(overlaps, params, gpuAddr, preserve, TopologyFullMatch)
		}

		view, err := current.EmplaceView(params, gpuAddr, size)
		if err != nil {
			return nil, nil, err
		}
		if view != nil {
			if current.MatchesFormat(params.Format) {
				return current, view, nil
			}
			return c.resolveMirage(current, params, gpuAddr, size, preserve, isRender)
		}
	} else {
		s, v, ok, err := c.tryReconstruct(overlaps, params, gpuAddr)
		if err != nil || ok {
			return s, v, err
		}
	}

	return c.recycle(overlaps, params, gpuAddr, preserve, TopologyFullMatch)
}

// resolveMirage handles a carved view whose format differs from the
// containing surface. The surface is rebuilt in the requested format with
// its extent converted, then carved again.
func (c *Cache) resolveMirage(current *Surface, params SurfaceParams, gpuAddr GPUVAddr, size uint64, preserve, isRender bool) (*Surface, *View, error) {
	rebuiltParams := current.params
	rebuiltParams.Width = ConvertWidth(rebuiltParams.Width, rebuiltParams.Format, params.Format)
	rebuiltParams.Height = ConvertHeight(rebuiltParams.Height, rebuiltParams.Format, params.Format)
	rebuiltParams.Format = params.Format

	rebuilt, _, err := c.rebuild(current, rebuiltParams, isRender)
	if err != nil {
		return nil, nil, err
	}
	view, err := rebuilt.EmplaceView(params, gpuAddr, size)
	if err != nil {
		return nil, nil, err
	}
	if view != nil {
		return rebuilt, view, nil
	}
	return c.recycle([]*Surface{rebuilt}, params, gpuAddr, preserve, TopologyFullMatch)
}

// manageStructuralMatch reuses a surface whose layout matches the request.
// A format that differs without a usable sibling forces a rebuild.
func (c *Cache) manageStructuralMatch(current *Surface, params SurfaceParams, isRender bool) (*Surface, *View, error) {
	mirage := !current.MatchesFormat(params.Format)
	if mirage && (isRender || c.siblings.sibling(current.Format()) != params.Format) {
		return c.rebuild(current, params, isRender)
	}
	if current.MatchesTarget(params.Target) {
		return current, current.mainView, nil
	}
	view, err := current.EmplaceOverview(params)
	if err != nil {
		return nil, nil, err
	}
	return current, view, nil
}

// rebuild recreates current under params and copies its contents across.
func (c *Cache) rebuild(current *Surface, params SurfaceParams, isRender bool) (*Surface, *View, error) {
	old := current.params
	newParams := params
	if old.Format != params.Format && !isRender && c.siblings.sibling(old.Format) == params.Format {
		newParams.Format = old.Format
		newParams.ComponentType = old.ComponentType
		newParams.Type = old.Type
	}

	s, err := c.uncached(current.gpuAddr, newParams)
	if err != nil {
		return nil, nil, err
	}
	if old.Type != s.params.Type || old.ComponentType != s.params.ComponentType {
		err = c.backend.BufferCopy(current.host, s.host)
	} else {
		for _, region := range current.BreakDown(s.params) {
			if err = c.backend.ImageCopy(current.host, s.host, region); err != nil {
				break
			}
		}
	}
	if err != nil {
		c.reserve.put(s)
		return nil, nil, fmt.Errorf("texcache: rebuild %s as %s: %w", old, s.params, err)
	}

	c.unregister(current)
	c.register(s)
	s.markModified(current.modified, c.tick())
	c.stats.rebuilds++
	Logger().Debug("texcache: rebuilt surface",
		"gpu_addr", uint64(s.gpuAddr), "from", old.String(), "to", s.params.String())
	return s, s.mainView, nil
}

// reconstructPart is an overlap matched to a layer and level of the
// reconstructed surface.
type reconstructPart struct {
	surface *Surface
	region  CopyParams
}

// tryReconstruct assembles a surface for params out of overlaps that are
// single layers or levels of it. ok is false when the overlaps cannot be
// decomposed that way.
func (c *Cache) tryReconstruct(overlaps []*Surface, params SurfaceParams, gpuAddr GPUVAddr) (s *Surface, v *View, ok bool, err error) {
	if params.Target == Texture3D {
		return nil, nil, false, nil
	}
	for _, o := range overlaps {
		if o.params.Layered || o.params.NumLevels > 1 {
			return nil, nil, false, nil
		}
	}

	s, err = c.uncached(gpuAddr, params)
	if err != nil {
		return nil, nil, false, err
	}

	parts := make([]reconstructPart, 0, len(overlaps))
	modified := false
	for _, o := range overlaps {
		layer, level, found := s.LocateMip(o.gpuAddr)
		if !found || s.MipByteSize(level) != o.guestSize {
			continue
		}
		modified = modified || o.modified
		parts = append(parts, reconstructPart{
			surface: o,
			region: CopyParams{
				DstZ:     layer,
				DstLevel: level,
				Width:    IntersectWidth(o.params, params, 0, level),
				Height:   IntersectHeight(o.params, params, 0, level),
				Depth:    1,
			},
		})
	}
	if len(parts) == 0 || (c.opts.accurate && len(parts) != len(overlaps)) {
		c.reserve.put(s)
		return nil, nil, false, nil
	}

	for _, p := range parts {
		if err := c.backend.ImageCopy(p.surface.host, s.host, p.region); err != nil {
			c.reserve.put(s)
			return nil, nil, false, fmt.Errorf("texcache: reconstruct %s: %w", params, err)
		}
	}

	for _, o := range overlaps {
		c.unregister(o)
	}
	s.markModified(modified, c.tick())
	c.register(s)
	c.stats.reconstructions++
	Logger().Debug("texcache: reconstructed surface",
		"gpu_addr", uint64(gpuAddr), "params", params.String(),
		"parts", len(parts), "overlaps", len(overlaps))
	return s, s.mainView, true, nil
}
