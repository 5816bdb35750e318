package texcache

import "fmt"

// DeductionKind classifies the outcome of a Deduce probe.
type DeductionKind uint8

// Deduction kinds.
const (
	// DeductionFailed means the address is unmapped or the candidates are
	// ambiguous or incompatible.
	DeductionFailed DeductionKind = iota
	// DeductionComplete means a single usable surface was found.
	DeductionComplete
	// DeductionIncomplete means nothing overlaps the candidate.
	DeductionIncomplete
)

func (k DeductionKind) String() string {
	switch k {
	case DeductionComplete:
		return "complete"
	case DeductionIncomplete:
		return "incomplete"
	default:
		return "failed"
	}
}

// Deduction is the result of probing the cache without creating surfaces.
type Deduction struct {
	Kind    DeductionKind
	Surface *Surface
}

// Failed reports whether the probe failed.
func (d Deduction) Failed() bool { return d.Kind == DeductionFailed }

// Incomplete reports whether nothing was found.
func (d Deduction) Incomplete() bool { return d.Kind == DeductionIncomplete }

// IsDepth reports whether the found surface has a depth format.
func (d Deduction) IsDepth() bool {
	return d.Surface != nil && d.Surface.params.IsDepth()
}

// Deduce probes which registered surface a request would resolve to.
func (c *Cache) Deduce(gpuAddr GPUVAddr, params SurfaceParams) Deduction {
	c.lock()
	defer c.unlock()
	return c.deduce(gpuAddr, params)
}

func (c *Cache) deduce(gpuAddr GPUVAddr, params SurfaceParams) Deduction {
	cacheAddr, ok := c.memory.Translate(gpuAddr)
	if !ok {
		return Deduction{Kind: DeductionFailed}
	}

	if current, ok := c.registry.lookup(cacheAddr); ok {
		if current.MatchesTopology(params) != TopologyFullMatch {
			return Deduction{Kind: DeductionFailed}
		}
		if current.MatchesStructure(params) != StructureNone && current.MatchesTarget(params.Target) {
			return Deduction{Kind: DeductionComplete, Surface: current}
		}
	}

	overlaps := c.registry.overlaps(cacheAddr, params.GuestSizeInBytes())
	switch len(overlaps) {
	case 0:
		return Deduction{Kind: DeductionIncomplete}
	case 1:
		return Deduction{Kind: DeductionComplete, Surface: overlaps[0]}
	default:
		return Deduction{Kind: DeductionFailed}
	}
}

// DeduceBestBlit infers depth formats for the endpoints of a blit from the
// surfaces already registered at their addresses. src and dst are updated
// in place.
func (c *Cache) DeduceBestBlit(src, dst *SurfaceParams, srcAddr, dstAddr GPUVAddr) {
	c.lock()
	defer c.unlock()
	c.deduceBestBlit(src, dst, srcAddr, dstAddr)
}

func (c *Cache) deduceBestBlit(src, dst *SurfaceParams, srcAddr, dstAddr GPUVAddr) {
	ds := c.deduce(srcAddr, *src)
	dd := c.deduce(dstAddr, *dst)
	if ds.Failed() || dd.Failed() {
		return
	}
	if ds.Incomplete() && dd.Incomplete() {
		return
	}

	var srcFrom, dstFrom *Surface
	switch {
	case ds.Incomplete():
		if !dd.IsDepth() {
			return
		}
		srcFrom, dstFrom = dd.Surface, dd.Surface
	case dd.Incomplete():
		if !ds.IsDepth() {
			return
		}
		srcFrom, dstFrom = ds.Surface, ds.Surface
	case ds.IsDepth() && dd.IsDepth():
		srcFrom, dstFrom = ds.Surface, dd.Surface
	case ds.IsDepth():
		srcFrom, dstFrom = ds.Surface, ds.Surface
	case dd.IsDepth():
		srcFrom, dstFrom = dd.Surface, dd.Surface
	default:
		return
	}
	inheritFormat(src, srcFrom)
	inheritFormat(dst, dstFrom)
}

func inheritFormat(to *SurfaceParams, from *Surface) {
	to.Format = from.params.Format
	to.ComponentType = from.params.ComponentType
	to.Type = from.params.Type
}

// DoFermiCopy blits between two 2D engine surfaces, inferring depth formats
// from the cache first. The destination is marked modified.
func (c *Cache) DoFermiCopy(src, dst FermiSurface, cfg BlitConfig) error {
	srcParams := ParamsForFermiSurface(src)
	dstParams := ParamsForFermiSurface(dst)
	if err := srcParams.Validate(); err != nil {
		return fmt.Errorf("texcache: fermi source: %w", err)
	}
	if err := dstParams.Validate(); err != nil {
		return fmt.Errorf("texcache: fermi destination: %w", err)
	}

	c.lock()
	defer c.unlock()
	c.deduceBestBlit(&srcParams, &dstParams, src.Address, dst.Address)

	dstSurface, dstView, err := c.getSurface(dst.Address, dstParams, true, false)
	if err != nil {
		return err
	}
	_, srcView, err := c.getSurface(src.Address, srcParams, true, false)
	if err != nil {
		return err
	}
	if srcView == nil || dstView == nil {
		return nil
	}
	if err := c.backend.ImageBlit(srcView, dstView, cfg); err != nil {
		return fmt.Errorf("texcache: blit: %w", err)
	}
	dstSurface.markModified(true, c.tick())
	c.stats.blits++
	return nil
}
