package sim

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend/soft"
	"github.com/gogpu/texcache/guestmem"
	"github.com/gogpu/texcache/regs"
)

// ErrUnknownOp is returned for an op kind the runner does not know.
var ErrUnknownOp = errors.New("sim: unknown op")

// errMissingField is returned when an op lacks the operand its kind needs.
var errMissingField = errors.New("sim: missing operand")

// SurfaceInfo describes the surface an op resolved to.
type SurfaceInfo struct {
	GPU          Addr                   `json:"gpu"`
	Cache        Addr                   `json:"cache"`
	Size         uint64                 `json:"size"`
	Format       texcache.PixelFormat   `json:"format"`
	Target       texcache.SurfaceTarget `json:"target"`
	Width        uint32                 `json:"width"`
	Height       uint32                 `json:"height"`
	Depth        uint32                 `json:"depth"`
	Levels       uint32                 `json:"levels"`
	Modified     bool                   `json:"modified"`
	RenderTarget bool                   `json:"render_target"`
	View         *texcache.ViewParams   `json:"view,omitempty"`
}

func describe(s *texcache.Surface, v *texcache.View) *SurfaceInfo {
	if s == nil && v != nil {
		s = v.Surface()
	}
	if s == nil {
		return nil
	}
	p := s.Params()
	info := &SurfaceInfo{
		GPU:          Addr(s.GPUAddr()),
		Cache:        Addr(s.CacheAddr()),
		Size:         s.SizeInBytes(),
		Format:       p.Format,
		Target:       p.Target,
		Width:        p.Width,
		Height:       p.Height,
		Depth:        p.Depth,
		Levels:       p.NumLevels,
		Modified:     s.IsModified(),
		RenderTarget: s.IsRenderTarget(),
	}
	if v != nil && v != s.MainView() {
		vp := v.Params()
		info.View = &vp
	}
	return info
}

// OpResult is the outcome of one op.
type OpResult struct {
	Index    int            `json:"index"`
	Op       string         `json:"op"`
	Error    string         `json:"error,omitempty"`
	Surfaces []*SurfaceInfo `json:"surfaces,omitempty"`
	Barrier  *bool          `json:"barrier,omitempty"`
}

// Runner executes ops against a cache backed by guest memory and the soft
// backend. A Runner is not safe for concurrent use.
type Runner struct {
	memory  *guestmem.Memory
	backend *soft.Backend
	targets *regs.Table
	cache   *texcache.Cache
	results []OpResult
}

// NewRunner creates a runner with the given cache configuration and
// mappings.
func NewRunner(cfg texcache.Config, mappings []Mapping) (*Runner, error) {
	memory := guestmem.New()
	for _, m := range mappings {
		if err := memory.Map(texcache.GPUVAddr(m.GPU), texcache.VAddr(m.CPU), uint64(m.Size)); err != nil {
			return nil, fmt.Errorf("map %#x: %w", uint64(m.GPU), err)
		}
	}
	backend := soft.New()
	if err := backend.Init(); err != nil {
		return nil, err
	}
	targets := regs.New()
	cache, err := texcache.New(backend, memory, memory.Tracker(), targets, cfg.Options()...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	memory.SetWriteWatch(cache.InvalidateRegion)
	return &Runner{memory: memory, backend: backend, targets: targets, cache: cache}, nil
}

// Cache returns the cache the runner drives.
func (r *Runner) Cache() *texcache.Cache { return r.cache }

// Memory returns the guest memory the runner drives.
func (r *Runner) Memory() *guestmem.Memory { return r.memory }

// Exec runs one op and records its result.
func (r *Runner) Exec(op Op) OpResult {
	res := OpResult{Index: len(r.results), Op: op.Op}
	if err := r.exec(op, &res); err != nil {
		res.Error = err.Error()
		texcache.Logger().Debug("sim: op failed", "index", res.Index, "op", op.Op, "err", err)
	}
	r.results = append(r.results, res)
	return res
}

func (r *Runner) exec(op Op, res *OpResult) error {
	switch op.Op {
	case OpSurface:
		if op.Surface == nil {
			return fmt.Errorf("%w: surface", errMissingField)
		}
		s, v, err := r.cache.GetSurface(texcache.GPUVAddr(op.Addr), op.Surface.Params(), op.Preserve, op.Render)
		res.Surfaces = append(res.Surfaces, describe(s, v))
		return err

	case OpTexture:
		if op.Texture == nil {
			return fmt.Errorf("%w: texture", errMissingField)
		}
		desc, entry, err := op.Texture.descriptor()
		if err != nil {
			return err
		}
		v, err := r.cache.GetTextureSurface(desc, entry)
		res.Surfaces = append(res.Surfaces, describe(nil, v))
		return err

	case OpColor:
		if op.Target == nil {
			return r.targets.DisableColor(op.Index)
		}
		return r.targets.SetColor(op.Index, op.Target.Framebuffer())

	case OpDepth:
		if op.Target == nil {
			r.targets.DisableDepth()
			return nil
		}
		r.targets.SetDepth(op.Target.DepthBuffer())
		return nil

	case OpDraw:
		return r.draw(op, res)

	case OpInvalidate, OpFlush:
		addr, ok := r.memory.Translate(texcache.GPUVAddr(op.Addr))
		if !ok {
			return fmt.Errorf("%w: %#x", guestmem.ErrUnmapped, uint64(op.Addr))
		}
		if op.Op == OpInvalidate {
			r.cache.InvalidateRegion(addr, uint64(op.Size))
			return nil
		}
		return r.cache.FlushRegion(addr, uint64(op.Size))

	case OpBlit:
		if op.Src == nil || op.Dst == nil {
			return fmt.Errorf("%w: src and dst", errMissingField)
		}
		cfg := texcache.BlitConfig{Src: op.Src.rect(), Dst: op.Dst.rect()}
		if op.Linear {
			cfg.Filter = texcache.FilterLinear
		}
		return r.cache.DoFermiCopy(op.Src.surface(), op.Dst.surface(), cfg)

	case OpCPUWrite:
		r.memory.WriteCPU(texcache.VAddr(op.Addr), bytes.Repeat([]byte{op.Fill}, int(op.Size)))
		return nil

	case OpBarrier:
		needed := r.cache.TextureBarrier()
		res.Barrier = &needed
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
}

// draw resolves the listed color slots and optionally the depth slot, then
// marks them written.
func (r *Runner) draw(op Op, res *OpResult) error {
	for _, i := range op.Colors {
		v, err := r.cache.GetColorBufferSurface(i, true)
		if err != nil {
			return fmt.Errorf("color %d: %w", i, err)
		}
		if err := r.cache.MarkColorBufferInUse(i); err != nil {
			return err
		}
		if v != nil {
			res.Surfaces = append(res.Surfaces, describe(nil, v))
		}
	}
	if !op.Depth {
		return nil
	}
	v, err := r.cache.GetDepthBufferSurface(true)
	if err != nil {
		return fmt.Errorf("depth: %w", err)
	}
	r.cache.MarkDepthBufferInUse()
	if v != nil {
		res.Surfaces = append(res.Surfaces, describe(nil, v))
	}
	return nil
}

// Report returns the results so far with a snapshot of the counters.
func (r *Runner) Report() *Report {
	rep := &Report{
		Results:     append([]OpResult(nil), r.results...),
		Stats:       r.cache.Stats(),
		Backend:     r.backend.Stats(),
		CachedPages: r.memory.Tracker().Pages(),
	}
	for _, res := range r.results {
		if res.Error != "" {
			rep.Failures++
		}
	}
	return rep
}

// Close releases the cache and the backend.
func (r *Runner) Close() {
	r.memory.SetWriteWatch(nil)
	r.cache.Close()
	r.backend.Close()
}

// Run executes every op of s on a fresh runner and reports the outcome.
// Failing ops are recorded and do not stop the run.
func Run(s *Scenario) (*Report, error) {
	r, err := NewRunner(s.Config, s.Mappings)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	for _, op := range s.Ops {
		r.Exec(op)
	}
	rep := r.Report()
	rep.Name = s.Name
	return rep, nil
}
