package soft

import (
	"fmt"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/internal/hostcopy"
)

// ImageBlit copies cfg.Src of the first layer and level of src into cfg.Dst
// of dst, resampling when the rectangles differ in size.
func (b *Backend) ImageBlit(src, dst *texcache.View, cfg texcache.BlitConfig) error {
	s, err := viewSurface(src)
	if err != nil {
		return err
	}
	d, err := viewSurface(dst)
	if err != nil {
		return err
	}
	sp, dp := src.Params(), dst.Params()
	scaled, err := hostcopy.Blit(
		d.image(), hostcopy.Plane{Layer: dp.BaseLayer, Level: dp.BaseLevel},
		s.image(), hostcopy.Plane{Layer: sp.BaseLayer, Level: sp.BaseLevel},
		cfg)
	if err != nil {
		return err
	}
	b.blits.Add(1)
	if scaled {
		b.scaledBlits.Add(1)
	}
	return nil
}

func viewSurface(v *texcache.View) (*Surface, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil view", ErrForeignSurface)
	}
	return hostSurface(v.Surface().Host())
}
