package soft

import (
	"fmt"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/internal/hostcopy"
)

// Surface is a host surface stored in memory.
type Surface struct {
	backend *Backend
	params  texcache.SurfaceParams
	data    []byte
	views   int
}

// Params returns the parameters the surface was created with.
func (s *Surface) Params() texcache.SurfaceParams { return s.params }

// Bytes returns the surface contents in host layout. The slice aliases the
// surface and is nil after Destroy.
func (s *Surface) Bytes() []byte { return s.data }

// Views returns the number of views created on the surface.
func (s *Surface) Views() int { return s.views }

// Upload replaces the contents with data in host layout.
func (s *Surface) Upload(data []byte) error {
	if s.data == nil {
		return ErrSurfaceDestroyed
	}
	if len(data) < len(s.data) {
		return fmt.Errorf("%w: upload of %d bytes into %d", ErrShortBuffer, len(data), len(s.data))
	}
	copy(s.data, data)
	s.backend.uploads.Add(1)
	return nil
}

// Download copies the contents in host layout into data.
func (s *Surface) Download(data []byte) error {
	if s.data == nil {
		return ErrSurfaceDestroyed
	}
	if len(data) < len(s.data) {
		return fmt.Errorf("%w: download of %d bytes into %d", ErrShortBuffer, len(s.data), len(data))
	}
	copy(data, s.data)
	s.backend.downloads.Add(1)
	return nil
}

// CreateView returns a *View over a layer and level range of s.
func (s *Surface) CreateView(desc texcache.ViewParams) (texcache.HostView, error) {
	if s.data == nil {
		return nil, ErrSurfaceDestroyed
	}
	if desc.NumLayers == 0 || desc.NumLevels == 0 ||
		desc.BaseLayer+desc.NumLayers > s.params.NumLayers() ||
		desc.BaseLevel+desc.NumLevels > s.params.NumLevels {
		return nil, fmt.Errorf("%w: view %+v of %s", ErrOutOfBounds, desc, s.params)
	}
	s.views++
	return &View{surface: s, params: desc}, nil
}

// Destroy releases the surface memory. Destroy is idempotent.
func (s *Surface) Destroy() {
	s.data = nil
}

func (s *Surface) image() hostcopy.Image {
	return hostcopy.Image{Params: s.params, Data: s.data}
}

// View is a layer and level range of a Surface.
type View struct {
	surface *Surface
	params  texcache.ViewParams
}

// Surface returns the surface the view was created on.
func (v *View) Surface() *Surface { return v.surface }

// Params returns the sub-resource range of the view.
func (v *View) Params() texcache.ViewParams { return v.params }
