package texcache

// View is a window onto a layer and level range of one Surface.
//
// A View does not own its surface. It stays usable as long as the surface
// is reachable; after the surface is rebuilt or invalidated the caller must
// resolve the address again to observe new contents.
type View struct {
	surface *Surface
	params  ViewParams
	host    HostView
}

// Surface returns the surface the view belongs to.
func (v *View) Surface() *Surface { return v.surface }

// Params returns the sub-resource range of the view.
func (v *View) Params() ViewParams { return v.params }

// Host returns the backend view handle.
func (v *View) Host() HostView { return v.host }
