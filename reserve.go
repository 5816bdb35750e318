package texcache

import "github.com/gogpu/texcache/internal/lru"

// DefaultReserveLimit is the number of unregistered surfaces kept for reuse.
const DefaultReserveLimit = 512

// reserve keeps unregistered surfaces keyed by their params so the same
// shape can be handed out again without allocating a host resource.
// When more than limit surfaces are held, the least recently reserved one
// is destroyed. A limit of 0 keeps every surface.
type reserve struct {
	limit     int
	entries   map[SurfaceParams][]*Surface
	order     *lru.List[*Surface]
	evictions uint64
}

func newReserve(limit int) *reserve {
	return &reserve{
		limit:   limit,
		entries: make(map[SurfaceParams][]*Surface),
		order:   lru.New[*Surface](),
	}
}

func (r *reserve) len() int {
	return r.order.Len()
}

// put adds an unregistered surface. Surfaces already held are ignored.
func (r *reserve) put(s *Surface) {
	if s.reserveNode != nil || s.destroyed {
		return
	}
	s.reserveNode = r.order.PushFront(s)
	r.entries[s.params] = append(r.entries[s.params], s)
	for r.limit > 0 && r.order.Len() > r.limit {
		oldest, _ := r.order.Oldest()
		r.drop(oldest)
		oldest.destroy()
		r.evictions++
		Logger().Debug("texcache: reserve eviction",
			"params", oldest.params.String(), "gpu_addr", uint64(oldest.gpuAddr))
	}
}

// take removes and returns the most recently reserved surface with params.
func (r *reserve) take(params SurfaceParams) *Surface {
	list := r.entries[params]
	if len(list) == 0 {
		return nil
	}
	s := list[len(list)-1]
	r.drop(s)
	return s
}

func (r *reserve) drop(s *Surface) {
	r.order.Remove(s.reserveNode)
	s.reserveNode = nil
	list := r.entries[s.params]
	for i, other := range list {
		if other == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.entries, s.params)
	} else {
		r.entries[s.params] = list
	}
}

// clear destroys every held surface.
func (r *reserve) clear() {
	for {
		s, ok := r.order.Oldest()
		if !ok {
			return
		}
		r.drop(s)
		s.destroy()
	}
}
