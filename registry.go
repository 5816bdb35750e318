package texcache

// Registry page geometry. Surfaces are usually large, so buckets are coarse.
const (
	PageBits = 20
	PageSize = 1 << PageBits
)

// registry indexes registered surfaces by the cache pages they touch and by
// their exact start address.
type registry struct {
	pages map[uint64][]*Surface
	exact map[CacheAddr]*Surface
	count int
}

func newRegistry() *registry {
	return &registry{
		pages: make(map[uint64][]*Surface),
		exact: make(map[CacheAddr]*Surface),
	}
}

// pageRange returns the first and last page touched by [addr, addr+size).
// size must be non-zero.
func pageRange(addr CacheAddr, size uint64) (first, last uint64) {
	return uint64(addr) >> PageBits, (uint64(addr) + size - 1) >> PageBits
}

func (r *registry) add(s *Surface) {
	r.exact[s.cacheAddr] = s
	first, last := pageRange(s.cacheAddr, s.guestSize)
	for page := first; page <= last; page++ {
		r.pages[page] = append(r.pages[page], s)
	}
	r.count++
}

func (r *registry) remove(s *Surface) {
	if r.exact[s.cacheAddr] == s {
		delete(r.exact, s.cacheAddr)
	}
	first, last := pageRange(s.cacheAddr, s.guestSize)
	for page := first; page <= last; page++ {
		bucket := r.pages[page]
		for i, other := range bucket {
			if other == s {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(r.pages, page)
		} else {
			r.pages[page] = bucket
		}
	}
	r.count--
}

// lookup returns the surface registered exactly at addr.
func (r *registry) lookup(addr CacheAddr) (*Surface, bool) {
	s, ok := r.exact[addr]
	return s, ok
}

// overlaps returns every registered surface intersecting [addr, addr+size),
// each once, in bucket order.
func (r *registry) overlaps(addr CacheAddr, size uint64) []*Surface {
	if size == 0 {
		return nil
	}
	end := addr + CacheAddr(size)
	first, last := pageRange(addr, size)
	var found []*Surface
	for page := first; page <= last; page++ {
		for _, s := range r.pages[page] {
			if !s.picked && s.Overlaps(addr, end) {
				s.picked = true
				found = append(found, s)
			}
		}
	}
	for _, s := range found {
		s.picked = false
	}
	return found
}

// findInPage scans the bucket of addr for a surface starting exactly there.
func (r *registry) findInPage(addr CacheAddr) *Surface {
	for _, s := range r.pages[uint64(addr)>>PageBits] {
		if s.cacheAddr == addr {
			return s
		}
	}
	return nil
}

// all returns every registered surface once.
func (r *registry) all() []*Surface {
	seen := make(map[*Surface]struct{}, r.count)
	out := make([]*Surface, 0, r.count)
	for _, bucket := range r.pages {
		for _, s := range bucket {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out
}
