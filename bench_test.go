package texcache

import "testing"

func BenchmarkGetSurfaceHit(b *testing.B) {
	c, err := New(&fakeBackend{}, newFakeMemory(1<<20), nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	params := tiled2D(256, 256, 4, FormatABGR8U)
	if _, _, err := c.GetSurface(testBase, params, false, false); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.GetSurface(testBase, params, false, false)
	}
}

func BenchmarkRegistryOverlaps(b *testing.B) {
	r := newRegistry()
	params := linear2D(64, 64, 256, FormatABGR8U)
	for i := range 1024 {
		s, err := newSurface(0, params, &fakeSurface{})
		if err != nil {
			b.Fatal(err)
		}
		s.cacheAddr = CacheAddr(i) * 0x10000
		r.add(s)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.overlaps(CacheAddr(i%1024)*0x10000, 4*PageSize)
	}
}
