package sim

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend/soft"
)

func TestAddrDecodes(t *testing.T) {
	t.Parallel()

	var got struct {
		A Addr `json:"a"`
		B Addr `json:"b"`
		C Addr `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 4096, "b": "0x10_0000", "c": "0o17"}`), &got))
	assert.Equal(t, Addr(4096), got.A)
	assert.Equal(t, Addr(0x10_0000), got.B)
	assert.Equal(t, Addr(15), got.C)

	var bad Addr
	require.Error(t, json.Unmarshal([]byte(`"nope"`), &bad))

	out, err := json.Marshal(Addr(0x1000))
	require.NoError(t, err)
	assert.Equal(t, `"0x1000"`, string(out))
}

func TestParseScenarioJSONC(t *testing.T) {
	t.Parallel()

	s, err := ParseScenario([]byte(`{
		// comment
		"config": {"reserve_limit": 0},
		"mappings": [{"gpu": "0x1000", "cpu": 0, "size": "0x1000"},],
		"ops": [{"op": "barrier"}],
	}`))
	require.NoError(t, err)
	require.NotNil(t, s.Config.ReserveLimit)
	assert.Equal(t, 0, *s.Config.ReserveLimit)
	assert.Equal(t, []Mapping{{GPU: 0x1000, CPU: 0, Size: 0x1000}}, s.Mappings)
	assert.Equal(t, []Op{{Op: OpBarrier}}, s.Ops)
}

func TestParseScenarioErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"broken JSONC", `{"mappings": [`},
		{"no mappings", `{"ops": []}`},
		{"bad format", `{"mappings": [{"gpu": 4096, "cpu": 0, "size": 4096}], "ops": [{"op": "surface", "surface": {"format": "RGB9"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseScenario([]byte(tt.input))
			require.ErrorIs(t, err, errScenarioInvalid)
		})
	}
}

func TestSurfaceParams(t *testing.T) {
	t.Parallel()

	s := Surface{Format: texcache.FormatABGR8U, Width: 64, Height: 64, BlockHeight: 3}
	want := texcache.SurfaceParams{
		Tiled:            true,
		BlockHeight:      3,
		TileWidthSpacing: 1,
		Width:            64,
		Height:           64,
		Depth:            1,
		NumLevels:        1,
		Format:           texcache.FormatABGR8U,
		ComponentType:    texcache.ComponentUNorm,
		Type:             texcache.SurfaceColor,
		Target:           texcache.Texture2D,
	}
	if diff := cmp.Diff(want, s.Params()); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}

	array := Surface{Format: texcache.FormatR32F, Target: texcache.Texture2DArray, Width: 8, Height: 8, Depth: 4, Linear: true, Pitch: 32, BlockHeight: 3}
	p := array.Params()
	assert.True(t, p.Layered)
	assert.False(t, p.Tiled)
	assert.Zero(t, p.BlockHeight)
	require.NoError(t, p.Validate())
}

func TestTextureDescriptor(t *testing.T) {
	t.Parallel()

	tex := Texture{Address: 0x1000, Type: "cube", Array: true, Surface: Surface{Format: texcache.FormatABGR8U, Width: 16, Height: 16, Levels: 3}}
	desc, entry, err := tex.descriptor()
	require.NoError(t, err)
	assert.Equal(t, texcache.GPUVAddr(0x1000), desc.Address)
	assert.Equal(t, uint32(2), desc.MaxMipLevel)
	assert.Equal(t, texcache.SamplerEntry{Type: texcache.TextureTypeCube, Array: true}, entry)

	_, _, err = Texture{Type: "4d"}.descriptor()
	require.Error(t, err)
}

func TestRunScenarioFile(t *testing.T) {
	t.Parallel()

	s, err := LoadScenario(filepath.Join("testdata", "render_then_sample.jsonc"))
	require.NoError(t, err)
	assert.Equal(t, "render then sample", s.Name)

	rep, err := Run(s)
	require.NoError(t, err)
	require.Len(t, rep.Results, 7)

	draw := rep.Results[1]
	require.Empty(t, draw.Error)
	require.Len(t, draw.Surfaces, 1)
	target := draw.Surfaces[0]
	assert.Equal(t, Addr(0x10_0000), target.GPU)
	assert.Equal(t, uint64(64*64*4), target.Size)
	assert.True(t, target.Modified)
	assert.True(t, target.RenderTarget)

	sample := rep.Results[2]
	require.Empty(t, sample.Error)
	require.Len(t, sample.Surfaces, 1)
	if diff := cmp.Diff(target, sample.Surfaces[0]); diff != "" {
		t.Errorf("sampled surface differs from the render target (-want +got):\n%s", diff)
	}

	require.NotNil(t, rep.Results[3].Barrier)
	assert.True(t, *rep.Results[3].Barrier)
	assert.Empty(t, rep.Results[4].Error)
	assert.Contains(t, rep.Results[6].Error, "unknown op")

	assert.Equal(t, 1, rep.Failures)
	assert.Zero(t, rep.CachedPages)
	assert.Zero(t, rep.Stats.Registered)
	assert.Equal(t, uint64(1), rep.Stats.Created)
	assert.Equal(t, uint64(1), rep.Stats.Loads)
	assert.Equal(t, uint64(1), rep.Stats.Flushes)
	assert.Equal(t, soft.Stats{Surfaces: 1, Uploads: 1, Downloads: 1}, rep.Backend)
}

func TestRunnerFlushWritesModified(t *testing.T) {
	t.Parallel()

	r, err := NewRunner(texcache.Config{}, []Mapping{{GPU: 0x10_0000, CPU: 0x8000, Size: 0x4000}})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	linear := &Surface{Format: texcache.FormatR8U, Width: 16, Height: 4, Linear: true, Pitch: 16}
	res := r.Exec(Op{Op: OpSurface, Addr: 0x10_0000, Surface: linear})
	require.Empty(t, res.Error)
	require.Len(t, res.Surfaces, 1)

	s := r.Cache().TryFindFramebufferSurface(r.mustTranslate(t, 0x10_0000))
	require.NotNil(t, s)
	host := s.Host().(*soft.Surface).Bytes()
	for i := range host {
		host[i] = 0xA5
	}
	// Only modified surfaces are written back.
	res = r.Exec(Op{Op: OpFlush, Addr: 0x10_0000, Size: 64})
	require.Empty(t, res.Error)
	got := make([]byte, 64)
	r.Memory().ReadCPU(0x8000, got)
	assert.Equal(t, make([]byte, 64), got)

	res = r.Exec(Op{Op: OpColor, Index: 0, Target: &Target{Address: 0x10_0000, Width: 16, Height: 4, Format: texcache.FormatR8U, Pitch: true}})
	require.Empty(t, res.Error)
	res = r.Exec(Op{Op: OpDraw, Colors: []int{0}})
	require.Empty(t, res.Error)
	require.Len(t, res.Surfaces, 1)
	assert.True(t, res.Surfaces[0].Modified)

	res = r.Exec(Op{Op: OpFlush, Addr: 0x10_0000, Size: 64})
	require.Empty(t, res.Error)
	r.Memory().ReadCPU(0x8000, got)
	assert.Equal(t, bytes.Repeat([]byte{0xA5}, 64), got)
	assert.True(t, s.IsRegistered(), "flush must not invalidate")
}

func TestRunnerErrors(t *testing.T) {
	t.Parallel()

	r, err := NewRunner(texcache.Config{}, []Mapping{{GPU: 0x10_0000, CPU: 0x8000, Size: 0x1000}})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	for _, op := range []Op{
		{Op: OpSurface},
		{Op: OpTexture},
		{Op: OpBlit},
		{Op: OpFlush, Addr: 0x90_0000, Size: 16},
		{Op: OpColor, Index: texcache.NumRenderTargets},
		{Op: OpDraw, Colors: []int{-1}},
		{Op: "teleport"},
	} {
		res := r.Exec(op)
		assert.NotEmpty(t, res.Error, "op %q", op.Op)
	}
	assert.Equal(t, 7, r.Report().Failures)

	_, err = NewRunner(texcache.Config{}, []Mapping{{GPU: 0x10_0001, CPU: 0, Size: 0x1000}})
	require.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	rep := &Report{Name: "x", Failures: 2, Results: []OpResult{{Index: 0, Op: OpBarrier}}}
	require.NoError(t, WriteReport(path, rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(*rep, back); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.jsonc"))
	require.NoError(t, err)
	assert.Equal(t, texcache.Config{}, cfg)

	path := filepath.Join(dir, "texcache.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{\n// strict\n\"accurate_emulation\": true,\n}"), 0o600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.AccurateEmulation)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadConfig(path)
	require.ErrorContains(t, err, "invalid JSONC")
}

func (r *Runner) mustTranslate(t *testing.T, addr texcache.GPUVAddr) texcache.CacheAddr {
	t.Helper()
	c, ok := r.memory.Translate(addr)
	require.True(t, ok)
	return c
}
