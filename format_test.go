package texcache

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFormatTableComplete(t *testing.T) {
	for f := PixelFormat(0); f < formatCount; f++ {
		info := formatTable[f]
		if info.name == "" || info.bpp == 0 || info.tileW == 0 || info.tileH == 0 {
			t.Errorf("format %d has incomplete table entry %+v", f, info)
		}
	}
}

func TestFormatProperties(t *testing.T) {
	tests := []struct {
		format     PixelFormat
		bpp        uint32
		compressed bool
		depth      bool
	}{
		{FormatABGR8U, 4, false, false},
		{FormatRGBA32F, 16, false, false},
		{FormatDXT1, 8, true, false},
		{FormatASTC2D8x8, 16, true, false},
		{FormatZ16, 2, false, true},
		{FormatZ32FS8, 8, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			if got := tt.format.BytesPerPixel(); got != tt.bpp {
				t.Errorf("BytesPerPixel() = %d, want %d", got, tt.bpp)
			}
			if got := tt.format.Compressed(); got != tt.compressed {
				t.Errorf("Compressed() = %v, want %v", got, tt.compressed)
			}
			if got := tt.format.IsDepth(); got != tt.depth {
				t.Errorf("IsDepth() = %v, want %v", got, tt.depth)
			}
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	if FormatInvalid.Valid() {
		t.Error("FormatInvalid.Valid() = true")
	}
	if got := FormatInvalid.BytesPerPixel(); got != 0 {
		t.Errorf("FormatInvalid.BytesPerPixel() = %d, want 0", got)
	}
	if got := FormatInvalid.Type(); got != SurfaceInvalid {
		t.Errorf("FormatInvalid.Type() = %v, want %v", got, SurfaceInvalid)
	}
}

func TestSiblingTableSymmetric(t *testing.T) {
	table := newSiblingTable()
	pairs := [][2]PixelFormat{
		{FormatZ16, FormatR16U},
		{FormatZ32F, FormatR32F},
		{FormatZ32FS8, FormatRG32F},
	}
	for _, p := range pairs {
		if got := table.sibling(p[0]); got != p[1] {
			t.Errorf("sibling(%v) = %v, want %v", p[0], got, p[1])
		}
		if got := table.sibling(p[1]); got != p[0] {
			t.Errorf("sibling(%v) = %v, want %v", p[1], got, p[0])
		}
	}
	if got := table.sibling(FormatABGR8U); got != FormatInvalid {
		t.Errorf("sibling(ABGR8U) = %v, want none", got)
	}
	if got := table.sibling(FormatInvalid); got != FormatInvalid {
		t.Errorf("sibling(invalid) = %v, want none", got)
	}
}

func TestParseFormat(t *testing.T) {
	for f := PixelFormat(0); f < formatCount; f++ {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", f.String(), got, err, f)
		}
	}
	if _, err := ParseFormat("RGB565"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(unknown) error = %v, want %v", err, ErrUnknownFormat)
	}
}

func TestParseTarget(t *testing.T) {
	for target := Texture1D; target <= TextureCubeArray; target++ {
		got, err := ParseTarget(target.String())
		if err != nil || got != target {
			t.Errorf("ParseTarget(%q) = %v, %v, want %v", target.String(), got, err, target)
		}
	}
	if _, err := ParseTarget("4D"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("ParseTarget(unknown) error = %v, want %v", err, ErrUnknownTarget)
	}
}

func TestTargetLayered(t *testing.T) {
	layered := map[SurfaceTarget]bool{
		Texture1D:        false,
		TextureBuffer:    false,
		Texture2D:        false,
		Texture3D:        false,
		Texture1DArray:   true,
		Texture2DArray:   true,
		TextureCubemap:   true,
		TextureCubeArray: true,
	}
	for target, want := range layered {
		if got := target.Layered(); got != want {
			t.Errorf("%v.Layered() = %v, want %v", target, got, want)
		}
	}
}

func TestParsePixelFormat(t *testing.T) {
	for f := range formatCount {
		got, err := ParsePixelFormat(strings.ToLower(f.String()))
		if err != nil || got != f {
			t.Errorf("ParsePixelFormat(%q) = %v, %v, want %v", f.String(), got, err, f)
		}
	}
	if _, err := ParsePixelFormat("RGB565"); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("ParsePixelFormat(unknown) error = %v, want %v", err, ErrInvalidParams)
	}
}

func TestTextMarshalling(t *testing.T) {
	var v struct {
		Format PixelFormat   `json:"format"`
		Target SurfaceTarget `json:"target"`
	}
	if err := json.Unmarshal([]byte(`{"format":"Z32FS8","target":"cubearray"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Format != FormatZ32FS8 || v.Target != TextureCubeArray {
		t.Errorf("decoded %v %v, want Z32FS8 CubeArray", v.Format, v.Target)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"format":"Z32FS8","target":"CubeArray"}`; string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
	if err := json.Unmarshal([]byte(`{"target":"4D"}`), &v); err == nil {
		t.Error("unknown target decoded")
	}
}
