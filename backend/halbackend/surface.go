package halbackend

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/internal/hostcopy"
)

// copyPitchAlignment is the BytesPerRow alignment of texture to buffer
// copies.
const copyPitchAlignment = 256

// fenceTimeout bounds the wait for a readback submit.
const fenceTimeout = 5 * time.Second

// Surface is a host surface backed by a HAL texture.
type Surface struct {
	device hal.Device
	queue  hal.Queue
	params texcache.SurfaceParams
	format gputypes.TextureFormat
	label  string
	tex    hal.Texture
	views  []hal.TextureView
}

// Texture returns the HAL texture, or nil after Destroy.
func (s *Surface) Texture() hal.Texture { return s.tex }

// Format returns the host texture format.
func (s *Surface) Format() gputypes.TextureFormat { return s.format }

// levelRegion describes where one mip level lives in the host layout and
// in a readback buffer.
type levelRegion struct {
	level      uint32
	width      uint32
	height     uint32
	rows       uint32
	slices     uint32
	rowBytes   uint32
	stride     uint32
	hostOffset uint64
	bufOffset  uint64
}

// levelRegions lays out every level of p in host layout and in a staging
// buffer whose rows are padded to copyPitchAlignment.
func levelRegions(p texcache.SurfaceParams) ([]levelRegion, uint64) {
	regions := make([]levelRegion, 0, p.NumLevels)
	var bufSize uint64
	for level := uint32(0); level < p.NumLevels; level++ {
		w, h, d := p.MipExtent(level)
		rowBytes := w * p.BytesPerPixel()
		stride := (rowBytes + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
		r := levelRegion{
			level:      level,
			width:      p.MipWidth(level),
			height:     p.MipHeight(level),
			rows:       h,
			slices:     p.NumLayers() * d,
			rowBytes:   rowBytes,
			stride:     stride,
			hostOffset: p.HostMipOffset(level),
			bufOffset:  bufSize,
		}
		regions = append(regions, r)
		bufSize += uint64(stride) * uint64(h) * uint64(r.slices)
	}
	return regions, bufSize
}

// unpad copies the padded rows of a readback buffer into the tightly packed
// host layout.
func unpad(host, staging []byte, regions []levelRegion) {
	for _, r := range regions {
		n := int(r.rows) * int(r.slices)
		for row := 0; row < n; row++ {
			so := r.bufOffset + uint64(row)*uint64(r.stride)
			do := r.hostOffset + uint64(row)*uint64(r.rowBytes)
			copy(host[do:do+uint64(r.rowBytes)], staging[so:so+uint64(r.rowBytes)])
		}
	}
}

// Upload replaces the contents with data in host layout, one level at a
// time.
func (s *Surface) Upload(data []byte) error {
	if s.tex == nil {
		return ErrSurfaceDestroyed
	}
	size := s.params.HostSizeInBytes()
	if uint64(len(data)) < size {
		return fmt.Errorf("%w: upload of %d bytes into %d", ErrShortBuffer, len(data), size)
	}
	regions, _ := levelRegions(s.params)
	for _, r := range regions {
		levelSize := uint64(r.rowBytes) * uint64(r.rows) * uint64(r.slices)
		s.queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  s.tex,
				MipLevel: r.level,
			},
			data[r.hostOffset:r.hostOffset+levelSize],
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  r.rowBytes,
				RowsPerImage: r.rows,
			},
			&hal.Extent3D{Width: r.width, Height: r.height, DepthOrArrayLayers: r.slices},
		)
	}
	return nil
}

// Download reads the contents in host layout into data.
func (s *Surface) Download(data []byte) error {
	if s.tex == nil {
		return ErrSurfaceDestroyed
	}
	size := s.params.HostSizeInBytes()
	if uint64(len(data)) < size {
		return fmt.Errorf("%w: download of %d bytes into %d", ErrShortBuffer, size, len(data))
	}

	regions, bufSize := levelRegions(s.params)
	stagingBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: s.label + "_readback",
		Size:  bufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("halbackend: create staging buffer: %w", err)
	}
	defer s.device.DestroyBuffer(stagingBuf)

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: s.label + "_readback",
	})
	if err != nil {
		return fmt.Errorf("halbackend: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(s.label + "_readback"); err != nil {
		return fmt.Errorf("halbackend: begin encoding: %w", err)
	}
	for _, r := range regions {
		encoder.CopyTextureToBuffer(s.tex, stagingBuf, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: r.bufOffset, BytesPerRow: r.stride, RowsPerImage: r.rows},
			TextureBase:  hal.ImageCopyTexture{Texture: s.tex, MipLevel: r.level},
			Size:         hal.Extent3D{Width: r.width, Height: r.height, DepthOrArrayLayers: r.slices},
		}})
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("halbackend: end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.device.CreateFence()
	if err != nil {
		return fmt.Errorf("halbackend: create fence: %w", err)
	}
	defer s.device.DestroyFence(fence)

	if err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("halbackend: submit: %w", err)
	}
	fenceOK, err := s.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("halbackend: wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, bufSize)
	if err := s.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("halbackend: readback: %w", err)
	}
	unpad(data, readback, regions)
	return nil
}

// modify downloads s and src, applies fn to their host images and uploads
// the result into s.
func (s *Surface) modify(src *Surface, fn func(dst, src hostcopy.Image) error) error {
	srcData := make([]byte, src.params.HostSizeInBytes())
	if err := src.Download(srcData); err != nil {
		return err
	}
	dstData := make([]byte, s.params.HostSizeInBytes())
	if err := s.Download(dstData); err != nil {
		return err
	}
	err := fn(
		hostcopy.Image{Params: s.params, Data: dstData},
		hostcopy.Image{Params: src.params, Data: srcData})
	if err != nil {
		return err
	}
	return s.Upload(dstData)
}

// CreateView returns a hal.TextureView over a layer and level range of s.
func (s *Surface) CreateView(desc texcache.ViewParams) (texcache.HostView, error) {
	if s.tex == nil {
		return nil, ErrSurfaceDestroyed
	}
	if desc.NumLayers == 0 || desc.NumLevels == 0 ||
		desc.BaseLayer+desc.NumLayers > s.params.NumLayers() ||
		desc.BaseLevel+desc.NumLevels > s.params.NumLevels {
		return nil, fmt.Errorf("%w: view %+v of %s", hostcopy.ErrOutOfBounds, desc, s.params)
	}
	view, err := s.device.CreateTextureView(s.tex, &hal.TextureViewDescriptor{
		Label:           s.label + "_view",
		Format:          s.format,
		Dimension:       viewDimension(desc.Target),
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    desc.BaseLevel,
		MipLevelCount:   desc.NumLevels,
		BaseArrayLayer:  desc.BaseLayer,
		ArrayLayerCount: desc.NumLayers,
	})
	if err != nil {
		return nil, fmt.Errorf("halbackend: create view: %w", err)
	}
	s.views = append(s.views, view)
	return view, nil
}

// Destroy releases the views and the texture. Destroy is idempotent.
func (s *Surface) Destroy() {
	if s.tex == nil {
		return
	}
	for _, v := range s.views {
		s.device.DestroyTextureView(v)
	}
	s.views = nil
	s.device.DestroyTexture(s.tex)
	s.tex = nil
}
