// Package halbackend provides a texcache host backend that keeps surfaces in
// gogpu/wgpu HAL textures.
//
// Uploads go through queue.WriteTexture and downloads through a staging
// buffer that is read back after a fenced submit. Copies and blits between
// surfaces are staged through host memory in the texcache host layout.
//
// The backend either opens its own Vulkan device on Init or shares the
// device of a host application:
//
//	b, err := halbackend.NewFromProvider(app)
//
// Importing the package registers it under [backend.BackendHAL].
package halbackend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register Vulkan HAL backend

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/internal/hostcopy"
)

// HAL backend errors.
var (
	// ErrNilHALDevice is returned when the backend has no device.
	ErrNilHALDevice = errors.New("halbackend: HAL device is nil")

	// ErrUnsupportedFormat is returned for guest formats without a host
	// texture format.
	ErrUnsupportedFormat = errors.New("halbackend: unsupported format")

	// ErrForeignSurface is returned when a surface was created by another
	// backend.
	ErrForeignSurface = errors.New("halbackend: surface belongs to another backend")

	// ErrSurfaceDestroyed is returned when operating on a destroyed surface.
	ErrSurfaceDestroyed = errors.New("halbackend: surface has been destroyed")

	// ErrShortBuffer is returned when an upload or download buffer is
	// smaller than the surface.
	ErrShortBuffer = errors.New("halbackend: buffer smaller than surface")
)

func init() {
	backend.Register(backend.BackendHAL, func() backend.HostBackend {
		return New()
	})
}

// Backend is a texcache host backend on top of a HAL device.
type Backend struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// externalDevice is true when the device belongs to the host
	// application and must not be destroyed on Close.
	externalDevice bool
}

// New creates a backend that opens its own device on Init.
func New() *Backend {
	return &Backend{}
}

// NewWithDevice creates a backend on a device owned by the caller.
func NewWithDevice(device hal.Device, queue hal.Queue) *Backend {
	return &Backend{device: device, queue: queue, externalDevice: true}
}

// NewFromProvider creates a backend on the device of a gpucontext provider.
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	b := New()
	if err := b.SetDeviceProvider(provider); err != nil {
		return nil, err
	}
	return b, nil
}

// SetDeviceProvider switches the backend to a shared device. Surfaces
// created on the previous device must be destroyed first.
func (b *Backend) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("halbackend: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("halbackend: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("halbackend: provider HalQueue is not hal.Queue")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.device, b.queue, b.externalDevice = device, queue, true
	return nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendHAL
}

// Init opens a standalone device unless one was provided.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		return nil
	}

	api, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan HAL not available", backend.ErrBackendNotAvailable)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("halbackend: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("%w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("halbackend: open device: %w", err)
	}
	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	texcache.Logger().Info("halbackend: device opened", "adapter", selected.Info.Name)
	return nil
}

// Close releases the device if the backend opened it.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

func (b *Backend) releaseLocked() {
	if !b.externalDevice && b.device != nil {
		b.device.Destroy()
	}
	if b.instance != nil {
		b.instance.Destroy()
	}
	b.instance, b.device, b.queue = nil, nil, nil
	b.externalDevice = false
}

func (b *Backend) handles() (hal.Device, hal.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil || b.queue == nil {
		return nil, nil, ErrNilHALDevice
	}
	return b.device, b.queue, nil
}

// CreateSurface creates a texture holding every level and layer of params.
func (b *Backend) CreateSurface(gpuAddr texcache.GPUVAddr, params texcache.SurfaceParams) (texcache.HostSurface, error) {
	device, queue, err := b.handles()
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	format, ok := textureFormat(params.Format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, params.Format)
	}

	usage := gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
	if params.Target != texcache.Texture3D {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	label := fmt.Sprintf("texcache_%#x", uint64(gpuAddr))
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              params.Width,
			Height:             params.Height,
			DepthOrArrayLayers: params.Depth,
		},
		MipLevelCount: params.NumLevels,
		SampleCount:   1,
		Dimension:     textureDimension(params.Target),
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("halbackend: create texture %s: %w", params, err)
	}
	texcache.Logger().Debug("halbackend: surface created",
		"gpu_addr", uint64(gpuAddr), "params", params.String())
	return &Surface{
		device: device,
		queue:  queue,
		params: params,
		format: format,
		label:  label,
		tex:    tex,
	}, nil
}

// ImageCopy copies a region between two surfaces through host memory.
func (b *Backend) ImageCopy(src, dst texcache.HostSurface, region texcache.CopyParams) error {
	s, d, err := surfacePair(src, dst)
	if err != nil {
		return err
	}
	return d.modify(s, func(dst, src hostcopy.Image) error {
		return hostcopy.Copy(dst, src, region)
	})
}

// ImageBlit copies cfg.Src of the first layer and level of src into cfg.Dst
// of dst through host memory.
func (b *Backend) ImageBlit(src, dst *texcache.View, cfg texcache.BlitConfig) error {
	if src == nil || dst == nil {
		return fmt.Errorf("%w: nil view", ErrForeignSurface)
	}
	s, d, err := surfacePair(src.Surface().Host(), dst.Surface().Host())
	if err != nil {
		return err
	}
	sp, dp := src.Params(), dst.Params()
	return d.modify(s, func(dst, src hostcopy.Image) error {
		_, err := hostcopy.Blit(
			dst, hostcopy.Plane{Layer: dp.BaseLayer, Level: dp.BaseLevel},
			src, hostcopy.Plane{Layer: sp.BaseLayer, Level: sp.BaseLevel},
			cfg)
		return err
	})
}

// BufferCopy reinterprets the bytes of src as the contents of dst.
func (b *Backend) BufferCopy(src, dst texcache.HostSurface) error {
	s, d, err := surfacePair(src, dst)
	if err != nil {
		return err
	}
	return d.modify(s, func(dst, src hostcopy.Image) error {
		copy(dst.Data, src.Data)
		return nil
	})
}

func surfacePair(src, dst texcache.HostSurface) (*Surface, *Surface, error) {
	s, err := hostSurface(src)
	if err != nil {
		return nil, nil, err
	}
	d, err := hostSurface(dst)
	if err != nil {
		return nil, nil, err
	}
	return s, d, nil
}

func hostSurface(h texcache.HostSurface) (*Surface, error) {
	s, ok := h.(*Surface)
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignSurface, h)
	}
	if s.tex == nil {
		return nil, ErrSurfaceDestroyed
	}
	return s, nil
}
