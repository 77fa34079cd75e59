package hac

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/hac/gpucore"
)

// ResourceKind is the variant tag of a Resource.
type ResourceKind uint8

// Resource kinds.
const (
	// KindSampledTexture is a read-only RGBA8 texture bound for sampling.
	KindSampledTexture ResourceKind = iota + 1

	// KindStorageTexture is a write-only RGBA8 storage texture.
	KindStorageTexture

	// KindStorageBuffer is a read-only typed element array.
	KindStorageBuffer

	// KindInlineParams is a small per-dispatch parameter block.
	KindInlineParams

	// KindSampler is a texture sampler.
	KindSampler

	// KindRWStorageBuffer is a typed element array kernels may write to.
	KindRWStorageBuffer
)

// String returns the kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindSampledTexture:
		return "sampled texture"
	case KindStorageTexture:
		return "storage texture"
	case KindStorageBuffer:
		return "storage buffer"
	case KindInlineParams:
		return "inline params"
	case KindSampler:
		return "sampler"
	case KindRWStorageBuffer:
		return "read-write storage buffer"
	default:
		return "unknown"
	}
}

// TextureAccess selects how a texture is bound in kernels.
type TextureAccess uint8

// Texture access modes.
const (
	// SampledRead binds the texture read-only for sampling and loads.
	SampledRead TextureAccess = iota + 1

	// StorageWrite binds the texture write-only for storage writes.
	StorageWrite
)

// Resource is a typed handle to device memory owned by a DeviceContext.
//
// A Resource is exclusively owned by the Pipeline that uses it until that
// Pipeline completes; sharing one across concurrently submitted Pipelines
// without an explicit completion barrier is a caller error with no defined
// ordering.
type Resource struct {
	ctx    *DeviceContext
	kind   ResourceKind
	extent Extent2D

	// Backend handles. Exactly one is set, matching kind. Sampled views
	// created by Sampled() share tex with their parent.
	tex gpucore.TextureID
	buf gpucore.BufferID
	smp gpucore.SamplerID

	// size is the byte size for buffer-backed resources.
	size uint64

	// params holds inline parameter bytes host-side until recording.
	params []byte

	readable bool
}

// Kind returns the resource's variant tag.
func (r *Resource) Kind() ResourceKind { return r.kind }

// Extent returns the texture extent; zero for non-texture resources.
func (r *Resource) Extent() Extent2D { return r.extent }

// Sampled returns a read-only sampled view of a storage texture, sharing
// the same underlying image. This is the ownership-transfer point for
// chained passes: the output written by one pass becomes the sampled
// input of the next.
func (r *Resource) Sampled() (*Resource, error) {
	if r.kind != KindStorageTexture {
		return nil, fmt.Errorf("%w: %s cannot be viewed as sampled", ErrBindingMismatch, r.kind)
	}
	view := *r
	view.kind = KindSampledTexture
	return &view, nil
}

// CreateTexture creates an RGBA8 texture of the given extent and access
// mode. If initialData is non-nil its length must be exactly
// extent.Width*extent.Height*4 bytes, or ErrSizeMismatch is returned.
// Textures are created copy-eligible, so ReadBack works on both access
// modes.
func (c *DeviceContext) CreateTexture(extent Extent2D, access TextureAccess, initialData []byte) (*Resource, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	if !extent.Valid() {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidExtent, extent.Width, extent.Height)
	}
	if initialData != nil && uint64(len(initialData)) != extent.ByteSize() {
		return nil, fmt.Errorf("%w: texture %dx%d needs %d bytes, got %d",
			ErrSizeMismatch, extent.Width, extent.Height, extent.ByteSize(), len(initialData))
	}

	kind := KindSampledTexture
	if access == StorageWrite {
		kind = KindStorageTexture
	}

	// Both binding usages are always requested so a storage texture can
	// later be viewed as sampled when passes are chained.
	usage := gpucore.TextureUsageCopySrc | gpucore.TextureUsageCopyDst |
		gpucore.TextureUsageSampled | gpucore.TextureUsageStorage

	id, err := c.adapter.CreateTexture(extent.Width, extent.Height, gpucore.TextureFormatRGBA8Unorm, usage, "hac_texture")
	if err != nil {
		return nil, fmt.Errorf("hac: create texture: %w", err)
	}
	if initialData != nil {
		if err := c.adapter.WriteTexture(id, initialData); err != nil {
			c.adapter.DestroyTexture(id)
			return nil, fmt.Errorf("hac: upload texture: %w", err)
		}
	}

	r := &Resource{
		ctx:      c,
		kind:     kind,
		extent:   extent,
		tex:      id,
		size:     extent.ByteSize(),
		readable: true,
	}
	c.track(r)
	return r, nil
}

// BufferElement constrains buffer element types to fixed-layout numerics.
type BufferElement interface {
	int32 | uint32 | float32
}

// CreateBuffer creates a read-only storage buffer initialized from
// elements. The buffer is immutable once created.
//
// Elements are stored in device-native layout; hac encodes them
// little-endian, which matches every backend the gogpu stack targets.
// Persisting read-back bytes across devices with different endianness is
// not portable.
func CreateBuffer[T BufferElement](c *DeviceContext, elements []T) (*Resource, error) {
	return createStorageBuffer(c, elements, KindStorageBuffer)
}

// CreateRWBuffer creates a read-write storage buffer initialized from
// elements. Kernels bound to it through a read-write storage slot may
// write into it, and the final contents come back through ReadBack.
// Use a zeroed slice for pure output buffers.
func CreateRWBuffer[T BufferElement](c *DeviceContext, elements []T) (*Resource, error) {
	return createStorageBuffer(c, elements, KindRWStorageBuffer)
}

func createStorageBuffer[T BufferElement](c *DeviceContext, elements []T, kind ResourceKind) (*Resource, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	data := encodeElements(elements)

	id, err := c.adapter.CreateBuffer(uint64(len(data)),
		gpucore.BufferUsageStorage|gpucore.BufferUsageCopySrc|gpucore.BufferUsageCopyDst, "hac_buffer")
	if err != nil {
		return nil, fmt.Errorf("hac: create buffer: %w", err)
	}
	c.adapter.WriteBuffer(id, 0, data)

	r := &Resource{
		ctx:      c,
		kind:     kind,
		buf:      id,
		size:     uint64(len(data)),
		readable: true,
	}
	c.track(r)
	return r, nil
}

// encodeElements packs fixed-width numeric elements little-endian.
func encodeElements[T BufferElement](elements []T) []byte {
	data := make([]byte, len(elements)*4)
	for i, e := range elements {
		var bits uint32
		switch v := any(e).(type) {
		case int32:
			bits = uint32(v)
		case uint32:
			bits = v
		case float32:
			bits = math.Float32bits(v)
		}
		binary.LittleEndian.PutUint32(data[i*4:], bits)
	}
	return data
}

// CreateInlineParams creates a small per-dispatch parameter block. The
// byte length must not exceed the device limit (Limits().MaxInlineParamsSize,
// commonly 128 bytes), or ErrParamsTooLarge is returned. Inline params
// are not copy-eligible: ReadBack on them fails with ErrResourceNotReadable.
func (c *DeviceContext) CreateInlineParams(data []byte) (*Resource, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	limit := c.adapter.Limits().MaxInlineParamsSize
	if uint32(len(data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrParamsTooLarge, len(data), limit)
	}
	r := &Resource{
		ctx:    c,
		kind:   KindInlineParams,
		params: append([]byte(nil), data...),
		size:   uint64(len(data)),
	}
	c.track(r)
	return r, nil
}

// SamplerDesc re-exports the backend-neutral sampler description.
type SamplerDesc = gpucore.SamplerDesc

// Sampler address and filter modes, re-exported for callers.
const (
	AddressModeClampToEdge = gpucore.AddressModeClampToEdge
	AddressModeRepeat      = gpucore.AddressModeRepeat
	FilterModeNearest      = gpucore.FilterModeNearest
	FilterModeLinear       = gpucore.FilterModeLinear
)

// CreateSampler creates a texture sampler resource. Samplers are not
// copy-eligible.
func (c *DeviceContext) CreateSampler(desc SamplerDesc) (*Resource, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	id, err := c.adapter.CreateSampler(&desc)
	if err != nil {
		return nil, fmt.Errorf("hac: create sampler: %w", err)
	}
	r := &Resource{
		ctx:  c,
		kind: KindSampler,
		smp:  id,
	}
	c.track(r)
	return r, nil
}
