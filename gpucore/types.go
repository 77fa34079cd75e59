// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Resource IDs
//
// These opaque IDs represent accelerator resources. Each adapter
// implementation maintains a mapping between IDs and actual backend
// resources. IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// TextureID is an opaque handle to a device texture.
type TextureID uint64

// SamplerID is an opaque handle to a texture sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 1

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 2

	// BufferUsageUniform indicates the buffer can be bound as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 3

	// BufferUsageStorage indicates the buffer can be bound as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 4
)

// TextureFormat specifies the format of texture data.
//
// The compute core only traffics in RGBA8; the enum exists so adapters
// can reject formats they do not support rather than silently reinterpret.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1
)

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageCopySrc indicates the texture can be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << 0

	// TextureUsageCopyDst indicates the texture can be used as a copy destination.
	TextureUsageCopyDst TextureUsage = 1 << 1

	// TextureUsageSampled indicates the texture can be bound for sampling.
	TextureUsageSampled TextureUsage = 1 << 2

	// TextureUsageStorage indicates the texture can be bound as a storage texture.
	TextureUsageStorage TextureUsage = 1 << 3
)

// BindingType specifies the type of a shader binding slot.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingTypeReadOnlyStorageBuffer

	// BindingTypeStorageBuffer is a read-write storage buffer binding.
	BindingTypeStorageBuffer

	// BindingTypeSampler is a texture sampler binding.
	BindingTypeSampler

	// BindingTypeSampledTexture is a sampled (read-only) texture binding.
	BindingTypeSampledTexture

	// BindingTypeStorageTexture is a write-only storage texture binding.
	BindingTypeStorageTexture
)

// String returns the WGSL-flavored name of the binding type.
func (t BindingType) String() string {
	switch t {
	case BindingTypeUniformBuffer:
		return "uniform"
	case BindingTypeReadOnlyStorageBuffer:
		return "storage, read"
	case BindingTypeStorageBuffer:
		return "storage, read_write"
	case BindingTypeSampler:
		return "sampler"
	case BindingTypeSampledTexture:
		return "texture_2d"
	case BindingTypeStorageTexture:
		return "texture_storage_2d"
	default:
		return "unknown"
	}
}

// AddressMode specifies how texture sampling treats out-of-range coordinates.
type AddressMode uint32

// Address modes.
const (
	// AddressModeClampToEdge clamps coordinates to the texture edge.
	AddressModeClampToEdge AddressMode = iota

	// AddressModeRepeat wraps coordinates around the texture.
	AddressModeRepeat
)

// FilterMode specifies how texture samples are interpolated.
type FilterMode uint32

// Filter modes.
const (
	// FilterModeNearest selects the nearest texel.
	FilterModeNearest FilterMode = iota

	// FilterModeLinear blends the four nearest texels bilinearly.
	FilterModeLinear
)

// SamplerDesc describes a texture sampler.
type SamplerDesc struct {
	// Label is an optional debug label.
	Label string

	// AddressModeU is the behavior for u coordinates outside [0,1].
	AddressModeU AddressMode

	// AddressModeV is the behavior for v coordinates outside [0,1].
	AddressModeV AddressMode

	// MagFilter is the filter applied when magnifying.
	MagFilter FilterMode

	// MinFilter is the filter applied when minifying.
	MinFilter FilterMode
}

// ShaderModuleDesc describes a compute shader module.
type ShaderModuleDesc struct {
	// Label is an optional debug label.
	Label string

	// WGSL is the shader source text. Required.
	WGSL string

	// Host is an optional CPU mirror of the shader, used by the software
	// adapter. Adapters that execute on a device ignore it.
	Host *HostProgram
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// ShaderModule contains the compute shader.
	ShaderModule ShaderModuleID

	// EntryPoint is the name of the shader entry point function.
	EntryPoint string
}

// BindGroupLayoutDesc describes a bind group layout.
type BindGroupLayoutDesc struct {
	// Label is an optional debug label.
	Label string

	// Entries defines the bindings in this layout.
	Entries []BindGroupLayoutEntry
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// MinBindingSize is the minimum buffer size for buffer bindings.
	// Zero for non-buffer bindings.
	MinBindingSize uint64
}

// BindGroupEntry describes a single binding in a bind group.
// Exactly one of Buffer, Texture, or Sampler must be set.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind (for buffer bindings).
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Zero binds the entire buffer from Offset.
	Size uint64

	// Texture is the texture to bind (for texture bindings).
	Texture TextureID

	// Sampler is the sampler to bind (for sampler bindings).
	Sampler SamplerID
}

// DeviceType classifies the accelerator backing an adapter.
type DeviceType uint32

// Device types, in preference order.
const (
	// DeviceTypeDiscreteGPU is a dedicated graphics card.
	DeviceTypeDiscreteGPU DeviceType = iota + 1

	// DeviceTypeIntegratedGPU is a GPU sharing memory with the CPU.
	DeviceTypeIntegratedGPU

	// DeviceTypeCPU is a software rasterizer or the software adapter itself.
	DeviceTypeCPU

	// DeviceTypeOther is any accelerator the backend could not classify.
	DeviceTypeOther
)

// String returns a human-readable device type name.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDiscreteGPU:
		return "discrete GPU"
	case DeviceTypeIntegratedGPU:
		return "integrated GPU"
	case DeviceTypeCPU:
		return "CPU"
	default:
		return "other"
	}
}

// DeviceInfo describes the accelerator an adapter is bound to.
type DeviceInfo struct {
	// Name is the device name (e.g. "NVIDIA GeForce RTX 3080", "software").
	Name string

	// Backend is the adapter implementation name ("native", "software").
	Backend string

	// Type classifies the device.
	Type DeviceType
}

// Limits describes adapter capability limits relevant to the compute core.
type Limits struct {
	// MaxInlineParamsSize is the maximum byte size of an inline parameter
	// block. Commonly 128.
	MaxInlineParamsSize uint32

	// MaxTextureDimension2D is the maximum width/height of a 2D texture.
	MaxTextureDimension2D uint32

	// MaxWorkgroupsPerDimension is the maximum workgroup count in each
	// dispatch dimension.
	MaxWorkgroupsPerDimension uint32
}

// DefaultLimits returns the limits assumed when a backend reports none.
func DefaultLimits() Limits {
	return Limits{
		MaxInlineParamsSize:       128,
		MaxTextureDimension2D:     8192,
		MaxWorkgroupsPerDimension: 65535,
	}
}
