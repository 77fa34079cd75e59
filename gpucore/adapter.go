// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Adapter abstracts over compute backend implementations.
//
// Implementations must be safe for concurrent use. Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while a recorded command references it is
//     undefined behavior
//   - IDs become invalid after destruction and must not be reused
type Adapter interface {
	// Info describes the accelerator this adapter is bound to.
	Info() DeviceInfo

	// Limits reports the adapter's capability limits.
	Limits() Limits

	// === Shader Compilation ===

	// CreateShaderModule creates a shader module from WGSL source.
	// Returns the module ID, or an error if the source does not
	// validate for this adapter's dialect.
	CreateShaderModule(desc *ShaderModuleDesc) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Buffer Management ===

	// CreateBuffer creates a device buffer of size bytes.
	CreateBuffer(size uint64, usage BufferUsage, label string) (BufferID, error)

	// DestroyBuffer releases a device buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data to a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// ReadBuffer reads size bytes from a buffer starting at offset.
	// This may cause a device-host synchronization stall.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// === Texture Management ===

	// CreateTexture creates a 2D texture.
	CreateTexture(width, height uint32, format TextureFormat, usage TextureUsage, label string) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture writes tightly packed pixel data covering the whole
	// texture. len(data) must equal width*height*bytesPerPixel.
	WriteTexture(id TextureID, data []byte) error

	// ReadTexture reads the whole texture back as tightly packed pixel
	// data. This causes a device-host synchronization stall.
	ReadTexture(id TextureID) ([]byte, error)

	// === Samplers ===

	// CreateSampler creates a texture sampler.
	CreateSampler(desc *SamplerDesc) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// === Pipeline Management ===

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout from bind group
	// layouts, ordered by group index.
	CreatePipelineLayout(layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// CreateBindGroup binds actual resources to a bind group layout.
	CreateBindGroup(layout BindGroupLayoutID, entries []BindGroupEntry) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// === Command Recording and Execution ===

	// BeginComputePass begins recording a compute pass. The encoder must
	// be ended with ComputePassEncoder.End before Submit.
	BeginComputePass() ComputePassEncoder

	// Submit submits all recorded passes to the device as one unit.
	// Passes execute in recording order with resource dependencies
	// honored between them. An error invalidates the adapter: the
	// device is considered lost.
	Submit() error

	// Discard drops every pass recorded since the last Submit without
	// executing it. Used to unwind a recording that failed partway.
	Discard()

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error

	// Close releases the adapter and its device connection.
	Close()
}

// ComputePassEncoder records compute commands.
//
// Usage:
//  1. Obtain an encoder from Adapter.BeginComputePass
//  2. Set the pipeline and bind groups
//  3. Dispatch workgroups
//  4. Call End to finish recording
//  5. Call Adapter.Submit to execute
//
// The encoder is single-use and cannot be reused after End.
type ComputePassEncoder interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetBindGroup sets a bind group at the specified group index.
	SetBindGroup(index uint32, group BindGroupID)

	// Dispatch dispatches x*y*z workgroups of the active pipeline.
	Dispatch(x, y, z uint32)

	// End finishes the compute pass.
	End()
}

// HostProgram is a CPU mirror of a compute shader. The software adapter
// executes it invocation by invocation over the dispatch grid; device
// adapters ignore it. A mirror must implement the same algorithm as the
// WGSL source it accompanies.
type HostProgram struct {
	// Workgroup is the shader's workgroup size, matching the
	// @workgroup_size attribute of the WGSL entry points.
	Workgroup [3]uint32

	// Entries maps entry point names to their invocation functions.
	Entries map[string]HostKernel
}

// HostKernel computes one shader invocation. gid is the global invocation
// id, identical to WGSL's @builtin(global_invocation_id).
type HostKernel func(env DispatchEnv, gid [3]uint32)

// DispatchEnv gives a HostKernel access to the resources bound for the
// current dispatch. Group and binding indices follow the pipeline's bind
// group layouts.
type DispatchEnv interface {
	// Buffer returns the raw bytes of the buffer bound at (group, binding).
	// The slice aliases adapter memory; kernels may read, and write only
	// through read-write storage bindings.
	Buffer(group, binding uint32) []byte

	// TextureLoad reads the texel at (x, y) from the texture bound at
	// (group, binding), as normalized float components.
	TextureLoad(group, binding, x, y uint32) [4]float32

	// TextureStore writes a texel to the storage texture bound at
	// (group, binding). Out-of-range coordinates are discarded.
	TextureStore(group, binding, x, y uint32, texel [4]float32)

	// TextureDims returns the extent of the texture bound at
	// (group, binding), matching WGSL's textureDimensions.
	TextureDims(group, binding uint32) (width, height uint32)

	// SampleLevel samples the texture bound at (texGroup, texBinding)
	// with the sampler bound at (smpGroup, smpBinding) at normalized
	// coordinates (u, v), mip level 0.
	SampleLevel(smpGroup, smpBinding, texGroup, texBinding uint32, u, v float32) [4]float32
}
