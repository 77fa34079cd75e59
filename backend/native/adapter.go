// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hac/backend"
	"github.com/gogpu/hac/gpucore"
)

// gpuTimeout bounds every fence wait. A device that cannot finish a
// compute dispatch in this window is treated as lost.
const gpuTimeout = 5 * time.Second

// copyPitchAlignment is the BytesPerRow alignment required by
// texture-to-buffer copies (WebGPU and DX12 mandate 256).
const copyPitchAlignment = 256

// halAdapter implements gpucore.Adapter on a gogpu/wgpu HAL device.
//
// All resource operations are protected by a mutex; the adapter is safe
// for concurrent use from multiple goroutines.
type halAdapter struct {
	instance hal.Instance // nil when the device is adopted
	device   hal.Device
	queue    hal.Queue
	info     gpucore.DeviceInfo
	adopted  bool

	nextID atomic.Uint64

	mu          sync.Mutex
	buffers     map[gpucore.BufferID]*trackedBuffer
	textures    map[gpucore.TextureID]*trackedTexture
	samplers    map[gpucore.SamplerID]hal.Sampler
	modules     map[gpucore.ShaderModuleID]hal.ShaderModule
	layouts     map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipeLayouts map[gpucore.PipelineLayoutID]hal.PipelineLayout
	pipelines   map[gpucore.ComputePipelineID]hal.ComputePipeline
	bindGroups  map[gpucore.BindGroupID]hal.BindGroup

	// encoder records work between Submits; created lazily. encoderErr
	// holds a failed encoder creation until the next Submit surfaces it.
	encoder    hal.CommandEncoder
	encoderErr error

	fence      hal.Fence
	fenceValue uint64

	// submitted command buffers are freed once WaitIdle observes the
	// fence value they were submitted with.
	inflight []hal.CommandBuffer
}

type trackedBuffer struct {
	buf  hal.Buffer
	size uint64
}

type trackedTexture struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height uint32
}

func newHALAdapter(instance hal.Instance, device hal.Device, queue hal.Queue, info gpucore.DeviceInfo, adopted bool) (*halAdapter, error) {
	fence, err := device.CreateFence()
	if err != nil {
		if !adopted {
			device.Destroy()
			if instance != nil {
				instance.Destroy()
			}
		}
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	a := &halAdapter{
		instance:    instance,
		device:      device,
		queue:       queue,
		info:        info,
		adopted:     adopted,
		buffers:     make(map[gpucore.BufferID]*trackedBuffer),
		textures:    make(map[gpucore.TextureID]*trackedTexture),
		samplers:    make(map[gpucore.SamplerID]hal.Sampler),
		modules:     make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		layouts:     make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipeLayouts: make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		pipelines:   make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		bindGroups:  make(map[gpucore.BindGroupID]hal.BindGroup),
		fence:       fence,
	}
	a.nextID.Store(1)
	return a, nil
}

func (a *halAdapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// Info reports the opened device identity.
func (a *halAdapter) Info() gpucore.DeviceInfo { return a.info }

// Limits reports the compute limits exposed to callers.
func (a *halAdapter) Limits() gpucore.Limits {
	return gpucore.DefaultLimits()
}

// === Shader modules ===

// CreateShaderModule compiles WGSL to SPIR-V with naga and hands the
// words to the HAL device. Compilation errors carry naga's diagnostic.
func (a *halAdapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	spirvBytes, err := naga.Compile(desc.WGSL)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgsl %q: %w", desc.Label, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module %q: %w", desc.Label, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ShaderModuleID(a.newID())
	a.modules[id] = module
	return id, nil
}

func (a *halAdapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.modules[id]; ok {
		a.device.DestroyShaderModule(m)
		delete(a.modules, id)
	}
}

// === Buffers ===

func (a *halAdapter) CreateBuffer(size uint64, usage gpucore.BufferUsage, label string) (gpucore.BufferID, error) {
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", label, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BufferID(a.newID())
	a.buffers[id] = &trackedBuffer{buf: buf, size: size}
	return id, nil
}

func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&gpucore.BufferUsageMapRead != 0 {
		out |= gputypes.BufferUsageMapRead
	}
	if u&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&gpucore.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&gpucore.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	return out
}

func (a *halAdapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.buffers[id]; ok {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}
}

func (a *halAdapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.Lock()
	b, ok := a.buffers[id]
	a.mu.Unlock()
	if ok {
		a.queue.WriteBuffer(b.buf, offset, data)
	}
}

// ReadBuffer copies a buffer range through a MapRead staging buffer and
// blocks until the copy completes.
func (a *halAdapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.Lock()
	b, ok := a.buffers[id]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("native: unknown buffer %d", id)
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("native: read [%d, %d) out of buffer of %d bytes", offset, offset+size, b.size)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "hac_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	err = a.withBlockingCopy(func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{{
			SrcOffset: offset, DstOffset: 0, Size: size,
		}})
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := a.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("native: readback: %w", err)
	}
	return out, nil
}

// === Textures ===

func (a *halAdapter) CreateTexture(width, height uint32, format gpucore.TextureFormat, usage gpucore.TextureUsage, label string) (gpucore.TextureID, error) {
	if format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("native: unsupported texture format %d", format)
	}
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         textureUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", label, err)
	}
	view, err := a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		a.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create texture view %q: %w", label, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.TextureID(a.newID())
	a.textures[id] = &trackedTexture{tex: tex, view: view, width: width, height: height}
	return id, nil
}

func textureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.TextureUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.TextureUsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	return out
}

func (a *halAdapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.textures[id]; ok {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.tex)
		delete(a.textures, id)
	}
}

// WriteTexture uploads tightly packed RGBA8 rows.
func (a *halAdapter) WriteTexture(id gpucore.TextureID, data []byte) error {
	a.mu.Lock()
	t, ok := a.textures[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("native: unknown texture %d", id)
	}
	want := uint64(t.width) * uint64(t.height) * 4
	if uint64(len(data)) != want {
		return fmt.Errorf("native: texture upload of %d bytes into %d-byte texture", len(data), want)
	}
	a.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: t.width * 4, RowsPerImage: t.height},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	return nil
}

// ReadTexture copies the texture through a staging buffer with
// 256-byte-aligned rows, strips the padding, and returns tight rows.
func (a *halAdapter) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	a.mu.Lock()
	t, ok := a.textures[id]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("native: unknown texture %d", id)
	}

	bytesPerRow := t.width * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(t.height)

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "hac_tex_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	err = a.withBlockingCopy(func(enc hal.CommandEncoder) {
		enc.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: t.height},
			TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		}})
	})
	if err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := a.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("native: readback: %w", err)
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback[:uint64(bytesPerRow)*uint64(t.height)], nil
	}
	tight := make([]byte, uint64(bytesPerRow)*uint64(t.height))
	for row := uint32(0); row < t.height; row++ {
		src := uint64(row) * uint64(alignedBytesPerRow)
		dst := uint64(row) * uint64(bytesPerRow)
		copy(tight[dst:dst+uint64(bytesPerRow)], readback[src:src+uint64(bytesPerRow)])
	}
	return tight, nil
}

// === Samplers ===

func (a *halAdapter) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	smp, err := a.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: addressMode(desc.AddressModeU),
		AddressModeV: addressMode(desc.AddressModeV),
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filterMode(desc.MagFilter),
		MinFilter:    filterMode(desc.MinFilter),
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create sampler %q: %w", desc.Label, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.SamplerID(a.newID())
	a.samplers[id] = smp
	return id, nil
}

func addressMode(m gpucore.AddressMode) gputypes.AddressMode {
	if m == gpucore.AddressModeRepeat {
		return gputypes.AddressModeRepeat
	}
	return gputypes.AddressModeClampToEdge
}

func filterMode(m gpucore.FilterMode) gputypes.FilterMode {
	if m == gpucore.FilterModeNearest {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}

func (a *halAdapter) DestroySampler(id gpucore.SamplerID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.samplers[id]; ok {
		a.device.DestroySampler(s)
		delete(a.samplers, id)
	}
}

// === Layouts, pipelines, bind groups ===

func (a *halAdapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = layoutEntry(e)
	}
	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout %q: %w", desc.Label, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupLayoutID(a.newID())
	a.layouts[id] = layout
	return id, nil
}

func layoutEntry(e gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	out := gputypes.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	switch e.Type {
	case gpucore.BindingTypeUniformBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeStorageBuffer:
		out.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeStorage,
			MinBindingSize: e.MinBindingSize,
		}
	case gpucore.BindingTypeSampledTexture:
		out.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeStorageTexture:
		out.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeSampler:
		out.Sampler = &gputypes.SamplerBindingLayout{
			Type: gputypes.SamplerBindingTypeFiltering,
		}
	}
	return out
}

func (a *halAdapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.layouts[id]; ok {
		a.device.DestroyBindGroupLayout(l)
		delete(a.layouts, id)
	}
}

func (a *halAdapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		l, ok := a.layouts[id]
		if !ok {
			a.mu.Unlock()
			return gpucore.InvalidID, fmt.Errorf("native: unknown bind group layout %d", id)
		}
		halLayouts[i] = l
	}
	a.mu.Unlock()

	layout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "hac_pipeline_layout",
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.PipelineLayoutID(a.newID())
	a.pipeLayouts[id] = layout
	return id, nil
}

func (a *halAdapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.pipeLayouts[id]; ok {
		a.device.DestroyPipelineLayout(l)
		delete(a.pipeLayouts, id)
	}
}

func (a *halAdapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	a.mu.Lock()
	module, okM := a.modules[desc.ShaderModule]
	layout, okL := a.pipeLayouts[desc.Layout]
	a.mu.Unlock()
	if !okM {
		return gpucore.InvalidID, fmt.Errorf("native: unknown shader module %d", desc.ShaderModule)
	}
	if !okL {
		return gpucore.InvalidID, fmt.Errorf("native: unknown pipeline layout %d", desc.Layout)
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create compute pipeline %q: %w", desc.Label, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ComputePipelineID(a.newID())
	a.pipelines[id] = pipeline
	return id, nil
}

func (a *halAdapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.pipelines[id]; ok {
		a.device.DestroyComputePipeline(p)
		delete(a.pipelines, id)
	}
}

func (a *halAdapter) CreateBindGroup(layoutID gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.Lock()
	layout, ok := a.layouts[layoutID]
	if !ok {
		a.mu.Unlock()
		return gpucore.InvalidID, fmt.Errorf("native: unknown bind group layout %d", layoutID)
	}
	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		he, err := a.bindGroupEntryLocked(e)
		if err != nil {
			a.mu.Unlock()
			return gpucore.InvalidID, err
		}
		halEntries[i] = he
	}
	a.mu.Unlock()

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "hac_bind_group",
		Layout:  layout,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupID(a.newID())
	a.bindGroups[id] = bg
	return id, nil
}

// bindGroupEntryLocked resolves a gpucore entry to a HAL binding
// resource. Must be called with mu held.
func (a *halAdapter) bindGroupEntryLocked(e gpucore.BindGroupEntry) (gputypes.BindGroupEntry, error) {
	out := gputypes.BindGroupEntry{Binding: e.Binding}
	switch {
	case e.Buffer != gpucore.InvalidID:
		b, ok := a.buffers[e.Buffer]
		if !ok {
			return out, fmt.Errorf("native: bind group references unknown buffer %d", e.Buffer)
		}
		size := e.Size
		if size == 0 {
			size = b.size - e.Offset
		}
		out.Resource = gputypes.BufferBinding{
			Buffer: b.buf.NativeHandle(),
			Offset: e.Offset,
			Size:   size,
		}
	case e.Texture != gpucore.InvalidID:
		t, ok := a.textures[e.Texture]
		if !ok {
			return out, fmt.Errorf("native: bind group references unknown texture %d", e.Texture)
		}
		out.Resource = gputypes.TextureViewBinding{
			TextureView: t.view.NativeHandle(),
		}
	case e.Sampler != gpucore.InvalidID:
		s, ok := a.samplers[e.Sampler]
		if !ok {
			return out, fmt.Errorf("native: bind group references unknown sampler %d", e.Sampler)
		}
		out.Resource = gputypes.SamplerBinding{
			Sampler: s.NativeHandle(),
		}
	}
	return out, nil
}

func (a *halAdapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bg, ok := a.bindGroups[id]; ok {
		a.device.DestroyBindGroup(bg)
		delete(a.bindGroups, id)
	}
}

// === Command recording and submission ===

// ensureEncoderLocked lazily starts the recording encoder. Must be
// called with mu held.
func (a *halAdapter) ensureEncoderLocked() (hal.CommandEncoder, error) {
	if a.encoder != nil {
		return a.encoder, nil
	}
	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "hac_commands"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("hac_commands"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	a.encoder = enc
	return enc, nil
}

// BeginComputePass opens a compute pass on the recording encoder. When
// the encoder cannot be created the returned pass records nothing and
// the error surfaces from the next Submit.
func (a *halAdapter) BeginComputePass() gpucore.ComputePassEncoder {
	a.mu.Lock()
	defer a.mu.Unlock()
	enc, err := a.ensureEncoderLocked()
	if err != nil {
		a.encoderErr = err
		return &halPassEncoder{adapter: a}
	}
	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "hac_pass"})
	return &halPassEncoder{adapter: a, pass: pass}
}

// Submit ends the recording encoder and submits it with a fresh fence
// value. Completion is observed through WaitIdle.
func (a *halAdapter) Submit() error {
	a.mu.Lock()
	enc := a.encoder
	encErr := a.encoderErr
	a.encoder = nil
	a.encoderErr = nil
	a.mu.Unlock()
	if encErr != nil {
		if enc != nil {
			if cmdBuf, err := enc.EndEncoding(); err == nil {
				a.device.FreeCommandBuffer(cmdBuf)
			}
		}
		return encErr
	}
	if enc == nil {
		return nil
	}

	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}

	a.mu.Lock()
	a.fenceValue++
	value := a.fenceValue
	a.inflight = append(a.inflight, cmdBuf)
	a.mu.Unlock()

	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, a.fence, value); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	return nil
}

// Discard ends and frees the recording encoder without submitting it.
func (a *halAdapter) Discard() {
	a.mu.Lock()
	enc := a.encoder
	a.encoder = nil
	a.encoderErr = nil
	a.mu.Unlock()
	if enc != nil {
		if cmdBuf, err := enc.EndEncoding(); err == nil {
			a.device.FreeCommandBuffer(cmdBuf)
		}
	}
}

// WaitIdle blocks until every submitted fence value has signaled, then
// frees the retired command buffers.
func (a *halAdapter) WaitIdle() error {
	a.mu.Lock()
	value := a.fenceValue
	a.mu.Unlock()
	if value == 0 {
		return nil
	}

	ok, err := a.device.Wait(a.fence, value, gpuTimeout)
	if err != nil || !ok {
		return fmt.Errorf("%w: fence wait ok=%v err=%v", backend.ErrNoDevice, ok, err)
	}

	a.mu.Lock()
	inflight := a.inflight
	a.inflight = nil
	a.mu.Unlock()
	for _, cb := range inflight {
		a.device.FreeCommandBuffer(cb)
	}
	return nil
}

// withBlockingCopy records copy commands on a dedicated encoder,
// submits, and waits. Used by the synchronous readback paths.
func (a *halAdapter) withBlockingCopy(record func(hal.CommandEncoder)) error {
	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "hac_copy"})
	if err != nil {
		return fmt.Errorf("native: create copy encoder: %w", err)
	}
	if err := enc.BeginEncoding("hac_copy"); err != nil {
		return fmt.Errorf("native: begin copy encoding: %w", err)
	}
	record(enc)
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end copy encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	a.mu.Lock()
	a.fenceValue++
	value := a.fenceValue
	a.mu.Unlock()

	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, a.fence, value); err != nil {
		return fmt.Errorf("native: submit copy: %w", err)
	}
	ok, err := a.device.Wait(a.fence, value, gpuTimeout)
	if err != nil || !ok {
		return fmt.Errorf("native: wait for copy: ok=%v err=%v", ok, err)
	}
	return nil
}

// Close destroys all tracked resources and, unless the device was
// adopted, the device and instance themselves.
func (a *halAdapter) Close() {
	a.Discard()
	_ = a.WaitIdle()

	a.mu.Lock()
	defer a.mu.Unlock()

	for id, bg := range a.bindGroups {
		a.device.DestroyBindGroup(bg)
		delete(a.bindGroups, id)
	}
	for id, p := range a.pipelines {
		a.device.DestroyComputePipeline(p)
		delete(a.pipelines, id)
	}
	for id, l := range a.pipeLayouts {
		a.device.DestroyPipelineLayout(l)
		delete(a.pipeLayouts, id)
	}
	for id, l := range a.layouts {
		a.device.DestroyBindGroupLayout(l)
		delete(a.layouts, id)
	}
	for id, m := range a.modules {
		a.device.DestroyShaderModule(m)
		delete(a.modules, id)
	}
	for id, s := range a.samplers {
		a.device.DestroySampler(s)
		delete(a.samplers, id)
	}
	for id, t := range a.textures {
		a.device.DestroyTextureView(t.view)
		a.device.DestroyTexture(t.tex)
		delete(a.textures, id)
	}
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}
	a.device.DestroyFence(a.fence)

	if !a.adopted {
		a.device.Destroy()
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
}

// halPassEncoder implements gpucore.ComputePassEncoder on a HAL pass.
type halPassEncoder struct {
	adapter *halAdapter
	pass    hal.ComputePassEncoder
}

func (e *halPassEncoder) SetPipeline(id gpucore.ComputePipelineID) {
	if e.pass == nil {
		return
	}
	e.adapter.mu.Lock()
	p, ok := e.adapter.pipelines[id]
	e.adapter.mu.Unlock()
	if ok {
		e.pass.SetPipeline(p)
	}
}

func (e *halPassEncoder) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if e.pass == nil {
		return
	}
	e.adapter.mu.Lock()
	bg, ok := e.adapter.bindGroups[group]
	e.adapter.mu.Unlock()
	if ok {
		e.pass.SetBindGroup(index, bg, nil)
	}
}

func (e *halPassEncoder) Dispatch(x, y, z uint32) {
	if e.pass == nil {
		return
	}
	e.pass.Dispatch(x, y, z)
}

func (e *halPassEncoder) End() {
	if e.pass != nil {
		e.pass.End()
	}
}
