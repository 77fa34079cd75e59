// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/hac/gpucore"
)

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() Backend {
		return &SoftwareBackend{}
	})
}

// SoftwareBackend is the CPU compute backend. It executes the host
// mirror of each kernel, so it requires shader modules to carry a
// HostProgram. WGSL sources are still validated with the naga parser,
// keeping shader errors identical across backends.
type SoftwareBackend struct{}

// NewSoftwareBackend creates a new software compute backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Open returns a fresh in-memory adapter. The device provider is
// ignored: there is no external device to adopt.
func (b *SoftwareBackend) Open(_ Options) (gpucore.Adapter, error) {
	return newSoftwareAdapter(), nil
}

// softwareAdapter implements gpucore.Adapter entirely in host memory.
type softwareAdapter struct {
	mu     sync.Mutex
	nextID uint64

	buffers     map[gpucore.BufferID]*memBuffer
	textures    map[gpucore.TextureID]*memTexture
	samplers    map[gpucore.SamplerID]*gpucore.SamplerDesc
	modules     map[gpucore.ShaderModuleID]*gpucore.HostProgram
	layouts     map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDesc
	pipeLayouts map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID
	pipelines   map[gpucore.ComputePipelineID]*softwarePipeline
	bindGroups  map[gpucore.BindGroupID]*memBindGroup

	// pending holds dispatches recorded since the last Submit.
	pending []*dispatchCmd
}

type memBuffer struct {
	data  []byte
	usage gpucore.BufferUsage
}

type memTexture struct {
	width, height uint32
	data          []byte // tightly packed RGBA8
}

type memBindGroup struct {
	entries []gpucore.BindGroupEntry
}

type softwarePipeline struct {
	host  *gpucore.HostProgram
	entry string
	label string
}

func newSoftwareAdapter() *softwareAdapter {
	return &softwareAdapter{
		buffers:     make(map[gpucore.BufferID]*memBuffer),
		textures:    make(map[gpucore.TextureID]*memTexture),
		samplers:    make(map[gpucore.SamplerID]*gpucore.SamplerDesc),
		modules:     make(map[gpucore.ShaderModuleID]*gpucore.HostProgram),
		layouts:     make(map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDesc),
		pipeLayouts: make(map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID),
		pipelines:   make(map[gpucore.ComputePipelineID]*softwarePipeline),
		bindGroups:  make(map[gpucore.BindGroupID]*memBindGroup),
	}
}

func (a *softwareAdapter) alloc() uint64 {
	a.nextID++
	return a.nextID
}

// Info reports the software device identity.
func (a *softwareAdapter) Info() gpucore.DeviceInfo {
	return gpucore.DeviceInfo{
		Name:    "software compute",
		Backend: BackendSoftware,
		Type:    gpucore.DeviceTypeCPU,
	}
}

// Limits reports the software device limits.
func (a *softwareAdapter) Limits() gpucore.Limits {
	return gpucore.DefaultLimits()
}

// CreateShaderModule validates WGSL with the naga parser and stores the
// host mirror. The software backend cannot interpret WGSL, so a module
// without a HostProgram is rejected.
func (a *softwareAdapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if _, err := naga.Parse(desc.WGSL); err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgsl %q: %w", desc.Label, err)
	}
	if desc.Host == nil {
		return gpucore.InvalidID, fmt.Errorf("backend: shader %q has no host program for the software backend", desc.Label)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ShaderModuleID(a.alloc())
	a.modules[id] = desc.Host
	return id, nil
}

func (a *softwareAdapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.modules, id)
}

func (a *softwareAdapter) CreateBuffer(size uint64, usage gpucore.BufferUsage, _ string) (gpucore.BufferID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BufferID(a.alloc())
	a.buffers[id] = &memBuffer{data: make([]byte, size), usage: usage}
	return id, nil
}

func (a *softwareAdapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, id)
}

func (a *softwareAdapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.buffers[id]; ok && offset+uint64(len(data)) <= uint64(len(b.data)) {
		copy(b.data[offset:], data)
	}
}

func (a *softwareAdapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("backend: unknown buffer %d", id)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("backend: read [%d, %d) out of buffer of %d bytes", offset, offset+size, len(b.data))
	}
	out := make([]byte, size)
	copy(out, b.data[offset:])
	return out, nil
}

func (a *softwareAdapter) CreateTexture(width, height uint32, format gpucore.TextureFormat, _ gpucore.TextureUsage, _ string) (gpucore.TextureID, error) {
	if format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("backend: unsupported texture format %d", format)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.TextureID(a.alloc())
	a.textures[id] = &memTexture{
		width:  width,
		height: height,
		data:   make([]byte, uint64(width)*uint64(height)*4),
	}
	return id, nil
}

func (a *softwareAdapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.textures, id)
}

func (a *softwareAdapter) WriteTexture(id gpucore.TextureID, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.textures[id]
	if !ok {
		return fmt.Errorf("backend: unknown texture %d", id)
	}
	if len(data) != len(t.data) {
		return fmt.Errorf("backend: texture upload of %d bytes into %d-byte texture", len(data), len(t.data))
	}
	copy(t.data, data)
	return nil
}

func (a *softwareAdapter) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.textures[id]
	if !ok {
		return nil, fmt.Errorf("backend: unknown texture %d", id)
	}
	out := make([]byte, len(t.data))
	copy(out, t.data)
	return out, nil
}

func (a *softwareAdapter) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.SamplerID(a.alloc())
	d := *desc
	a.samplers[id] = &d
	return id, nil
}

func (a *softwareAdapter) DestroySampler(id gpucore.SamplerID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.samplers, id)
}

func (a *softwareAdapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupLayoutID(a.alloc())
	a.layouts[id] = desc
	return id, nil
}

func (a *softwareAdapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.layouts, id)
}

func (a *softwareAdapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.PipelineLayoutID(a.alloc())
	a.pipeLayouts[id] = append([]gpucore.BindGroupLayoutID(nil), layouts...)
	return id, nil
}

func (a *softwareAdapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipeLayouts, id)
}

func (a *softwareAdapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	host, ok := a.modules[desc.ShaderModule]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("backend: unknown shader module %d", desc.ShaderModule)
	}
	if _, ok := host.Entries[desc.EntryPoint]; !ok {
		return gpucore.InvalidID, fmt.Errorf("backend: shader %q has no entry point %q", desc.Label, desc.EntryPoint)
	}
	id := gpucore.ComputePipelineID(a.alloc())
	a.pipelines[id] = &softwarePipeline{host: host, entry: desc.EntryPoint, label: desc.Label}
	return id, nil
}

func (a *softwareAdapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipelines, id)
}

func (a *softwareAdapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.layouts[layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("backend: unknown bind group layout %d", layout)
	}
	id := gpucore.BindGroupID(a.alloc())
	a.bindGroups[id] = &memBindGroup{entries: append([]gpucore.BindGroupEntry(nil), entries...)}
	return id, nil
}

func (a *softwareAdapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindGroups, id)
}

// Submit executes every recorded dispatch in order. The software queue
// is synchronous, so completed work is already visible when Submit
// returns and WaitIdle is a no-op.
func (a *softwareAdapter) Submit() error {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, cmd := range pending {
		if err := a.execute(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops recorded dispatches without running them.
func (a *softwareAdapter) Discard() {
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
}

// WaitIdle returns immediately: Submit already ran everything.
func (a *softwareAdapter) WaitIdle() error { return nil }

// Close drops all resources.
func (a *softwareAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffers = nil
	a.textures = nil
	a.samplers = nil
	a.modules = nil
	a.layouts = nil
	a.pipeLayouts = nil
	a.pipelines = nil
	a.bindGroups = nil
	a.pending = nil
}
