// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hac

import (
	"errors"
	"fmt"

	"github.com/gogpu/hac/gpucore"
)

// KernelDesc describes a compute kernel: its WGSL source, entry point,
// workgroup geometry, and binding interface.
type KernelDesc struct {
	// Label names the kernel in logs and diagnostics.
	Label string

	// Source is the kernel's WGSL text.
	Source string

	// EntryPoint is the @compute function to run.
	EntryPoint string

	// Workgroup is the @workgroup_size of the entry point. Dispatch
	// geometry is derived from it, so it must match the shader.
	Workgroup WorkgroupSize

	// Groups declares the bind group interface. Groups[g][b] is the
	// binding type at @group(g) @binding(b). Slots are ordered and
	// every slot must be filled when a Pass is built.
	Groups [][]gpucore.BindingType

	// ParamsSize is the byte size of the kernel's inline parameter
	// block, or zero when the kernel takes none. Params occupy an
	// implicit uniform binding at @group(len(Groups)) @binding(0).
	ParamsSize uint32

	// Host is the CPU mirror of the kernel, required by the software
	// backend and usable as a reference implementation elsewhere.
	Host *gpucore.HostProgram
}

// Kernel is a compiled compute kernel bound to a DeviceContext.
type Kernel struct {
	ctx  *DeviceContext
	desc KernelDesc

	module       gpucore.ShaderModuleID
	groupLayouts []gpucore.BindGroupLayoutID
	paramsLayout gpucore.BindGroupLayoutID
	layout       gpucore.PipelineLayoutID
	pipeline     gpucore.ComputePipelineID
}

// CompileKernel validates and compiles a kernel for the context's
// device. WGSL errors surface as *CompileError with the compiler
// diagnostic attached; an oversized ParamsSize fails with
// ErrParamsTooLarge before any compilation happens.
func (c *DeviceContext) CompileKernel(desc KernelDesc) (*Kernel, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	if desc.ParamsSize > c.limits.MaxInlineParamsSize {
		return nil, fmt.Errorf("%w: kernel %q declares %d param bytes, limit %d",
			ErrParamsTooLarge, desc.Label, desc.ParamsSize, c.limits.MaxInlineParamsSize)
	}
	if desc.EntryPoint == "" {
		desc.EntryPoint = "main"
	}

	module, err := c.adapter.CreateShaderModule(&gpucore.ShaderModuleDesc{
		Label: desc.Label,
		WGSL:  desc.Source,
		Host:  desc.Host,
	})
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CompileError{Label: desc.Label, Diagnostic: err.Error(), Err: err}
	}

	k := &Kernel{ctx: c, desc: desc, module: module}
	if err := k.buildLayouts(); err != nil {
		k.destroy()
		return nil, err
	}

	pipeline, err := c.adapter.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        desc.Label,
		Layout:       k.layout,
		ShaderModule: module,
		EntryPoint:   desc.EntryPoint,
	})
	if err != nil {
		k.destroy()
		return nil, fmt.Errorf("hac: create pipeline %q: %w", desc.Label, err)
	}
	k.pipeline = pipeline

	c.trackKernel(k)
	return k, nil
}

// buildLayouts creates one bind group layout per declared group, plus
// the implicit trailing uniform layout when the kernel takes params.
func (k *Kernel) buildLayouts() error {
	a := k.ctx.adapter

	for g, slots := range k.desc.Groups {
		entries := make([]gpucore.BindGroupLayoutEntry, len(slots))
		for b, t := range slots {
			entries[b] = gpucore.BindGroupLayoutEntry{Binding: uint32(b), Type: t}
		}
		id, err := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
			Label:   fmt.Sprintf("%s_group%d", k.desc.Label, g),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("hac: layout for %q group %d: %w", k.desc.Label, g, err)
		}
		k.groupLayouts = append(k.groupLayouts, id)
	}

	all := append([]gpucore.BindGroupLayoutID(nil), k.groupLayouts...)
	if k.desc.ParamsSize > 0 {
		id, err := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
			Label: k.desc.Label + "_params",
			Entries: []gpucore.BindGroupLayoutEntry{{
				Binding:        0,
				Type:           gpucore.BindingTypeUniformBuffer,
				MinBindingSize: uint64(k.desc.ParamsSize),
			}},
		})
		if err != nil {
			return fmt.Errorf("hac: params layout for %q: %w", k.desc.Label, err)
		}
		k.paramsLayout = id
		all = append(all, id)
	}

	layout, err := a.CreatePipelineLayout(all)
	if err != nil {
		return fmt.Errorf("hac: pipeline layout for %q: %w", k.desc.Label, err)
	}
	k.layout = layout
	return nil
}

// Label returns the kernel's label.
func (k *Kernel) Label() string { return k.desc.Label }

// Workgroup returns the kernel's workgroup geometry.
func (k *Kernel) Workgroup() WorkgroupSize { return k.desc.Workgroup }

// paramsGroupIndex is the implicit bind group index used for inline
// params: one past the last declared group.
func (k *Kernel) paramsGroupIndex() uint32 { return uint32(len(k.desc.Groups)) }

// destroy releases the kernel's device objects.
func (k *Kernel) destroy() {
	a := k.ctx.adapter
	if k.pipeline != gpucore.InvalidID {
		a.DestroyComputePipeline(k.pipeline)
		k.pipeline = gpucore.InvalidID
	}
	if k.layout != gpucore.InvalidID {
		a.DestroyPipelineLayout(k.layout)
		k.layout = gpucore.InvalidID
	}
	for _, id := range k.groupLayouts {
		a.DestroyBindGroupLayout(id)
	}
	k.groupLayouts = nil
	if k.paramsLayout != gpucore.InvalidID {
		a.DestroyBindGroupLayout(k.paramsLayout)
		k.paramsLayout = gpucore.InvalidID
	}
	if k.module != gpucore.InvalidID {
		a.DestroyShaderModule(k.module)
		k.module = gpucore.InvalidID
	}
}
