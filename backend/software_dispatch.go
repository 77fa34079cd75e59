// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/gogpu/hac/gpucore"
)

// dispatchCmd is one recorded compute dispatch.
type dispatchCmd struct {
	pipeline gpucore.ComputePipelineID
	groups   map[uint32]gpucore.BindGroupID
	x, y, z  uint32
}

// softwareEncoder records dispatches into the adapter's pending list.
type softwareEncoder struct {
	a        *softwareAdapter
	pipeline gpucore.ComputePipelineID
	groups   map[uint32]gpucore.BindGroupID
}

// BeginComputePass starts recording a compute pass.
func (a *softwareAdapter) BeginComputePass() gpucore.ComputePassEncoder {
	return &softwareEncoder{a: a, groups: make(map[uint32]gpucore.BindGroupID)}
}

func (e *softwareEncoder) SetPipeline(id gpucore.ComputePipelineID) {
	e.pipeline = id
}

func (e *softwareEncoder) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	e.groups[index] = group
}

func (e *softwareEncoder) Dispatch(x, y, z uint32) {
	groups := make(map[uint32]gpucore.BindGroupID, len(e.groups))
	for k, v := range e.groups {
		groups[k] = v
	}
	e.a.mu.Lock()
	e.a.pending = append(e.a.pending, &dispatchCmd{
		pipeline: e.pipeline,
		groups:   groups,
		x:        x, y: y, z: z,
	})
	e.a.mu.Unlock()
}

func (e *softwareEncoder) End() {}

// boundResource is a bind group entry resolved to adapter memory.
type boundResource struct {
	buffer  []byte
	texture *memTexture
	sampler *gpucore.SamplerDesc
}

// dispatchEnv implements gpucore.DispatchEnv over resolved bindings.
// Binding lookups are snapshotted before the grid runs, so invocations
// touch no adapter locks.
type dispatchEnv struct {
	bound map[[2]uint32]*boundResource
}

func (env *dispatchEnv) at(group, binding uint32) *boundResource {
	r, ok := env.bound[[2]uint32{group, binding}]
	if !ok {
		panic(fmt.Sprintf("backend: host kernel touched unbound slot group %d binding %d", group, binding))
	}
	return r
}

func (env *dispatchEnv) Buffer(group, binding uint32) []byte {
	return env.at(group, binding).buffer
}

func (env *dispatchEnv) TextureLoad(group, binding, x, y uint32) [4]float32 {
	t := env.at(group, binding).texture
	if t == nil || x >= t.width || y >= t.height {
		return [4]float32{}
	}
	return t.texel(x, y)
}

func (env *dispatchEnv) TextureStore(group, binding, x, y uint32, texel [4]float32) {
	t := env.at(group, binding).texture
	if t == nil || x >= t.width || y >= t.height {
		// WGSL textureStore discards out-of-range writes.
		return
	}
	i := (uint64(y)*uint64(t.width) + uint64(x)) * 4
	for c := 0; c < 4; c++ {
		t.data[i+uint64(c)] = unormByte(texel[c])
	}
}

func (env *dispatchEnv) TextureDims(group, binding uint32) (uint32, uint32) {
	t := env.at(group, binding).texture
	if t == nil {
		return 0, 0
	}
	return t.width, t.height
}

func (env *dispatchEnv) SampleLevel(smpGroup, smpBinding, texGroup, texBinding uint32, u, v float32) [4]float32 {
	s := env.at(smpGroup, smpBinding).sampler
	t := env.at(texGroup, texBinding).texture
	if s == nil || t == nil || t.width == 0 || t.height == 0 {
		return [4]float32{}
	}
	if s.MagFilter == gpucore.FilterModeNearest {
		x := wrapCoord(u*float32(t.width), t.width, s.AddressModeU)
		y := wrapCoord(v*float32(t.height), t.height, s.AddressModeV)
		return t.texel(x, y)
	}
	return t.bilinear(u, v, s.AddressModeU, s.AddressModeV)
}

// texel reads pixel (x, y) as normalized components. Bounds are the
// caller's responsibility.
func (t *memTexture) texel(x, y uint32) [4]float32 {
	i := (uint64(y)*uint64(t.width) + uint64(x)) * 4
	return [4]float32{
		float32(t.data[i]) / 255,
		float32(t.data[i+1]) / 255,
		float32(t.data[i+2]) / 255,
		float32(t.data[i+3]) / 255,
	}
}

// bilinear samples at normalized (u, v) with the pixel-center
// convention: texel centers sit at (i + 0.5) / size.
func (t *memTexture) bilinear(u, v float32, modeU, modeV gpucore.AddressMode) [4]float32 {
	px := u*float32(t.width) - 0.5
	py := v*float32(t.height) - 0.5

	x0f := floor32(px)
	y0f := floor32(py)
	fx := px - x0f
	fy := py - y0f

	x0 := wrapCoord(x0f, t.width, modeU)
	x1 := wrapCoord(x0f+1, t.width, modeU)
	y0 := wrapCoord(y0f, t.height, modeV)
	y1 := wrapCoord(y0f+1, t.height, modeV)

	c00 := t.texel(x0, y0)
	c10 := t.texel(x1, y0)
	c01 := t.texel(x0, y1)
	c11 := t.texel(x1, y1)

	var out [4]float32
	for c := 0; c < 4; c++ {
		top := c00[c] + (c10[c]-c00[c])*fx
		bot := c01[c] + (c11[c]-c01[c])*fx
		out[c] = top + (bot-top)*fy
	}
	return out
}

// wrapCoord maps a (possibly negative or past-the-edge) texel coordinate
// into [0, size) under the given address mode.
func wrapCoord(c float32, size uint32, mode gpucore.AddressMode) uint32 {
	i := int64(floor32(c))
	n := int64(size)
	switch mode {
	case gpucore.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
	default: // clamp to edge
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
	}
	return uint32(i)
}

func floor32(f float32) float32 {
	i := float32(int64(f))
	if f < 0 && i != f {
		i--
	}
	return i
}

func unormByte(f float32) byte {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return byte(f*255 + 0.5)
}

// execute runs one dispatch over the full grid. Workgroup rows are
// spread across GOMAXPROCS workers; invocations within a dispatch must
// not write overlapping texels, which the WGSL execution model already
// demands.
func (a *softwareAdapter) execute(cmd *dispatchCmd) error {
	a.mu.Lock()
	p, ok := a.pipelines[cmd.pipeline]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("backend: dispatch of unknown pipeline %d", cmd.pipeline)
	}
	kernel := p.host.Entries[p.entry]
	wg := p.host.Workgroup

	env := &dispatchEnv{bound: make(map[[2]uint32]*boundResource)}
	for group, bgID := range cmd.groups {
		bg, ok := a.bindGroups[bgID]
		if !ok {
			a.mu.Unlock()
			return fmt.Errorf("backend: dispatch with unknown bind group %d", bgID)
		}
		for _, e := range bg.entries {
			r := &boundResource{}
			switch {
			case e.Buffer != gpucore.InvalidID:
				b, ok := a.buffers[e.Buffer]
				if !ok {
					a.mu.Unlock()
					return fmt.Errorf("backend: bind group %d references unknown buffer", bgID)
				}
				end := uint64(len(b.data))
				if e.Size != 0 {
					end = e.Offset + e.Size
				}
				r.buffer = b.data[e.Offset:end]
			case e.Texture != gpucore.InvalidID:
				t, ok := a.textures[e.Texture]
				if !ok {
					a.mu.Unlock()
					return fmt.Errorf("backend: bind group %d references unknown texture", bgID)
				}
				r.texture = t
			case e.Sampler != gpucore.InvalidID:
				s, ok := a.samplers[e.Sampler]
				if !ok {
					a.mu.Unlock()
					return fmt.Errorf("backend: bind group %d references unknown sampler", bgID)
				}
				r.sampler = s
			}
			env.bound[[2]uint32{group, e.Binding}] = r
		}
	}
	a.mu.Unlock()

	if wg == [3]uint32{} {
		wg = [3]uint32{1, 1, 1}
	}

	// One task per workgroup row keeps tasks coarse enough to amortize
	// scheduling while still filling all cores on tall dispatches.
	rows := cmd.y
	workers := uint32(runtime.GOMAXPROCS(0))
	if workers > rows {
		workers = rows
	}
	if workers <= 1 {
		runRows(kernel, env, wg, cmd, 0, rows)
		return nil
	}

	var wgrp sync.WaitGroup
	chunk := (rows + workers - 1) / workers
	for start := uint32(0); start < rows; start += chunk {
		end := start + chunk
		if end > rows {
			end = rows
		}
		wgrp.Add(1)
		go func(s, e uint32) {
			defer wgrp.Done()
			runRows(kernel, env, wg, cmd, s, e)
		}(start, end)
	}
	wgrp.Wait()
	return nil
}

// runRows executes every invocation of workgroup rows [fromRow, toRow).
func runRows(kernel gpucore.HostKernel, env *dispatchEnv, wg [3]uint32, cmd *dispatchCmd, fromRow, toRow uint32) {
	for gz := uint32(0); gz < cmd.z; gz++ {
		for gy := fromRow; gy < toRow; gy++ {
			for gx := uint32(0); gx < cmd.x; gx++ {
				for lz := uint32(0); lz < wg[2]; lz++ {
					for ly := uint32(0); ly < wg[1]; ly++ {
						for lx := uint32(0); lx < wg[0]; lx++ {
							kernel(env, [3]uint32{
								gx*wg[0] + lx,
								gy*wg[1] + ly,
								gz*wg[2] + lz,
							})
						}
					}
				}
			}
		}
	}
}
