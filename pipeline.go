// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hac

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/hac/gpucore"
)

// Pipeline is an ordered sequence of passes submitted as one unit of
// work. Passes execute in order: writes from pass N are visible to pass
// N+1. A Pipeline is single-shot; Submit may be called once.
type Pipeline struct {
	ctx    *DeviceContext
	label  string
	passes []*Pass

	mu        sync.Mutex
	submitted bool
}

// NewPipeline builds a pipeline from passes, consuming them. A pass
// already consumed by an earlier pipeline fails with ErrPassConsumed.
func (c *DeviceContext) NewPipeline(label string, passes ...*Pass) (*Pipeline, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	if len(passes) == 0 {
		return nil, fmt.Errorf("hac: pipeline %q has no passes", label)
	}
	for i, p := range passes {
		if p.consumed {
			return nil, fmt.Errorf("%w: pipeline %q pass %d (%q)", ErrPassConsumed, label, i, p.desc.Label)
		}
	}
	for _, p := range passes {
		p.consumed = true
	}
	return &Pipeline{ctx: c, label: label, passes: passes}, nil
}

// Job tracks a submitted pipeline. Wait blocks until the device has
// finished the work; Done exposes the same completion as a channel.
type Job struct {
	done chan struct{}
	err  error
}

// Done is closed when the submitted work has completed on the device.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until completion or context cancellation. After a nil
// return, all resources written by the pipeline are safe to read back
// or rebind.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the completion error. Only valid after Done is closed.
func (j *Job) Err() error { return j.err }

// Submit records every pass and hands the command stream to the device.
// It returns as soon as the work is queued; completion is observed
// through the returned Job. A second Submit fails with
// ErrPipelineSubmitted, and a fatal device error marks the context lost.
func (p *Pipeline) Submit() (*Job, error) {
	p.mu.Lock()
	if p.submitted {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: pipeline %q", ErrPipelineSubmitted, p.label)
	}
	p.submitted = true
	p.mu.Unlock()

	c := p.ctx
	if err := c.ok(); err != nil {
		return nil, err
	}

	// Recording and submission run under one lock so concurrent Submits
	// cannot interleave passes into the adapter's command stream, and a
	// recording that fails partway is discarded before anyone else
	// records.
	c.submitMu.Lock()
	var transient transientSet
	for _, pass := range p.passes {
		if err := p.record(pass, &transient); err != nil {
			c.adapter.Discard()
			transient.release(c.adapter)
			c.submitMu.Unlock()
			return nil, err
		}
	}

	err := c.adapter.Submit()
	c.submitMu.Unlock()
	if err != nil {
		transient.release(c.adapter)
		return nil, c.fail("submit", err)
	}
	Logger().Debug("hac: pipeline submitted",
		slog.String("pipeline", p.label), slog.Int("passes", len(p.passes)))

	job := &Job{done: make(chan struct{})}
	go func() {
		defer close(job.done)
		if err := c.adapter.WaitIdle(); err != nil {
			job.err = c.fail("wait", err)
		}
		transient.release(c.adapter)
	}()
	return job, nil
}

// record encodes one pass: bind groups for every declared group, the
// implicit params group when the kernel takes params, then the dispatch.
func (p *Pipeline) record(pass *Pass, transient *transientSet) error {
	a := p.ctx.adapter
	k := pass.kernel

	groups := make([]gpucore.BindGroupID, 0, len(pass.desc.Bindings)+1)
	for g, bound := range pass.desc.Bindings {
		entries := make([]gpucore.BindGroupEntry, len(bound))
		for b, r := range bound {
			entries[b] = bindingEntry(uint32(b), r)
		}
		id, err := a.CreateBindGroup(k.groupLayouts[g], entries)
		if err != nil {
			return fmt.Errorf("hac: pass %q group %d: %w", pass.desc.Label, g, err)
		}
		transient.groups = append(transient.groups, id)
		groups = append(groups, id)
	}

	if k.desc.ParamsSize > 0 {
		buf, err := a.CreateBuffer(uint64(k.desc.ParamsSize),
			gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst, pass.desc.Label+"_params")
		if err != nil {
			return fmt.Errorf("hac: pass %q params buffer: %w", pass.desc.Label, err)
		}
		transient.buffers = append(transient.buffers, buf)
		a.WriteBuffer(buf, 0, pass.desc.Params.params)

		id, err := a.CreateBindGroup(k.paramsLayout, []gpucore.BindGroupEntry{{
			Binding: 0, Buffer: buf, Offset: 0, Size: uint64(k.desc.ParamsSize),
		}})
		if err != nil {
			return fmt.Errorf("hac: pass %q params group: %w", pass.desc.Label, err)
		}
		transient.groups = append(transient.groups, id)
		groups = append(groups, id)
	}

	enc := a.BeginComputePass()
	enc.SetPipeline(k.pipeline)
	for i, id := range groups {
		enc.SetBindGroup(uint32(i), id)
	}
	enc.Dispatch(pass.grid[0], pass.grid[1], pass.grid[2])
	enc.End()
	return nil
}

// bindingEntry translates a resource into a backend bind group entry.
func bindingEntry(binding uint32, r *Resource) gpucore.BindGroupEntry {
	switch r.kind {
	case KindSampledTexture, KindStorageTexture:
		return gpucore.BindGroupEntry{Binding: binding, Texture: r.tex}
	case KindStorageBuffer, KindRWStorageBuffer:
		return gpucore.BindGroupEntry{Binding: binding, Buffer: r.buf, Size: r.size}
	case KindSampler:
		return gpucore.BindGroupEntry{Binding: binding, Sampler: r.smp}
	default:
		return gpucore.BindGroupEntry{Binding: binding}
	}
}

// transientSet collects per-submit device objects released once the
// work completes.
type transientSet struct {
	groups  []gpucore.BindGroupID
	buffers []gpucore.BufferID
}

func (t *transientSet) release(a gpucore.Adapter) {
	for _, id := range t.groups {
		a.DestroyBindGroup(id)
	}
	for _, id := range t.buffers {
		a.DestroyBuffer(id)
	}
	t.groups = nil
	t.buffers = nil
}
