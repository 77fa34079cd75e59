// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hac

import (
	"fmt"

	"github.com/gogpu/hac/gpucore"
)

// PassDesc describes one dispatch of a kernel over a 2D extent.
type PassDesc struct {
	// Label names the pass in logs. Empty falls back to the kernel label.
	Label string

	// Bindings fills the kernel's declared bind groups: Bindings[g][b]
	// supplies @group(g) @binding(b). Shape and types must match the
	// kernel's Groups declaration exactly.
	Bindings [][]*Resource

	// Params is the inline parameter block for this dispatch. Required
	// exactly when the kernel declares a nonzero ParamsSize, and its
	// byte length must equal it.
	Params *Resource

	// Extent is the 2D domain the dispatch covers. The workgroup count
	// per axis is the ceiling of extent over the kernel's workgroup
	// size.
	Extent Extent2D
}

// Pass is a validated, ready-to-record dispatch. A Pass belongs to at
// most one Pipeline; building a Pipeline consumes its passes.
type Pass struct {
	kernel   *Kernel
	desc     PassDesc
	grid     [3]uint32
	consumed bool
}

// NewPass validates a dispatch against the kernel's binding interface.
// Bindings are checked slot by slot in declaration order; the first
// mismatch is reported with its group and binding index. Validation is
// strict: access modes never coerce, so a sampled (read-only) texture
// cannot fill a storage (write) slot and vice versa. Storage-texture
// bindings must have the same extent as the pass. To read a texture
// written by an earlier pass, bind its Sampled view.
func (c *DeviceContext) NewPass(k *Kernel, desc PassDesc) (*Pass, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	if k.ctx != c {
		return nil, fmt.Errorf("%w: kernel %q belongs to a different device context", ErrBindingMismatch, k.desc.Label)
	}
	if desc.Label == "" {
		desc.Label = k.desc.Label
	}
	if !desc.Extent.Valid() {
		return nil, fmt.Errorf("%w: pass %q: %dx%d", ErrInvalidExtent, desc.Label, desc.Extent.Width, desc.Extent.Height)
	}

	if len(desc.Bindings) != len(k.desc.Groups) {
		return nil, fmt.Errorf("%w: pass %q supplies %d groups, kernel %q declares %d",
			ErrBindingMismatch, desc.Label, len(desc.Bindings), k.desc.Label, len(k.desc.Groups))
	}
	for g, slots := range k.desc.Groups {
		bound := desc.Bindings[g]
		if len(bound) != len(slots) {
			return nil, fmt.Errorf("%w: pass %q group %d supplies %d bindings, kernel declares %d",
				ErrBindingMismatch, desc.Label, g, len(bound), len(slots))
		}
		for b, want := range slots {
			r := bound[b]
			if r == nil {
				return nil, fmt.Errorf("%w: pass %q group %d binding %d is nil",
					ErrBindingMismatch, desc.Label, g, b)
			}
			if r.ctx != c {
				return nil, fmt.Errorf("%w: pass %q group %d binding %d belongs to a different device context",
					ErrBindingMismatch, desc.Label, g, b)
			}
			if err := checkSlot(want, r); err != nil {
				return nil, fmt.Errorf("%w: pass %q group %d binding %d: %v",
					ErrBindingMismatch, desc.Label, g, b, err)
			}
			// Storage textures are addressed by invocation coordinate,
			// so their extent must match the dispatch domain. Sampled
			// textures use normalized coordinates and may differ.
			if want == gpucore.BindingTypeStorageTexture && r.extent != desc.Extent {
				return nil, fmt.Errorf("%w: pass %q group %d binding %d: storage texture is %dx%d, extent is %dx%d",
					ErrSizeMismatch, desc.Label, g, b, r.extent.Width, r.extent.Height, desc.Extent.Width, desc.Extent.Height)
			}
		}
	}

	switch {
	case k.desc.ParamsSize > 0 && desc.Params == nil:
		return nil, fmt.Errorf("%w: pass %q: kernel %q requires %d param bytes, none supplied",
			ErrBindingMismatch, desc.Label, k.desc.Label, k.desc.ParamsSize)
	case k.desc.ParamsSize == 0 && desc.Params != nil:
		return nil, fmt.Errorf("%w: pass %q: kernel %q takes no params",
			ErrBindingMismatch, desc.Label, k.desc.Label)
	case desc.Params != nil:
		if desc.Params.kind != KindInlineParams {
			return nil, fmt.Errorf("%w: pass %q: params resource is a %s",
				ErrBindingMismatch, desc.Label, desc.Params.kind)
		}
		if uint32(len(desc.Params.params)) != k.desc.ParamsSize {
			return nil, fmt.Errorf("%w: pass %q: params are %d bytes, kernel %q declares %d",
				ErrSizeMismatch, desc.Label, len(desc.Params.params), k.desc.Label, k.desc.ParamsSize)
		}
	}

	x, y, z := k.desc.Workgroup.GridFor(desc.Extent)
	max := c.limits.MaxWorkgroupsPerDimension
	if x > max || y > max || z > max {
		return nil, fmt.Errorf("%w: pass %q needs %dx%dx%d workgroups, limit %d per axis",
			ErrInvalidExtent, desc.Label, x, y, z, max)
	}

	return &Pass{kernel: k, desc: desc, grid: [3]uint32{x, y, z}}, nil
}

// checkSlot reports whether resource r can fill a slot of type want.
func checkSlot(want gpucore.BindingType, r *Resource) error {
	ok := false
	switch want {
	case gpucore.BindingTypeSampledTexture:
		ok = r.kind == KindSampledTexture
	case gpucore.BindingTypeStorageTexture:
		ok = r.kind == KindStorageTexture
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		ok = r.kind == KindStorageBuffer
	case gpucore.BindingTypeStorageBuffer:
		ok = r.kind == KindRWStorageBuffer
	case gpucore.BindingTypeSampler:
		ok = r.kind == KindSampler
	case gpucore.BindingTypeUniformBuffer:
		// Uniform slots are reserved for the implicit params group.
		ok = false
	}
	if !ok {
		return fmt.Errorf("slot wants %s, got %s", want, r.kind)
	}
	return nil
}

// Grid returns the workgroup counts the pass will dispatch.
func (p *Pass) Grid() (x, y, z uint32) { return p.grid[0], p.grid[1], p.grid[2] }
