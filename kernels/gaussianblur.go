// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/gogpu/hac"
	"github.com/gogpu/hac/gpucore"
)

//go:embed shaders/gaussianblur.wgsl
var gaussianBlurWGSL string

// BlurParamsSize is the byte size of the blur's inline params: one
// vec2<i32> direction.
const BlurParamsSize = 8

// blurWorkgroup is the @workgroup_size of gaussian_pass.
var blurWorkgroup = hac.WorkgroupSize{X: 16, Y: 16, Z: 1}

// GaussianBlur compiles the separable Gaussian blur kernel. One
// dispatch blurs along a single axis; a full blur is two passes with
// directions (1, 0) and (0, 1). Output RGB is the weighted tap sum;
// output alpha is fixed to 1.
//
// Binding interface:
//
//	@group(0) @binding(0)  filtering sampler
//	@group(1) @binding(0)  sampled input image
//	@group(1) @binding(1)  storage output image
//	@group(2) @binding(0)  tap weights (array<f32>, storage read)
//	@group(2) @binding(1)  tap radius (i32, storage read)
//
// The axis is a vec2<i32> inline parameter built with BlurParams.
func GaussianBlur(ctx *hac.DeviceContext) (*hac.Kernel, error) {
	return ctx.CompileKernel(hac.KernelDesc{
		Label:      "gaussian_blur",
		Source:     gaussianBlurWGSL,
		EntryPoint: "gaussian_pass",
		Workgroup:  blurWorkgroup,
		Groups: [][]gpucore.BindingType{
			{gpucore.BindingTypeSampler},
			{gpucore.BindingTypeSampledTexture, gpucore.BindingTypeStorageTexture},
			{gpucore.BindingTypeReadOnlyStorageBuffer, gpucore.BindingTypeReadOnlyStorageBuffer},
		},
		ParamsSize: BlurParamsSize,
		Host:       gaussianBlurHost(),
	})
}

// BlurParams encodes a blur direction as inline parameter bytes.
// Use (1, 0) for the horizontal pass and (0, 1) for the vertical.
func BlurParams(dx, dy int32) []byte {
	out := make([]byte, BlurParamsSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(dx))
	binary.LittleEndian.PutUint32(out[4:], uint32(dy))
	return out
}

// GaussianWeights returns 2*radius+1 normalized Gaussian tap weights
// for the given variance. Radius 0 yields the identity weight [1].
func GaussianWeights(radius int32, variance float32) []float32 {
	n := 2*radius + 1
	weights := make([]float32, n)
	var sum float32
	for i := int32(0); i < n; i++ {
		x := float32(i - radius)
		w := math32.Exp(-(x * x) / (2 * variance))
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

func gaussianBlurHost() *gpucore.HostProgram {
	return &gpucore.HostProgram{
		Workgroup: [3]uint32{16, 16, 1},
		Entries: map[string]gpucore.HostKernel{
			"gaussian_pass": gaussianPass,
		},
	}
}

// gaussianPass mirrors shaders/gaussianblur.wgsl.
func gaussianPass(env gpucore.DispatchEnv, gid [3]uint32) {
	w, h := env.TextureDims(1, 0)
	if gid[0] >= w || gid[1] >= h {
		return
	}

	params := env.Buffer(3, 0)
	dx := int32(binary.LittleEndian.Uint32(params[0:4]))
	dy := int32(binary.LittleEndian.Uint32(params[4:8]))

	weightBytes := env.Buffer(2, 0)
	radius := int32(binary.LittleEndian.Uint32(env.Buffer(2, 1)))

	sizeX := float32(w)
	sizeY := float32(h)
	cx := float32(gid[0]) + 0.5
	cy := float32(gid[1]) + 0.5

	var acc [4]float32
	for i := -radius; i <= radius; i++ {
		u := (cx + float32(dx*i)) / sizeX
		v := (cy + float32(dy*i)) / sizeY
		weight := math.Float32frombits(binary.LittleEndian.Uint32(weightBytes[int(i+radius)*4:]))
		s := env.SampleLevel(0, 0, 1, 0, u, v)
		for c := range acc {
			acc[c] += weight * s[c]
		}
	}
	env.TextureStore(1, 1, gid[0], gid[1], [4]float32{acc[0], acc[1], acc[2], 1})
}

// BlurOptions configures NewBlurPipeline.
type BlurOptions struct {
	// Radius is the tap radius in pixels. Zero degenerates to identity.
	Radius int32

	// Variance is the Gaussian variance. Zero picks a variance that
	// keeps the outermost tap meaningful ((radius/2)^2, minimum 1).
	Variance float32
}

// NewBlurPipeline wires a full two-pass Gaussian blur of input: a
// horizontal pass into an intermediate image, then a vertical pass into
// the returned output image. The caller submits the pipeline and reads
// the output back after completion.
func NewBlurPipeline(ctx *hac.DeviceContext, kernel *hac.Kernel, input *hac.Resource, opts BlurOptions) (*hac.Pipeline, *hac.Resource, error) {
	if opts.Radius < 0 {
		return nil, nil, fmt.Errorf("kernels: negative blur radius %d", opts.Radius)
	}
	variance := opts.Variance
	if variance <= 0 {
		half := float32(opts.Radius) / 2
		variance = half * half
		if variance < 1 {
			variance = 1
		}
	}
	extent := input.Extent()

	sampler, err := ctx.CreateSampler(hac.SamplerDesc{
		Label:        "gaussian_blur_sampler",
		AddressModeU: hac.AddressModeClampToEdge,
		AddressModeV: hac.AddressModeClampToEdge,
		MagFilter:    hac.FilterModeLinear,
		MinFilter:    hac.FilterModeLinear,
	})
	if err != nil {
		return nil, nil, err
	}

	weights, err := hac.CreateBuffer(ctx, GaussianWeights(opts.Radius, variance))
	if err != nil {
		return nil, nil, err
	}
	radius, err := hac.CreateBuffer(ctx, []int32{opts.Radius})
	if err != nil {
		return nil, nil, err
	}

	intermediate, err := ctx.CreateTexture(extent, hac.StorageWrite, nil)
	if err != nil {
		return nil, nil, err
	}
	output, err := ctx.CreateTexture(extent, hac.StorageWrite, nil)
	if err != nil {
		return nil, nil, err
	}

	horizontal, err := ctx.CreateInlineParams(BlurParams(1, 0))
	if err != nil {
		return nil, nil, err
	}
	vertical, err := ctx.CreateInlineParams(BlurParams(0, 1))
	if err != nil {
		return nil, nil, err
	}

	intermediateIn, err := intermediate.Sampled()
	if err != nil {
		return nil, nil, err
	}

	pass1, err := ctx.NewPass(kernel, hac.PassDesc{
		Label: "gaussian_blur_h",
		Bindings: [][]*hac.Resource{
			{sampler},
			{input, intermediate},
			{weights, radius},
		},
		Params: horizontal,
		Extent: extent,
	})
	if err != nil {
		return nil, nil, err
	}
	pass2, err := ctx.NewPass(kernel, hac.PassDesc{
		Label: "gaussian_blur_v",
		Bindings: [][]*hac.Resource{
			{sampler},
			{intermediateIn, output},
			{weights, radius},
		},
		Params: vertical,
		Extent: extent,
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := ctx.NewPipeline("gaussian_blur", pass1, pass2)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, output, nil
}
