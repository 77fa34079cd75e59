// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/gogpu/hac"
	"github.com/gogpu/hac/gpucore"
)

//go:embed shaders/colorfilter.wgsl
var colorFilterWGSL string

// ColorFilterParamsSize is the byte size of the filter's inline params:
// one vec4<f32> factor.
const ColorFilterParamsSize = 16

// ColorFilter compiles the per-channel color filter kernel.
//
// Binding interface: @group(0) @binding(0) is the sampled input image,
// @binding(1) the storage output image. The scale factor is a vec4<f32>
// inline parameter built with ColorFilterParams.
func ColorFilter(ctx *hac.DeviceContext) (*hac.Kernel, error) {
	return ctx.CompileKernel(hac.KernelDesc{
		Label:      "color_filter",
		Source:     colorFilterWGSL,
		EntryPoint: "main",
		Workgroup:  hac.WorkgroupSize{X: 1, Y: 1, Z: 1},
		Groups: [][]gpucore.BindingType{
			{gpucore.BindingTypeSampledTexture, gpucore.BindingTypeStorageTexture},
		},
		ParamsSize: ColorFilterParamsSize,
		Host:       colorFilterHost(),
	})
}

// ColorFilterParams encodes the per-channel scale factor as inline
// parameter bytes.
func ColorFilterParams(r, g, b, a float32) []byte {
	out := make([]byte, ColorFilterParamsSize)
	for i, f := range [4]float32{r, g, b, a} {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func colorFilterHost() *gpucore.HostProgram {
	return &gpucore.HostProgram{
		Workgroup: [3]uint32{1, 1, 1},
		Entries: map[string]gpucore.HostKernel{
			"main": colorFilterMain,
		},
	}
}

// colorFilterMain mirrors shaders/colorfilter.wgsl.
func colorFilterMain(env gpucore.DispatchEnv, gid [3]uint32) {
	w, h := env.TextureDims(0, 0)
	if gid[0] >= w || gid[1] >= h {
		return
	}

	params := env.Buffer(1, 0)
	var factor [4]float32
	for i := range factor {
		factor[i] = math.Float32frombits(binary.LittleEndian.Uint32(params[i*4:]))
	}

	texel := env.TextureLoad(0, 0, gid[0], gid[1])
	for i := range texel {
		texel[i] *= factor[i]
	}
	env.TextureStore(0, 1, gid[0], gid[1], texel)
}
