// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"testing"

	gputypes "github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hac/gpucore"
)

func TestBufferUsageTranslation(t *testing.T) {
	tests := []struct {
		name string
		in   gpucore.BufferUsage
		want gputypes.BufferUsage
	}{
		{"storage", gpucore.BufferUsageStorage, gputypes.BufferUsageStorage},
		{"uniform+copydst", gpucore.BufferUsageUniform | gpucore.BufferUsageCopyDst,
			gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{"mapread+copysrc", gpucore.BufferUsageMapRead | gpucore.BufferUsageCopySrc,
			gputypes.BufferUsageMapRead | gputypes.BufferUsageCopySrc},
		{"none", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bufferUsage(tt.in); got != tt.want {
				t.Errorf("bufferUsage(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextureUsageTranslation(t *testing.T) {
	in := gpucore.TextureUsageSampled | gpucore.TextureUsageStorage |
		gpucore.TextureUsageCopySrc | gpucore.TextureUsageCopyDst
	want := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding |
		gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	if got := textureUsage(in); got != want {
		t.Errorf("textureUsage(all) = %v, want %v", got, want)
	}
	if got := textureUsage(gpucore.TextureUsageSampled); got != gputypes.TextureUsageTextureBinding {
		t.Errorf("textureUsage(sampled) = %v, want TextureBinding", got)
	}
}

func TestSamplerModeTranslation(t *testing.T) {
	if got := addressMode(gpucore.AddressModeRepeat); got != gputypes.AddressModeRepeat {
		t.Errorf("addressMode(repeat) = %v, want Repeat", got)
	}
	if got := addressMode(gpucore.AddressModeClampToEdge); got != gputypes.AddressModeClampToEdge {
		t.Errorf("addressMode(clamp) = %v, want ClampToEdge", got)
	}
	if got := filterMode(gpucore.FilterModeNearest); got != gputypes.FilterModeNearest {
		t.Errorf("filterMode(nearest) = %v, want Nearest", got)
	}
	if got := filterMode(gpucore.FilterModeLinear); got != gputypes.FilterModeLinear {
		t.Errorf("filterMode(linear) = %v, want Linear", got)
	}
}

func TestLayoutEntryUniformBuffer(t *testing.T) {
	out := layoutEntry(gpucore.BindGroupLayoutEntry{
		Binding:        0,
		Type:           gpucore.BindingTypeUniformBuffer,
		MinBindingSize: 16,
	})
	if out.Visibility != gputypes.ShaderStageCompute {
		t.Errorf("Visibility = %v, want compute", out.Visibility)
	}
	if out.Buffer == nil {
		t.Fatal("Buffer layout = nil")
	}
	if out.Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("Buffer.Type = %v, want Uniform", out.Buffer.Type)
	}
	if out.Buffer.MinBindingSize != 16 {
		t.Errorf("MinBindingSize = %d, want 16", out.Buffer.MinBindingSize)
	}
}

func TestLayoutEntryReadOnlyStorageBuffer(t *testing.T) {
	out := layoutEntry(gpucore.BindGroupLayoutEntry{
		Binding: 1,
		Type:    gpucore.BindingTypeReadOnlyStorageBuffer,
	})
	if out.Buffer == nil || out.Buffer.Type != gputypes.BufferBindingTypeReadOnlyStorage {
		t.Errorf("Buffer layout = %+v, want read-only storage", out.Buffer)
	}
}

func TestLayoutEntrySampledTexture(t *testing.T) {
	out := layoutEntry(gpucore.BindGroupLayoutEntry{
		Binding: 0,
		Type:    gpucore.BindingTypeSampledTexture,
	})
	if out.Texture == nil {
		t.Fatal("Texture layout = nil")
	}
	if out.Texture.SampleType != gputypes.TextureSampleTypeFloat {
		t.Errorf("SampleType = %v, want Float", out.Texture.SampleType)
	}
	if out.Texture.ViewDimension != gputypes.TextureViewDimension2D {
		t.Errorf("ViewDimension = %v, want 2D", out.Texture.ViewDimension)
	}
}

func TestLayoutEntryStorageTexture(t *testing.T) {
	out := layoutEntry(gpucore.BindGroupLayoutEntry{
		Binding: 1,
		Type:    gpucore.BindingTypeStorageTexture,
	})
	if out.StorageTexture == nil {
		t.Fatal("Storage layout = nil")
	}
	if out.StorageTexture.Access != gputypes.StorageTextureAccessWriteOnly {
		t.Errorf("Access = %v, want write-only", out.StorageTexture.Access)
	}
	if out.StorageTexture.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want RGBA8Unorm", out.StorageTexture.Format)
	}
}

func TestLayoutEntrySampler(t *testing.T) {
	out := layoutEntry(gpucore.BindGroupLayoutEntry{
		Binding: 0,
		Type:    gpucore.BindingTypeSampler,
	})
	if out.Sampler == nil || out.Sampler.Type != gputypes.SamplerBindingTypeFiltering {
		t.Errorf("Sampler layout = %+v, want filtering", out.Sampler)
	}
}

func TestPickAdapterPrefersDiscrete(t *testing.T) {
	adapters := make([]hal.ExposedAdapter, 3)
	adapters[0].Info.DeviceType = gputypes.DeviceTypeCPU
	adapters[1].Info.DeviceType = gputypes.DeviceTypeIntegratedGPU
	adapters[2].Info.DeviceType = gputypes.DeviceTypeDiscreteGPU

	if got := pickAdapter(adapters); got != &adapters[2] {
		t.Errorf("pickAdapter() picked type %v, want discrete", got.Info.DeviceType)
	}
}

func TestPickAdapterFallsBackToIntegrated(t *testing.T) {
	adapters := make([]hal.ExposedAdapter, 2)
	adapters[0].Info.DeviceType = gputypes.DeviceTypeCPU
	adapters[1].Info.DeviceType = gputypes.DeviceTypeIntegratedGPU

	if got := pickAdapter(adapters); got != &adapters[1] {
		t.Errorf("pickAdapter() picked type %v, want integrated", got.Info.DeviceType)
	}
}

func TestPickAdapterTakesFirstWhenNoGPU(t *testing.T) {
	adapters := make([]hal.ExposedAdapter, 2)
	adapters[0].Info.DeviceType = gputypes.DeviceTypeCPU
	adapters[1].Info.DeviceType = gputypes.DeviceTypeCPU

	if got := pickAdapter(adapters); got != &adapters[0] {
		t.Error("pickAdapter() did not take the first adapter")
	}
}

func TestDeviceTypeMapping(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucore.DeviceType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucore.DeviceTypeDiscreteGPU},
		{gputypes.DeviceTypeIntegratedGPU, gpucore.DeviceTypeIntegratedGPU},
		{gputypes.DeviceTypeCPU, gpucore.DeviceTypeCPU},
		{gputypes.DeviceType(99), gpucore.DeviceTypeOther},
	}
	for _, tt := range tests {
		if got := deviceType(tt.in); got != tt.want {
			t.Errorf("deviceType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
