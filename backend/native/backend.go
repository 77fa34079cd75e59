// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Vulkan is the only HAL backend wired up for compute today.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/hac"
	"github.com/gogpu/hac/backend"
	"github.com/gogpu/hac/gpucore"
)

// init registers the native backend on package import.
func init() {
	backend.Register(backend.BackendNative, func() backend.Backend {
		return &NativeBackend{}
	})
}

// NativeBackend opens GPU devices through gogpu/wgpu's HAL.
type NativeBackend struct{}

// Name returns the backend identifier.
func (b *NativeBackend) Name() string {
	return backend.BackendNative
}

// Open enumerates HAL adapters and opens the most capable device:
// discrete GPU first, then integrated, then whatever is exposed. When a
// device provider is supplied and exposes a HAL device, that device is
// adopted instead of opening a new one.
func (b *NativeBackend) Open(opts backend.Options) (gpucore.Adapter, error) {
	if opts.Provider != nil {
		if a, ok := adoptProvider(opts.Provider); ok {
			return a, nil
		}
	}

	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not compiled in", backend.ErrBackendNotAvailable)
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, backend.ErrNoDevice
	}
	selected := pickAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device %q: %w", selected.Info.Name, err)
	}

	info := gpucore.DeviceInfo{
		Name:    selected.Info.Name,
		Backend: backend.BackendNative,
		Type:    deviceType(selected.Info.DeviceType),
	}
	hac.Logger().Info("native: adapter selected",
		slog.String("name", info.Name),
		slog.String("type", info.Type.String()))
	return newHALAdapter(instance, openDev.Device, openDev.Queue, info, false)
}

// pickAdapter prefers discrete over integrated over anything else.
func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return &adapters[i]
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// deviceType maps HAL device types onto the compute classification.
func deviceType(t gputypes.DeviceType) gpucore.DeviceType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucore.DeviceTypeDiscreteGPU
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucore.DeviceTypeIntegratedGPU
	case gputypes.DeviceTypeCPU:
		return gpucore.DeviceTypeCPU
	default:
		return gpucore.DeviceTypeOther
	}
}
