// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hac/backend"
	"github.com/gogpu/hac/gpucore"
)

// adoptProvider wraps an externally owned device when the provider's
// device and queue are backed by gogpu/wgpu HAL objects. Adopted devices
// are not destroyed on Close; their owner keeps that responsibility.
func adoptProvider(p gpucontext.DeviceProvider) (gpucore.Adapter, bool) {
	device, ok := p.Device().(hal.Device)
	if !ok {
		return nil, false
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok {
		return nil, false
	}
	info := gpucore.DeviceInfo{
		Name:    "shared device",
		Backend: backend.BackendNative,
		Type:    gpucore.DeviceTypeOther,
	}
	a, err := newHALAdapter(nil, device, queue, info, true)
	if err != nil {
		return nil, false
	}
	return a, true
}
