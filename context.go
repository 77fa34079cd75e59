// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hac

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/hac/backend"
	"github.com/gogpu/hac/gpucore"
)

// DeviceContext owns a compute device and every resource, kernel, and
// pipeline created from it. All methods are safe for concurrent use, but
// resources themselves are single-owner: see Resource.
type DeviceContext struct {
	adapter gpucore.Adapter
	info    gpucore.DeviceInfo
	limits  gpucore.Limits

	mu        sync.Mutex
	resources []*Resource
	kernels   []*Kernel
	lost      bool
	closed    bool

	// submitMu serializes pipeline recording and submission so each
	// pipeline reaches the adapter as one unit.
	submitMu sync.Mutex
}

// Options configures Open.
type Options struct {
	// Backend selects a registered backend by name ("native",
	// "software"). Empty picks the highest-priority available backend.
	Backend string

	// DeviceProvider supplies an externally owned device, allowing hac
	// to share a device with another gogpu consumer instead of opening
	// its own.
	Provider gpucontext.DeviceProvider
}

// Option mutates Options.
type Option func(*Options)

// WithBackend forces a specific backend by registered name.
func WithBackend(name string) Option {
	return func(o *Options) { o.Backend = name }
}

// WithDeviceProvider shares an externally owned device instead of
// opening a new one. Only honored by backends that support adoption.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *Options) { o.Provider = p }
}

// Open creates a DeviceContext on the best available device. Device
// preference is discrete GPU, then integrated, then software. It returns
// ErrNoCompatibleDevice when no backend can produce a device.
//
// The context is consulted for cancellation while the device is being
// enumerated and opened.
func Open(ctx context.Context, opts ...Option) (*DeviceContext, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	var b backend.Backend
	if o.Backend != "" {
		b = backend.Get(o.Backend)
		if b == nil {
			return nil, fmt.Errorf("%w: backend %q not registered", ErrNoCompatibleDevice, o.Backend)
		}
	} else {
		b = backend.Default()
		if b == nil {
			return nil, ErrNoCompatibleDevice
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	adapter, err := b.Open(backend.Options{Provider: o.Provider})
	if err != nil {
		return nil, fmt.Errorf("%w: backend %q: %v", ErrNoCompatibleDevice, b.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		adapter.Close()
		return nil, err
	}

	dc := &DeviceContext{
		adapter: adapter,
		info:    adapter.Info(),
		limits:  adapter.Limits(),
	}
	Logger().Info("hac: device opened",
		slog.String("backend", b.Name()),
		slog.String("device", dc.info.Name),
		slog.String("type", dc.info.Type.String()))
	return dc, nil
}

// OpenResult carries the outcome of OpenAsync.
type OpenResult struct {
	Context *DeviceContext
	Err     error
}

// OpenAsync opens a DeviceContext without blocking the caller. The
// returned channel receives exactly one result and is then closed.
func OpenAsync(ctx context.Context, opts ...Option) <-chan OpenResult {
	out := make(chan OpenResult, 1)
	go func() {
		defer close(out)
		dc, err := Open(ctx, opts...)
		out <- OpenResult{Context: dc, Err: err}
	}()
	return out
}

// Info reports the opened device's identity.
func (c *DeviceContext) Info() gpucore.DeviceInfo { return c.info }

// Limits reports the opened device's limits.
func (c *DeviceContext) Limits() gpucore.Limits { return c.limits }

// ReadBack copies a resource's contents to host memory. Textures return
// tightly packed RGBA8 rows; buffers return their raw little-endian
// bytes. Inline params and samplers are not copy-eligible and fail with
// ErrResourceNotReadable.
//
// ReadBack waits for all previously submitted work touching the resource
// to complete before copying.
func (c *DeviceContext) ReadBack(ctx context.Context, r *Resource) ([]byte, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Copy failures are per-resource, not device-fatal: the context
	// stays usable and the error is returned as-is.
	switch r.kind {
	case KindSampledTexture, KindStorageTexture:
		data, err := c.adapter.ReadTexture(r.tex)
		if err != nil {
			return nil, fmt.Errorf("hac: read texture: %w", err)
		}
		return data, nil
	case KindStorageBuffer, KindRWStorageBuffer:
		data, err := c.adapter.ReadBuffer(r.buf, 0, r.size)
		if err != nil {
			return nil, fmt.Errorf("hac: read buffer: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrResourceNotReadable, r.kind)
	}
}

// Close destroys all tracked resources and releases the device. It is
// safe to call more than once.
func (c *DeviceContext) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	resources := c.resources
	kernels := c.kernels
	c.resources = nil
	c.kernels = nil
	c.mu.Unlock()

	for _, k := range kernels {
		k.destroy()
	}

	for _, r := range resources {
		switch r.kind {
		case KindSampledTexture, KindStorageTexture:
			if r.tex != gpucore.InvalidID {
				c.adapter.DestroyTexture(r.tex)
				r.tex = gpucore.InvalidID
			}
		case KindStorageBuffer, KindRWStorageBuffer:
			if r.buf != gpucore.InvalidID {
				c.adapter.DestroyBuffer(r.buf)
				r.buf = gpucore.InvalidID
			}
		case KindSampler:
			if r.smp != gpucore.InvalidID {
				c.adapter.DestroySampler(r.smp)
				r.smp = gpucore.InvalidID
			}
		}
	}
	c.adapter.Close()
}

// ok reports whether the context can accept new work.
func (c *DeviceContext) ok() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("hac: device context closed")
	}
	if c.lost {
		return ErrDeviceLost
	}
	return nil
}

// fail wraps a device error and marks the context lost on fatal ones.
func (c *DeviceContext) fail(op string, err error) error {
	c.mu.Lock()
	c.lost = true
	c.mu.Unlock()
	Logger().Error("hac: device error", slog.String("op", op), slog.Any("err", err))
	return fmt.Errorf("%w: %s: %v", ErrDeviceLost, op, err)
}

// track registers a resource for destruction at Close.
func (c *DeviceContext) track(r *Resource) {
	c.mu.Lock()
	c.resources = append(c.resources, r)
	c.mu.Unlock()
}

// trackKernel registers a kernel for destruction at Close.
func (c *DeviceContext) trackKernel(k *Kernel) {
	c.mu.Lock()
	c.kernels = append(c.kernels, k)
	c.mu.Unlock()
}
