// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the backend-neutral compute abstraction that the
// hac API is built on.
//
// An [Adapter] owns the connection to one accelerator (device + queue) and
// exposes resource creation, bind group construction, compute pass
// recording, and submission. Concrete adapters live under backend/: the
// native adapter drives a GPU through gogpu/wgpu's HAL, the software
// adapter executes [HostProgram] mirrors on the CPU.
//
// Resources are referenced through opaque uint64 IDs; each adapter keeps
// its own mapping from IDs to backend objects. The zero ID is invalid.
package gpucore
