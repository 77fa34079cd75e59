// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native provides the pure Go GPU compute backend using gogpu/wgpu.
//
// Importing the package registers the "native" backend:
//
//	import _ "github.com/gogpu/hac/backend/native"
//
// Device selection prefers a discrete GPU over an integrated one. Shader
// modules are compiled from WGSL to SPIR-V with gogpu/naga before they
// reach the HAL device, so shader diagnostics are produced host-side.
package native
