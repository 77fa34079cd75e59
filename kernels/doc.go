// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernels provides the built-in compute kernels: a single-pass
// per-channel color filter and a two-pass separable Gaussian blur.
//
// Each kernel ships with a CPU mirror of its WGSL source, so both run
// unchanged on the software backend. The blur also comes with a
// convenience constructor that wires the two passes, the intermediate
// image, and the weight buffers into a ready-to-submit pipeline.
package kernels
