// Package hac provides hardware-accelerated compute over 2D image data.
//
// # Overview
//
// hac is a small, portable compute dispatch layer for the GoGPU ecosystem.
// It turns a kernel definition, a set of typed resources (textures,
// buffers, inline parameters), and a dispatch size into a correctly
// scheduled, synchronized unit of GPU work — without the caller writing
// device selection, resource binding, or pipeline construction boilerplate.
//
// # Quick Start
//
//	import "github.com/gogpu/hac"
//
//	ctx, err := hac.Open(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	extent := hac.Extent2D{Width: w, Height: h}
//	src, _ := ctx.CreateTexture(extent, hac.SampledRead, pixels)
//	dst, _ := ctx.CreateTexture(extent, hac.StorageWrite, nil)
//
//	kernel, _ := kernels.ColorFilter(ctx)
//	params, _ := ctx.CreateInlineParams(kernels.ColorFilterParams(1, 1, 1, 1))
//	pass, _ := ctx.NewPass(kernel, hac.PassDesc{
//		Bindings: [][]*hac.Resource{{src, dst}},
//		Params:   params,
//		Extent:   extent,
//	})
//
//	pipeline, _ := ctx.NewPipeline("filter", pass)
//	job, _ := pipeline.Submit()
//	_ = job.Wait(context.Background())
//
//	out, _ := ctx.ReadBack(context.Background(), dst)
//
// # Backends
//
// Work executes on the best available backend: the native backend drives
// a GPU through gogpu/wgpu's HAL (preferring discrete over integrated
// adapters), and the software backend executes CPU mirrors of kernels
// when no GPU is available. Backends register themselves on import; see
// the backend package.
//
// # Built-in kernels
//
// The kernels package ships a single-pass color filter and a two-pass
// separable Gaussian blur, both usable as reference implementations for
// writing custom kernels.
package hac
