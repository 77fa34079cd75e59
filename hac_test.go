package hac

import (
	"context"
	"testing"

	"github.com/gogpu/hac/gpucore"
)

// copyKernelWGSL is a minimal kernel used by the pass and pipeline
// tests: it copies the input texture to the output texture.
const copyKernelWGSL = `
@group(0) @binding(0) var src: texture_2d<f32>;
@group(0) @binding(1) var dst: texture_storage_2d<rgba8unorm, write>;

@compute @workgroup_size(1, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let dims = textureDimensions(src);
    if (gid.x >= dims.x || gid.y >= dims.y) {
        return;
    }
    textureStore(dst, vec2<i32>(gid.xy), textureLoad(src, vec2<i32>(gid.xy), 0));
}
`

func copyKernelHost() *gpucore.HostProgram {
	return &gpucore.HostProgram{
		Workgroup: [3]uint32{1, 1, 1},
		Entries: map[string]gpucore.HostKernel{
			"main": func(env gpucore.DispatchEnv, gid [3]uint32) {
				w, h := env.TextureDims(0, 0)
				if gid[0] >= w || gid[1] >= h {
					return
				}
				env.TextureStore(0, 1, gid[0], gid[1], env.TextureLoad(0, 0, gid[0], gid[1]))
			},
		},
	}
}

func copyKernelDesc() KernelDesc {
	return KernelDesc{
		Label:      "copy",
		Source:     copyKernelWGSL,
		EntryPoint: "main",
		Workgroup:  WorkgroupSize{X: 1, Y: 1, Z: 1},
		Groups: [][]gpucore.BindingType{
			{gpucore.BindingTypeSampledTexture, gpucore.BindingTypeStorageTexture},
		},
		Host: copyKernelHost(),
	}
}

// openSoftware opens a device context on the software backend.
func openSoftware(t *testing.T) *DeviceContext {
	t.Helper()
	dc, err := Open(context.Background(), WithBackend("software"))
	if err != nil {
		t.Fatalf("Open(software) error = %v", err)
	}
	t.Cleanup(dc.Close)
	return dc
}

// runToCompletion submits a pipeline and waits for it.
func runToCompletion(t *testing.T, p *Pipeline) {
	t.Helper()
	job, err := p.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := job.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

// gradientPixels returns a deterministic w*h*4 RGBA byte pattern.
func gradientPixels(w, h int) []byte {
	data := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		data[i*4] = byte(i)
		data[i*4+1] = byte(i >> 2)
		data[i*4+2] = byte(255 - i)
		data[i*4+3] = 255
	}
	return data
}
