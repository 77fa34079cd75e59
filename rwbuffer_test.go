package hac

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/hac/gpucore"
)

// addKernelWGSL sums two read-only arrays into a read-write one, one
// element per invocation along x.
const addKernelWGSL = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

@compute @workgroup_size(64, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= arrayLength(&result)) {
        return;
    }
    result[gid.x] = a[gid.x] + b[gid.x];
}
`

func addKernelHost() *gpucore.HostProgram {
	loadF32 := func(buf []byte, i uint32) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return &gpucore.HostProgram{
		Workgroup: [3]uint32{64, 1, 1},
		Entries: map[string]gpucore.HostKernel{
			"main": func(env gpucore.DispatchEnv, gid [3]uint32) {
				out := env.Buffer(0, 2)
				if gid[0] >= uint32(len(out)/4) {
					return
				}
				sum := loadF32(env.Buffer(0, 0), gid[0]) + loadF32(env.Buffer(0, 1), gid[0])
				binary.LittleEndian.PutUint32(out[gid[0]*4:], math.Float32bits(sum))
			},
		},
	}
}

func addKernelDesc() KernelDesc {
	return KernelDesc{
		Label:      "add_arrays",
		Source:     addKernelWGSL,
		EntryPoint: "main",
		Workgroup:  WorkgroupSize{X: 64, Y: 1, Z: 1},
		Groups: [][]gpucore.BindingType{
			{
				gpucore.BindingTypeReadOnlyStorageBuffer,
				gpucore.BindingTypeReadOnlyStorageBuffer,
				gpucore.BindingTypeStorageBuffer,
			},
		},
		Host: addKernelHost(),
	}
}

func TestPipelineAddArrays(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(addKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}

	const n = 100
	a := make([]float32, n)
	b := make([]float32, n)
	for i := range a {
		a[i] = float32(i)
		b[i] = float32(i) * 0.5
	}
	bufA, err := CreateBuffer(dc, a)
	if err != nil {
		t.Fatalf("CreateBuffer(a) error = %v", err)
	}
	bufB, err := CreateBuffer(dc, b)
	if err != nil {
		t.Fatalf("CreateBuffer(b) error = %v", err)
	}
	out, err := CreateRWBuffer(dc, make([]float32, n))
	if err != nil {
		t.Fatalf("CreateRWBuffer() error = %v", err)
	}

	pass, err := dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{bufA, bufB, out}},
		Extent:   Extent2D{Width: n, Height: 1},
	})
	if err != nil {
		t.Fatalf("NewPass() error = %v", err)
	}
	p, err := dc.NewPipeline("add", pass)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	runToCompletion(t, p)

	data, err := dc.ReadBack(context.Background(), out)
	if err != nil {
		t.Fatalf("ReadBack() error = %v", err)
	}
	if len(data) != n*4 {
		t.Fatalf("ReadBack() returned %d bytes, want %d", len(data), n*4)
	}
	for i := 0; i < n; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		want := a[i] + b[i]
		if got != want {
			t.Fatalf("result[%d] = %g, want %g", i, got, want)
		}
	}
}

func TestNewPassBufferAccessModes(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(addKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	ro, _ := CreateBuffer(dc, []float32{1, 2})
	rw, _ := CreateRWBuffer(dc, make([]float32, 2))
	extent := Extent2D{Width: 2, Height: 1}

	// Access modes never coerce for buffers either: a read-only buffer
	// cannot fill the read-write slot, nor the reverse.
	_, err = dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{ro, ro, ro}},
		Extent:   extent,
	})
	if !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("NewPass(read-only in read-write slot) error = %v, want ErrBindingMismatch", err)
	}
	_, err = dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{rw, ro, rw}},
		Extent:   extent,
	})
	if !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("NewPass(read-write in read-only slot) error = %v, want ErrBindingMismatch", err)
	}

	if _, err := dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{ro, ro, rw}},
		Extent:   extent,
	}); err != nil {
		t.Errorf("NewPass(matching access modes) error = %v", err)
	}
}
