package hac

import (
	"errors"
	"testing"
)

func TestNewPassValidBindings(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 4, Height: 4}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	pass, err := dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{in, out}},
		Extent:   extent,
	})
	if err != nil {
		t.Fatalf("NewPass() error = %v", err)
	}
	if x, y, z := pass.Grid(); x != 4 || y != 4 || z != 1 {
		t.Errorf("Grid() = (%d, %d, %d), want (4, 4, 1)", x, y, z)
	}
}

func TestNewPassBindingMismatch(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 4, Height: 4}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)
	sampler, _ := dc.CreateSampler(SamplerDesc{})

	tests := []struct {
		name     string
		bindings [][]*Resource
	}{
		{"no groups", nil},
		{"too many groups", [][]*Resource{{in, out}, {sampler}}},
		{"missing slot", [][]*Resource{{in}}},
		{"extra slot", [][]*Resource{{in, out, in}}},
		{"nil resource", [][]*Resource{{in, nil}}},
		{"sampler in texture slot", [][]*Resource{{sampler, out}}},
		// Access modes never coerce: a write image cannot fill the
		// read slot, nor a read image the write slot.
		{"storage in sampled slot", [][]*Resource{{out, out}}},
		{"sampled in storage slot", [][]*Resource{{in, in}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dc.NewPass(k, PassDesc{Bindings: tt.bindings, Extent: extent})
			if !errors.Is(err, ErrBindingMismatch) {
				t.Errorf("NewPass() error = %v, want ErrBindingMismatch", err)
			}
		})
	}
}

func TestNewPassSampledViewFillsReadSlot(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 4, Height: 4}
	a, _ := dc.CreateTexture(extent, StorageWrite, nil)
	b, _ := dc.CreateTexture(extent, StorageWrite, nil)

	view, err := a.Sampled()
	if err != nil {
		t.Fatalf("Sampled() error = %v", err)
	}
	if _, err := dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{view, b}},
		Extent:   extent,
	}); err != nil {
		t.Errorf("NewPass(sampled view) error = %v", err)
	}
}

func TestNewPassParams(t *testing.T) {
	dc := openSoftware(t)

	desc := copyKernelDesc()
	desc.ParamsSize = 8
	k, err := dc.CompileKernel(desc)
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 2, Height: 2}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)
	bindings := [][]*Resource{{in, out}}

	// Missing params.
	_, err = dc.NewPass(k, PassDesc{Bindings: bindings, Extent: extent})
	if !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("NewPass(no params) error = %v, want ErrBindingMismatch", err)
	}

	// Wrong size.
	short, _ := dc.CreateInlineParams(make([]byte, 4))
	_, err = dc.NewPass(k, PassDesc{Bindings: bindings, Params: short, Extent: extent})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("NewPass(short params) error = %v, want ErrSizeMismatch", err)
	}

	// Exact size.
	exact, _ := dc.CreateInlineParams(make([]byte, 8))
	if _, err := dc.NewPass(k, PassDesc{Bindings: bindings, Params: exact, Extent: extent}); err != nil {
		t.Errorf("NewPass(exact params) error = %v", err)
	}

	// Params on a kernel that takes none.
	plain, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	_, err = dc.NewPass(plain, PassDesc{Bindings: bindings, Params: exact, Extent: extent})
	if !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("NewPass(unexpected params) error = %v, want ErrBindingMismatch", err)
	}
}

func TestNewPassStorageExtentMismatch(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 4, Height: 4}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	small, _ := dc.CreateTexture(Extent2D{Width: 2, Height: 2}, StorageWrite, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	// A storage texture smaller than the dispatch domain would be
	// written out of bounds.
	_, err = dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{in, small}},
		Extent:   extent,
	})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("NewPass(small storage texture) error = %v, want ErrSizeMismatch", err)
	}

	// Sampled textures use normalized coordinates, so a differently
	// sized input is legal.
	big, _ := dc.CreateTexture(Extent2D{Width: 8, Height: 8}, SampledRead, nil)
	if _, err := dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{big, out}},
		Extent:   extent,
	}); err != nil {
		t.Errorf("NewPass(oversized sampled texture) error = %v", err)
	}
}

func TestNewPassInvalidExtent(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 2, Height: 2}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	_, err = dc.NewPass(k, PassDesc{
		Bindings: [][]*Resource{{in, out}},
		Extent:   Extent2D{},
	})
	if !errors.Is(err, ErrInvalidExtent) {
		t.Errorf("NewPass(zero extent) error = %v, want ErrInvalidExtent", err)
	}
}
