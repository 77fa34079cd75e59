package hac

import (
	"context"
	"errors"
	"testing"
)

func TestPipelineCopyRoundTrip(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 8, Height: 8}
	pixels := gradientPixels(8, 8)
	in, _ := dc.CreateTexture(extent, SampledRead, pixels)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	pass, err := dc.NewPass(k, PassDesc{Bindings: [][]*Resource{{in, out}}, Extent: extent})
	if err != nil {
		t.Fatalf("NewPass() error = %v", err)
	}
	p, err := dc.NewPipeline("copy", pass)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	runToCompletion(t, p)

	got, err := dc.ReadBack(context.Background(), out)
	if err != nil {
		t.Fatalf("ReadBack() error = %v", err)
	}
	for i := range pixels {
		if got[i] != pixels[i] {
			t.Fatalf("pixel byte %d = %d, want %d", i, got[i], pixels[i])
		}
	}
}

// Two chained copies: pass 1 writes an intermediate image, pass 2 reads
// it through a sampled view. Exercises ordering between passes in one
// submission.
func TestPipelineTwoPassChaining(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 4, Height: 4}
	pixels := gradientPixels(4, 4)
	in, _ := dc.CreateTexture(extent, SampledRead, pixels)
	mid, _ := dc.CreateTexture(extent, StorageWrite, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	midView, err := mid.Sampled()
	if err != nil {
		t.Fatalf("Sampled() error = %v", err)
	}

	pass1, err := dc.NewPass(k, PassDesc{Bindings: [][]*Resource{{in, mid}}, Extent: extent})
	if err != nil {
		t.Fatalf("NewPass(1) error = %v", err)
	}
	pass2, err := dc.NewPass(k, PassDesc{Bindings: [][]*Resource{{midView, out}}, Extent: extent})
	if err != nil {
		t.Fatalf("NewPass(2) error = %v", err)
	}
	p, err := dc.NewPipeline("chain", pass1, pass2)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	runToCompletion(t, p)

	got, err := dc.ReadBack(context.Background(), out)
	if err != nil {
		t.Fatalf("ReadBack() error = %v", err)
	}
	for i := range pixels {
		if got[i] != pixels[i] {
			t.Fatalf("pixel byte %d = %d, want %d after two-pass chain", i, got[i], pixels[i])
		}
	}
}

func TestPipelineSubmitOnce(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 2, Height: 2}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	pass, _ := dc.NewPass(k, PassDesc{Bindings: [][]*Resource{{in, out}}, Extent: extent})
	p, _ := dc.NewPipeline("once", pass)
	runToCompletion(t, p)

	if _, err := p.Submit(); !errors.Is(err, ErrPipelineSubmitted) {
		t.Errorf("second Submit() error = %v, want ErrPipelineSubmitted", err)
	}
}

func TestPipelineConsumesPasses(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 2, Height: 2}
	in, _ := dc.CreateTexture(extent, SampledRead, nil)
	out, _ := dc.CreateTexture(extent, StorageWrite, nil)

	pass, _ := dc.NewPass(k, PassDesc{Bindings: [][]*Resource{{in, out}}, Extent: extent})
	if _, err := dc.NewPipeline("first", pass); err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	if _, err := dc.NewPipeline("second", pass); !errors.Is(err, ErrPassConsumed) {
		t.Errorf("NewPipeline(consumed pass) error = %v, want ErrPassConsumed", err)
	}
}

// Concurrent pipelines must each submit as one unit: no pass of one
// pipeline may ride along with another's submission.
func TestPipelineConcurrentSubmits(t *testing.T) {
	dc := openSoftware(t)
	k, err := dc.CompileKernel(copyKernelDesc())
	if err != nil {
		t.Fatalf("CompileKernel() error = %v", err)
	}
	extent := Extent2D{Width: 4, Height: 4}

	const workers = 8
	outs := make([]*Resource, workers)
	pipelines := make([]*Pipeline, workers)
	pixels := make([][]byte, workers)
	for i := 0; i < workers; i++ {
		pixels[i] = make([]byte, extent.ByteSize())
		for j := range pixels[i] {
			pixels[i][j] = byte(i*31 + j)
		}
		in, err := dc.CreateTexture(extent, SampledRead, pixels[i])
		if err != nil {
			t.Fatalf("CreateTexture(in %d) error = %v", i, err)
		}
		outs[i], err = dc.CreateTexture(extent, StorageWrite, nil)
		if err != nil {
			t.Fatalf("CreateTexture(out %d) error = %v", i, err)
		}
		pass, err := dc.NewPass(k, PassDesc{Bindings: [][]*Resource{{in, outs[i]}}, Extent: extent})
		if err != nil {
			t.Fatalf("NewPass(%d) error = %v", i, err)
		}
		pipelines[i], err = dc.NewPipeline("concurrent", pass)
		if err != nil {
			t.Fatalf("NewPipeline(%d) error = %v", i, err)
		}
	}

	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(p *Pipeline) {
			job, err := p.Submit()
			if err != nil {
				errs <- err
				return
			}
			errs <- job.Wait(context.Background())
		}(pipelines[i])
	}
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent submit error = %v", err)
		}
	}

	for i := 0; i < workers; i++ {
		got, err := dc.ReadBack(context.Background(), outs[i])
		if err != nil {
			t.Fatalf("ReadBack(%d) error = %v", i, err)
		}
		for j := range pixels[i] {
			if got[j] != pixels[i][j] {
				t.Fatalf("pipeline %d pixel byte %d = %d, want %d", i, j, got[j], pixels[i][j])
			}
		}
	}
}

func TestOpenAsync(t *testing.T) {
	result := <-OpenAsync(context.Background(), WithBackend("software"))
	if result.Err != nil {
		t.Fatalf("OpenAsync() error = %v", result.Err)
	}
	defer result.Context.Close()
	if result.Context.Info().Backend != "software" {
		t.Errorf("Info().Backend = %q, want %q", result.Context.Info().Backend, "software")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), WithBackend("quantum"))
	if !errors.Is(err, ErrNoCompatibleDevice) {
		t.Errorf("Open(unknown backend) error = %v, want ErrNoCompatibleDevice", err)
	}
}

func TestClosedContextRejectsWork(t *testing.T) {
	dc, err := Open(context.Background(), WithBackend("software"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dc.Close()
	dc.Close() // idempotent

	if _, err := dc.CreateTexture(Extent2D{Width: 1, Height: 1}, SampledRead, nil); err == nil {
		t.Error("CreateTexture() after Close error = nil, want error")
	}
}
