package hac

import (
	"errors"
	"fmt"
)

// Errors surfaced by the compute core. Construction-time errors are
// returned synchronously to the immediate caller; submission and
// read-back errors are delivered through the Job or the ReadBack call.
var (
	// ErrNoCompatibleDevice is returned by Open when no backend can
	// provide an accelerator with compute support.
	ErrNoCompatibleDevice = errors.New("hac: no compatible device")

	// ErrSizeMismatch is returned when initial texture data does not
	// match the declared extent (width*height*4 bytes for RGBA8).
	ErrSizeMismatch = errors.New("hac: size mismatch")

	// ErrParamsTooLarge is returned when an inline parameter block
	// exceeds the device limit.
	ErrParamsTooLarge = errors.New("hac: inline params too large")

	// ErrBindingMismatch is returned at Pass construction when supplied
	// resources do not match the kernel's declared binding layout in
	// set, order, type, or access mode.
	ErrBindingMismatch = errors.New("hac: binding mismatch")

	// ErrResourceNotReadable is returned by ReadBack for resources that
	// are not copy-eligible (samplers, inline parameter blocks).
	ErrResourceNotReadable = errors.New("hac: resource not readable")

	// ErrDeviceLost is returned by every operation on a DeviceContext
	// whose accelerator has been lost. The context and everything built
	// from it must be rebuilt against a freshly opened context.
	ErrDeviceLost = errors.New("hac: device lost")

	// ErrInvalidExtent is returned for extents with a zero dimension.
	ErrInvalidExtent = errors.New("hac: invalid extent")

	// ErrPassConsumed is returned when a Pass is assembled into more
	// than one Pipeline.
	ErrPassConsumed = errors.New("hac: pass already consumed")

	// ErrPipelineSubmitted is returned when a Pipeline is submitted
	// more than once.
	ErrPipelineSubmitted = errors.New("hac: pipeline already submitted")
)

// CompileError reports a kernel program that failed to validate or
// compile for the target device's shading dialect.
type CompileError struct {
	// Label identifies the kernel, when one was given.
	Label string

	// Diagnostic is the compiler's diagnostic text.
	Diagnostic string

	// Err is the underlying compiler error.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("hac: compile %q: %s", e.Label, e.Diagnostic)
	}
	return fmt.Sprintf("hac: compile: %s", e.Diagnostic)
}

// Unwrap returns the underlying compiler error.
func (e *CompileError) Unwrap() error { return e.Err }
