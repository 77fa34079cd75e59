package backend

import (
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/hac/gpucore"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU compute backend.
	BackendSoftware = "software"
	// BackendNative is the name of the pure Go GPU backend (gogpu/wgpu).
	BackendNative = "native"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoDevice is returned when a backend finds no usable device.
	ErrNoDevice = errors.New("backend: no usable device")
)

// Options carries device-selection input to Open.
type Options struct {
	// Provider, when non-nil, supplies an externally owned device the
	// backend may adopt instead of opening its own. Backends that
	// cannot adopt ignore it.
	Provider gpucontext.DeviceProvider
}

// Backend opens compute devices.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g. "software", "native").
	Name() string

	// Open selects a device and returns an adapter for it. The caller
	// owns the adapter and must Close it.
	Open(opts Options) (gpucore.Adapter, error)
}
