// Package backend provides a pluggable compute backend abstraction.
//
// A backend turns a device-selection request into a gpucore.Adapter.
// Backends are registered via init() functions and selected at runtime.
// The software backend is automatically registered on import:
//
//	import _ "github.com/gogpu/hac/backend"
//
// The native GPU backend registers itself when its package is imported:
//
//	import _ "github.com/gogpu/hac/backend/native"
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name. Default prefers native over software.
package backend
