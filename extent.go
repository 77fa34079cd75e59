package hac

// Extent2D is the size of a 2D dispatch domain or texture, in pixels.
// Both dimensions must be greater than zero.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Valid reports whether both dimensions are non-zero.
func (e Extent2D) Valid() bool {
	return e.Width > 0 && e.Height > 0
}

// Pixels returns the number of pixels in the extent.
func (e Extent2D) Pixels() uint64 {
	return uint64(e.Width) * uint64(e.Height)
}

// ByteSize returns the byte size of RGBA8 data covering the extent.
func (e Extent2D) ByteSize() uint64 {
	return e.Pixels() * 4
}

// WorkgroupSize is the fixed-size unit of parallel invocations a Kernel
// is dispatched in, matching the shader's @workgroup_size attribute.
type WorkgroupSize struct {
	X uint32
	Y uint32
	Z uint32
}

// GridFor computes the dispatch grid covering extent with this workgroup
// size, using ceiling division: ceil(w/X) x ceil(h/Y) x 1. When the
// extent is not an exact multiple of the workgroup size the final row
// and column of workgroups run partially out of range; kernel bodies
// must guard, or the implementation discards out-of-range storage
// writes.
func (w WorkgroupSize) GridFor(extent Extent2D) (x, y, z uint32) {
	x = (extent.Width + w.X - 1) / w.X
	y = (extent.Height + w.Y - 1) / w.Y
	return x, y, 1
}
