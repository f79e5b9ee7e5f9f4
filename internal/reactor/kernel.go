//go:build linux

package reactor

// kernelHandle is the edge-triggered, one-shot readiness facility contract
// of spec.md §6: create (sized by a hint), arm/re-arm/detach an FD with a
// mask plus an opaque (handle, gen) payload, and wait for up to one event
// at a time carrying that payload back.
type kernelHandle interface {
	// Arm adds fd to the interest set with events and the given payload.
	Arm(fd int, handle int32, gen uint32, events uint32) error

	// Rearm modifies the interest set for fd (EPOLL_CTL_MOD equivalent).
	Rearm(fd int, handle int32, gen uint32, events uint32) error

	// Detach removes fd from the interest set.
	Detach(fd int) error

	// Wait blocks (no timeout) until exactly one event fires, tolerating
	// interrupted-system-call errors internally, and returns the payload
	// and fired-event mask.
	Wait() (handle int32, gen uint32, events uint32, err error)

	// Close releases the kernel handle.
	Close() error
}
