// Package reactor is the public facade over the core readiness-event
// demultiplexer implemented in internal/reactor. It exposes the nine
// operations of spec.md §6 (new, register, select_on, unregister,
// unregister_close, dispatch, reconfigure_threads, pool_destroy, handled)
// as methods on Pool.
//
// Author: momentics <momentics@gmail.com>
package reactor

import (
	"go.uber.org/zap"

	internal "github.com/momentics/evreactor/internal/reactor"
)

// HandlerFunc is the callback invoked for a ready (or retiring) slot. See
// internal/reactor.HandlerFunc for the full contract.
type HandlerFunc = internal.HandlerFunc

// Sentinel errors, re-exported from internal/reactor so callers can use
// errors.Is against this package alone.
var (
	ErrPoolClosed          = internal.ErrPoolClosed
	ErrCapacityExhausted   = internal.ErrCapacityExhausted
	ErrInvalidHandle       = internal.ErrInvalidHandle
	ErrKernelArmingFailure = internal.ErrKernelArmingFailure
)

// Options configures pool construction.
type Options struct {
	// Hint sizes the kernel readiness handle.
	Hint int

	// EventThreadCount is the desired worker count passed to Dispatch.
	EventThreadCount int

	// MaxThreads caps simultaneous workers (default 32).
	MaxThreads int

	// TableWidth/SlotWidth bound the two-level slot table (defaults
	// 1024/1024, matching event-epoll.c's EVENT_EPOLL_TABLES/SLOTS).
	TableWidth int
	SlotWidth  int

	Logger  *zap.Logger
	Metrics internal.MetricsSink
}

// Pool is the reactor's operations object.
type Pool struct {
	inner *internal.Pool
}

// New constructs a Pool: creates the kernel readiness handle and slot
// table, ready for Register calls and a subsequent Dispatch.
func New(opts Options) (*Pool, error) {
	p, err := internal.New(internal.Options{
		Hint:             opts.Hint,
		EventThreadCount: opts.EventThreadCount,
		MaxThreads:       opts.MaxThreads,
		TableWidth:       opts.TableWidth,
		SlotWidth:        opts.SlotWidth,
		Logger:           opts.Logger,
		Metrics:          opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Pool{inner: p}, nil
}

// Register arms fd with the kernel and returns a stable handle.
// want_read/want_write are tri-valued: 1 enables, 0 clears, -1 leaves
// unchanged. notifyOnPollerDeath registers the slot to receive a terminal
// handler call with pollerDied=true whenever a worker retires.
func (p *Pool) Register(fd int, handler HandlerFunc, data any, wantRead, wantWrite int, notifyOnPollerDeath bool) (int32, error) {
	return p.inner.Register(fd, handler, data, wantRead, wantWrite, notifyOnPollerDeath)
}

// SelectOn updates the desired readiness mask for an already-registered
// handle, using the same tri-valued encoding as Register.
func (p *Pool) SelectOn(handle int32, fd int, wantRead, wantWrite int) (int32, error) {
	return p.inner.SelectOn(handle, fd, wantRead, wantWrite)
}

// Unregister detaches fd from the kernel without closing it. A negative
// handle is a safe no-op, for shutdown paths that may race with a failed
// registration.
func (p *Pool) Unregister(handle int32, fd int) error {
	return p.inner.Unregister(handle, fd)
}

// UnregisterClose detaches fd from the kernel and closes it once the last
// reference to the slot drops.
func (p *Pool) UnregisterClose(handle int32, fd int) error {
	return p.inner.UnregisterClose(handle, fd)
}

// Handled must be called by the registrant after its handler returns; it
// re-arms the kernel once no other worker still owns the slot, picking up
// any SelectOn calls made during handler execution.
func (p *Pool) Handled(handle int32, fd int, gen uint32) error {
	return p.inner.Handled(handle, fd, gen)
}

// Dispatch spawns the configured worker count (clamped to
// [1, MaxThreads]) and blocks until the principal worker exits — which, in
// steady operation, is only after ReconfigureThreads(0) combined with
// Destroy.
func (p *Pool) Dispatch() {
	p.inner.Dispatch()
}

// ReconfigureThreads grows or shrinks the live worker count. Growing only
// takes effect once Dispatch has been called at least once.
func (p *Pool) ReconfigureThreads(value int) {
	p.inner.ReconfigureThreads(value)
}

// Destroy enters destroy mode: subsequent Register calls fail with
// ErrPoolClosed, and ReconfigureThreads(0) becomes permitted so all
// workers can be drained before PoolDestroy.
func (p *Pool) Destroy() {
	p.inner.Destroy()
}

// PoolDestroy tears the pool down: closes the kernel handle and frees the
// slot table. Must only be called after every worker has exited (i.e.
// after ReconfigureThreads(0) following Destroy, with Dispatch having
// returned).
func (p *Pool) PoolDestroy() error {
	return p.inner.TeardownPool()
}

// ActiveThreads reports the current live worker count.
func (p *Pool) ActiveThreads() int {
	return p.inner.ActiveThreads()
}

// PollerGen reports the current poller-retirement generation counter.
func (p *Pool) PollerGen() uint32 {
	return p.inner.PollerGen()
}
