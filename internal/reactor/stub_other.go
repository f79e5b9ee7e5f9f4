//go:build !linux

// File: internal/reactor/stub_other.go
//
// Non-Linux stand-in. The engine's kernel readiness facility is epoll-only
// (spec.md §9: "this spec covers the edge-triggered one-shot variant");
// on other platforms the package still builds, but New and every
// registration operation fail with ErrNotSupported and the remaining
// methods are no-ops, matching the teacher's own linux/windows
// build-tag split (e.g. internal/concurrency/poller_windows.go).
package reactor

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// HandlerFunc is the callback invoked for a ready (or retiring) slot.
type HandlerFunc func(fd int, handle int32, gen uint32, data any, pollIn, pollOut, pollErr, pollerDied bool)

var (
	ErrPoolClosed          = errors.New("reactor: pool is closed")
	ErrCapacityExhausted   = errors.New("reactor: slot table capacity exhausted")
	ErrInvalidHandle       = errors.New("reactor: invalid handle")
	ErrKernelArmingFailure = errors.New("reactor: kernel arming failure")
	ErrNotSupported        = errors.New("reactor: epoll backend not supported on this platform")
)

// MetricsSink mirrors the Linux variant's shape so the public facade
// compiles identically on every platform.
type MetricsSink interface {
	SetActiveThreads(n int)
	SetRegisteredSlots(n int)
	IncDispatched()
	IncStale()
	IncPollerDeath()
}

// Options configures pool construction (mirrors the Linux variant's shape).
type Options struct {
	Hint             int
	EventThreadCount int
	MaxThreads       int
	TableWidth       int
	SlotWidth        int
	Logger           *zap.Logger
	Metrics          MetricsSink
}

// Pool is a non-functional stand-in on non-Linux platforms.
type Pool struct {
	mu sync.Mutex
}

func New(Options) (*Pool, error) {
	return nil, ErrNotSupported
}

func (p *Pool) Register(int, HandlerFunc, any, int, int, bool) (int32, error) {
	return -1, ErrNotSupported
}

func (p *Pool) SelectOn(int32, int, int, int) (int32, error) { return -1, ErrNotSupported }
func (p *Pool) Unregister(int32, int) error                  { return ErrNotSupported }
func (p *Pool) UnregisterClose(int32, int) error              { return ErrNotSupported }
func (p *Pool) Handled(int32, int, uint32) error              { return ErrNotSupported }
func (p *Pool) Dispatch()                                     {}
func (p *Pool) ReconfigureThreads(int)                        {}
func (p *Pool) Destroy()                                      {}
func (p *Pool) TeardownPool() error                           { return nil }
func (p *Pool) ActiveThreads() int                            { return 0 }
func (p *Pool) PollerGen() uint32                             { return 0 }
