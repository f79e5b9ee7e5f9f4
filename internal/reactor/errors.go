//go:build linux

package reactor

import "errors"

// Sentinel errors surfaced to callers, per spec.md §7.
var (
	// ErrPoolClosed is returned by Register after Destroy has been called.
	ErrPoolClosed = errors.New("reactor: pool is closed")

	// ErrCapacityExhausted is returned when no free slot exists and none
	// can be newly allocated.
	ErrCapacityExhausted = errors.New("reactor: slot table capacity exhausted")

	// ErrInvalidHandle is returned for an unknown or out-of-range handle.
	ErrInvalidHandle = errors.New("reactor: invalid handle")

	// ErrKernelArmingFailure is returned when the OS readiness primitive
	// rejects an arm/modify/detach request.
	ErrKernelArmingFailure = errors.New("reactor: kernel arming failure")
)
