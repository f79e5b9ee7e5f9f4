//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity, via
// unix.SchedSetaffinity rather than a cgo pthread_setaffinity_np call —
// avoids a cgo dependency for a one-syscall operation.

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform pins the calling goroutine's OS thread to cpuID.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}

// PinCurrentGoroutine locks the calling goroutine to its current OS thread
// and pins that thread to cpuID, for dispatch workers that want to stay on
// one core for their whole lifetime.
func PinCurrentGoroutine(cpuID int) error {
	runtime.LockOSThread()
	return setAffinityPlatform(cpuID)
}
