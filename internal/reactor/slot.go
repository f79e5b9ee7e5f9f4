//go:build linux

// Package reactor implements the core slot table, pool, and dispatch loop
// of the readiness-event demultiplexer.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on libglusterfs/src/event-epoll.c's event_slot_epoll /
// event_pool structures, re-expressed in idiomatic Go over
// golang.org/x/sys/unix epoll primitives.
package reactor

import (
	"container/list"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// HandlerFunc is the callback invoked for a ready (or retiring) slot.
//
// On a normal dispatch at least one of pollIn/pollOut/pollErr is true and
// pollerDied is false. On poller death all three readiness flags are false
// and pollerDied is true; the handler must not touch the slot (it is being
// retired) and must return promptly.
type HandlerFunc func(fd int, handle int32, gen uint32, data any, pollIn, pollOut, pollErr, pollerDied bool)

// baseEvents is the always-on mask applied to every registration: error,
// hangup, priority, and the one-shot bit. Edge-triggering (EPOLLET) is
// applied unconditionally too, since this engine implements only the
// edge-triggered one-shot variant of spec.md's §9 "dynamic dispatch" note.
const baseEvents = unix.EPOLLPRI | unix.EPOLLHUP | unix.EPOLLERR | unix.EPOLLONESHOT | unix.EPOLLET

const (
	maskIn  = uint32(unix.EPOLLIN)
	maskOut = uint32(unix.EPOLLOUT)
	maskErr = uint32(unix.EPOLLERR)
	maskHup = uint32(unix.EPOLLHUP)
	maskPri = uint32(unix.EPOLLPRI)
)

// closeFD closes fd, ignoring the result — mirrors sys_close's
// fire-and-forget usage at the tail of event_slot_unref/__event_slot_unref.
func closeFD(fd int32) {
	_ = unix.Close(int(fd))
}

// freeFD is the sentinel value marking an unused slot.
const freeFD int32 = -1

// Slot is the bookkeeping row for one armed file descriptor.
//
// mu protects every field below except ref, which is atomic. deathElem
// (membership in the pool's poller-death registry) is mutated only while
// the owning Pool's mutex is held — by slottable alloc/dealloc and by
// lifecycle retirement — never under mu alone, matching the original's
// poller_death list node, whose transitions all happen under
// event_pool->mutex.
type Slot struct {
	mu sync.Mutex

	fd     int32
	gen    uint32
	idx    int32
	events uint32

	handler HandlerFunc
	data    any

	ref atomic.Int64

	doClose      bool
	inHandler    int32
	handledError bool

	notifyDeath    bool
	deathElem      *list.Element
	deathListOwner *list.List
}

// free reports whether the slot currently holds no FD.
func (s *Slot) free() bool {
	return s.fd == freeFD
}

// updateEvents applies the tri-valued read/write encoding shared by
// Register and SelectOn: 1 enables, 0 clears, -1 leaves unchanged. Any
// other value is ignored (logged by the caller, which holds the logger).
func updateEvents(events *uint32, bit uint32, want int) bool {
	switch want {
	case 1:
		*events |= bit
	case 0:
		*events &^= bit
	case -1:
		// leave unchanged
	default:
		return false
	}
	return true
}
