//go:build linux

// File: internal/reactor/epoll_linux.go
//
// Linux kernelHandle implementation over golang.org/x/sys/unix epoll.
// (handle, gen) is packed directly into unix.EpollEvent{Fd, Pad} — those
// two int32 fields already occupy the same 8 bytes the kernel treats as
// epoll_data_t.u64, so no unsafe pointer arithmetic is needed.
package reactor

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type kernelError struct {
	op    string
	cause error
}

func (e *kernelError) Error() string {
	return fmt.Sprintf("reactor: kernel arming failure: %s: %v", e.op, e.cause)
}

func (e *kernelError) Unwrap() error { return ErrKernelArmingFailure }

// Cause implements the github.com/pkg/errors Causer interface: it returns
// the stack-annotated wrap of the syscall error, and pkgerrors.Cause(err)
// unwraps all the way to the original syscall error.
func (e *kernelError) Cause() error { return e.cause }

func wrapKernelErr(op string, err error) error {
	return &kernelError{op: op, cause: pkgerrors.Wrap(err, op)}
}

type linuxEpoll struct {
	epfd int
}

func newKernelHandle(hint int) (kernelHandle, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, wrapKernelErr("epoll_create1", err)
	}
	return &linuxEpoll{epfd: epfd}, nil
}

func (e *linuxEpoll) ctl(op int, fd int, handle int32, gen uint32, events uint32) error {
	ev := unix.EpollEvent{
		Events: events,
		Fd:     handle,
		Pad:    int32(gen),
	}
	if err := unix.EpollCtl(e.epfd, op, fd, &ev); err != nil {
		return wrapKernelErr(ctlOpName(op), err)
	}
	return nil
}

func ctlOpName(op int) string {
	switch op {
	case unix.EPOLL_CTL_ADD:
		return "epoll_ctl_add"
	case unix.EPOLL_CTL_MOD:
		return "epoll_ctl_mod"
	case unix.EPOLL_CTL_DEL:
		return "epoll_ctl_del"
	default:
		return "epoll_ctl"
	}
}

func (e *linuxEpoll) Arm(fd int, handle int32, gen uint32, events uint32) error {
	return e.ctl(unix.EPOLL_CTL_ADD, fd, handle, gen, events)
}

func (e *linuxEpoll) Rearm(fd int, handle int32, gen uint32, events uint32) error {
	return e.ctl(unix.EPOLL_CTL_MOD, fd, handle, gen, events)
}

func (e *linuxEpoll) Detach(fd int) error {
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return wrapKernelErr("epoll_ctl_del", err)
	}
	return nil
}

// Wait blocks with an infinite timeout for exactly one event, tolerating
// interrupted-system-call and spurious zero-event returns by looping.
//
// Grounded on the epoll_wait(event_pool->fd, &event, 1, -1) call in
// event_dispatch_epoll_worker, event-epoll.c lines 717-726.
func (e *linuxEpoll) Wait() (int32, uint32, uint32, error) {
	var events [1]unix.EpollEvent
	for {
		n, err := unix.EpollWait(e.epfd, events[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, 0, 0, wrapKernelErr("epoll_wait", err)
		}
		if n == 0 {
			continue
		}
		ev := events[0]
		return ev.Fd, uint32(ev.Pad), ev.Events, nil
	}
}

func (e *linuxEpoll) Close() error {
	if err := unix.Close(e.epfd); err != nil {
		return wrapKernelErr("close", err)
	}
	return nil
}
