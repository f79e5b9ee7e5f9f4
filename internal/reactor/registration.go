//go:build linux

package reactor

import "go.uber.org/zap"

// Register arms fd with the kernel and returns a stable handle. want_read
// and want_write are tri-valued: 1 enables, 0 clears, -1 leaves the bit
// unchanged. A fresh registration starts from baseEvents, in which the
// read and write bits are cleared, so -1 leaves them off.
//
// Grounded on event_register_epoll, event-epoll.c lines 338-421.
func (p *Pool) Register(fd int, handler HandlerFunc, data any, wantRead, wantWrite int, notifyOnPollerDeath bool) (int32, error) {
	p.mu.Lock()
	if p.destroy {
		p.mu.Unlock()
		return -1, ErrPoolClosed
	}

	s, handle, ok := p.table.allocLocked(int32(fd), notifyOnPollerDeath, p.deathList)
	if !ok {
		p.mu.Unlock()
		return -1, ErrCapacityExhausted
	}
	p.registeredCount++
	p.metrics.SetRegisteredSlots(p.registeredCount)
	p.mu.Unlock()

	s.mu.Lock()
	s.events = baseEvents
	s.handler = handler
	s.data = data
	if !updateEvents(&s.events, maskIn, wantRead) {
		p.log.Warn("invalid want_read value", zap.Int("fd", fd), zap.Int("want_read", wantRead))
	}
	if !updateEvents(&s.events, maskOut, wantWrite) {
		p.log.Warn("invalid want_write value", zap.Int("fd", fd), zap.Int("want_write", wantWrite))
	}
	events := s.events
	gen := s.gen
	err := p.kernel.Arm(fd, handle, gen, events)
	s.mu.Unlock()

	if err != nil {
		p.log.Error("epoll add failed", zap.Int("fd", fd), zap.Error(err))
		// releaseRef deallocs the slot it just allocated and pairs back the
		// registeredCount bump above — a slot that never got armed was never
		// a live registration.
		p.releaseRef(handle, s)
		return -1, err
	}

	// The slot's ref is deliberately retained here as the registration's
	// reference, matched by Unregister/UnregisterClose.
	return handle, nil
}

// SelectOn updates the desired readiness mask for an already-registered
// handle using the same tri-valued encoding as Register.
//
// Grounded on event_select_on_epoll, event-epoll.c lines 484-542.
func (p *Pool) SelectOn(handle int32, fd int, wantRead, wantWrite int) (int32, error) {
	s := p.getRef(handle)
	if s == nil {
		return -1, ErrInvalidHandle
	}
	defer p.releaseRef(handle, s)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd != int32(fd) {
		return -1, ErrInvalidHandle
	}

	if !updateEvents(&s.events, maskIn, wantRead) {
		p.log.Warn("invalid want_read value", zap.Int32("handle", handle), zap.Int("want_read", wantRead))
	}
	if !updateEvents(&s.events, maskOut, wantWrite) {
		p.log.Warn("invalid want_write value", zap.Int32("handle", handle), zap.Int("want_write", wantWrite))
	}

	if s.inHandler > 0 {
		// A worker is between "picked up" and "reported handled"; it will
		// re-arm with the updated events on its next Handled() call. This
		// both saves a syscall and preserves the single-handler invariant.
		return handle, nil
	}

	if err := p.kernel.Rearm(fd, handle, s.gen, s.events); err != nil {
		p.log.Error("epoll modify failed", zap.Int("fd", fd), zap.Error(err))
		return -1, err
	}
	return handle, nil
}

func (p *Pool) unregisterCommon(handle int32, fd int, doClose bool) error {
	if handle < 0 {
		return nil
	}

	s := p.getRef(handle)
	if s == nil {
		p.log.Warn("unregister: slot not found", zap.Int32("handle", handle), zap.Int("fd", fd))
		return ErrInvalidHandle
	}

	s.mu.Lock()
	if s.fd != int32(fd) {
		s.mu.Unlock()
		p.releaseRef(handle, s)
		return ErrInvalidHandle
	}

	err := p.kernel.Detach(fd)
	if err == nil {
		s.doClose = doClose
		s.gen++ // invalidates any pending dispatch
	}
	s.mu.Unlock()

	if err != nil {
		p.log.Error("epoll del failed", zap.Int("fd", fd), zap.Error(err))
	}

	// One reference for the lookup just performed, one for the original
	// registration — the slot becomes reclaimable as soon as no worker
	// still holds a dispatch-time reference.
	p.releaseRef(handle, s)
	p.releaseRef(handle, s)
	return err
}

// Unregister detaches fd from the kernel without closing it.
//
// Grounded on event_unregister_epoll, event-epoll.c lines 471-475.
func (p *Pool) Unregister(handle int32, fd int) error {
	return p.unregisterCommon(handle, fd, false)
}

// UnregisterClose detaches fd from the kernel and closes it once the last
// reference drops.
//
// Grounded on event_unregister_close_epoll, event-epoll.c lines 477-482.
func (p *Pool) UnregisterClose(handle int32, fd int) error {
	return p.unregisterCommon(handle, fd, true)
}

// Handled is called by the registrant after its handler returns; it
// decrements in_handler and, if it has returned to zero, re-arms the
// kernel with the latest events (picking up any SelectOn made during
// handler execution).
//
// Grounded on event_handled_epoll, event-epoll.c lines 942-995.
func (p *Pool) Handled(handle int32, fd int, gen uint32) error {
	s := p.getRef(handle)
	if s == nil {
		return ErrInvalidHandle
	}
	defer p.releaseRef(handle, s)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inHandler > 1 {
		// Dispatch only ever moves in_handler from 0 to 1; more is a bug.
		p.log.Error("in_handler above 1", zap.Int32("handle", handle), zap.Int32("in_handler", s.inHandler))
	}
	s.inHandler--

	if gen != s.gen {
		// Unregistered while in the handler; nothing to do.
		return nil
	}

	if s.inHandler == 0 {
		if err := p.kernel.Rearm(fd, handle, gen, s.events); err != nil {
			p.log.Error("epoll re-arm failed", zap.Int("fd", fd), zap.Error(err))
			return err
		}
	}
	return nil
}

// getRef looks up a slot by handle, incrementing its reference count. It
// returns nil for an out-of-range/unallocated handle.
func (p *Pool) getRef(handle int32) *Slot {
	p.mu.Lock()
	s := p.table.getLocked(handle)
	p.mu.Unlock()
	if s == nil {
		return nil
	}
	s.ref.Add(1)
	return s
}

// releaseRef drops a reference; on transition to zero it deallocates the
// slot and, if do_close was set, closes the FD outside any lock. The
// registeredCount gauge is paired with allocLocked/deallocLocked (via
// wasUsed), not with the ref count — a slot looked up free (getRef on an
// in-range-but-unallocated handle, ref 0→1→0) was never counted as
// registered and must not decrement it.
//
// Grounded on event_slot_unref, event-epoll.c lines 198-261.
func (p *Pool) releaseRef(handle int32, s *Slot) {
	if s.ref.Add(-1) != 0 {
		return
	}

	s.mu.Lock()
	fd := s.fd
	doClose := s.doClose
	s.doClose = false
	s.mu.Unlock()

	p.mu.Lock()
	if p.table.deallocLocked(handle, s) {
		p.registeredCount--
		p.metrics.SetRegisteredSlots(p.registeredCount)
	}
	p.mu.Unlock()

	if doClose {
		closeFD(fd)
	}
}
