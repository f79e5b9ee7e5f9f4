//go:build linux

package reactor

import "go.uber.org/zap"

// dispatchOne waits for exactly one kernel event and routes it to its
// slot's handler, enforcing the single-handler exclusion invariant via
// in_handler plus generation validation.
//
// Grounded on event_dispatch_epoll_handler, event-epoll.c lines 544-624.
func (p *Pool) dispatchOne() error {
	handle, gen, events, err := p.kernel.Wait()
	if err != nil {
		return err
	}

	s := p.getRef(handle)
	if s == nil {
		p.log.Warn("dispatch: slot not found", zap.Int32("handle", handle))
		return nil
	}

	var (
		handler              HandlerFunc
		data                  any
		fd                    int32
		handledErrorPreviously bool
		shouldInvoke          bool
	)

	s.mu.Lock()
	switch {
	case s.free():
		// fd got unregistered in another thread.
		p.log.Debug("dispatch: stale event for freed slot", zap.Int32("handle", handle))
		p.metrics.IncStale()
	case gen != s.gen:
		// slot was re-used and is therefore a different fd.
		p.log.Debug("dispatch: generation mismatch", zap.Int32("handle", handle), zap.Uint32("gen", gen), zap.Uint32("slot_gen", s.gen))
		p.metrics.IncStale()
	case s.inHandler > 0:
		// another worker still owns this slot; rare under one-shot
		// arming but legal if the fd was rearmed very quickly.
	default:
		handler = s.handler
		data = s.data
		fd = s.fd
		if s.handledError {
			handledErrorPreviously = true
		} else {
			s.handledError = (events & (maskErr | maskHup)) != 0
			s.inHandler++
		}
		shouldInvoke = true
	}
	s.mu.Unlock()

	if shouldInvoke && handler != nil && !handledErrorPreviously {
		handler(int(fd), handle, gen, data,
			events&(maskIn|maskPri) != 0,
			events&maskOut != 0,
			events&(maskErr|maskHup) != 0,
			false)
		p.metrics.IncDispatched()
	}

	p.releaseRef(handle, s)
	return nil
}
