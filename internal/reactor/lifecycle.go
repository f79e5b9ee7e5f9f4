//go:build linux

package reactor

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/momentics/evreactor/affinity"
)

// releaseRefLocked is the __event_slot_unref counterpart: it assumes the
// pool mutex is already held by the caller (used only by the retirement
// path below, which processes a whole batch of slots under one critical
// section rather than lock/unlock per slot). As in releaseRef, the
// registeredCount gauge only moves when deallocLocked reports the slot was
// actually in use.
func (p *Pool) releaseRefLocked(handle int32, s *Slot) {
	if s.ref.Add(-1) != 0 {
		return
	}
	s.mu.Lock()
	fd := s.fd
	doClose := s.doClose
	s.doClose = false
	s.mu.Unlock()

	if p.table.deallocLocked(handle, s) {
		p.registeredCount--
		p.metrics.SetRegisteredSlots(p.registeredCount)
	}
	if doClose {
		closeFD(fd)
	}
}

// Dispatch spawns the configured number of workers (clamped to
// [1, MaxThreads]) and blocks until the principal worker (index 1) exits.
//
// Grounded on event_dispatch_epoll, event-epoll.c lines 739-820.
func (p *Pool) Dispatch() {
	p.mu.Lock()

	count := p.eventThreadCount
	if count > p.maxThreads {
		count = p.maxThreads
	}
	if count <= 0 {
		count = 1
	}
	p.eventThreadCount = count

	// Matches the original's extra activethreadcount++ performed by
	// event_dispatch_epoll itself, independent of each worker's own
	// increment — see SPEC_FULL.md §4 on the resulting transient
	// over-count.
	p.activeThreadCount++
	p.metrics.SetActiveThreads(p.activeThreadCount)

	p.worker1Done = make(chan struct{})
	for i := 0; i < count; i++ {
		idx := i + 1
		p.roster[i] = true
		go p.workerLoop(idx)
	}
	p.mu.Unlock()

	<-p.worker1Done

	p.mu.Lock()
	p.activeThreadCount--
	p.metrics.SetActiveThreads(p.activeThreadCount)
	p.mu.Unlock()
}

// ReconfigureThreads adjusts the desired worker count. Growing spawns new
// detached workers for roster slots confirmed empty; shrinking simply
// lowers eventThreadCount — each worker whose 1-based index exceeds the new
// count notices at the top of its loop and retires on its own.
//
// Grounded on event_reconfigure_threads_epoll, event-epoll.c lines 837-906.
func (p *Pool) ReconfigureThreads(value int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroy {
		value = 0
	} else {
		if value > p.maxThreads {
			value = p.maxThreads
		}
		if value <= 0 {
			value = 1
		}
	}

	oldCount := p.eventThreadCount
	dispatched := p.worker1Done != nil

	if dispatched && oldCount < value {
		for i := oldCount; i < value; i++ {
			if !p.roster[i] {
				p.roster[i] = true
				go p.workerLoop(i + 1)
			}
		}
	}

	p.eventThreadCount = value
}

// workerLoop is one worker's lifetime: wait + dispatch, retiring once its
// 1-based index exceeds eventThreadCount.
//
// Grounded on event_dispatch_epoll_worker, event-epoll.c lines 626-737.
func (p *Pool) workerLoop(index int) {
	if err := affinity.PinCurrentGoroutine((index - 1) % runtime.NumCPU()); err != nil {
		p.log.Debug("worker affinity pin failed", zap.Int("index", index-1), zap.Error(err))
	}
	p.log.Debug("worker started", zap.Int("index", index-1))

	// Matches event_dispatch_epoll_worker's own activethreadcount++ at
	// thread start, on top of Dispatch's bracketing increment — every
	// live worker counts itself, not just the dispatch call.
	p.mu.Lock()
	p.activeThreadCount++
	p.metrics.SetActiveThreads(p.activeThreadCount)
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.eventThreadCount < index {
			p.retireLocked(index)
			p.mu.Unlock()
			p.log.Debug("worker exited", zap.Int("index", index))
			if index == 1 {
				close(p.worker1Done)
			}
			return
		}
		p.mu.Unlock()

		if err := p.dispatchOne(); err != nil {
			p.log.Error("dispatch failed", zap.Error(err))
		}
	}
}

// retireLocked performs the full retirement protocol: waits out any
// concurrent retirement already slicing the death list, claims this
// worker's roster slot as empty, bumps poller_gen, and slices the
// poller-death registry into a private batch. Caller holds p.mu and it is
// released (and re-acquired) internally around the unlocked notify phase.
func (p *Pool) retireLocked(index int) {
	for p.pollerDeathSliced {
		p.cond.Wait()
	}

	p.roster[index-1] = false
	p.activeThreadCount--
	p.metrics.SetActiveThreads(p.activeThreadCount)
	p.pollerGen++
	gen := p.pollerGen

	q := sliceDeathListLocked(p.deathList)
	p.pollerDeathSliced = true
	p.cond.Broadcast()

	p.mu.Unlock()
	batch := make([]*Slot, 0, q.Length())
	for q.Length() > 0 {
		s := q.Remove().(*Slot)
		batch = append(batch, s)
		if s.handler != nil {
			s.handler(int(s.fd), 0, gen, s.data, false, false, false, true)
			p.metrics.IncPollerDeath()
		}
	}
	p.mu.Lock()

	for _, s := range batch {
		requeueDeathLocked(p.deathList, s)
		p.releaseRefLocked(s.idx, s)
	}

	p.pollerDeathSliced = false
	p.cond.Broadcast()
}
