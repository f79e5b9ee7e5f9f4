//go:build linux

package reactor

import (
	"container/list"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

// fakeKernel replaces the real epoll syscalls with a channel-fed queue, so
// dispatchOne's stale/gen/in_handler decision logic can be exercised
// deterministically without a real fd or kernel wait. Arm/Rearm/Detach call
// counts let tests assert on syscall-avoidance paths (e.g. SelectOn during
// an in-flight handler must not re-arm).
type fakeKernel struct {
	events chan fakeEvent

	armCalls    int32
	rearmCalls  int32
	detachCalls int32

	armErr error // when set, Arm returns this error instead of succeeding
}

type fakeEvent struct {
	handle int32
	gen    uint32
	mask   uint32
}

func newFakeKernel() *fakeKernel { return &fakeKernel{events: make(chan fakeEvent, 4)} }

func (f *fakeKernel) Arm(int, int32, uint32, uint32) error {
	atomic.AddInt32(&f.armCalls, 1)
	return f.armErr
}

func (f *fakeKernel) Rearm(int, int32, uint32, uint32) error {
	atomic.AddInt32(&f.rearmCalls, 1)
	return nil
}

func (f *fakeKernel) Detach(int) error {
	atomic.AddInt32(&f.detachCalls, 1)
	return nil
}

func (f *fakeKernel) Close() error { return nil }

func (f *fakeKernel) Wait() (int32, uint32, uint32, error) {
	e := <-f.events
	return e.handle, e.gen, e.mask, nil
}

type fakeMetrics struct {
	active, registered int32
	dispatched, stale  int32
	pollerDeaths       int32
}

func (m *fakeMetrics) SetActiveThreads(n int)   { atomic.StoreInt32(&m.active, int32(n)) }
func (m *fakeMetrics) SetRegisteredSlots(n int) { atomic.StoreInt32(&m.registered, int32(n)) }
func (m *fakeMetrics) IncDispatched()           { atomic.AddInt32(&m.dispatched, 1) }
func (m *fakeMetrics) IncStale()                { atomic.AddInt32(&m.stale, 1) }
func (m *fakeMetrics) IncPollerDeath()          { atomic.AddInt32(&m.pollerDeaths, 1) }

func newTestPool(kernel kernelHandle, metrics MetricsSink) *Pool {
	p := &Pool{
		kernel:     kernel,
		table:      newSlotTable(1, 4),
		log:        zap.NewNop(),
		metrics:    metrics,
		maxThreads: 1,
		roster:     make([]bool, 1),
		deathList:  list.New(),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func TestDispatchOneDiscardsFreedSlot(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	s, handle, ok := p.table.allocLocked(11, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	gen := s.gen
	p.table.deallocLocked(handle, s)

	fk.events <- fakeEvent{handle: handle, gen: gen, mask: maskIn}
	if err := p.dispatchOne(); err != nil {
		t.Fatalf("dispatchOne: %v", err)
	}

	if atomic.LoadInt32(&fm.stale) != 1 {
		t.Fatalf("stale count = %d, want 1", fm.stale)
	}
	if atomic.LoadInt32(&fm.dispatched) != 0 {
		t.Fatalf("dispatched count = %d, want 0", fm.dispatched)
	}
}

func TestDispatchOneDiscardsGenMismatch(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	var invoked bool
	s, handle, ok := p.table.allocLocked(12, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	s.mu.Lock()
	s.handler = func(int, int32, uint32, any, bool, bool, bool, bool) { invoked = true }
	s.mu.Unlock()

	fk.events <- fakeEvent{handle: handle, gen: s.gen + 7, mask: maskIn}
	if err := p.dispatchOne(); err != nil {
		t.Fatalf("dispatchOne: %v", err)
	}

	if invoked {
		t.Fatal("handler must not run on a generation mismatch")
	}
	if atomic.LoadInt32(&fm.stale) != 1 {
		t.Fatalf("stale count = %d, want 1", fm.stale)
	}
}

func TestDispatchOneInvokesHandler(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	var gotIn, gotOut, gotErr bool
	s, handle, ok := p.table.allocLocked(13, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	s.mu.Lock()
	s.handler = func(fd int, h int32, gen uint32, data any, pollIn, pollOut, pollErr, pollerDied bool) {
		gotIn, gotOut, gotErr = pollIn, pollOut, pollErr
	}
	s.mu.Unlock()

	fk.events <- fakeEvent{handle: handle, gen: s.gen, mask: maskIn | maskOut}
	if err := p.dispatchOne(); err != nil {
		t.Fatalf("dispatchOne: %v", err)
	}

	if !gotIn || !gotOut || gotErr {
		t.Fatalf("handler flags = in:%v out:%v err:%v, want in:true out:true err:false", gotIn, gotOut, gotErr)
	}
	if atomic.LoadInt32(&fm.dispatched) != 1 {
		t.Fatalf("dispatched count = %d, want 1", fm.dispatched)
	}

	s.mu.Lock()
	inHandler := s.inHandler
	s.mu.Unlock()
	if inHandler != 1 {
		t.Fatalf("in_handler = %d, want 1 (cleared only by Handled)", inHandler)
	}
}

func TestDispatchOneSkipsSlotAlreadyInHandler(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	var invoked bool
	s, handle, ok := p.table.allocLocked(14, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	s.mu.Lock()
	s.handler = func(int, int32, uint32, any, bool, bool, bool, bool) { invoked = true }
	s.inHandler = 1
	s.mu.Unlock()

	fk.events <- fakeEvent{handle: handle, gen: s.gen, mask: maskIn}
	if err := p.dispatchOne(); err != nil {
		t.Fatalf("dispatchOne: %v", err)
	}

	if invoked {
		t.Fatal("handler must not run while another worker still owns the slot")
	}
	if atomic.LoadInt32(&fm.stale) != 0 {
		t.Fatalf("stale count = %d, want 0 (in_handler exclusion is not a stale dispatch)", fm.stale)
	}
	if atomic.LoadInt32(&fm.dispatched) != 0 {
		t.Fatalf("dispatched count = %d, want 0", fm.dispatched)
	}
}
