//go:build linux

package reactor

import (
	"sync/atomic"
	"testing"
)

func TestSelectOnSkipsRearmWhileInHandler(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	s, handle, ok := p.table.allocLocked(21, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	s.mu.Lock()
	s.inHandler = 1
	s.mu.Unlock()

	if _, err := p.SelectOn(handle, 21, 1, 0); err != nil {
		t.Fatalf("SelectOn: %v", err)
	}
	if atomic.LoadInt32(&fk.rearmCalls) != 0 {
		t.Fatalf("rearmCalls = %d, want 0 while in_handler > 0", fk.rearmCalls)
	}

	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events&maskIn == 0 {
		t.Fatal("SelectOn must still update the stored mask even without re-arming")
	}
}

func TestSelectOnRearmsWhenIdle(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	_, handle, ok := p.table.allocLocked(22, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}

	if _, err := p.SelectOn(handle, 22, 1, -1); err != nil {
		t.Fatalf("SelectOn: %v", err)
	}
	if atomic.LoadInt32(&fk.rearmCalls) != 1 {
		t.Fatalf("rearmCalls = %d, want 1", fk.rearmCalls)
	}
}

func TestSelectOnRejectsFDMismatch(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	_, handle, ok := p.table.allocLocked(23, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}

	if _, err := p.SelectOn(handle, 999, 1, -1); err != ErrInvalidHandle {
		t.Fatalf("SelectOn with wrong fd: err = %v, want ErrInvalidHandle", err)
	}
}

func TestHandledIgnoresGenerationMismatch(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	s, handle, ok := p.table.allocLocked(24, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	s.mu.Lock()
	s.inHandler = 1
	staleGen := s.gen
	s.gen++ // simulate an unregister/re-register racing with the in-flight handler
	s.mu.Unlock()

	if err := p.Handled(handle, 24, staleGen); err != nil {
		t.Fatalf("Handled: %v", err)
	}
	if atomic.LoadInt32(&fk.rearmCalls) != 0 {
		t.Fatalf("rearmCalls = %d, want 0 on a stale generation", fk.rearmCalls)
	}
}

func TestHandledRearmsOnceExclusionClears(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	s, handle, ok := p.table.allocLocked(25, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	s.mu.Lock()
	s.inHandler = 2 // two overlapping dispatches, unusual but handled gracefully
	gen := s.gen
	s.mu.Unlock()

	if err := p.Handled(handle, 25, gen); err != nil {
		t.Fatalf("Handled (first): %v", err)
	}
	if atomic.LoadInt32(&fk.rearmCalls) != 0 {
		t.Fatalf("rearmCalls after first Handled = %d, want 0", fk.rearmCalls)
	}

	if err := p.Handled(handle, 25, gen); err != nil {
		t.Fatalf("Handled (second): %v", err)
	}
	if atomic.LoadInt32(&fk.rearmCalls) != 1 {
		t.Fatalf("rearmCalls after second Handled = %d, want 1", fk.rearmCalls)
	}
}

func TestRegisterArmFailureLeavesRegisteredCountAtZero(t *testing.T) {
	fk := newFakeKernel()
	fk.armErr = ErrKernelArmingFailure
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	if _, err := p.Register(27, nil, nil, -1, -1, false); err == nil {
		t.Fatal("Register: want error when Arm fails")
	}

	if p.registeredCount != 0 {
		t.Fatalf("registeredCount = %d, want 0 after a failed arm unwinds the allocation", p.registeredCount)
	}
	if atomic.LoadInt32(&fm.registered) != 0 {
		t.Fatalf("RegisteredSlots gauge = %d, want 0 after a failed arm", fm.registered)
	}

	s := p.table.getLocked(0)
	if !s.free() {
		t.Fatal("slot should have been deallocated after the failed arm")
	}
}

func TestReleaseRefOnFreeHandleDoesNotTouchRegisteredCount(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	// Allocate and immediately free a slot directly (bypassing Register, so
	// registeredCount is never bumped), leaving an existing-but-free slot
	// at handle 0 in an already-allocated bucket. deallocLocked leaves ref
	// untouched, so drop it to 0 as a real releaseRef would have.
	s, handle, ok := p.table.allocLocked(28, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}
	p.table.deallocLocked(handle, s)
	s.ref.Store(0)

	// SelectOn's getRef bumps the free slot's ref 0->1 before discovering
	// the fd mismatch (the slot's fd is now freeFD); the deferred
	// releaseRef must not decrement registeredCount for a slot that was
	// never counted as registered.
	if _, err := p.SelectOn(handle, 999, 1, -1); err != ErrInvalidHandle {
		t.Fatalf("SelectOn on a free handle: err = %v, want ErrInvalidHandle", err)
	}

	if p.registeredCount != 0 {
		t.Fatalf("registeredCount = %d, want 0", p.registeredCount)
	}
	if atomic.LoadInt32(&fm.registered) != 0 {
		t.Fatalf("RegisteredSlots gauge = %d, want untouched at 0", fm.registered)
	}
}

func TestUnregisterCommonDetachesAndMarksClose(t *testing.T) {
	fk := newFakeKernel()
	fm := &fakeMetrics{}
	p := newTestPool(fk, fm)

	_, handle, ok := p.table.allocLocked(26, false, p.deathList)
	if !ok {
		t.Fatal("allocLocked failed")
	}

	if err := p.UnregisterClose(handle, 26); err != nil {
		t.Fatalf("UnregisterClose: %v", err)
	}
	if atomic.LoadInt32(&fk.detachCalls) != 1 {
		t.Fatalf("detachCalls = %d, want 1", fk.detachCalls)
	}

	s := p.table.getLocked(handle)
	if !s.free() {
		t.Fatal("slot should be free once both references drop")
	}
}
