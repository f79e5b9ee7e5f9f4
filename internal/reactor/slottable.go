//go:build linux

package reactor

import (
	"container/list"
)

// Default tunables (spec.md §6), overridable via control.ConfigStore at
// construction time.
const (
	DefaultMaxThreads = 32
	DefaultTableWidth = 1024
	DefaultSlotWidth  = 1024
)

// bucket is one outer-table entry: a fixed array of SlotWidth slots,
// allocated lazily and never freed until pool teardown.
type bucket struct {
	slots     []Slot
	slotsUsed int
}

// slotTable is the two-level, lazily-grown array of per-FD slots.
//
// All methods here assume the caller already holds the owning Pool's
// mutex — mirroring __event_newtable / __event_slot_alloc /
// __event_slot_dealloc in event-epoll.c, which are always called with
// event_pool->mutex held.
type slotTable struct {
	outer     []*bucket
	slotWidth int
}

func newSlotTable(tableWidth, slotWidth int) *slotTable {
	return &slotTable{
		outer:     make([]*bucket, tableWidth),
		slotWidth: slotWidth,
	}
}

// handle computes the stable integer handle for a (table index, offset)
// pair: table*slotsPerTable + offset.
func (t *slotTable) handle(tableIdx, offset int) int32 {
	return int32(tableIdx*t.slotWidth + offset)
}

// locate splits a handle back into its table index and offset.
func (t *slotTable) locate(handle int32) (tableIdx, offset int) {
	return int(handle) / t.slotWidth, int(handle) % t.slotWidth
}

// ErrCapacityExhausted-producing allocation. allocLocked scans outer
// buckets in order; for the first non-full (or newly allocated) bucket it
// linearly scans for a free slot, preserves gen, reinitializes the rest,
// and returns the new handle with ref=1.
func (t *slotTable) allocLocked(fd int32, notifyDeath bool, deathList *list.List) (*Slot, int32, bool) {
	for i := 0; i < len(t.outer); i++ {
		b := t.outer[i]
		if b == nil {
			b = &bucket{slots: make([]Slot, t.slotWidth)}
			for j := range b.slots {
				b.slots[j].fd = freeFD
			}
			t.outer[i] = b
		} else if b.slotsUsed == t.slotWidth {
			continue
		}

		for j := 0; j < t.slotWidth; j++ {
			s := &b.slots[j]
			if !s.free() {
				continue
			}

			gen := s.gen
			*s = Slot{}
			s.gen = gen + 1
			s.fd = fd

			handle := t.handle(i, j)
			if notifyDeath {
				s.idx = handle
				s.notifyDeath = true
				s.deathElem = deathList.PushBack(s)
				s.deathListOwner = deathList
			}

			b.slotsUsed++
			s.ref.Store(1)
			return s, handle, true
		}
	}
	return nil, -1, false
}

// getLocked returns the slot addressed by handle, or nil if the outer
// bucket was never allocated (stale/out-of-range handle).
func (t *slotTable) getLocked(handle int32) *Slot {
	if handle < 0 {
		return nil
	}
	tableIdx, offset := t.locate(handle)
	if tableIdx < 0 || tableIdx >= len(t.outer) {
		return nil
	}
	b := t.outer[tableIdx]
	if b == nil || offset < 0 || offset >= len(b.slots) {
		return nil
	}
	return &b.slots[offset]
}

// deallocLocked bumps gen, clears handled_error/in_handler, detaches death
// membership and decrements slots_used — only if the slot was in use. It
// reports wasUsed so callers can tell a real registration's teardown apart
// from a no-op dealloc of a slot that was already free (e.g. getRef/
// allocLocked racing on an out-of-range-but-free handle).
// The do_close decision must already have been captured by the caller
// (under the slot lock) before this is invoked, so the close() call can
// happen outside any lock.
func (t *slotTable) deallocLocked(handle int32, s *Slot) (wasUsed bool) {
	tableIdx, _ := t.locate(handle)
	b := t.outer[tableIdx]

	wasUsed = !s.free()

	s.gen++
	s.fd = freeFD
	s.handledError = false
	s.inHandler = 0
	if s.deathElem != nil && s.deathListOwner != nil {
		s.deathListOwner.Remove(s.deathElem)
		s.deathElem = nil
		s.deathListOwner = nil
	}
	s.notifyDeath = false

	if wasUsed && b != nil {
		b.slotsUsed--
	}
	return wasUsed
}
