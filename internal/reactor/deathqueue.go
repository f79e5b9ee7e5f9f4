//go:build linux

package reactor

import (
	"container/list"

	"github.com/eapache/queue"
)

// sliceDeathListLocked detaches every slot currently registered for
// poller-death notification from the pool's master list, takes a reference
// on each, and returns them as a FIFO ready to be drained by a retiring
// worker. Caller must hold the pool mutex.
//
// Grounded on event_dispatch_epoll_worker's list_splice_init +
// list_for_each_entry(event_slot_ref) sequence in event-epoll.c.
func sliceDeathListLocked(deathList *list.List) *queue.Queue {
	q := queue.New()
	for e := deathList.Front(); e != nil; {
		next := e.Next()
		s := e.Value.(*Slot)

		s.ref.Add(1)
		deathList.Remove(e)
		s.deathElem = nil
		s.deathListOwner = nil

		q.Add(s)
		e = next
	}
	return q
}

// requeueDeathLocked re-adds a slot to the master death list after its
// notification handler has run, but only if it is still registered (its fd
// was not unregistered during the notification window). Caller must hold
// the pool mutex.
//
// Grounded on event_dispatch_epoll_worker's final list_splice back onto
// event_pool->poller_death.
func requeueDeathLocked(deathList *list.List, s *Slot) {
	s.mu.Lock()
	stillOpen := !s.free()
	s.mu.Unlock()
	if !stillOpen {
		return
	}
	s.deathElem = deathList.PushBack(s)
	s.deathListOwner = deathList
}
