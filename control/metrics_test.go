package control

import "testing"

func TestMetricsRegistrySnapshot(t *testing.T) {
	mr := NewMetricsRegistry()

	mr.SetActiveThreads(3)
	mr.SetRegisteredSlots(5)
	mr.IncDispatched()
	mr.IncDispatched()
	mr.IncStale()
	mr.IncPollerDeath()

	snap := mr.GetSnapshot()

	if v, _ := snap["active_threads"].(float64); v != 3 {
		t.Fatalf("active_threads = %v, want 3", snap["active_threads"])
	}
	if v, _ := snap["registered_slots"].(float64); v != 5 {
		t.Fatalf("registered_slots = %v, want 5", snap["registered_slots"])
	}
	if v, _ := snap["dispatched_events"].(float64); v != 2 {
		t.Fatalf("dispatched_events = %v, want 2", snap["dispatched_events"])
	}
	if v, _ := snap["stale_dispatches"].(float64); v != 1 {
		t.Fatalf("stale_dispatches = %v, want 1", snap["stale_dispatches"])
	}
	if v, _ := snap["poller_deaths"].(float64); v != 1 {
		t.Fatalf("poller_deaths = %v, want 1", snap["poller_deaths"])
	}
}

func TestMetricsRegistryCollectorsAreRegistered(t *testing.T) {
	mr := NewMetricsRegistry()

	families, err := mr.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}
