// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring, backed by
// prometheus/client_golang so the reactor's worker/slot/dispatch counters
// are scrapeable rather than only log-visible.

package control

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricsRegistry mirrors the reactor's own event-thread and slot-table
// bookkeeping as prometheus collectors, plus a last-updated timestamp for
// debug probe dumps.
type MetricsRegistry struct {
	Registry *prometheus.Registry

	ActiveThreads    prometheus.Gauge
	RegisteredSlots  prometheus.Gauge
	DispatchedEvents prometheus.Counter
	StaleDispatches  prometheus.Counter
	PollerDeaths     prometheus.Counter

	mu      sync.RWMutex
	updated time.Time
}

// NewMetricsRegistry creates and registers the reactor's collector set
// against a fresh prometheus registry.
func NewMetricsRegistry() *MetricsRegistry {
	reg := prometheus.NewRegistry()

	mr := &MetricsRegistry{
		Registry: reg,
		ActiveThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evreactor",
			Name:      "active_threads",
			Help:      "Current number of live dispatch workers.",
		}),
		RegisteredSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evreactor",
			Name:      "registered_slots",
			Help:      "Current number of occupied slot-table entries.",
		}),
		DispatchedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evreactor",
			Name:      "dispatched_events_total",
			Help:      "Total readiness events routed to a handler.",
		}),
		StaleDispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evreactor",
			Name:      "stale_dispatches_total",
			Help:      "Total kernel events discarded due to a freed slot or generation mismatch.",
		}),
		PollerDeaths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evreactor",
			Name:      "poller_deaths_total",
			Help:      "Total poller-death notifications delivered to death-registered slots.",
		}),
	}

	reg.MustRegister(mr.ActiveThreads, mr.RegisteredSlots, mr.DispatchedEvents, mr.StaleDispatches, mr.PollerDeaths)
	return mr
}

// touch stamps the last-update time; called by every mutating method below.
func (mr *MetricsRegistry) touch() {
	mr.mu.Lock()
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// SetActiveThreads records the current worker count.
func (mr *MetricsRegistry) SetActiveThreads(n int) {
	mr.ActiveThreads.Set(float64(n))
	mr.touch()
}

// SetRegisteredSlots records the current occupied-slot count.
func (mr *MetricsRegistry) SetRegisteredSlots(n int) {
	mr.RegisteredSlots.Set(float64(n))
	mr.touch()
}

// IncDispatched counts one handler invocation.
func (mr *MetricsRegistry) IncDispatched() {
	mr.DispatchedEvents.Inc()
	mr.touch()
}

// IncStale counts one discarded (free or generation-mismatched) event.
func (mr *MetricsRegistry) IncStale() {
	mr.StaleDispatches.Inc()
	mr.touch()
}

// IncPollerDeath counts one poller-death notification delivered.
func (mr *MetricsRegistry) IncPollerDeath() {
	mr.PollerDeaths.Inc()
	mr.touch()
}

// GetSnapshot returns the latest gauge/counter values plus the last-update
// time, for DebugProbes consumers that want a plain map rather than a
// prometheus scrape.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	updated := mr.updated
	mr.mu.RUnlock()

	var active, slots, dispatched, stale, deaths dto.Metric
	_ = mr.ActiveThreads.Write(&active)
	_ = mr.RegisteredSlots.Write(&slots)
	_ = mr.DispatchedEvents.Write(&dispatched)
	_ = mr.StaleDispatches.Write(&stale)
	_ = mr.PollerDeaths.Write(&deaths)

	return map[string]any{
		"active_threads":    active.GetGauge().GetValue(),
		"registered_slots":  slots.GetGauge().GetValue(),
		"dispatched_events": dispatched.GetCounter().GetValue(),
		"stale_dispatches":  stale.GetCounter().GetValue(),
		"poller_deaths":     deaths.GetCounter().GetValue(),
		"updated_at":        updated,
	}
}
