//go:build linux

package reactor

// MetricsSink receives pool lifecycle counters. control.MetricsRegistry
// satisfies this interface; nopMetrics is used when Options.Metrics is nil
// so call sites never need a nil check.
type MetricsSink interface {
	SetActiveThreads(n int)
	SetRegisteredSlots(n int)
	IncDispatched()
	IncStale()
	IncPollerDeath()
}

type nopMetrics struct{}

func (nopMetrics) SetActiveThreads(int)   {}
func (nopMetrics) SetRegisteredSlots(int) {}
func (nopMetrics) IncDispatched()         {}
func (nopMetrics) IncStale()              {}
func (nopMetrics) IncPollerDeath()        {}
