//go:build linux

package reactor

import (
	"container/list"
	"sync"

	"go.uber.org/zap"
)

// Pool owns the kernel readiness handle, the slot table, the worker
// roster, and the poller-death registry.
//
// Grounded on struct event_pool in event-epoll.c.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	kernel kernelHandle
	table  *slotTable

	log     *zap.Logger
	metrics MetricsSink

	maxThreads int

	// roster[i] == true means worker at 1-based index i+1 is alive.
	roster            []bool
	activeThreadCount int
	eventThreadCount  int
	pollerGen         uint32
	registeredCount   int

	destroy bool

	deathList         *list.List
	pollerDeathSliced bool

	worker1Done chan struct{}
}

// Options configures pool construction, overriding spec.md §6 defaults.
type Options struct {
	// Hint sizes the kernel readiness handle (an epoll_create size hint;
	// modern epoll_create1 ignores the value but it is still threaded
	// through for parity with the original signature).
	Hint int

	EventThreadCount int
	MaxThreads       int
	TableWidth       int
	SlotWidth        int

	Logger  *zap.Logger
	Metrics MetricsSink
}

// New constructs a Pool: creates the kernel readiness handle, initializes
// the mutex/cond, and allocates the first outer bucket up front (matching
// __event_newtable being called once in the original to guarantee bucket 0
// exists before any worker starts). Later buckets are allocated lazily by
// registrations.
//
// Grounded on event_pool_new_epoll, event-epoll.c lines 263-300.
func New(opts Options) (*Pool, error) {
	maxThreads := opts.MaxThreads
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}
	tableWidth := opts.TableWidth
	if tableWidth <= 0 {
		tableWidth = DefaultTableWidth
	}
	slotWidth := opts.SlotWidth
	if slotWidth <= 0 {
		slotWidth = DefaultSlotWidth
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	kernel, err := newKernelHandle(opts.Hint)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		kernel:           kernel,
		table:            newSlotTable(tableWidth, slotWidth),
		log:              log,
		metrics:          metrics,
		maxThreads:       maxThreads,
		roster:           make([]bool, maxThreads),
		eventThreadCount: opts.EventThreadCount,
		deathList:        list.New(),
	}
	p.cond = sync.NewCond(&p.mu)

	// Force bucket 0 to exist up front, mirroring __event_newtable(0) in
	// event_pool_new_epoll.
	p.mu.Lock()
	if _, _, ok := p.table.allocLocked(freeFD, false, p.deathList); ok {
		// immediately free it back; this call's only purpose is to force
		// bucket 0 into existence the way the original pre-allocates it.
		s := p.table.getLocked(0)
		s.fd = freeFD
		s.ref.Store(0)
		b := p.table.outer[0]
		b.slotsUsed = 0
	}
	p.mu.Unlock()

	return p, nil
}

// ActiveThreads returns the current value of activethreadcount.
func (p *Pool) ActiveThreads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeThreadCount
}

// PollerGen returns the current poller_gen counter.
func (p *Pool) PollerGen() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollerGen
}

// Destroy sets destroy mode: subsequent Register calls fail with
// ErrPoolClosed and ReconfigureThreads(0) becomes permitted. Teardown
// proper (closing the kernel handle, freeing buckets) happens in
// TeardownPool, which must only be called once no worker remains.
//
// Grounded on event_pool->destroy = 1 usage throughout event-epoll.c.
func (p *Pool) Destroy() {
	p.mu.Lock()
	p.destroy = true
	p.mu.Unlock()
}

// TeardownPool closes the kernel handle, destroys all allocated buckets,
// and releases pool resources. Must not be called while any worker still
// exists — that is the caller's responsibility.
//
// Grounded on event_pool_destroy_epoll, event-epoll.c lines 912-940.
func (p *Pool) TeardownPool() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.kernel.Close()
	p.table.outer = nil
	return err
}
