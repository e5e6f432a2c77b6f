package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// cyclicBarrier is a reusable rendezvous point for exactly n goroutines,
// modeled on the classic generation-counted cyclic barrier: a goroutine
// that arrives loops on a condition variable keyed by the barrier's
// generation, so a fast peer starting the *next* round cannot race past
// stragglers still leaving the current one. The optional action runs
// exactly once, on the last arriver, before anyone is released — this is
// how IntSumToAll computes its reduction without a second barrier.
type cyclicBarrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int64
	count      int64
	generation uint64
}

func newCyclicBarrier(n int64) *cyclicBarrier {
	b := &cyclicBarrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *cyclicBarrier) await(action func()) {
	b.mu.Lock()
	gen := b.generation
	b.count++
	if b.count == b.n {
		if action != nil {
			action()
		}
		b.count = 0
		b.generation++
		b.cond.Broadcast()
	} else {
		for gen == b.generation {
			b.cond.Wait()
		}
	}
	b.mu.Unlock()
}

// localCluster is the shared, process-private "symmetric heap" backing a
// set of peer goroutines. All four regions are arrays of atomic.Int64 so
// Get64/Put64/CAS64 translate directly onto sync/atomic, Go's only
// lock-free primitive family — there is no 128-bit CAS available, hence the
// two-CAS predecessor dance in internal/relax rather than one packed CAS
// (see DESIGN.md).
type localCluster struct {
	npes      int64
	sliceSize int64

	distance    [][]atomic.Int64 // [pe][local]
	predecessor [][]atomic.Int64
	active      [][]atomic.Int64
	anyActive   []atomic.Int64 // [pe]

	barrier *cyclicBarrier
	reduce  *cyclicBarrier
	contrib []int64 // scratch for IntSumToAll, one slot per peer
	lastSum int64
}

// LocalFactory implements Factory over NewLocalCluster, letting callers that
// only hold a transport.Factory (e.g. internal/orchestrator picking a
// backend from config) construct a Local cluster without importing this
// package's concrete types directly. SliceSize must be set to the
// partition's per-peer vertex count (known only after the graph is loaded
// and partitioned) before NewCluster is called.
type LocalFactory struct {
	SliceSize int64
}

func (f LocalFactory) NewCluster(_ context.Context, npes int64) ([]Transport, error) {
	return NewLocalCluster(npes, f.SliceSize)
}

// NewLocalCluster builds an in-process PGAS simulation with npes peers each
// owning sliceSize vertices, and returns one Transport handle per peer. This
// is the default backend: the CLI's single-binary mode and all property
// tests in internal/driver use it because it lets P vary without spawning
// processes (SPEC_FULL.md §6.1, §8).
func NewLocalCluster(npes, sliceSize int64) ([]Transport, error) {
	if npes <= 0 {
		return nil, fmt.Errorf("transport: peer count must be positive, got %d", npes)
	}
	if sliceSize <= 0 {
		return nil, fmt.Errorf("transport: slice size must be positive, got %d", sliceSize)
	}

	c := &localCluster{
		npes:      npes,
		sliceSize: sliceSize,
		barrier:   newCyclicBarrier(npes),
		reduce:    newCyclicBarrier(npes),
		contrib:   make([]int64, npes),
	}
	c.distance = make([][]atomic.Int64, npes)
	c.predecessor = make([][]atomic.Int64, npes)
	c.active = make([][]atomic.Int64, npes)
	c.anyActive = make([]atomic.Int64, npes)
	for pe := int64(0); pe < npes; pe++ {
		c.distance[pe] = make([]atomic.Int64, sliceSize)
		c.predecessor[pe] = make([]atomic.Int64, sliceSize)
		c.active[pe] = make([]atomic.Int64, sliceSize)
	}

	handles := make([]Transport, npes)
	for pe := int64(0); pe < npes; pe++ {
		handles[pe] = &localPeer{cluster: c, pe: pe}
	}
	return handles, nil
}

func (c *localCluster) region(r Region, pe int64) []atomic.Int64 {
	switch r {
	case RegionDistance:
		return c.distance[pe]
	case RegionPredecessor:
		return c.predecessor[pe]
	case RegionActive:
		return c.active[pe]
	case RegionAnyActive:
		return c.anyActive[pe : pe+1]
	default:
		panic(fmt.Sprintf("transport: unknown region %d", r))
	}
}

// localPeer is one peer's view into a shared localCluster.
type localPeer struct {
	cluster *localCluster
	pe      int64
}

func (p *localPeer) PE() int64   { return p.pe }
func (p *localPeer) NPEs() int64 { return p.cluster.npes }

func (p *localPeer) Get64(_ context.Context, region Region, pe, local int64) (int64, error) {
	return p.cluster.region(region, pe)[local].Load(), nil
}

func (p *localPeer) Put64(_ context.Context, region Region, pe, local int64, value int64) error {
	p.cluster.region(region, pe)[local].Store(value)
	return nil
}

func (p *localPeer) CAS64(_ context.Context, region Region, pe, local int64, expected, desired int64) (int64, error) {
	slot := &p.cluster.region(region, pe)[local]
	for {
		cur := slot.Load()
		if cur != expected {
			return cur, nil
		}
		if slot.CompareAndSwap(expected, desired) {
			return expected, nil
		}
		// Lost the race to a concurrent writer after load; since Go's
		// sync/atomic CompareAndSwap has no "return observed" form, retry
		// the load/compare loop until we can report the true pre-CAS value
		// — this loop is bounded by contention, not by the protocol's own
		// 10/100 retry caps which live one layer up in internal/relax.
	}
}

func (p *localPeer) Quiet(_ context.Context) error {
	// All Put64/CAS64 above are already linearized through sync/atomic, so
	// there is nothing left to flush; Quiet exists purely to satisfy the
	// Transport interface's ordering contract for backends (like Redis)
	// where writes are genuinely asynchronous.
	return nil
}

func (p *localPeer) BarrierAll(_ context.Context) error {
	p.cluster.barrier.await(nil)
	return nil
}

func (p *localPeer) IntSumToAll(_ context.Context, value int64) (int64, error) {
	c := p.cluster
	c.contrib[p.pe] = value
	c.reduce.await(func() {
		var sum int64
		for _, v := range c.contrib {
			sum += v
		}
		c.lastSum = sum
	})
	return c.lastSum, nil
}

func (p *localPeer) Close() error { return nil }
