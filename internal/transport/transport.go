// Package transport abstracts the six one-sided PGAS primitives the SSSP
// engine is built on (SPEC_FULL.md §6), so the relaxation primitive and
// iteration driver never talk to a concrete backend directly. Two backends
// are provided: Local (in-process, goroutine-per-peer) and Redis (real
// multi-process deployment) — see local.go and redis.go.
package transport

import "context"

// Region names the three symmetric arrays plus the any-active scalar a
// Transport addresses. Each backend is free to lay these out however suits
// it (contiguous Go slices for Local, namespaced keys for Redis).
type Region int

const (
	// RegionDistance addresses the tentative-distance array.
	RegionDistance Region = iota
	// RegionPredecessor addresses the predecessor array.
	RegionPredecessor
	// RegionActive addresses the per-vertex active-flag array.
	RegionActive
	// RegionAnyActive addresses the single any-active scalar (local index
	// is always 0 for this region).
	RegionAnyActive
)

// Transport is the PGAS-like capability the rest of the engine is built on.
// All operations address a single int64 element identified by (region, pe,
// local index); Get64/Put64/CAS64 are the one-sided read/write/atomic-CAS
// primitives, Quiet is the remote-completion fence, and BarrierAll/
// IntSumToAll are the two collective operations the driver needs.
type Transport interface {
	// PE returns this process's own peer index.
	PE() int64
	// NPEs returns the total peer count.
	NPEs() int64

	// Get64 performs a blocking single-element read of region[local] on pe.
	Get64(ctx context.Context, region Region, pe, local int64) (int64, error)

	// Put64 performs a non-blocking single-element write of value into
	// region[local] on pe. Completion is only guaranteed after Quiet.
	Put64(ctx context.Context, region Region, pe, local int64, value int64) error

	// CAS64 atomically compares region[local] on pe against expected and,
	// if equal, stores desired. It always returns the pre-CAS value.
	CAS64(ctx context.Context, region Region, pe, local int64, expected, desired int64) (observed int64, err error)

	// Quiet waits for all of this peer's outstanding Put64/CAS64 calls to
	// become globally visible.
	Quiet(ctx context.Context) error

	// BarrierAll blocks until every peer has called BarrierAll for the same
	// epoch, establishing a global happens-before edge.
	BarrierAll(ctx context.Context) error

	// IntSumToAll performs an elementwise sum reduction of value across all
	// peers and returns the total to every caller.
	IntSumToAll(ctx context.Context, value int64) (int64, error)

	// Close releases any resources held by the transport (network
	// connections, goroutines). It is safe to call once per peer at
	// shutdown.
	Close() error
}

// Factory constructs peer-count-many Transport handles sharing one logical
// cluster. LocalFactory is the only implementation; its handles share
// process memory. The Redis backend has no Factory: each peer is built
// separately with NewRedisPeer.
type Factory interface {
	// NewCluster returns npes Transport handles, one per peer, for use in a
	// single process that is simulating the whole cluster (only the Local
	// backend supports this; Redis callers use NewRedisPeer instead).
	NewCluster(ctx context.Context, npes int64) ([]Transport, error)
}
