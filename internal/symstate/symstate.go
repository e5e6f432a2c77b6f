// Package symstate is a typed view over the three symmetric arrays and the
// any-active scalar that the distributed Bellman-Ford protocol shares across
// peers via internal/transport — the Go analogue of the C original's
// symmetric-heap globals (distances, active_vertices, pi), declared once and
// addressed by every peer through get64/put64/cas64.
package symstate

import (
	"context"
	"fmt"
	"math"

	"shmemsssp/internal/transport"
)

// Infinity is the initial tentative distance of every vertex except the
// source, matching the original's use of INT64_MAX as an unreachable
// sentinel. It is deliberately not math.MaxInt64 itself so that
// dist + weight cannot overflow on a reachable-but-unrelaxed edge.
const Infinity int64 = math.MaxInt64 / 2

// NoPredecessor marks a vertex with no known predecessor (the source, or a
// vertex never reached), mirroring the original's pi[] sentinel of -1.
const NoPredecessor int64 = -1

// State is one peer's handle onto the cluster-wide symmetric state. It owns
// no memory itself — every read or write is forwarded through a
// transport.Transport — but it knows the partition's slice size so callers
// never have to pass it separately.
type State struct {
	t         transport.Transport
	sliceSize int64
}

// New wraps t for a partition whose peers each own sliceSize vertices.
func New(t transport.Transport, sliceSize int64) *State {
	return &State{t: t, sliceSize: sliceSize}
}

// SliceSize returns the number of vertices each peer owns.
func (s *State) SliceSize() int64 { return s.sliceSize }

// Init resets this peer's own owned slice to the algorithm's starting state:
// every distance is Infinity, every predecessor is NoPredecessor, and every
// active flag is unconditionally set to 1 (matching the original's
// unconditional `active_vertices[i] = 1` reset loop, not just the source's
// index). If isSource reports true for a local index, that vertex's distance
// is additionally set to 0, seeding the first round's frontier. Every peer's
// own any_active vote is set to 1 regardless of whether it owns the source,
// mirroring the original's unconditional `*active_vertex = 1;` (SPEC_FULL.md
// §3, Lifecycle).
func (s *State) Init(ctx context.Context, isSource func(local int64) bool) error {
	pe := s.t.PE()
	for local := int64(0); local < s.sliceSize; local++ {
		dist := Infinity
		if isSource != nil && isSource(local) {
			dist = 0
		}
		if err := s.t.Put64(ctx, transport.RegionDistance, pe, local, dist); err != nil {
			return fmt.Errorf("symstate: init distance[%d]: %w", local, err)
		}
		if err := s.t.Put64(ctx, transport.RegionPredecessor, pe, local, NoPredecessor); err != nil {
			return fmt.Errorf("symstate: init predecessor[%d]: %w", local, err)
		}
		if err := s.t.Put64(ctx, transport.RegionActive, pe, local, 1); err != nil {
			return fmt.Errorf("symstate: init active[%d]: %w", local, err)
		}
	}
	if err := s.t.Put64(ctx, transport.RegionAnyActive, pe, 0, 1); err != nil {
		return fmt.Errorf("symstate: init any-active: %w", err)
	}
	return s.t.Quiet(ctx)
}

// Distance reads the tentative distance of the vertex at (pe, local).
func (s *State) Distance(ctx context.Context, pe, local int64) (int64, error) {
	return s.t.Get64(ctx, transport.RegionDistance, pe, local)
}

// PutDistance performs a plain (non-atomic) write of the distance at (pe,
// local), used only by the relaxation primitive's local fast path where no
// remote peer can be contending for the same slot.
func (s *State) PutDistance(ctx context.Context, pe, local, value int64) error {
	return s.t.Put64(ctx, transport.RegionDistance, pe, local, value)
}

// PutPredecessor performs a plain (non-atomic) write of the predecessor at
// (pe, local); see PutDistance.
func (s *State) PutPredecessor(ctx context.Context, pe, local, value int64) error {
	return s.t.Put64(ctx, transport.RegionPredecessor, pe, local, value)
}

// CASDistance attempts to lower the distance of (pe, local) from expected to
// desired, returning the value actually observed before the attempt.
func (s *State) CASDistance(ctx context.Context, pe, local, expected, desired int64) (int64, error) {
	return s.t.CAS64(ctx, transport.RegionDistance, pe, local, expected, desired)
}

// Predecessor reads the current predecessor of (pe, local).
func (s *State) Predecessor(ctx context.Context, pe, local int64) (int64, error) {
	return s.t.Get64(ctx, transport.RegionPredecessor, pe, local)
}

// CASPredecessor attempts to set the predecessor of (pe, local) from
// expected to desired, returning the value actually observed.
func (s *State) CASPredecessor(ctx context.Context, pe, local, expected, desired int64) (int64, error) {
	return s.t.CAS64(ctx, transport.RegionPredecessor, pe, local, expected, desired)
}

// SetActive marks the vertex at (pe, local) as active (eligible to relax its
// out-edges next round).
func (s *State) SetActive(ctx context.Context, pe, local int64) error {
	return s.t.Put64(ctx, transport.RegionActive, pe, local, 1)
}

// IsActive reports whether the vertex at (pe, local) is currently active.
func (s *State) IsActive(ctx context.Context, pe, local int64) (bool, error) {
	v, err := s.t.Get64(ctx, transport.RegionActive, pe, local)
	return v != 0, err
}

// ClearActive deactivates the vertex at (pe, local), called by the driver
// after it has been scanned for the round.
func (s *State) ClearActive(ctx context.Context, pe, local int64) error {
	return s.t.Put64(ctx, transport.RegionActive, pe, local, 0)
}

// SetAnyActive records whether peer pe produced (or will need to recheck)
// work this round — a local store when pe is this peer, otherwise a
// single-element remote put, mirroring the original's
// `shmem_long_put(active_vertex, &one_val, 1, pe)` targeting the
// destination's PE rather than the caller's own. This is the per-peer vote
// the driver folds into the collective convergence check via IntSumToAll.
func (s *State) SetAnyActive(ctx context.Context, pe int64, active bool) error {
	v := int64(0)
	if active {
		v = 1
	}
	return s.t.Put64(ctx, transport.RegionAnyActive, pe, 0, v)
}

// AnyActive reads this peer's own any-active vote.
func (s *State) AnyActive(ctx context.Context) (bool, error) {
	v, err := s.t.Get64(ctx, transport.RegionAnyActive, s.t.PE(), 0)
	return v != 0, err
}

// Reduce performs a collective integer sum reduction of value across all
// peers. The iteration driver uses this directly for its own per-round
// convergence vote, independent of the any_active bookkeeping that
// SumActiveVotes layers on top of the same underlying primitive.
func (s *State) Reduce(ctx context.Context, value int64) (int64, error) {
	return s.t.IntSumToAll(ctx, value)
}

// Quiet flushes this peer's outstanding writes, per SPEC_FULL.md's
// end-of-round ordering requirement before the collective barrier.
func (s *State) Quiet(ctx context.Context) error { return s.t.Quiet(ctx) }

// BarrierAll blocks until every peer has reached the same point in the
// round.
func (s *State) BarrierAll(ctx context.Context) error { return s.t.BarrierAll(ctx) }

// SumActiveVotes reduces this peer's any-active vote (0 or 1) across all
// peers, returning the number of peers whose any-active flag is set. The
// driver does not call it: it reduces its own converged votes through Reduce
// and stops once that sum reaches the peer count.
func (s *State) SumActiveVotes(ctx context.Context) (int64, error) {
	mine, err := s.AnyActive(ctx)
	if err != nil {
		return 0, err
	}
	vote := int64(0)
	if mine {
		vote = 1
	}
	return s.t.IntSumToAll(ctx, vote)
}
