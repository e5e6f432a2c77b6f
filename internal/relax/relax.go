// Package relax implements the single-edge relaxation primitive the
// distributed Bellman-Ford protocol repeats for every out-edge of every
// active vertex: attempt to lower a (possibly remote) vertex's distance and,
// if successful, claim it for the relaxing vertex and mark it active for the
// next round. It is a direct translation of the original implementation's
// relax() (SPEC_FULL.md §4.3), with the local-fast-path condition corrected
// to check the relaxing vertex's own internal_edges_only flag rather than
// the destination's.
package relax

import (
	"context"
	"fmt"

	"shmemsssp/internal/partition"
	"shmemsssp/internal/symstate"
)

// Bounded retry counts on the distance and predecessor CAS loops. These caps
// exist only to bound worst-case latency under heavy contention — on
// exhaustion the update is dropped and the source vertex is not re-activated;
// the writer that won the CAS has already marked the destination active, so
// its out-edges are rescanned next round. Exhaustion is not an error.
const (
	maxDistanceAttempts    = 10
	maxPredecessorAttempts = 100
)

// Edge carries the relax() arguments that don't change across the bounded
// CAS loop.
type Edge struct {
	// SourceGlobal is the global id of the relaxing vertex (base_vertex + i
	// in the original).
	SourceGlobal int64
	// SourceDistance is the relaxing vertex's own current distance, a plain
	// local read the caller already has in hand.
	SourceDistance int64
	// DestGlobal is the edge's destination vertex, possibly remote.
	DestGlobal int64
	Weight     int64
	// SourceInternalEdgesOnly is true iff every out-edge of the relaxing
	// vertex points to a locally-owned destination, enabling the lock-free
	// fast path in step 3.
	SourceInternalEdgesOnly bool
}

// Relax attempts to improve DestGlobal's distance via the edge described by
// e. It returns true iff the destination's (distance, predecessor) pair was
// actually updated.
func Relax(ctx context.Context, state *symstate.State, part partition.Map, myPE int64, e Edge) (bool, error) {
	pe, loc := part.Locate(e.DestGlobal)

	dOld, err := state.Distance(ctx, pe, loc)
	if err != nil {
		return false, fmt.Errorf("relax: read distance: %w", err)
	}
	piOld, err := state.Predecessor(ctx, pe, loc)
	if err != nil {
		return false, fmt.Errorf("relax: read predecessor: %w", err)
	}

	dNew := e.SourceDistance + e.Weight
	if dNew >= dOld {
		return false, nil
	}

	if pe == myPE && e.SourceInternalEdgesOnly {
		if err := state.PutDistance(ctx, pe, loc, dNew); err != nil {
			return false, fmt.Errorf("relax: local put distance: %w", err)
		}
		if err := state.PutPredecessor(ctx, pe, loc, e.SourceGlobal); err != nil {
			return false, fmt.Errorf("relax: local put predecessor: %w", err)
		}
		if err := state.SetActive(ctx, pe, loc); err != nil {
			return false, fmt.Errorf("relax: local set active: %w", err)
		}
		if err := state.SetAnyActive(ctx, pe, true); err != nil {
			return false, fmt.Errorf("relax: local set any-active: %w", err)
		}
		return true, nil
	}

	expected := dOld
	for attempt := 0; attempt < maxDistanceAttempts; attempt++ {
		observed, err := state.CASDistance(ctx, pe, loc, expected, dNew)
		if err != nil {
			return false, fmt.Errorf("relax: cas distance: %w", err)
		}
		if observed != expected {
			// Someone else already installed a value at least as good as
			// ours; stop contending for this slot this round.
			if observed <= dNew {
				return false, nil
			}
			expected = observed
			continue
		}

		piExpected := piOld
		for pAttempt := 0; pAttempt < maxPredecessorAttempts; pAttempt++ {
			observedPi, err := state.CASPredecessor(ctx, pe, loc, piExpected, e.SourceGlobal)
			if err != nil {
				return false, fmt.Errorf("relax: cas predecessor: %w", err)
			}
			if observedPi == piExpected {
				break
			}
			piExpected = observedPi
		}

		if err := state.SetActive(ctx, pe, loc); err != nil {
			return false, fmt.Errorf("relax: set active: %w", err)
		}
		if err := state.SetAnyActive(ctx, pe, true); err != nil {
			return false, fmt.Errorf("relax: set any-active: %w", err)
		}
		if err := state.Quiet(ctx); err != nil {
			return false, fmt.Errorf("relax: quiet: %w", err)
		}
		return true, nil
	}

	return false, nil
}
