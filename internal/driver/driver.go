// Package driver runs the synchronous Bellman-Ford outer loop: V-1 rounds,
// each scanning this peer's active vertices and relaxing their out-edges,
// followed by a collective reduction that detects cluster-wide convergence
// and ends the run early (SPEC_FULL.md §4.4). It is the Go counterpart of
// the original implementation's bellman_ford_synchronous().
package driver

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shmemsssp/internal/graphstore"
	"shmemsssp/internal/partition"
	"shmemsssp/internal/relax"
	"shmemsssp/internal/symstate"
	"shmemsssp/internal/transport"
	"shmemsssp/pkg/telemetry"
)

// RoundObserver receives a callback after every round, letting the caller
// (internal/orchestrator) feed Prometheus histograms/counters without the
// driver importing pkg/metrics directly.
type RoundObserver interface {
	ObserveRound(round int64, duration time.Duration, traversedEdges int64)
}

// NopObserver discards round observations.
type NopObserver struct{}

func (NopObserver) ObserveRound(int64, time.Duration, int64) {}

// Result summarizes one full driver invocation.
type Result struct {
	// RoundsRun is the number of rounds actually executed before either
	// convergence or hitting the V-1 upper bound.
	RoundsRun int64
	// TraversedEdges is this peer's own count of edges scanned across every
	// round, regardless of whether the scan improved a distance.
	TraversedEdges int64
	// Converged reports whether the cluster reached global convergence
	// before exhausting the round budget.
	Converged bool
}

// Run drives one full SSSP computation to convergence (or the V-1 round
// budget) for the peer owning t, store, and state. The caller is
// responsible for having already reset state to the per-iteration starting
// condition (internal/symstate.State.Init) and for barriering all peers
// beforehand.
func Run(ctx context.Context, tracer trace.Tracer, obs RoundObserver, t transport.Transport, part partition.Map, store *graphstore.Store, state *symstate.State) (Result, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	myPE := t.PE()
	npes := t.NPEs()

	rounds := part.Vertices() - 1
	if rounds < 1 {
		rounds = 1
	}

	var result Result
	for round := int64(0); round < rounds; round++ {
		roundStart := time.Now()
		roundCtx, span := tracer.Start(ctx, "sssp.round", trace.WithAttributes(
			telemetry.RoundAttributes(round, myPE)...,
		))

		roundTraversed, didWork, err := runRound(roundCtx, state, part, store, myPE)
		if err != nil {
			span.End()
			return result, fmt.Errorf("driver: round %d: %w", round, err)
		}
		result.TraversedEdges += roundTraversed
		result.RoundsRun = round + 1

		convergedVote := int64(1)
		if didWork {
			convergedVote = 0
		}
		sum, err := state.Reduce(roundCtx, convergedVote)
		if err != nil {
			span.End()
			return result, fmt.Errorf("driver: round %d reduce: %w", round, err)
		}

		span.SetAttributes(attribute.Int64(telemetry.AttrEdgesDone, roundTraversed))
		span.End()
		obs.ObserveRound(round, time.Since(roundStart), roundTraversed)

		if sum >= npes {
			result.Converged = true
			break
		}
	}
	return result, nil
}

// runRound performs one peer's share of a single outer-loop round: if
// any_active is set, clear it, scan every owned vertex whose active flag is
// set, relax its out-edges, and report whether any scanning happened
// (SPEC_FULL.md §4.4 step 1).
func runRound(ctx context.Context, state *symstate.State, part partition.Map, store *graphstore.Store, myPE int64) (traversed int64, didWork bool, err error) {
	anyActive, err := state.AnyActive(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("read any-active: %w", err)
	}
	if !anyActive {
		return 0, false, nil
	}

	if err := state.SetAnyActive(ctx, myPE, false); err != nil {
		return 0, false, fmt.Errorf("clear any-active: %w", err)
	}
	didWork = true

	for u := int64(0); u < store.SliceSize(); u++ {
		active, err := state.IsActive(ctx, myPE, u)
		if err != nil {
			return traversed, didWork, fmt.Errorf("read active[%d]: %w", u, err)
		}
		if !active {
			continue
		}
		if err := state.ClearActive(ctx, myPE, u); err != nil {
			return traversed, didWork, fmt.Errorf("clear active[%d]: %w", u, err)
		}

		distU, err := state.Distance(ctx, myPE, u)
		if err != nil {
			return traversed, didWork, fmt.Errorf("read distance[%d]: %w", u, err)
		}
		uGlobal := part.Global(myPE, u)
		internalOnly := store.InternalEdgesOnly(u)

		for _, e := range store.OutEdges(u) {
			_, err := relax.Relax(ctx, state, part, myPE, relax.Edge{
				SourceGlobal:            uGlobal,
				SourceDistance:          distU,
				DestGlobal:              e.Dest,
				Weight:                  e.Weight,
				SourceInternalEdgesOnly: internalOnly,
			})
			if err != nil {
				return traversed, didWork, fmt.Errorf("relax %d->%d: %w", uGlobal, e.Dest, err)
			}
			traversed++
		}
	}
	return traversed, didWork, nil
}
