package driver

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"shmemsssp/internal/graphstore"
	"shmemsssp/internal/partition"
	"shmemsssp/internal/symstate"
	"shmemsssp/internal/transport"
)

// buildCluster wires up npes peers each owning sliceSize vertices, with
// builders left open for the caller to populate before Compact.
func buildCluster(t *testing.T, npes, sliceSize int64) (partition.Map, []transport.Transport, []*graphstore.Builder, []*symstate.State) {
	t.Helper()
	part, err := partition.New(npes*sliceSize, npes)
	if err != nil {
		t.Fatalf("partition.New: %v", err)
	}
	peers, err := transport.NewLocalCluster(npes, sliceSize)
	if err != nil {
		t.Fatalf("NewLocalCluster: %v", err)
	}
	builders := make([]*graphstore.Builder, npes)
	states := make([]*symstate.State, npes)
	for i := range peers {
		builders[i] = graphstore.NewBuilder(sliceSize)
		states[i] = symstate.New(peers[i], sliceSize)
	}
	return part, peers, builders, states
}

type countingObserver struct {
	rounds int64
}

func (c *countingObserver) ObserveRound(_ int64, _ time.Duration, _ int64) { c.rounds++ }

// TestRunSinglePeerShortestPaths builds a 4-vertex chain 0->1->2->3 with a
// shortcut 0->2 that should not win, all owned by one peer, and checks the
// driver converges to the correct distances.
func TestRunSinglePeerShortestPaths(t *testing.T) {
	ctx := context.Background()
	part, peers, builders, states := buildCluster(t, 1, 4)

	b := builders[0]
	b.AddEdge(0, 1, 1, true)
	b.AddEdge(1, 2, 1, true)
	b.AddEdge(2, 3, 1, true)
	b.AddEdge(0, 2, 10, true)
	store := b.Compact()

	if err := states[0].Init(ctx, func(local int64) bool { return local == 0 }); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tracer := noop.NewTracerProvider().Tracer("test")
	obs := &countingObserver{}
	result, err := Run(ctx, tracer, obs, peers[0], part, store, states[0])
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Converged {
		t.Fatal("expected convergence")
	}
	if obs.rounds != result.RoundsRun {
		t.Fatalf("observer saw %d rounds, driver reported %d", obs.rounds, result.RoundsRun)
	}

	want := map[int64]int64{0: 0, 1: 1, 2: 2, 3: 3}
	for v, w := range want {
		dist, err := states[0].Distance(ctx, 0, v)
		if err != nil {
			t.Fatalf("Distance(%d): %v", v, err)
		}
		if dist != w {
			t.Errorf("Distance(%d) = %d, want %d", v, dist, w)
		}
	}
}

// TestRunTwoPeersShortestPaths splits a 4-vertex chain across two peers, so
// the middle edges must cross the remote/contended CAS path.
func TestRunTwoPeersShortestPaths(t *testing.T) {
	ctx := context.Background()
	part, peers, builders, states := buildCluster(t, 2, 2)

	// Global layout: peer 0 owns {0,1}, peer 1 owns {2,3}.
	// Edges: 0->1 (w1), 1->2 (w1, crosses peers), 2->3 (w1).
	builders[0].AddEdge(0, 1, 1, true)
	builders[0].AddEdge(1, 2, 1, false)
	builders[1].AddEdge(0, 3, 1, true) // local index 0 on peer 1 is global vertex 2

	store0 := builders[0].Compact()
	store1 := builders[1].Compact()

	if err := states[0].Init(ctx, func(local int64) bool { return local == 0 }); err != nil {
		t.Fatalf("Init peer0: %v", err)
	}
	if err := states[1].Init(ctx, func(local int64) bool { return false }); err != nil {
		t.Fatalf("Init peer1: %v", err)
	}

	tracer := noop.NewTracerProvider().Tracer("test")
	errCh := make(chan error, 2)
	results := make([]Result, 2)

	run := func(i int, store *graphstore.Store) {
		r, err := Run(ctx, tracer, NopObserver{}, peers[i], part, store, states[i])
		results[i] = r
		errCh <- err
	}
	go run(0, store0)
	go run(1, store1)

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	dist1, _ := states[0].Distance(ctx, 0, 1)
	if dist1 != 1 {
		t.Errorf("Distance(1) = %d, want 1", dist1)
	}
	dist2, _ := states[1].Distance(ctx, 1, 0)
	if dist2 != 2 {
		t.Errorf("Distance(2) = %d, want 2", dist2)
	}
	dist3, _ := states[1].Distance(ctx, 1, 1)
	if dist3 != 3 {
		t.Errorf("Distance(3) = %d, want 3", dist3)
	}
	pred2, _ := states[1].Predecessor(ctx, 1, 0)
	if pred2 != 1 {
		t.Errorf("Predecessor(2) = %d, want 1 (global id of the winning source)", pred2)
	}
}
