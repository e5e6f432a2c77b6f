package symstate

import (
	"context"
	"testing"

	"shmemsssp/internal/transport"
)

func TestInitSeedsSourceVertex(t *testing.T) {
	peers, err := transport.NewLocalCluster(1, 4)
	if err != nil {
		t.Fatalf("NewLocalCluster: %v", err)
	}
	ctx := context.Background()
	s := New(peers[0], 4)

	if err := s.Init(ctx, func(local int64) bool { return local == 2 }); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for local := int64(0); local < 4; local++ {
		dist, err := s.Distance(ctx, 0, local)
		if err != nil {
			t.Fatalf("Distance(%d): %v", local, err)
		}
		active, err := s.IsActive(ctx, 0, local)
		if err != nil {
			t.Fatalf("IsActive(%d): %v", local, err)
		}
		pred, err := s.Predecessor(ctx, 0, local)
		if err != nil {
			t.Fatalf("Predecessor(%d): %v", local, err)
		}
		if pred != NoPredecessor {
			t.Errorf("Predecessor(%d) = %d, want NoPredecessor", local, pred)
		}
		// Init marks every local vertex active, not just the source's,
		// mirroring the original's unconditional active_vertices[i] = 1 reset.
		if !active {
			t.Errorf("vertex %d should be active after Init", local)
		}
		if local == 2 {
			if dist != 0 {
				t.Errorf("source distance = %d, want 0", dist)
			}
		} else {
			if dist != Infinity {
				t.Errorf("Distance(%d) = %d, want Infinity", local, dist)
			}
		}
	}

	any, err := s.AnyActive(ctx)
	if err != nil {
		t.Fatalf("AnyActive: %v", err)
	}
	if !any {
		t.Error("any-active should be set after Init regardless of source ownership")
	}
}

func TestCASDistanceOnlySucceedsOnMatch(t *testing.T) {
	peers, _ := transport.NewLocalCluster(1, 1)
	ctx := context.Background()
	s := New(peers[0], 1)
	_ = s.Init(ctx, nil)

	observed, err := s.CASDistance(ctx, 0, 0, Infinity, 5)
	if err != nil {
		t.Fatalf("CASDistance: %v", err)
	}
	if observed != Infinity {
		t.Fatalf("observed = %d, want Infinity", observed)
	}
	dist, _ := s.Distance(ctx, 0, 0)
	if dist != 5 {
		t.Fatalf("distance after CAS = %d, want 5", dist)
	}

	observed, err = s.CASDistance(ctx, 0, 0, Infinity, 99)
	if err != nil {
		t.Fatalf("CASDistance stale: %v", err)
	}
	if observed != 5 {
		t.Fatalf("stale observed = %d, want 5", observed)
	}
}

func TestSumActiveVotes(t *testing.T) {
	peers, err := transport.NewLocalCluster(3, 1)
	if err != nil {
		t.Fatalf("NewLocalCluster: %v", err)
	}
	ctx := context.Background()

	states := make([]*State, 3)
	for i, p := range peers {
		states[i] = New(p, 1)
	}

	done := make(chan int64, 3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			_ = states[i].SetAnyActive(ctx, int64(i), i != 1)
			sum, err := states[i].SumActiveVotes(ctx)
			if err != nil {
				t.Errorf("SumActiveVotes: %v", err)
			}
			done <- sum
		}(i)
	}
	for i := 0; i < 3; i++ {
		if got := <-done; got != 2 {
			t.Errorf("SumActiveVotes = %d, want 2", got)
		}
	}
}
