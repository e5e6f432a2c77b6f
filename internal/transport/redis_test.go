package transport

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func skipIfNoRedis(t *testing.T) {
	if os.Getenv("REDIS_TEST_ADDR") == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}
}

func newTestPeer(ctx context.Context, t *testing.T, pe, npes int64, runID string) *RedisTransport {
	t.Helper()
	tr, err := NewRedisPeer(ctx, pe, npes, RedisOptions{
		Addr:         os.Getenv("REDIS_TEST_ADDR"),
		Password:     os.Getenv("REDIS_TEST_PASSWORD"),
		RunID:        runID,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRedisPeer: %v", err)
	}
	return tr
}

func TestRedisGetPutCAS(t *testing.T) {
	skipIfNoRedis(t)
	ctx := context.Background()
	tr := newTestPeer(ctx, t, 0, 1, "test-getputcas")
	defer tr.Close()

	got, err := tr.Get64(ctx, RegionDistance, 0, 5)
	if err != nil {
		t.Fatalf("Get64 on missing key: %v", err)
	}
	if got != 0 {
		t.Fatalf("Get64 on missing key = %d, want 0", got)
	}

	if err := tr.Put64(ctx, RegionDistance, 0, 5, 17); err != nil {
		t.Fatalf("Put64: %v", err)
	}
	got, err = tr.Get64(ctx, RegionDistance, 0, 5)
	if err != nil || got != 17 {
		t.Fatalf("Get64 after Put64 = (%d, %v), want (17, nil)", got, err)
	}

	observed, err := tr.CAS64(ctx, RegionDistance, 0, 5, 17, 3)
	if err != nil || observed != 17 {
		t.Fatalf("CAS64 = (%d, %v), want (17, nil)", observed, err)
	}
	got, _ = tr.Get64(ctx, RegionDistance, 0, 5)
	if got != 3 {
		t.Fatalf("post-CAS value = %d, want 3", got)
	}

	observed, err = tr.CAS64(ctx, RegionDistance, 0, 5, 17, 99)
	if err != nil || observed != 3 {
		t.Fatalf("stale CAS64 = (%d, %v), want (3, nil)", observed, err)
	}
}

func TestRedisBarrierAllAndIntSumToAll(t *testing.T) {
	skipIfNoRedis(t)
	ctx := context.Background()
	const npes = 3
	runID := "test-barrier-sum"

	peers := make([]*RedisTransport, npes)
	for pe := int64(0); pe < npes; pe++ {
		peers[pe] = newTestPeer(ctx, t, pe, npes, runID)
	}
	defer func() {
		for _, p := range peers {
			p.Close()
		}
	}()

	var wg sync.WaitGroup
	for pe := int64(0); pe < npes; pe++ {
		wg.Add(1)
		go func(pe int64) {
			defer wg.Done()
			if err := peers[pe].BarrierAll(ctx); err != nil {
				t.Errorf("BarrierAll: %v", err)
			}
		}(pe)
	}
	wg.Wait()

	results := make([]int64, npes)
	wg.Add(npes)
	for pe := int64(0); pe < npes; pe++ {
		go func(pe int64) {
			defer wg.Done()
			sum, err := peers[pe].IntSumToAll(ctx, pe+1)
			if err != nil {
				t.Errorf("IntSumToAll: %v", err)
				return
			}
			results[pe] = sum
		}(pe)
	}
	wg.Wait()

	const want = 1 + 2 + 3
	for pe, got := range results {
		if got != want {
			t.Errorf("peer %d sum = %d, want %d", pe, got, want)
		}
	}
}

func TestRegionNameCoversAllRegions(t *testing.T) {
	for _, r := range []Region{RegionDistance, RegionPredecessor, RegionActive, RegionAnyActive} {
		if regionName(r) == "unknown" {
			t.Errorf("regionName(%d) = unknown", r)
		}
	}
}
