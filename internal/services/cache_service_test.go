package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/services"
)

func TestMemoryCachePutGet(t *testing.T) {
	cache := services.NewMemoryResultCache(0, newTestLogger(t))
	defer cache.Close()

	events := []models.Event{{ID: "evt_1", Headline: "Cached story"}}
	cache.Put(context.Background(), "fp_test", events, time.Minute)

	got, ok := cache.Get(context.Background(), "fp_test")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if len(got) != 1 || got[0].ID != "evt_1" {
		t.Errorf("Expected cached events back, got %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	cache := services.NewMemoryResultCache(0, newTestLogger(t))
	defer cache.Close()

	if _, ok := cache.Get(context.Background(), "fp_unknown"); ok {
		t.Error("Expected miss for unknown fingerprint")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := services.NewMemoryResultCache(0, newTestLogger(t))
	defer cache.Close()

	cache.Put(context.Background(), "fp_short", []models.Event{{ID: "evt_1"}}, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := cache.Get(context.Background(), "fp_short"); ok {
		t.Error("Expected expired entry to miss")
	}
	if cache.Len() != 0 {
		t.Errorf("Expected expired entry evicted on lookup, cache holds %d", cache.Len())
	}
}

func TestMemoryCacheIgnoresNonPositiveTTL(t *testing.T) {
	cache := services.NewMemoryResultCache(0, newTestLogger(t))
	defer cache.Close()

	cache.Put(context.Background(), "fp_zero", []models.Event{{ID: "evt_1"}}, 0)
	if cache.Len() != 0 {
		t.Errorf("Expected zero-TTL put to be ignored, cache holds %d", cache.Len())
	}
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := services.NewMemoryResultCache(0, newTestLogger(t))
	defer cache.Close()

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				fingerprint := fmt.Sprintf("fp_%d", i%5)
				cache.Put(context.Background(), fingerprint, []models.Event{{ID: fmt.Sprintf("evt_%d_%d", worker, i)}}, time.Minute)
				if events, ok := cache.Get(context.Background(), fingerprint); ok && len(events) != 1 {
					t.Errorf("Observed partial entry with %d events", len(events))
				}
			}
		}(worker)
	}
	wg.Wait()
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	cache := services.NewMemoryResultCache(time.Minute, newTestLogger(t))
	if err := cache.Close(); err != nil {
		t.Fatalf("Unexpected close error: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Unexpected error on second close: %v", err)
	}
}
