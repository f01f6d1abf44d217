package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func countingFetch(calls *atomic.Int32, value string) FetchFunc[string] {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestResourceCacheFreshnessWindow(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache()
	r := NewResource(countingFetch(&calls, "jobs"), cache, nil, ResourceOptions[string]{
		CacheKey:      "jobs",
		CacheDuration: 80 * time.Millisecond,
	})

	if err := r.Fetch(context.Background(), false); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if err := r.Fetch(context.Background(), false); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one network call inside freshness window, got %d", n)
	}

	time.Sleep(90 * time.Millisecond)
	if err := r.Fetch(context.Background(), false); err != nil {
		t.Fatalf("post-window fetch: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected second network call after window, got %d", n)
	}
	if r.Data() != "jobs" {
		t.Fatalf("unexpected data %q", r.Data())
	}
}

func TestResourceSeedsFromSharedCache(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache()
	cache.Set("settings", "cached-value", time.Minute)

	r := NewResource(countingFetch(&calls, "fresh"), cache, nil, ResourceOptions[string]{
		CacheKey:      "settings",
		CacheDuration: time.Minute,
	})
	if r.Data() != "cached-value" {
		t.Fatalf("expected cache seed, got %q", r.Data())
	}
	if r.IsStale() {
		t.Fatal("cache seed must not be stale")
	}
	// inside the freshness window the seeded value suppresses the fetch
	if err := r.Fetch(context.Background(), false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("expected no network call after cache seed")
	}
}

func TestResourceSeedAgesFromCacheWrite(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache()
	// long TTL so the entry outlives the resource's freshness window
	cache.Set("jobs", "old-value", time.Hour)
	time.Sleep(40 * time.Millisecond)

	r := NewResource(countingFetch(&calls, "fresh"), cache, nil, ResourceOptions[string]{
		CacheKey:      "jobs",
		CacheDuration: 30 * time.Millisecond,
	})
	if r.Data() != "old-value" {
		t.Fatalf("expected cache seed, got %q", r.Data())
	}

	// the seed predates the freshness window, so this must hit the network
	if err := r.Fetch(context.Background(), false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatal("stale seed must not suppress the first fetch")
	}
	if r.Data() != "fresh" {
		t.Fatalf("data = %q", r.Data())
	}
}

func TestResourceMutateSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache()
	r := NewResource(countingFetch(&calls, "X"), cache, nil, ResourceOptions[string]{
		CacheKey:      "k",
		CacheDuration: time.Minute,
	})
	if err := r.Fetch(context.Background(), false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	before := calls.Load()

	r.Mutate(func(prev string) string { return prev + "-mutated" })

	if r.Data() != "X-mutated" {
		t.Fatalf("expected fn(X), got %q", r.Data())
	}
	if calls.Load() != before {
		t.Fatal("mutate must not invoke the fetch operation")
	}
	if v, ok := cache.Get("k"); !ok || v.(string) != "X-mutated" {
		t.Fatal("mutate must write through to the cache")
	}
}

func TestResourceErrorKeepsLastData(t *testing.T) {
	fastRetries(t)
	var fail atomic.Bool
	fetch := func(context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("server unavailable")
		}
		return "good", nil
	}
	var gotErr error
	r := NewResource(fetch, nil, nil, ResourceOptions[string]{
		RetryAttempts: 2,
		OnError:       func(err error) { gotErr = err },
	})
	if err := r.Fetch(context.Background(), true); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	fail.Store(true)
	if err := r.Fetch(context.Background(), true); err == nil {
		t.Fatal("expected fetch error")
	}
	if r.Err() == nil || gotErr == nil {
		t.Fatal("error must surface in state and OnError")
	}
	if r.Data() != "good" {
		t.Fatalf("stale-but-shown: data must keep last value, got %q", r.Data())
	}
}

func TestResourceEventStalenessSemantics(t *testing.T) {
	var calls atomic.Int32
	r := NewResource(countingFetch(&calls, "v"), nil, nil, ResourceOptions[string]{
		EnableRealtime:     true,
		RealtimeEventTypes: []string{EventJobStatusChanged, EventJobsUpdated},
	})
	defer r.Close()

	// non-structural matching event: stale only, no fetch
	r.onEvent(Event{Type: EventJobStatusChanged})
	if !r.IsStale() {
		t.Fatal("matching event must set stale")
	}
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("non-structural event must not trigger a fetch")
	}

	// structural event: stale and exactly one refetch
	r.onEvent(Event{Type: EventJobsUpdated})
	waitUntil(t, func() bool { return calls.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("structural event must trigger exactly one refetch, got %d", n)
	}
	waitUntil(t, func() bool { return !r.IsStale() })
}

func TestResourceConcurrentFetchesRunOperationOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}
	r := NewResource(fetch, nil, nil, ResourceOptions[string]{})

	done := make(chan struct{})
	go func() {
		_ = r.Fetch(context.Background(), true)
		close(done)
	}()
	waitUntil(t, func() bool { return r.Loading() })

	// overlapping forced fetches are suppressed by the in-flight guard
	for i := 0; i < 3; i++ {
		if err := r.Fetch(context.Background(), true); err != nil {
			t.Fatalf("overlapping fetch %d: %v", i, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("operation ran %d times while one fetch was in flight", n)
	}

	close(release)
	<-done
	if n := calls.Load(); n != 1 {
		t.Fatalf("operation ran %d times total, want 1", n)
	}
	if r.Data() != "v" {
		t.Fatalf("data = %q", r.Data())
	}
}

func TestResourceCloseFreezesState(t *testing.T) {
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		<-release
		return "late", nil
	}
	r := NewResource(fetch, nil, nil, ResourceOptions[string]{})

	done := make(chan struct{})
	go func() {
		_ = r.Fetch(context.Background(), true)
		close(done)
	}()
	waitUntil(t, func() bool { return r.Loading() })

	r.Close()
	close(release)
	<-done

	if r.Data() != "" {
		t.Fatalf("in-flight fetch resolving after Close must not set data, got %q", r.Data())
	}

	// events after Close are ignored too
	r.onEvent(Event{Type: EventJobsUpdated})
	time.Sleep(20 * time.Millisecond)
	if r.IsStale() {
		t.Fatal("event after Close must not mark stale")
	}
}
