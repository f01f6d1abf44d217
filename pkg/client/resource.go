package client

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads the value a resource manages, typically one of the
// Client's request methods wrapped in a closure.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ResourceOptions configures caching, retry, and realtime behavior for a
// resource.
type ResourceOptions[T any] struct {
	// CacheKey enables the shared cache; empty disables caching.
	CacheKey string
	// CacheDuration is both the freshness window for skipping fetches
	// and the TTL for cache writes.
	CacheDuration time.Duration
	// EnableRealtime subscribes to RealtimeEventTypes on the realtime
	// manager. No types means no subscription.
	EnableRealtime     bool
	RealtimeEventTypes []string
	// RetryAttempts is the total number of tries per fetch (min 1).
	RetryAttempts int
	OnSuccess     func(value T)
	OnError       func(err error)
}

// Structural event types force an immediate refetch on arrival; all
// other matching types only mark the resource stale.
var structuralEvents = map[string]struct{}{
	EventJobsUpdated:     {},
	EventSettingsUpdated: {},
}

// Resource keeps one unit of server data cached, fresh, and
// subscription-invalidated. It is the per-consumer data-access layer:
// construct one per view of server state, share the Cache and Realtime
// across all of them, and Close when the consumer goes away.
type Resource[T any] struct {
	fetch FetchFunc[T]
	opts  ResourceOptions[T]
	cache *Cache
	rt    *Realtime

	mu        sync.Mutex
	data      T
	loading   bool
	err       error
	stale     bool
	lastFetch time.Time
	inFlight  bool
	closed    bool
	unsub     func()
}

// NewResource builds a resource over fetch. cache and rt may be nil to
// disable caching and realtime invalidation respectively. When the cache
// holds a fresh value under CacheKey the resource seeds from it and the
// first Fetch inside the freshness window becomes a no-op.
func NewResource[T any](fetch FetchFunc[T], cache *Cache, rt *Realtime, opts ResourceOptions[T]) *Resource[T] {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	r := &Resource[T]{fetch: fetch, opts: opts, cache: cache, rt: rt}

	if cache != nil && opts.CacheKey != "" {
		if v, storedAt, ok := cache.GetWithTime(opts.CacheKey); ok {
			if typed, ok := v.(T); ok {
				// Freshness ages from when the entry was written, not
				// from construction.
				r.data = typed
				r.lastFetch = storedAt
			}
		}
	}

	if opts.EnableRealtime && rt != nil && len(opts.RealtimeEventTypes) > 0 {
		r.unsub = rt.Subscribe(r.onEvent, opts.RealtimeEventTypes...)
	}
	return r
}

// onEvent marks the resource stale; structural events also force one
// refetch in the background.
func (r *Resource[T]) onEvent(ev Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.stale = true
	r.mu.Unlock()

	if _, structural := structuralEvents[ev.Type]; structural {
		go func() { _ = r.Fetch(context.Background(), true) }()
	}
}

// Fetch loads the value. A fetch already in flight, a closed resource,
// or (unless force is set) a fetch inside the cache freshness window all
// short-circuit without touching the network. On failure after all retry
// attempts the previous data is kept and only err is set.
func (r *Resource[T]) Fetch(ctx context.Context, force bool) error {
	r.mu.Lock()
	if r.closed || r.inFlight {
		r.mu.Unlock()
		return nil
	}
	if !force && r.opts.CacheKey != "" && !r.lastFetch.IsZero() &&
		time.Since(r.lastFetch) < r.opts.CacheDuration {
		r.mu.Unlock()
		return nil
	}
	r.inFlight = true
	r.loading = true
	r.err = nil
	r.mu.Unlock()

	value, err := WithRetry(ctx, r.fetch, r.opts.RetryAttempts)

	r.mu.Lock()
	r.inFlight = false
	if r.closed {
		// Closed mid-fetch: the result must not touch state.
		r.mu.Unlock()
		return err
	}
	r.loading = false
	if err != nil {
		r.err = err
		r.mu.Unlock()
		if r.opts.OnError != nil {
			r.opts.OnError(err)
		}
		return err
	}
	r.data = value
	r.err = nil
	r.stale = false
	r.lastFetch = time.Now()
	r.mu.Unlock()

	if r.cache != nil && r.opts.CacheKey != "" {
		r.cache.Set(r.opts.CacheKey, value, r.opts.CacheDuration)
	}
	if r.opts.OnSuccess != nil {
		r.opts.OnSuccess(value)
	}
	return nil
}

// Refetch forces a fresh load regardless of cache freshness.
func (r *Resource[T]) Refetch(ctx context.Context) error {
	return r.Fetch(ctx, true)
}

// Mutate applies an optimistic local update and writes it through to the
// cache without touching the network.
func (r *Resource[T]) Mutate(update func(T) T) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.data = update(r.data)
	value := r.data
	r.mu.Unlock()

	if r.cache != nil && r.opts.CacheKey != "" {
		r.cache.Set(r.opts.CacheKey, value, r.opts.CacheDuration)
	}
}

// Set replaces the value optimistically, like Mutate with a constant.
func (r *Resource[T]) Set(value T) {
	r.Mutate(func(T) T { return value })
}

// Close unsubscribes from the realtime manager and freezes state: no
// event or in-flight fetch completing afterwards will mutate it.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// --- State accessors ---

func (r *Resource[T]) Data() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

func (r *Resource[T]) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *Resource[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Resource[T]) IsStale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

func (r *Resource[T]) LastFetch() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFetch
}
