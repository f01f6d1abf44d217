package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Handler receives one stream event. Handlers are invoked synchronously
// in server order; a handler must not call Subscribe or the unsubscribe
// func of any subscription from inside the callback.
type Handler func(Event)

// Realtime maintains one persistent connection to the server's event
// stream and republishes parsed events to local subscribers. Connection
// loss is handled internally with capped exponential backoff; subscribers
// only ever see domain events, never transport-level reconnects.
type Realtime struct {
	url    string
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	subs    map[int]*subscription
	nextID  int
	cancel  context.CancelFunc
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

type subscription struct {
	fn     Handler
	filter map[string]struct{} // empty means all event types
}

// Realtime returns a stream consumer for this client's server. Start must
// be called before events are delivered.
func (c *Client) Realtime() *Realtime {
	return NewRealtime(c.baseURL+"/events", c.logger)
}

// NewRealtime builds a stream consumer for the given events URL.
func NewRealtime(url string, logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Realtime{
		url: url,
		// no Timeout: the stream connection is long-lived by design
		client: &http.Client{},
		logger: logger,
		subs:   make(map[int]*subscription),
		done:   make(chan struct{}),
	}
}

// Start opens the stream connection. Idempotent; a no-op after Stop.
func (r *Realtime) Start() {
	r.startOnce.Do(func() {
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.mu.Unlock()
		go r.run(ctx)
	})
}

// Stop closes the connection and halts reconnection. Safe to call
// multiple times; blocks until the reader goroutine exits when Start was
// called.
func (r *Realtime) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		cancel := r.cancel
		r.mu.Unlock()
		if cancel != nil {
			cancel()
			<-r.done
		} else {
			close(r.done)
		}
	})
}

// Subscribe registers fn for the given event types (none means all).
// The returned func removes the subscription; after it returns, fn is
// guaranteed not to be invoked again.
func (r *Realtime) Subscribe(fn Handler, types ...string) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	filter := make(map[string]struct{}, len(types))
	for _, t := range types {
		filter[t] = struct{}{}
	}
	r.subs[id] = &subscription{fn: fn, filter: filter}
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Realtime) run(ctx context.Context) {
	defer close(r.done)
	backoff := time.Second
	for {
		connected, err := r.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = time.Second
		}
		if err != nil {
			r.logger.Debug("event stream disconnected", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// stream opens one connection and reads frames until it breaks.
// The connected return tells run whether to reset its backoff.
func (r *Realtime) stream(ctx context.Context) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("event stream returned HTTP %d", resp.StatusCode)
	}

	br := bufio.NewReader(resp.Body)
	var data strings.Builder
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return true, err
		}
		line = strings.TrimRight(line, "\r\n")
		if rest, ok := strings.CutPrefix(line, "data: "); ok {
			data.WriteString(rest)
			continue
		}
		if line == "" && data.Len() > 0 {
			r.dispatch(data.String())
			data.Reset()
		}
	}
}

// dispatch parses one frame payload and delivers it to matching
// subscribers. Malformed payloads are dropped; a panicking subscriber is
// isolated so the rest still receive the event.
func (r *Realtime) dispatch(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Type == "" {
		r.logger.Debug("dropping malformed stream event", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if len(s.filter) > 0 {
			if _, ok := s.filter[ev.Type]; !ok {
				continue
			}
		}
		r.safeCall(s.fn, ev)
	}
}

func (r *Realtime) safeCall(fn Handler, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("stream subscriber panicked", "type", ev.Type, "panic", rec)
		}
	}()
	fn(ev)
}
