package stream

import (
	"sync"

	"github.com/CtrlAltQ/jobseek-sub001/internal/metrics"
)

// Client is one connected stream consumer. The channel carries encoded
// SSE frames; it is owned by the registry entry and closed on Remove.
type Client struct {
	ch chan []byte
}

// Frames returns the receive side of the client's frame channel.
func (c *Client) Frames() <-chan []byte { return c.ch }

// Registry is the process-wide set of live stream clients. All methods
// are safe for concurrent use from handler goroutines and the heartbeat
// timer.
type Registry struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[*Client]struct{})}
}

// Add allocates a client with the given send buffer and registers it.
func (r *Registry) Add(buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	c := &Client{ch: make(chan []byte, buffer)}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	n := len(r.clients)
	r.mu.Unlock()
	metrics.SetConnectedClients(n)
	return c
}

// Remove unregisters the client and closes its channel. Removing a
// client that is not present is a no-op.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	_, ok := r.clients[c]
	if ok {
		delete(r.clients, c)
	}
	n := len(r.clients)
	r.mu.Unlock()
	if ok {
		close(c.ch)
		metrics.SetConnectedClients(n)
	}
}

// Snapshot copies the current membership so broadcast iteration tolerates
// concurrent Add/Remove.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// send writes a frame to the client without blocking. It reports false
// when the client's buffer is full (slow or dead consumer) or the client
// has been removed while the frame was in flight.
func (r *Registry) send(c *Client, frame []byte) (ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, live := r.clients[c]; !live {
		return false
	}
	select {
	case c.ch <- frame:
		return true
	default:
		return false
	}
}
