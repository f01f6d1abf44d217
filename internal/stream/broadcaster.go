package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/CtrlAltQ/jobseek-sub001/internal/metrics"
)

// DefaultHeartbeatInterval keeps intermediaries from timing out idle
// streams and lets clients detect dead connections.
const DefaultHeartbeatInterval = 15 * time.Second

// Broadcaster serializes events and fans them out to every client in the
// registry. It owns the periodic heartbeat timer.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewBroadcaster wires a broadcaster to the given registry. A zero
// heartbeat interval falls back to DefaultHeartbeatInterval; a nil logger
// falls back to slog.Default.
func NewBroadcaster(reg *Registry, interval time.Duration, logger *slog.Logger) *Broadcaster {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: reg,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// EnsureStarted starts the heartbeat timer goroutine. It is idempotent:
// only the first call has any effect, so bootstrap code may call it from
// multiple paths without duplicating timers.
func (b *Broadcaster) EnsureStarted() {
	b.startOnce.Do(func() {
		go b.heartbeatLoop()
	})
}

// Stop terminates the heartbeat timer. Safe to call multiple times.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
}

func (b *Broadcaster) heartbeatLoop() {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			b.Heartbeat()
		}
	}
}

// Heartbeat broadcasts a heartbeat event to all clients.
func (b *Broadcaster) Heartbeat() {
	b.Broadcast(NewEvent(EventHeartbeat, HeartbeatData{Timestamp: time.Now().UTC()}))
}

// HeartbeatData is the payload of connected and heartbeat events.
type HeartbeatData struct {
	Timestamp time.Time `json:"timestamp"`
}

// Broadcast encodes the event once and attempts delivery to every
// registered client. A client whose write fails is removed from the
// registry; one bad client never aborts delivery to the rest.
func (b *Broadcaster) Broadcast(e Event) {
	frame, err := e.Encode()
	if err != nil {
		b.logger.Error("encode event", "type", e.Type, "error", err)
		return
	}
	clients := b.registry.Snapshot()
	delivered := 0
	for _, c := range clients {
		if b.registry.send(c, frame) {
			delivered++
			continue
		}
		b.registry.Remove(c)
		metrics.IncDroppedClient()
		b.logger.Debug("dropped slow or dead stream client", "type", e.Type)
	}
	metrics.IncEventBroadcast(string(e.Type))
	b.logger.Debug("broadcast event", "type", e.Type, "clients", delivered)
}

// SendTo delivers an event to a single client only (used for the initial
// connected frame). Delivery failure removes the client.
func (b *Broadcaster) SendTo(c *Client, e Event) {
	frame, err := e.Encode()
	if err != nil {
		b.logger.Error("encode event", "type", e.Type, "error", err)
		return
	}
	if !b.registry.send(c, frame) {
		b.registry.Remove(c)
		metrics.IncDroppedClient()
	}
}
