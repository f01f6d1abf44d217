package activity

import (
	"context"
	"time"
)

// EventType defines the kind of domain activity recorded for statistics.
type EventType string

const (
	EventJobSeen      EventType = "job_seen"
	EventStatusChange EventType = "status_change"
	EventAgentReport  EventType = "agent_report"
)

// Event is one activity record exported to external analytics systems.
// This is dashboard history, not the live event stream: the stream stays
// best-effort and unlogged.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	JobID      string    `json:"job_id,omitempty"`
	JobURL     string    `json:"job_url,omitempty"`
	Status     string    `json:"status,omitempty"`
	Source     string    `json:"source,omitempty"`
}

// Sink is a destination for activity events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
