package stream

import (
	"encoding/json"
	"time"
)

// EventType enumerates the kinds of events pushed to connected dashboards.
type EventType string

const (
	EventConnected          EventType = "connected"
	EventHeartbeat          EventType = "heartbeat"
	EventJobsUpdated        EventType = "jobs_updated"
	EventJobStatusChanged   EventType = "job_status_changed"
	EventSettingsUpdated    EventType = "settings_updated"
	EventAgentStatusChanged EventType = "agent_status_changed"
)

// Event is a single message on the stream. Immutable once constructed.
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, data interface{}) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// Encode serializes the event into an SSE data frame:
//
//	data: {"type":...,"data":...,"timestamp":...}\n\n
func (e Event) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}
