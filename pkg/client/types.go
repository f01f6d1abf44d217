package client

import (
	"encoding/json"
	"time"
)

// Job represents a discovered job posting as served by the API
type Job struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location,omitempty"`
	URL            string    `json:"url"`
	Source         string    `json:"source"`
	Summary        string    `json:"summary,omitempty"`
	Salary         string    `json:"salary,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
	Status         string    `json:"status"`
	PostedAt       time.Time `json:"posted_at,omitempty"`
	DiscoveredAt   time.Time `json:"discovered_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Settings holds the user's search configuration
type Settings struct {
	Keywords      []string  `json:"keywords"`
	ExcludedTerms []string  `json:"excluded_terms"`
	Locations     []string  `json:"locations"`
	Sources       []string  `json:"sources"`
	MinScore      float64   `json:"min_score"`
	ScanInterval  string    `json:"scan_interval"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AgentStatus is the last reported state of the scraping agent
type AgentStatus struct {
	State       string    `json:"state"`
	LastRunAt   time.Time `json:"last_run_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	JobsFound   int       `json:"jobs_found"`
	NextRunAt   time.Time `json:"next_run_at,omitempty"`
	ReportedAt  time.Time `json:"reported_at"`
	AgentSource string    `json:"agent_source,omitempty"`
}

// Pagination describes one page of a larger result set
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// JobsPage is the response of the jobs listing endpoint
type JobsPage struct {
	Jobs       []Job      `json:"jobs"`
	Pagination Pagination `json:"pagination"`
}

// JobsQuery represents query parameters for the jobs listing endpoint
type JobsQuery struct {
	Status   string
	Source   string
	Search   string
	MinScore float64
	SortBy   string
	SortDesc bool
	Page     int
	PerPage  int
}

// SyncRequest is the agent ingestion payload
type SyncRequest struct {
	Jobs        []Job        `json:"jobs"`
	AgentStatus *AgentStatus `json:"agent_status,omitempty"`
}

// SyncResult reports the upsert outcome of an ingestion batch
type SyncResult struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is one message received on the realtime stream. Data is kept raw
// so each subscriber decodes only the payloads it cares about.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Event types pushed by the server.
const (
	EventConnected          = "connected"
	EventHeartbeat          = "heartbeat"
	EventJobsUpdated        = "jobs_updated"
	EventJobStatusChanged   = "job_status_changed"
	EventSettingsUpdated    = "settings_updated"
	EventAgentStatusChanged = "agent_status_changed"
)
