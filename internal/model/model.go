package model

import "time"

// JobStatus enumerates the pipeline states a discovered job moves through.
type JobStatus string

const (
	StatusNew       JobStatus = "new"
	StatusViewed    JobStatus = "viewed"
	StatusApplied   JobStatus = "applied"
	StatusRejected  JobStatus = "rejected"
	StatusArchived  JobStatus = "archived"
	StatusInterview JobStatus = "interview"
)

// ValidStatus reports whether s is a recognized job status.
func ValidStatus(s JobStatus) bool {
	switch s {
	case StatusNew, StatusViewed, StatusApplied, StatusRejected, StatusArchived, StatusInterview:
		return true
	}
	return false
}

// Job is one discovered job posting. URL is the natural key used for
// upsert deduplication across agent runs.
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
	Status         JobStatus `json:"status"`
	PostedAt       time.Time `json:"posted_at,omitempty"`
	DiscoveredAt   time.Time `json:"discovered_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Settings holds user-tunable search and agent parameters.
type Settings struct {
	Keywords      []string  `json:"keywords"`
	ExcludedTerms []string  `json:"excluded_terms"`
	Locations     []string  `json:"locations"`
	Sources       []string  `json:"sources"`
	MinScore      float64   `json:"min_score"`
	ScanInterval  string    `json:"scan_interval"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() Settings {
	return Settings{
		Keywords:     []string{},
		Locations:    []string{"remote"},
		Sources:      []string{},
		MinScore:     0,
		ScanInterval: "6h",
	}
}

// AgentStatus is the last reported state of the external scraping agent.
type AgentStatus struct {
	State       string    `json:"state"` // "idle", "running", "error"
	LastRunAt   time.Time `json:"last_run_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	JobsFound   int       `json:"jobs_found"`
	NextRunAt   time.Time `json:"next_run_at,omitempty"`
	ReportedAt  time.Time `json:"reported_at"`
	AgentSource string    `json:"agent_source,omitempty"`
}

// JobsQuery selects and orders jobs for listing.
type JobsQuery struct {
	Status   JobStatus
	Source   string
	Search   string
	MinScore float64
	SortBy   string // "discovered_at", "relevance_score", "posted_at"
	SortDesc bool
	Page     int
	PerPage  int
}

// Pagination describes one page of a larger result set.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Stats aggregates job counts for the dashboard header.
type Stats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	BySource  map[string]int64 `json:"by_source"`
	AvgScore  float64          `json:"avg_score"`
	Last24h   int64            `json:"last_24h"`
	UpdatedAt time.Time        `json:"updated_at"`
}
