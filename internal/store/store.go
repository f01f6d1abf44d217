package store

import (
	"context"
	"errors"

	"github.com/CtrlAltQ/jobseek-sub001/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UpsertResult reports the outcome of an ingestion batch. Inserted holds
// the jobs that did not exist before the batch; whether a row was new is
// determined per row by prior existence of its URL, never by positional
// correlation with the input slice.
type UpsertResult struct {
	Inserted []model.Job
	Updated  int
}

// Store persists jobs, settings, and agent status.
// Implementations must be safe for concurrent use.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Close() error

	UpsertJobs(ctx context.Context, jobs []model.Job) (UpsertResult, error)
	ListJobs(ctx context.Context, q model.JobsQuery) ([]model.Job, model.Pagination, error)
	GetJob(ctx context.Context, id string) (model.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error
	ArchiveJob(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.Stats, error)

	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error

	GetAgentStatus(ctx context.Context) (model.AgentStatus, error)
	UpsertAgentStatus(ctx context.Context, st model.AgentStatus) error
}
