package jobseek

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CtrlAltQ/jobseek-sub001/internal/activity"
	"github.com/CtrlAltQ/jobseek-sub001/internal/metrics"
	"github.com/CtrlAltQ/jobseek-sub001/internal/model"
	iapi "github.com/CtrlAltQ/jobseek-sub001/internal/server"
	"github.com/CtrlAltQ/jobseek-sub001/internal/store"
	storefactory "github.com/CtrlAltQ/jobseek-sub001/internal/store/factory"
	"github.com/CtrlAltQ/jobseek-sub001/internal/stream"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Job = model.Job

type JobStatus = model.JobStatus

type Settings = model.Settings

type AgentStatus = model.AgentStatus

type JobsQuery = model.JobsQuery

type Stats = model.Stats

type Store = store.Store

type ActivitySink = activity.Sink

// ServerOptions configures an embedded dashboard server.
type ServerOptions struct {
	// StoreDSN selects the primary store: sqlite path, sqlite://, postgres://.
	StoreDSN string
	// ActivityDSN optionally enables the activity sink (sqlite/postgres/clickhouse).
	ActivityDSN string
	// APIKey guards agent ingestion. Empty rejects all ingests.
	APIKey            string
	BasePath          string
	CORSOrigin        string
	HeartbeatInterval time.Duration
	ClientBuffer      int
	Logger            *slog.Logger
}

// Server is a thin facade bundling the store, the event-stream hub, and
// the HTTP router. It provides a stable public API for embedding the
// dashboard backend in another program.
type Server struct {
	store    store.Store
	sink     activity.Sink
	registry *stream.Registry
	bcast    *stream.Broadcaster
	router   *iapi.Router
}

// NewServer opens the store, prepares its schema, and wires the stream
// hub and router. The heartbeat timer starts immediately.
func NewServer(ctx context.Context, o ServerOptions) (*Server, error) {
	st, err := storefactory.NewFromDSN(o.StoreDSN)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	var sink activity.Sink
	if o.ActivityDSN != "" {
		sink, err = activity.NewSinkFromDSN(o.ActivityDSN)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	registry := stream.NewRegistry()
	bcast := stream.NewBroadcaster(registry, o.HeartbeatInterval, o.Logger)
	bcast.EnsureStarted()

	router := iapi.NewRouter(iapi.Options{
		Store:        st,
		Registry:     registry,
		Broadcaster:  bcast,
		Activity:     sink,
		APIKey:       o.APIKey,
		Logger:       o.Logger,
		BasePath:     o.BasePath,
		CORSOrigin:   o.CORSOrigin,
		ClientBuffer: o.ClientBuffer,
	})
	return &Server{store: st, sink: sink, registry: registry, bcast: bcast, router: router}, nil
}

// Handler returns the HTTP handler to mount in any server/mux.
func (s *Server) Handler() http.Handler { return s.router.Handler() }

// Store exposes the primary store for direct embedding use.
func (s *Server) Store() Store { return s.store }

// ConnectedClients reports the number of open event-stream connections.
func (s *Server) ConnectedClients() int { return s.registry.Len() }

// Close stops the heartbeat timer and closes the store and sink.
func (s *Server) Close() error {
	s.bcast.Stop()
	if s.sink != nil {
		_ = s.sink.Close()
	}
	return s.store.Close()
}

// RegisterMetrics registers the Prometheus collectors on r. Safe to call
// multiple times.
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

// MetricsHandler serves the Prometheus text endpoint.
func MetricsHandler() http.Handler { return metrics.Handler() }
