package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CtrlAltQ/jobseek-sub001/internal/activity"
	"github.com/CtrlAltQ/jobseek-sub001/internal/auth"
	"github.com/CtrlAltQ/jobseek-sub001/internal/metrics"
	"github.com/CtrlAltQ/jobseek-sub001/internal/model"
	"github.com/CtrlAltQ/jobseek-sub001/internal/store"
	"github.com/CtrlAltQ/jobseek-sub001/internal/stream"
)

// Router provides the dashboard HTTP API.
// Endpoints under {basePath}:
//
//	GET    /jobs              list with filters/sort/paging
//	GET    /jobs/stats        dashboard statistics
//	GET    /jobs/:id          single job
//	PATCH  /jobs/:id/status   body: {"status": "..."}
//	POST   /jobs/sync         agent ingestion (X-Api-Key)
//	GET    /settings          current settings
//	PUT    /settings          replace settings
//	GET    /agent/status      last agent report
//	POST   /agent/status      agent report (X-Api-Key)
//	GET    /events            SSE event stream
//	GET    /health
//
// Mutation handlers broadcast their event after the store write succeeds.

type Router struct {
	st       store.Store
	registry *stream.Registry
	bcast    *stream.Broadcaster
	sink     activity.Sink // nil disables activity recording
	apiKey   *auth.APIKey
	logger   *slog.Logger
	basePath string
	cors     string
	buffer   int
}

type Options struct {
	Store       store.Store
	Registry    *stream.Registry
	Broadcaster *stream.Broadcaster
	Activity    activity.Sink
	APIKey      string
	Logger      *slog.Logger
	BasePath    string
	CORSOrigin  string
	// ClientBuffer is the per-connection frame buffer for /events.
	ClientBuffer int
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(o Options) *Router {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Router{
		st:       o.Store,
		registry: o.Registry,
		bcast:    o.Broadcaster,
		sink:     o.Activity,
		apiKey:   auth.NewAPIKey(o.APIKey),
		logger:   o.Logger,
		basePath: sanitizeBase(o.BasePath),
		cors:     o.CORSOrigin,
		buffer:   o.ClientBuffer,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(corsMiddleware(r.cors))
	group := g.Group(r.basePath)
	group.GET("/jobs", r.handleListJobs)
	group.GET("/jobs/stats", r.handleStats)
	group.GET("/jobs/:id", r.handleGetJob)
	group.PATCH("/jobs/:id/status", r.handleUpdateStatus)
	group.POST("/jobs/sync", r.apiKey.GinAuth(), r.handleSync)
	group.GET("/settings", r.handleGetSettings)
	group.PUT("/settings", r.handlePutSettings)
	group.GET("/agent/status", r.handleGetAgentStatus)
	group.POST("/agent/status", r.apiKey.GinAuth(), r.handlePostAgentStatus)
	group.GET("/events", stream.Handler(r.registry, r.bcast, r.buffer))
	group.GET("/health", r.handleHealth)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// WriteTimeout stays zero because /events connections are long-lived.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok", "clients": r.registry.Len()})
}

type jobsResp struct {
	Jobs       []model.Job      `json:"jobs"`
	Pagination model.Pagination `json:"pagination"`
}

func (r *Router) handleListJobs(c *gin.Context) {
	q := model.JobsQuery{
		Status:   model.JobStatus(c.Query("status")),
		Source:   c.Query("source"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort_by"),
		SortDesc: c.DefaultQuery("sort_dir", "desc") == "desc",
	}
	if q.Status != "" && !model.ValidStatus(q.Status) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid status filter: " + string(q.Status)})
		return
	}
	if v := c.Query("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid min_score: " + v})
			return
		}
		q.MinScore = f
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))

	jobs, pg, err := r.st.ListJobs(c.Request.Context(), q)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, jobsResp{Jobs: jobs, Pagination: pg})
}

func (r *Router) handleStats(c *gin.Context) {
	st, err := r.st.Stats(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (r *Router) handleGetJob(c *gin.Context) {
	j, err := r.st.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		code := http.StatusInternalServerError
		if err == store.ErrNotFound {
			code = http.StatusNotFound
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, j)
}

type statusChangeReq struct {
	Status model.JobStatus `json:"status"`
}

func (r *Router) handleUpdateStatus(c *gin.Context) {
	id := c.Param("id")
	var req statusChangeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !model.ValidStatus(req.Status) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid status: " + string(req.Status)})
		return
	}
	if err := r.st.UpdateJobStatus(c.Request.Context(), id, req.Status); err != nil {
		code := http.StatusInternalServerError
		if err == store.ErrNotFound {
			code = http.StatusNotFound
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	metrics.IncStatusChange()
	r.recordActivity(c, activity.Event{
		Type: activity.EventStatusChange, OccurredAt: time.Now().UTC(),
		JobID: id, Status: string(req.Status),
	})
	r.bcast.Broadcast(stream.NewEvent(stream.EventJobStatusChanged, gin.H{
		"jobId":  id,
		"status": req.Status,
	}))
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

type syncReq struct {
	Jobs        []model.Job        `json:"jobs"`
	AgentStatus *model.AgentStatus `json:"agent_status,omitempty"`
}

type syncResp struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
}

func (r *Router) handleSync(c *gin.Context) {
	var req syncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Jobs) == 0 && req.AgentStatus == nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "empty sync payload"})
		return
	}

	res, err := r.st.UpsertJobs(c.Request.Context(), req.Jobs)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	metrics.AddJobsIngested("inserted", len(res.Inserted))
	metrics.AddJobsIngested("updated", res.Updated)
	for _, j := range res.Inserted {
		r.recordActivity(c, activity.Event{
			Type: activity.EventJobSeen, OccurredAt: time.Now().UTC(),
			JobID: j.ID, JobURL: j.URL, Source: j.Source,
		})
	}

	if req.AgentStatus != nil {
		if err := r.st.UpsertAgentStatus(c.Request.Context(), *req.AgentStatus); err != nil {
			r.logger.Warn("save agent status", "error", err)
		}
	}

	if len(req.Jobs) > 0 {
		r.bcast.Broadcast(stream.NewEvent(stream.EventJobsUpdated, gin.H{
			"count":   len(res.Inserted) + res.Updated,
			"newJobs": res.Inserted,
		}))
	}
	if req.AgentStatus != nil {
		r.bcast.Broadcast(stream.NewEvent(stream.EventAgentStatusChanged, gin.H{}))
	}
	writeJSON(c, http.StatusOK, syncResp{OK: true, Inserted: len(res.Inserted), Updated: res.Updated})
}

func (r *Router) handleGetSettings(c *gin.Context) {
	s, err := r.st.GetSettings(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, s)
}

func (r *Router) handlePutSettings(c *gin.Context) {
	var s model.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.st.SaveSettings(c.Request.Context(), s); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	r.bcast.Broadcast(stream.NewEvent(stream.EventSettingsUpdated, gin.H{}))
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleGetAgentStatus(c *gin.Context) {
	st, err := r.st.GetAgentStatus(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (r *Router) handlePostAgentStatus(c *gin.Context) {
	var st model.AgentStatus
	if err := c.ShouldBindJSON(&st); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.st.UpsertAgentStatus(c.Request.Context(), st); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	r.recordActivity(c, activity.Event{
		Type: activity.EventAgentReport, OccurredAt: time.Now().UTC(), Status: st.State,
	})
	r.bcast.Broadcast(stream.NewEvent(stream.EventAgentStatusChanged, gin.H{}))
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) recordActivity(c *gin.Context, e activity.Event) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Send(c.Request.Context(), e); err != nil {
		r.logger.Warn("record activity", "event", e.Type, "error", err)
	}
}
