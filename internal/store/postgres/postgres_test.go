package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/CtrlAltQ/jobseek-sub001/internal/model"
	"github.com/CtrlAltQ/jobseek-sub001/internal/store"
)

// startPostgresContainer starts a PostgreSQL container for tests
// and returns a DSN suitable for pgx stdlib. It skips the test if Docker is unavailable.
func startPostgresContainer(t *testing.T) (dsn string, terminate func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		cancel()
		t.Skipf("Failed to start PostgreSQL container: %v", err)
		return "", nil
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get host info: %v", err)
		return "", nil
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get mapped port: %v", err)
		return "", nil
	}

	dsn = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	terminate = func() {
		_ = container.Terminate(ctx)
		cancel()
	}

	return dsn, terminate
}

func waitForPostgres(t *testing.T, dsn string) {
	// Try to ping until timeout; helps when container reports ready but DB not yet accepting connections
	deadline := time.Now().Add(45 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				_ = db.Close()
				cancel()
				return
			}
			_ = db.Close()
		}
		cancel()
		if time.Now().After(deadline) {
			t.Fatalf("postgres not ready in time: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn, terminate := startPostgresContainer(t)
	waitForPostgres(t, dsn)
	defer func() {
		if terminate != nil {
			terminate()
		}
	}()

	db, err := New(dsn)
	if err != nil {
		t.Fatalf("pg open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	res, err := db.UpsertJobs(ctx, []model.Job{
		{Title: "Go Engineer", Company: "Acme", URL: "https://a/1", Source: "indeed", RelevanceScore: 0.9},
		{Title: "Backend Dev", Company: "Globex", URL: "https://b/2", Source: "linkedin", RelevanceScore: 0.5},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(res.Inserted) != 2 || res.Updated != 0 {
		t.Fatalf("first batch: inserted=%d updated=%d", len(res.Inserted), res.Updated)
	}
	id := res.Inserted[0].ID

	// user-assigned status survives a resync of the same URL
	if err := db.UpdateJobStatus(ctx, id, model.StatusApplied); err != nil {
		t.Fatalf("status: %v", err)
	}
	res, err = db.UpsertJobs(ctx, []model.Job{
		{Title: "Go Engineer (refreshed)", Company: "Acme", URL: "https://a/1", Source: "indeed"},
	})
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(res.Inserted) != 0 || res.Updated != 1 {
		t.Fatalf("resync: inserted=%d updated=%d", len(res.Inserted), res.Updated)
	}
	got, err := db.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusApplied || got.Title != "Go Engineer (refreshed)" {
		t.Fatalf("unexpected job after resync: %+v", got)
	}

	// ILIKE search is case-insensitive
	jobs, pg, err := db.ListJobs(ctx, model.JobsQuery{Search: "ENGINEER"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || pg.Total != 1 {
		t.Fatalf("search: %d jobs, total %d", len(jobs), pg.Total)
	}

	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 2 || st.ByStatus["applied"] != 1 {
		t.Fatalf("stats: %+v", st)
	}

	if _, err := db.GetJob(ctx, "missing"); err != store.ErrNotFound {
		t.Fatalf("missing job: %v", err)
	}

	if err := db.ArchiveJob(ctx, id); err != nil {
		t.Fatalf("archive: %v", err)
	}
	archived, err := db.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("get archived: %v", err)
	}
	if archived.Status != model.StatusArchived {
		t.Fatalf("archive status = %q", archived.Status)
	}

	s, err := db.GetSettings(ctx)
	if err != nil {
		t.Fatalf("default settings: %v", err)
	}
	s.Keywords = []string{"golang"}
	if err := db.SaveSettings(ctx, s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	s2, err := db.GetSettings(ctx)
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if len(s2.Keywords) != 1 {
		t.Fatalf("settings round trip: %+v", s2)
	}

	if err := db.UpsertAgentStatus(ctx, model.AgentStatus{State: "running"}); err != nil {
		t.Fatalf("agent status: %v", err)
	}
	ast, err := db.GetAgentStatus(ctx)
	if err != nil {
		t.Fatalf("agent status reload: %v", err)
	}
	if ast.State != "running" {
		t.Fatalf("agent status: %+v", ast)
	}
}
