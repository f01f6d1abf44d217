package jobseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CtrlAltQ/jobseek-sub001/internal/model"
)

func TestEmbeddedServerLifecycle(t *testing.T) {
	ctx := context.Background()
	srv, err := NewServer(ctx, ServerOptions{
		StoreDSN: ":memory:",
		APIKey:   "k",
		BasePath: "/api",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("health body: %v", out)
	}
	if srv.ConnectedClients() != 0 {
		t.Fatalf("expected no stream clients, got %d", srv.ConnectedClients())
	}

	// the embedded store is directly usable
	res, err := srv.Store().UpsertJobs(ctx, []Job{{Title: "A", Company: "X", URL: "https://a/1"}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(res.Inserted) != 1 {
		t.Fatalf("inserted %d", len(res.Inserted))
	}
	if res.Inserted[0].Status != model.StatusNew {
		t.Fatalf("status %q", res.Inserted[0].Status)
	}
}

func TestNewServerBadDSN(t *testing.T) {
	if _, err := NewServer(context.Background(), ServerOptions{StoreDSN: "mysql://nope"}); err == nil {
		t.Fatal("unsupported DSN must fail")
	}
	if _, err := NewServer(context.Background(), ServerOptions{}); err == nil {
		t.Fatal("empty DSN must fail")
	}
}
