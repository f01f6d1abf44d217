package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func setupSSE(t *testing.T) (*Registry, *Broadcaster, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := NewRegistry()
	b := NewBroadcaster(reg, time.Hour, nil)
	g := gin.New()
	g.GET("/api/events", Handler(reg, b, 16))
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return reg, b, srv
}

// readFrame reads one "data: ...\n\n" frame from the stream.
func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if line == "\n" {
			return sb.String()
		}
		sb.WriteString(line)
	}
}

func TestSSEHandlerHeadersAndFrames(t *testing.T) {
	reg, b, srv := setupSSE(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("unexpected cache control %q", cc)
	}
	if ao := resp.Header.Get("Access-Control-Allow-Origin"); ao != "*" {
		t.Fatalf("unexpected allow-origin %q", ao)
	}

	br := bufio.NewReader(resp.Body)
	if f := readFrame(t, br); !strings.Contains(f, `"type":"connected"`) {
		t.Fatalf("first frame must be connected, got %q", f)
	}
	if f := readFrame(t, br); !strings.Contains(f, `"type":"heartbeat"`) {
		t.Fatalf("second frame must be the join heartbeat, got %q", f)
	}

	b.Broadcast(NewEvent(EventJobsUpdated, map[string]int{"count": 2}))
	if f := readFrame(t, br); !strings.Contains(f, `"type":"jobs_updated"`) {
		t.Fatalf("expected jobs_updated frame, got %q", f)
	}

	// Client-initiated disconnect tears the registration down.
	cancel()
	waitFor(t, func() bool { return reg.Len() == 0 })
}

func TestSSEBroadcastReachesMultipleConnections(t *testing.T) {
	reg, b, srv := setupSSE(t)

	readers := make([]*bufio.Reader, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/events")
		if err != nil {
			t.Fatalf("open stream %d: %v", i, err)
		}
		defer func() { _ = resp.Body.Close() }()
		br := bufio.NewReader(resp.Body)
		readFrame(t, br) // connected
		readers = append(readers, br)
	}
	waitFor(t, func() bool { return reg.Len() == 2 })

	b.Broadcast(NewEvent(EventJobStatusChanged, map[string]string{"jobId": "job-1", "status": "applied"}))

	for i, br := range readers {
		for {
			f := readFrame(t, br)
			if strings.Contains(f, `"type":"heartbeat"`) {
				continue // join heartbeats from the second connection
			}
			if !strings.Contains(f, `"type":"job_status_changed"`) {
				t.Fatalf("reader %d: unexpected frame %q", i, f)
			}
			break
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
