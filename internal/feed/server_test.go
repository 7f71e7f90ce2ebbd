package feed

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/pathwatch/internal/telemetry"
	"github.com/vango-dev/pathwatch/pkg/middleware"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

func newTestServer(t *testing.T, config Config) (*Server, *httptest.Server) {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(`{"a":"hello","b":{"c":"world"}}`), &doc); err != nil {
		t.Fatal(err)
	}
	root, _, err := observe.New().Wrap(doc)
	if err != nil {
		t.Fatal(err)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := New(root, config)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func next(t *testing.T, conn *websocket.Conn) observe.AccessEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var e observe.AccessEvent
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return e
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestDocumentRoutes(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	if code, body := do(t, "GET", ts.URL+"/doc", ""); code != 200 || body != `{"a":"hello","b":{"c":"world"}}` {
		t.Errorf("GET /doc = %d %s", code, body)
	}
	if code, body := do(t, "GET", ts.URL+"/doc/b/c", ""); code != 200 || body != `"world"` {
		t.Errorf("GET /doc/b/c = %d %s", code, body)
	}
	if code, _ := do(t, "GET", ts.URL+"/doc/zz", ""); code != 404 {
		t.Errorf("GET /doc/zz = %d, want 404", code)
	}

	if code, _ := do(t, "PUT", ts.URL+"/doc/a", `{"x":[1,2]}`); code != 204 {
		t.Errorf("PUT /doc/a = %d, want 204", code)
	}
	if code, body := do(t, "GET", ts.URL+"/doc/a/x", ""); code != 200 || body != `[1,2]` {
		t.Errorf("GET /doc/a/x = %d %s", code, body)
	}
	if code, _ := do(t, "PUT", ts.URL+"/doc/a/x/9", `1`); code != 400 {
		t.Errorf("PUT out of range = %d, want 400", code)
	}
	if code, _ := do(t, "PUT", ts.URL+"/doc/zz/y", `1`); code != 404 {
		t.Errorf("PUT through missing = %d, want 404", code)
	}
	if code, _ := do(t, "PUT", ts.URL+"/doc/a", `{nope`); code != 400 {
		t.Errorf("PUT bad json = %d, want 400", code)
	}

	if code, _ := do(t, "DELETE", ts.URL+"/doc/a", ""); code != 204 {
		t.Errorf("DELETE /doc/a = %d, want 204", code)
	}
	if _, body := do(t, "GET", ts.URL+"/doc", ""); body != `{"b":{"c":"world"}}` {
		t.Errorf("GET /doc after delete = %s", body)
	}
}

func TestEventStream(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	conn := dial(t, ts, "")

	do(t, "PUT", ts.URL+"/doc/b/c", `1`)

	if e := next(t, conn); e.String() != "read(b)" {
		t.Errorf("first event = %v, want read(b)", e)
	}
	if e := next(t, conn); e.String() != "write(b.c)" {
		t.Errorf("second event = %v, want write(b.c)", e)
	}
}

func TestGatedStream(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	conn := dial(t, ts, "?reads=b.c")

	do(t, "PUT", ts.URL+"/doc/a", `"ignored"`)
	do(t, "GET", ts.URL+"/doc/b", "")
	do(t, "PUT", ts.URL+"/doc/b/c", `"changed"`)

	if e := next(t, conn); e.String() != "write(b.c)" {
		t.Errorf("gated event = %v, want write(b.c)", e)
	}
}

func TestMetricsEndpointAndClients(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
	s, ts := newTestServer(t, Config{
		Metrics:    m,
		Gatherer:   reg,
		Middleware: []func(http.Handler) http.Handler{middleware.Prometheus(middleware.WithRegistry(reg))},
	})

	dial(t, ts, "")
	if !eventually(func() bool { return s.Clients() == 1 }) {
		t.Fatalf("Clients() = %d, want 1", s.Clients())
	}

	// The upgrade request is counted once its handler returns.
	var body string
	upgraded := `pathwatch_http_requests_total{method="GET",route="/events",status="101"} 1`
	ok := eventually(func() bool {
		_, body = do(t, "GET", ts.URL+"/metrics", "")
		return strings.Contains(body, upgraded)
	})
	if !ok {
		t.Errorf("upgrade not counted:\n%s", body)
	}
	if !strings.Contains(body, "pathwatch_feed_clients 1") {
		t.Errorf("feed_clients missing:\n%s", body)
	}

	s.Close()
	if s.Clients() != 0 {
		t.Errorf("Clients() after Close = %d", s.Clients())
	}
}

func TestSlowClientDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
	s, _ := newTestServer(t, Config{SendBuffer: 1, Metrics: m})

	c := &client{server: s, send: make(chan []byte, 1), done: make(chan struct{})}
	c.enqueue(observe.AccessEvent{Kind: observe.Write, Path: observe.Path{"a"}})
	c.enqueue(observe.AccessEvent{Kind: observe.Write, Path: observe.Path{"b"}})

	if len(c.send) != 1 {
		t.Errorf("buffered = %d, want 1", len(c.send))
	}
	families, _ := reg.Gather()
	for _, f := range families {
		if f.GetName() == "pathwatch_feed_dropped_total" {
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 1 {
				t.Errorf("dropped = %v, want 1", got)
			}
			return
		}
	}
	t.Error("pathwatch_feed_dropped_total not gathered")
}
