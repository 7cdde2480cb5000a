package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	obs "github.com/KamdynS/agentcrew/observability"
)

// mockDispatcher records messages and replies with a fixed text.
type mockDispatcher struct {
	mu    sync.Mutex
	calls []string
	reply string
	delay time.Duration
}

func (m *mockDispatcher) Handle(ctx context.Context, msg string) string {
	m.mu.Lock()
	m.calls = append(m.calls, msg)
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "Error running crew: " + ctx.Err().Error()
		}
	}
	return m.reply
}

func (m *mockDispatcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func newTestServer(d Dispatcher, cfg Config) *Server {
	cfg.Logger = log.New(io.Discard)
	return NewServer(d, cfg)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewServer_DefaultConfig(t *testing.T) {
	s := newTestServer(&mockDispatcher{}, Config{})
	if s.config.Port != 6000 || s.server.Addr != ":6000" {
		t.Fatalf("addr = %q", s.server.Addr)
	}
	if s.config.ReadTimeout != 10*time.Second || s.config.WriteTimeout != 5*time.Minute {
		t.Fatalf("timeouts = %v/%v", s.config.ReadTimeout, s.config.WriteTimeout)
	}
	if s.config.DomainName != "localhost" || s.TLS() {
		t.Fatalf("domain = %q tls=%v", s.config.DomainName, s.TLS())
	}
}

func TestServer_TLS(t *testing.T) {
	cases := []struct {
		cfg  Config
		want bool
	}{
		{Config{DomainName: "example.com", CertFile: "c", KeyFile: "k"}, true},
		{Config{DomainName: "example.com", CertFile: "c"}, false},
		{Config{DomainName: "localhost", CertFile: "c", KeyFile: "k"}, false},
		{Config{DomainName: "LOCALHOST", CertFile: "c", KeyFile: "k"}, true},
	}
	for _, tc := range cases {
		if got := newTestServer(&mockDispatcher{}, tc.cfg).TLS(); got != tc.want {
			t.Fatalf("TLS(%+v) = %v", tc.cfg, got)
		}
	}
}

func TestServer_PlainFallbackMatchesTLS(t *testing.T) {
	cases := []struct {
		domain string
		want   bool
	}{
		{"localhost", false},
		{"", false},
		{"LOCALHOST", true},
		{"example.com", true},
	}
	for _, tc := range cases {
		if got := newTestServer(&mockDispatcher{}, Config{DomainName: tc.domain}).plainFallback(); got != tc.want {
			t.Fatalf("plainFallback(%q) = %v", tc.domain, got)
		}
	}
}

func TestServer_HealthHandler(t *testing.T) {
	s := newTestServer(&mockDispatcher{}, Config{AgentID: "agent-1"})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["agent_id"] != "agent-1" {
		t.Fatalf("body = %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestServer_ChatHandler_Success(t *testing.T) {
	d := &mockDispatcher{reply: "- bullet"}
	s := newTestServer(d, Config{})
	w := post(t, s.Handler(), "/chat", ChatRequest{Message: "summarize: text", SessionID: "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "- bullet" || resp.SessionID != "s1" || resp.Meta["mode"] != "summarize" {
		t.Fatalf("resp = %+v", resp)
	}
	if calls := d.Calls(); len(calls) != 1 || calls[0] != "summarize: text" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestServer_ChatHandler_EmptyMessageRunsDemo(t *testing.T) {
	d := &mockDispatcher{reply: "demo"}
	s := newTestServer(d, Config{})
	w := post(t, s.Handler(), "/chat", ChatRequest{})
	var resp ChatResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Message != "demo" || resp.Meta["mode"] != "demo" {
		t.Fatalf("code=%d resp=%+v", w.Code, resp)
	}
}

func TestServer_ChatHandler_BadRequests(t *testing.T) {
	s := newTestServer(&mockDispatcher{}, Config{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", w.Code)
	}

	w = post(t, s.Handler(), "/chat", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", w.Code)
	}
	var resp ChatResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Invalid JSON" {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestServer_StreamHandler(t *testing.T) {
	d := &mockDispatcher{reply: "answer", delay: 30 * time.Millisecond}
	s := newTestServer(d, Config{KeepAlive: 5 * time.Millisecond})
	w := post(t, s.Handler(), "/chat/stream", ChatRequest{Message: "qa: why?"})
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	start := strings.Index(body, "event: start")
	msg := strings.Index(body, "event: message")
	done := strings.Index(body, "event: done")
	if start < 0 || msg < start || done < msg {
		t.Fatalf("events out of order:\n%s", body)
	}
	if !strings.Contains(body, `"message":"answer"`) || !strings.Contains(body, `"mode":"qa"`) {
		t.Fatalf("body = %s", body)
	}
	if !strings.Contains(body, ": keep-alive") {
		t.Fatalf("no keep-alive comment in %s", body)
	}
}

// streamingDispatcher emits its reply one word at a time.
type streamingDispatcher struct{ mockDispatcher }

func (m *streamingDispatcher) HandleStream(ctx context.Context, msg string, onDelta func(string)) string {
	for _, w := range strings.SplitAfter(m.reply, " ") {
		onDelta(w)
	}
	return m.Handle(ctx, msg)
}

func TestServer_StreamHandler_Deltas(t *testing.T) {
	d := &streamingDispatcher{mockDispatcher{reply: "the full answer"}}
	s := newTestServer(d, Config{})
	body := post(t, s.Handler(), "/chat/stream", ChatRequest{Message: "qa: why?", SessionID: "s1"}).Body.String()
	if n := strings.Count(body, "event: delta"); n != 3 {
		t.Fatalf("deltas = %d in\n%s", n, body)
	}
	first := strings.Index(body, `"message":"the "`)
	msg := strings.Index(body, "event: message")
	if first < 0 || msg < first {
		t.Fatalf("deltas must precede the message:\n%s", body)
	}
	if !strings.Contains(body, `"message":"the full answer"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestServer_StreamHandler_CancelSendsDone(t *testing.T) {
	d := &mockDispatcher{reply: "late", delay: time.Second}
	s := newTestServer(d, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"message":"hi"}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	body := w.Body.String()
	if !strings.Contains(body, "event: done") || strings.Contains(body, "event: message") {
		t.Fatalf("body = %s", body)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(&mockDispatcher{}, Config{Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "requests_total 1\n")
	})})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "requests_total") {
		t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	newTestServer(&mockDispatcher{}, Config{}).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics without exporter: %d", w.Code)
	}
}

func TestServer_CorsMiddleware(t *testing.T) {
	s := newTestServer(&mockDispatcher{}, Config{EnableCORS: true})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/chat", nil))
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("code=%d headers=%v", w.Code, w.Header())
	}
}

func TestObservability_SpanAndMetrics(t *testing.T) {
	tracer := obs.NewRecordingTracer()
	metrics := obs.NewCountingMetrics()
	obs.SetTracer(tracer)
	obs.SetMetrics(metrics)
	defer func() {
		obs.SetTracer(obs.NoOpTracer{})
		obs.SetMetrics(obs.NoOpMetrics{})
	}()

	s := newTestServer(&mockDispatcher{}, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if metrics.Snapshot().Requests == 0 {
		t.Error("expected requests counter to increment")
	}
	spans := tracer.Spans()
	if len(spans) == 0 || spans[0].Name != "http.request" || spans[0].Attributes[obs.AttrHTTPRoute] != "/health" {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestServer_ListenAndServe_Shutdown(t *testing.T) {
	s := newTestServer(&mockDispatcher{}, Config{Port: 0})
	s.server.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("ListenAndServe: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestResolveRegistryURL(t *testing.T) {
	dir := t.TempDir()
	if got := ResolveRegistryURL(dir, ""); got != DefaultRegistryURL {
		t.Fatalf("default = %q", got)
	}
	if got := ResolveRegistryURL(dir, " https://env.example "); got != "https://env.example" {
		t.Fatalf("env = %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, RegistryFile), []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ResolveRegistryURL(dir, "https://env.example"); got != "https://env.example" {
		t.Fatalf("blank file should be ignored, got %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, RegistryFile), []byte("https://file.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ResolveRegistryURL(dir, "https://env.example"); got != "https://file.example" {
		t.Fatalf("file = %q", got)
	}
}

func TestEnrollmentLink(t *testing.T) {
	got := EnrollmentLink("https://chat.nanda-registry.com/", "agent-42")
	if got != "https://chat.nanda-registry.com/landing.html?agentId=agent-42" {
		t.Fatalf("got %q", got)
	}
}

func TestAgentID(t *testing.T) {
	if got := AgentID(" fixed "); got != "fixed" {
		t.Fatalf("got %q", got)
	}
	a, b := AgentID(""), AgentID("")
	if !strings.HasPrefix(a, "agent-") || len(a) != len("agent-")+8 || a == b {
		t.Fatalf("generated %q, %q", a, b)
	}
}
