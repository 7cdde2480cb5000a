package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracer starts spans around crew, task and tool execution.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (Span, context.Context)
}

// Span is a single timed operation.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(code StatusCode, message string)
	AddEvent(name string, attributes map[string]interface{})
	End()
}

type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOk
	StatusCodeError
)

const (
	AttrHTTPRoute   = "http.route"
	AttrHTTPStatus  = "http.status_code"
	AttrRequestID   = "request.id"
	AttrProvider    = "genai.provider"
	AttrModel       = "genai.model"
	AttrToolName    = "genai.tool.name"
	AttrAgentRole   = "crew.agent.role"
	AttrTaskName    = "crew.task.name"
	AttrMode        = "crew.mode"
	AttrTokensTotal = "genai.tokens.total"
)

// Global, swappable implementations (no-ops by default).
var (
	TracerImpl  Tracer  = NoOpTracer{}
	MetricsImpl Metrics = NoOpMetrics{}
)

func SetTracer(t Tracer)   { TracerImpl = t }
func SetMetrics(m Metrics) { MetricsImpl = m }

type NoOpTracer struct{}

func (NoOpTracer) StartSpan(ctx context.Context, _ string) (Span, context.Context) {
	return NoOpSpan{}, ctx
}

type NoOpSpan struct{}

func (NoOpSpan) SetAttribute(string, interface{})        {}
func (NoOpSpan) SetStatus(StatusCode, string)            {}
func (NoOpSpan) AddEvent(string, map[string]interface{}) {}
func (NoOpSpan) End()                                    {}

// SpanData is a finished span kept by RecordingTracer.
type SpanData struct {
	Name       string                 `json:"name"`
	Start      time.Time              `json:"start"`
	Duration   time.Duration          `json:"duration"`
	Status     StatusCode             `json:"status"`
	Message    string                 `json:"message,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Events     []string               `json:"events,omitempty"`
}

// RecordingTracer keeps finished spans in memory; used by verbose runs and
// tests.
type RecordingTracer struct {
	mu    sync.Mutex
	spans []SpanData
}

func NewRecordingTracer() *RecordingTracer { return &RecordingTracer{} }

func (t *RecordingTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	return &recordingSpan{tracer: t, data: SpanData{Name: name, Start: time.Now(), Attributes: map[string]interface{}{}}}, ctx
}

// Spans returns finished spans in completion order.
func (t *RecordingTracer) Spans() []SpanData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanData(nil), t.spans...)
}

type recordingSpan struct {
	mu     sync.Mutex
	tracer *RecordingTracer
	data   SpanData
	ended  bool
}

func (s *recordingSpan) SetAttribute(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.data.Attributes[key] = value
	}
}

func (s *recordingSpan) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.data.Status, s.data.Message = code, message
	}
}

func (s *recordingSpan) AddEvent(name string, _ map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.data.Events = append(s.data.Events, name)
	}
}

func (s *recordingSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.data.Duration = time.Since(s.data.Start)
	data := s.data
	s.mu.Unlock()

	s.tracer.mu.Lock()
	s.tracer.spans = append(s.tracer.spans, data)
	s.tracer.mu.Unlock()
}

var (
	_ Tracer = NoOpTracer{}
	_ Tracer = (*RecordingTracer)(nil)
)

const headerRequestID = "X-Request-ID"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ExtractHTTPContext reuses the caller's X-Request-ID or mints a new one.
func ExtractHTTPContext(ctx context.Context, r *http.Request) context.Context {
	id := r.Header.Get(headerRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	return WithRequestID(ctx, id)
}

// InjectHTTPHeaders echoes the request id on the response.
func InjectHTTPHeaders(w http.ResponseWriter, ctx context.Context) {
	if id, ok := RequestIDFromContext(ctx); ok {
		w.Header().Set(headerRequestID, id)
	}
}
