// Package http exposes the crew dispatcher as a small chat bridge: plain
// and streaming chat endpoints, health and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/agentcrew/dispatch"
	obs "github.com/KamdynS/agentcrew/observability"
)

// Dispatcher turns an inbound message into reply text. dispatch.Handler
// implements it.
type Dispatcher interface {
	Handle(ctx context.Context, msg string) string
}

// StreamDispatcher is a Dispatcher that can report the answer as it is
// generated.
type StreamDispatcher interface {
	Dispatcher
	HandleStream(ctx context.Context, msg string, onDelta func(string)) string
}

var _ StreamDispatcher = (*dispatch.Handler)(nil)

// Server wraps a dispatcher with HTTP endpoints
type Server struct {
	dispatcher Dispatcher
	config     Config
	logger     *log.Logger
	server     *http.Server
}

// Config holds HTTP server configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
	// KeepAlive is the SSE comment interval while a crew is running.
	KeepAlive time.Duration

	// TLS is used when DomainName is not localhost and both files are set.
	DomainName string
	CertFile   string
	KeyFile    string

	AgentID string
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Logger  *log.Logger
}

const localhost = "localhost"

// NewServer creates a new HTTP server for a dispatcher
func NewServer(d Dispatcher, config Config) *Server {
	if config.Port == 0 {
		config.Port = 6000
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		// crews make several model calls per request
		config.WriteTimeout = 5 * time.Minute
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = 15 * time.Second
	}
	if config.DomainName == "" {
		config.DomainName = localhost
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		dispatcher: d,
		config:     config,
		logger:     logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	var handler http.Handler = mux
	if config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}
	handler = s.observe(handler)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}

	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/chat/stream", s.streamHandler)
	if s.config.Metrics != nil {
		mux.Handle("/metrics", s.config.Metrics)
	}
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse represents a chat response
type ChatResponse struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// healthHandler provides a health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}
	if s.config.AgentID != "" {
		body["agent_id"] = s.config.AgentID
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func meta(req ChatRequest) map[string]string {
	return map[string]string{"mode": string(dispatch.Parse(req.Message).Mode)}
}

// chatHandler runs the crew selected by the message. An empty message runs
// the demo crew. Crew failures come back as reply text with status 200.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	reply := s.dispatcher.Handle(r.Context(), req.Message)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatResponse{
		Message:   reply,
		SessionID: req.SessionID,
		Meta:      meta(req),
	})
}

// streamHandler reports progress as server-sent events: "start", a
// "delta" per answer chunk when the dispatcher streams, the full reply as
// "message", then "done". Comment lines keep the connection open while the
// crew works.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	m := meta(req)
	writeEvent(w, "start", ChatResponse{SessionID: req.SessionID, Meta: m})
	flusher.Flush()

	ctx := r.Context()
	done := make(chan string, 1)
	deltas := make(chan string)
	go func() {
		sd, ok := s.dispatcher.(StreamDispatcher)
		if !ok {
			done <- s.dispatcher.Handle(ctx, req.Message)
			return
		}
		done <- sd.HandleStream(ctx, req.Message, func(d string) {
			select {
			case deltas <- d:
			case <-ctx.Done():
			}
		})
	}()

	ticker := time.NewTicker(s.config.KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case d := <-deltas:
			writeEvent(w, "delta", ChatResponse{Message: d, SessionID: req.SessionID})
			flusher.Flush()
		case reply := <-done:
			writeEvent(w, "message", ChatResponse{Message: reply, SessionID: req.SessionID, Meta: m})
			fmt.Fprint(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			fmt.Fprint(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ChatResponse{Error: message})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// observe tags each request with an X-Request-ID and records a span and
// metrics per route.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := obs.ExtractHTTPContext(r.Context(), r)
		obs.InjectHTTPHeaders(w, ctx)
		span, ctx := obs.TracerImpl.StartSpan(ctx, "http.request")
		defer span.End()
		span.SetAttribute(obs.AttrHTTPRoute, r.URL.Path)
		if id, ok := obs.RequestIDFromContext(ctx); ok {
			span.SetAttribute(obs.AttrRequestID, id)
		}

		labels := map[string]string{"component": "http", "name": r.URL.Path}
		obs.MetricsImpl.IncrementRequests(labels)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		obs.MetricsImpl.RecordLatency(time.Since(start), labels)

		span.SetAttribute(obs.AttrHTTPStatus, rec.status)
		if rec.status >= 500 {
			obs.MetricsImpl.RecordError("http_error", labels)
			span.SetStatus(obs.StatusCodeError, http.StatusText(rec.status))
		} else {
			span.SetStatus(obs.StatusCodeOk, "")
		}
		s.logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// TLS reports whether ListenAndServe will serve HTTPS.
func (s *Server) TLS() bool {
	return !s.local() && s.config.CertFile != "" && s.config.KeyFile != ""
}

// plainFallback reports whether a public domain is served without TLS.
func (s *Server) plainFallback() bool { return !s.local() && !s.TLS() }

func (s *Server) local() bool { return s.config.DomainName == localhost }

// ListenAndServe starts the HTTP server. It serves HTTPS when TLS reports
// true and falls back to plain HTTP, with a warning, when a public domain
// is configured without certificates.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		var err error
		switch {
		case s.TLS():
			s.logger.Info("HTTPS server starting", "port", s.config.Port, "domain", s.config.DomainName)
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		default:
			if s.plainFallback() {
				s.logger.Warn("DOMAIN_NAME set but CERT_FILE/KEY_FILE missing; starting HTTP dev server instead")
			}
			s.logger.Info("HTTP server starting", "port", s.config.Port)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
