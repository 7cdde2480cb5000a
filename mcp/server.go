// Package mcp serves the greeting, arithmetic and song recommendation tools
// over the Model Context Protocol and lets agents call tools on any MCP
// server.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	obs "github.com/KamdynS/agentcrew/observability"
	"github.com/KamdynS/agentcrew/recommend"
)

const (
	ServerName    = "simple-mcp-server"
	ServerVersion = "0.1.0"

	// Path of the streamable HTTP endpoint.
	EndpointPath = "/mcp"
	InfoURI      = "demo://info"
)

const infoText = `Simple MCP Server

This is a demonstration MCP server with basic functionality:
- get_greeting: Returns a personalized greeting
- add_numbers: Adds two numbers together
- recommend_song: Recommends songs based on a free-text prompt

Built with mcp-go.`

// Server wraps the MCP server and its transports.
type Server struct {
	MCP    *server.MCPServer
	logger *log.Logger
}

// NewServer registers the tools and the info resource. A nil logger uses
// the default logger.
func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{logger: logger}
	s.MCP = server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.observe),
	)

	s.MCP.AddTool(mcp.NewTool("get_greeting",
		mcp.WithDescription("Returns a personalized greeting message"),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name to greet")),
	), greeting)

	s.MCP.AddTool(mcp.NewTool("add_numbers",
		mcp.WithDescription("Adds two numbers together"),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("First number")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Second number")),
	), addNumbers)

	s.MCP.AddTool(mcp.NewTool("recommend_song",
		mcp.WithDescription("Recommends songs based on a free-text prompt (mood, genre, vibe, era, etc.)"),
		mcp.WithString("prompt", mcp.Required(),
			mcp.Description("Describe what you want (e.g., 'chill night study music, indie/ambient')."),
		),
		mcp.WithNumber("limit", integer,
			mcp.Description("Max number of results (default 3)."),
			mcp.Min(1), mcp.Max(recommend.MaxLimit),
		),
	), recommendSong)

	s.MCP.AddResource(mcp.NewResource(InfoURI, "Server Information",
		mcp.WithResourceDescription("Information about this MCP server"),
		mcp.WithMIMEType("text/plain"),
	), readInfo)

	return s
}

func integer(schema map[string]any) { schema["type"] = "integer" }

func greeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "friend")
	return mcp.NewToolResultText(fmt.Sprintf("Hello, %s! Welcome to the MCP server.", name)), nil
}

func addNumbers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b := req.GetFloat("a", 0), req.GetFloat("b", 0)
	return mcp.NewToolResultText(fmt.Sprintf("The sum of %s and %s is %s", num(a), num(b), num(a+b))), nil
}

// num renders n in its shortest form: 3 rather than 3.000000.
func num(n float64) string { return strconv.FormatFloat(n, 'f', -1, 64) }

func recommendSong(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt := req.GetString("prompt", "")
	limit := int(req.GetFloat("limit", 0))
	return mcp.NewToolResultText(recommend.Reply(prompt, limit)), nil
}

func readInfo(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: InfoURI, MIMEType: "text/plain", Text: infoText},
	}, nil
}

// observe logs and meters every tool call.
func (s *Server) observe(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.Params.Name
		span, ctx := obs.TracerImpl.StartSpan(ctx, "mcp.tool")
		span.SetAttribute(obs.AttrToolName, name)
		defer span.End()

		labels := map[string]string{"component": "mcp", "name": name}
		obs.MetricsImpl.IncrementRequests(labels)
		start := time.Now()
		res, err := next(ctx, req)
		obs.MetricsImpl.RecordLatency(time.Since(start), labels)
		if err != nil || (res != nil && res.IsError) {
			obs.MetricsImpl.RecordError("tool_error", labels)
			span.SetStatus(obs.StatusCodeError, fmt.Sprint(err))
			s.logger.Warn("Tool call failed", "tool", name, "error", err)
			return res, err
		}
		span.SetStatus(obs.StatusCodeOk, "")
		s.logger.Debug("Tool call", "tool", name, "duration", time.Since(start).Round(time.Microsecond))
		return res, nil
	}
}

// ServeStdio serves on stdin/stdout until ctx is canceled or stdin closes.
// Logs must not go to stdout in this mode.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO speaks newline-delimited JSON-RPC over in and out.
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Serving MCP over stdio", "server", ServerName)
	err := server.NewStdioServer(s.MCP).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Handler returns the streamable HTTP handler mounted at EndpointPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, server.NewStreamableHTTPServer(s.MCP, server.WithEndpointPath(EndpointPath)))
	return mux
}

// ServeHTTP listens on addr and serves streamable HTTP at EndpointPath.
// It shuts down gracefully when ctx is canceled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Serving MCP over streamable HTTP", "addr", addr, "path", EndpointPath)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down MCP server")
		return srv.Shutdown(shutdownCtx)
	}
}
