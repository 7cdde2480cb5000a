package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/KamdynS/agentcrew/tools"
)

// ClientName identifies this module to MCP servers.
const ClientName = "agentcrew"

// Client is an initialized MCP session.
type Client struct {
	c *mcpclient.Client
}

// NewInProcessClient connects to srv without a transport.
func NewInProcessClient(ctx context.Context, srv *server.MCPServer) (*Client, error) {
	c, err := mcpclient.NewInProcessClient(srv)
	if err != nil {
		return nil, err
	}
	return start(ctx, c)
}

// NewHTTPClient connects to a streamable HTTP endpoint, e.g.
// http://localhost:8080/mcp.
func NewHTTPClient(ctx context.Context, url string) (*Client, error) {
	c, err := mcpclient.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("mcp client %s: %w", url, err)
	}
	return start(ctx, c)
}

// NewStdioClient launches command and talks to it over stdio.
func NewStdioClient(ctx context.Context, command string, env []string, args ...string) (*Client, error) {
	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp client %s: %w", command, err)
	}
	cl := &Client{c: c}
	if err := cl.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return cl, nil
}

// StdioScheme prefixes a Dial target that launches a local server, e.g.
// "stdio:crewdemo mcp".
const StdioScheme = "stdio:"

// Dial connects to target: a streamable HTTP URL, or StdioScheme followed
// by a command line run with extra environment env.
func Dial(ctx context.Context, target string, env ...string) (*Client, error) {
	target = strings.TrimSpace(target)
	switch {
	case strings.HasPrefix(target, StdioScheme):
		argv := strings.Fields(strings.TrimPrefix(target, StdioScheme))
		if len(argv) == 0 {
			return nil, fmt.Errorf("mcp target %q has no command", target)
		}
		return NewStdioClient(ctx, argv[0], env, argv[1:]...)
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return NewHTTPClient(ctx, target)
	}
	return nil, fmt.Errorf("mcp target %q: want an http(s) URL or %s<command>", target, StdioScheme)
}

func start(ctx context.Context, c *mcpclient.Client) (*Client, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp start: %w", err)
	}
	cl := &Client{c: c}
	if err := cl.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return cl, nil
}

func (c *Client) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: ServerVersion}
	req.Params.Capabilities = mcp.ClientCapabilities{}
	if _, err := c.c.Initialize(ctx, req); err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}
	return nil
}

func (c *Client) Close() error { return c.c.Close() }

// ListTools fetches tool metadata from the server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	res, err := c.c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	out := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := schemaMap(t)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		out = append(out, ToolInfo{Name: t.Name, Description: t.Description, Schema: schema})
	}
	return out, nil
}

func schemaMap(t mcp.Tool) (map[string]interface{}, error) {
	var raw []byte
	var err error
	if len(t.RawInputSchema) > 0 {
		raw = t.RawInputSchema
	} else if raw, err = json.Marshal(t.InputSchema); err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ExecuteTool calls a tool. input is a JSON object; any other text is sent
// as {"input": text}. A tool-level error result is returned as an error.
func (c *Client) ExecuteTool(ctx context.Context, name string, input string) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments(input)
	res, err := c.c.CallTool(ctx, req)
	if err != nil {
		return "", err
	}
	text := Text(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

func arguments(input string) map[string]any {
	args := map[string]any{}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return args
	}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return map[string]any{"input": input}
	}
	return args
}

// Text joins the text parts of a result.
func Text(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ReadResource returns the text of a resource.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	res, err := c.c.ReadResource(ctx, req)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, rc := range res.Contents {
		if t, ok := mcp.AsTextResourceContents(rc); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

var (
	_ ClientLike = (*Client)(nil)
	_ tools.Tool = (*mcpToolProxy)(nil)
)
