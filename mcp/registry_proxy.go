package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/KamdynS/agentcrew/tools"
)

// CallTimeout bounds one proxied tool call.
var CallTimeout = 30 * time.Second

// ProxyTools wraps every tool the server lists as a tools.Tool.
func ProxyTools(ctx context.Context, client ClientLike) ([]tools.Tool, error) {
	if client == nil {
		return nil, fmt.Errorf("nil client")
	}
	list, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mcp tools: %w", err)
	}
	out := make([]tools.Tool, 0, len(list))
	for _, t := range list {
		out = append(out, &mcpToolProxy{client: client, name: t.Name, desc: t.Description, schema: t.Schema})
	}
	return out, nil
}

// RegisterAllTools fetches tools from the MCP server and registers proxy tools into the local registry.
func RegisterAllTools(ctx context.Context, reg tools.Registry, client ClientLike) error {
	if reg == nil || client == nil {
		return fmt.Errorf("nil registry or client")
	}
	proxies, err := ProxyTools(ctx, client)
	if err != nil {
		return err
	}
	for _, p := range proxies {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

type mcpToolProxy struct {
	client ClientLike
	name   string
	desc   string
	schema map[string]interface{}
}

func (m *mcpToolProxy) Name() string        { return m.name }
func (m *mcpToolProxy) Description() string { return m.desc }
func (m *mcpToolProxy) Schema() map[string]interface{} {
	if m.schema == nil {
		return tools.ObjectSchema(nil, nil)
	}
	return m.schema
}
func (m *mcpToolProxy) Execute(ctx context.Context, input string) (string, error) {
	c, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()
	return m.client.ExecuteTool(c, m.name, input)
}
