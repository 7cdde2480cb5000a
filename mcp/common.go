package mcp

import "context"

// ClientLike is the part of an MCP client the tool proxies need.
type ClientLike interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
	// ExecuteTool calls name with a JSON argument object.
	ExecuteTool(ctx context.Context, name string, input string) (string, error)
}

// ToolInfo describes a remote tool.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}
