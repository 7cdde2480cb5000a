// Package agentcrew is a small crew-of-agents toolkit and demo: a
// summarizer and a Q&A agent run as sequential tasks, a mode dispatcher
// routes inbound messages to them, and an MCP tool server exposes a
// keyword song recommender.
//
// Importers depend on the subpackages directly, for example:
//
//	import (
//	  "github.com/KamdynS/agentcrew/crew"
//	  "github.com/KamdynS/agentcrew/dispatch"
//	  "github.com/KamdynS/agentcrew/mcp"
//	)
//
// The binary lives in cmd/crewdemo.
package agentcrew
