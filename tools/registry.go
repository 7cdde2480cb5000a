package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	obs "github.com/KamdynS/agentcrew/observability"
)

// Tool is a capability an agent may invoke. Input is the raw JSON argument
// object produced by the model.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input string) (string, error)
	// Schema is the JSON schema of the argument object.
	Schema() map[string]interface{}
}

// Registry holds the tools available to one agent.
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	// List returns tool names in sorted order.
	List() []string
	Execute(ctx context.Context, name string, input string) (string, error)
}

// DefaultRegistry is a concurrency-safe in-memory Registry.
type DefaultRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *DefaultRegistry {
	r := &DefaultRegistry{tools: make(map[string]Tool)}
	for _, t := range tools {
		_ = r.Register(t)
	}
	return r
}

func (r *DefaultRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

func (r *DefaultRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute runs a tool inside a span and records latency and failures.
func (r *DefaultRegistry) Execute(ctx context.Context, name string, input string) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("tool %s not found", name)
	}

	start := time.Now()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	span.SetAttribute(obs.AttrToolName, name)
	defer span.End()

	out, err := tool.Execute(ctx, input)
	labels := map[string]string{"component": "tool", "name": name}
	obs.MetricsImpl.IncrementRequests(labels)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		obs.MetricsImpl.RecordError("tool_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return "", err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return out, nil
}

// DecodeArgs unmarshals a tool argument object into v. A bare non-JSON
// string is accepted for single-field tools and stored under fallbackKey.
func DecodeArgs(input string, v interface{}, fallbackKey string) error {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), v); err != nil {
			return fmt.Errorf("invalid tool arguments: %w", err)
		}
		return nil
	}
	if fallbackKey == "" {
		return fmt.Errorf("tool arguments must be a JSON object")
	}
	b, _ := json.Marshal(map[string]string{fallbackKey: trimmed})
	return json.Unmarshal(b, v)
}

// ObjectSchema builds a JSON schema for an object with string properties.
func ObjectSchema(required []string, props map[string]string) map[string]interface{} {
	p := make(map[string]interface{}, len(props))
	for name, desc := range props {
		p[name] = map[string]interface{}{"type": "string", "description": desc}
	}
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{"type": "object", "properties": p, "required": required}
}
