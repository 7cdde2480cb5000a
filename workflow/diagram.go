package workflow

import (
	"fmt"
	"strings"
)

// MermaidOption configures Mermaid rendering.
type MermaidOption func(*mermaidConfig)

type mermaidConfig struct {
	direction               string // TD, LR, BT, RL
	showConditionIndicators bool
	labels                  map[string]string
}

// WithDirection sets graph direction (e.g., "TD", "LR").
func WithDirection(dir string) MermaidOption {
	return func(c *mermaidConfig) {
		dir = strings.TrimSpace(strings.ToUpper(dir))
		switch dir {
		case "TD", "LR", "BT", "RL":
			c.direction = dir
		}
	}
}

// WithConditionIndicators labels edges into conditional steps with "when".
func WithConditionIndicators(enabled bool) MermaidOption {
	return func(c *mermaidConfig) { c.showConditionIndicators = enabled }
}

// WithNodeLabels replaces step names with display labels, e.g. the task
// name plus the agent role.
func WithNodeLabels(labels map[string]string) MermaidOption {
	return func(c *mermaidConfig) { c.labels = labels }
}

// MermaidFlowchart renders the workflow as a Mermaid flowchart definition.
// The output starts with `graph TD` by default.
func (w *Workflow) MermaidFlowchart(opts ...MermaidOption) string {
	cfg := mermaidConfig{direction: "TD"}
	for _, o := range opts {
		o(&cfg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", cfg.direction)
	if w == nil {
		return b.String()
	}
	for i, s := range w.steps {
		label := s.name
		if l, ok := cfg.labels[s.name]; ok {
			label = l
		}
		label = strings.ReplaceAll(label, "\"", "#quot;")
		fmt.Fprintf(&b, "n%d[\"%s\"]\n", i+1, label)
	}
	for i := 1; i < len(w.steps); i++ {
		if cfg.showConditionIndicators && w.steps[i].precond != nil {
			fmt.Fprintf(&b, "n%d -->|when| n%d\n", i, i+1)
			continue
		}
		fmt.Fprintf(&b, "n%d --> n%d\n", i, i+1)
	}
	return b.String()
}
