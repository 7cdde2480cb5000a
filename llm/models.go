package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Provider names an LLM vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Model describes a known model and its list price.
type Model struct {
	Provider    Provider `json:"provider"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ContextSize int      `json:"context_size"`
	InputCost   float64  `json:"input_cost"`  // USD per 1M input tokens
	OutputCost  float64  `json:"output_cost"` // USD per 1M output tokens
	ToolUse     bool     `json:"tool_use"`
}

const (
	ModelGPT4o          = "gpt-4o"
	ModelGPT4oMini      = "gpt-4o-mini"
	ModelGPT41          = "gpt-4.1"
	ModelGPT41Mini      = "gpt-4.1-mini"
	ModelClaude35Haiku  = "claude-3-5-haiku-latest"
	ModelClaude37Sonnet = "claude-3-7-sonnet-latest"
	ModelClaudeSonnet4  = "claude-sonnet-4-0"
)

// DefaultModels is the model each provider uses when none is configured.
var DefaultModels = map[Provider]string{
	ProviderOpenAI:    ModelGPT4oMini,
	ProviderAnthropic: ModelClaude35Haiku,
}

var catalog = map[string]Model{
	ModelGPT4o:          {ProviderOpenAI, ModelGPT4o, "GPT-4o", 128000, 2.5, 10, true},
	ModelGPT4oMini:      {ProviderOpenAI, ModelGPT4oMini, "GPT-4o mini", 128000, 0.15, 0.6, true},
	ModelGPT41:          {ProviderOpenAI, ModelGPT41, "GPT-4.1", 1047576, 2, 8, true},
	ModelGPT41Mini:      {ProviderOpenAI, ModelGPT41Mini, "GPT-4.1 mini", 1047576, 0.4, 1.6, true},
	ModelClaude35Haiku:  {ProviderAnthropic, ModelClaude35Haiku, "Claude 3.5 Haiku", 200000, 0.8, 4, true},
	ModelClaude37Sonnet: {ProviderAnthropic, ModelClaude37Sonnet, "Claude 3.7 Sonnet", 200000, 3, 15, true},
	ModelClaudeSonnet4:  {ProviderAnthropic, ModelClaudeSonnet4, "Claude Sonnet 4", 200000, 3, 15, true},
}

// GetModel returns catalog metadata for name.
func GetModel(name string) (Model, error) {
	m, ok := catalog[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown model: %s", name)
	}
	return m, nil
}

// Models lists the catalog sorted by provider then name.
func Models() []Model {
	out := make([]Model, 0, len(catalog))
	for _, m := range catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ProviderForModel resolves the vendor of a model name. Names missing from
// the catalog are matched by their family prefix.
func ProviderForModel(name string) (Provider, error) {
	if m, ok := catalog[name]; ok {
		return m.Provider, nil
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "o1"),
		strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return ProviderOpenAI, nil
	case strings.HasPrefix(lower, "claude"):
		return ProviderAnthropic, nil
	}
	return "", fmt.Errorf("cannot infer provider for model %q", name)
}

// EstimateCost prices a call; unknown models cost zero.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	m, ok := catalog[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*m.InputCost + float64(outputTokens)/1e6*m.OutputCost
}

func (m Model) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.DisplayName, m.Name, m.Provider)
}
