package crew

import (
	"strings"

	core "github.com/KamdynS/agentcrew/agent/core"
)

// Overrides customises the stock agents and tasks, usually from a YAML
// crew file. Agents are keyed "summarizer"/"answerer" and tasks
// "summarize"/"answer". Empty fields keep the defaults.
type Overrides struct {
	Agents     map[string]AgentSpec `yaml:"agents" json:"agents,omitempty"`
	Tasks      map[string]TaskSpec  `yaml:"tasks" json:"tasks,omitempty"`
	Guardrails *GuardrailSpec       `yaml:"guardrails" json:"guardrails,omitempty"`
}

type AgentSpec struct {
	Role            string `yaml:"role" json:"role,omitempty"`
	Goal            string `yaml:"goal" json:"goal,omitempty"`
	Backstory       string `yaml:"backstory" json:"backstory,omitempty"`
	Model           string `yaml:"model" json:"model,omitempty"`
	MaxIter         int    `yaml:"max_iter" json:"max_iter,omitempty"`
	AllowDelegation *bool  `yaml:"allow_delegation" json:"allow_delegation,omitempty"`
}

// TaskSpec overrides task text. Description may reference {text},
// {question} and {context}.
type TaskSpec struct {
	Description    string `yaml:"description" json:"description,omitempty"`
	ExpectedOutput string `yaml:"expected_output" json:"expected_output,omitempty"`
	OutputFile     string `yaml:"output_file" json:"output_file,omitempty"`
}

type GuardrailSpec struct {
	MaxInputChars int      `yaml:"max_input_chars" json:"max_input_chars,omitempty"`
	Deny          []string `yaml:"deny" json:"deny,omitempty"`
	Allow         []string `yaml:"allow" json:"allow,omitempty"`
}

func (o *Overrides) applyAgent(key string, a *Agent) {
	if o == nil {
		return
	}
	spec, ok := o.Agents[key]
	if !ok {
		return
	}
	set(&a.Role, spec.Role)
	set(&a.Goal, spec.Goal)
	set(&a.Backstory, spec.Backstory)
	set(&a.Model, spec.Model)
	if spec.MaxIter > 0 {
		a.MaxIter = spec.MaxIter
	}
	if spec.AllowDelegation != nil {
		a.AllowDelegation = *spec.AllowDelegation
	}
}

func (o *Overrides) applyTask(key string, t *Task, vars map[string]string) {
	if o == nil {
		return
	}
	spec, ok := o.Tasks[key]
	if !ok {
		return
	}
	set(&t.Description, interpolate(spec.Description, vars))
	set(&t.ExpectedOutput, interpolate(spec.ExpectedOutput, vars))
	set(&t.OutputFile, spec.OutputFile)
}

func (o *Overrides) guardrails() *core.SimpleGuardrails {
	if o == nil || o.Guardrails == nil {
		return nil
	}
	g := o.Guardrails
	return &core.SimpleGuardrails{
		MaxInputChars:   g.MaxInputChars,
		DenySubstrings:  g.Deny,
		AllowSubstrings: g.Allow,
	}
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// interpolate replaces {name} placeholders with vars.
func interpolate(s string, vars map[string]string) string {
	if s == "" || len(vars) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
