package crew

import (
	"strings"
	"time"
)

// Task is one unit of work assigned to an agent.
type Task struct {
	// Name identifies the task in events, logs and diagrams.
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	// OutputFile, when set, receives the raw output relative to the crew's
	// output directory.
	OutputFile string
	// Context limits the prior outputs shown to this task. Nil means every
	// earlier task in the crew.
	Context []*Task
	// Condition, when set, decides from earlier outputs whether the task runs.
	Condition func(prior []TaskOutput) bool
}

// TaskOutput is the result of one task.
type TaskOutput struct {
	Task     string        `json:"task"`
	Agent    string        `json:"agent"`
	Raw      string        `json:"raw"`
	File     string        `json:"file,omitempty"`
	Duration time.Duration `json:"duration"`

	task *Task
}

const contextSeparator = "\n\n----------\n\n"

// Prompt renders the user turn sent to the agent: the description, the
// expected output and any context from earlier tasks.
func (t *Task) Prompt(context []TaskOutput) string {
	var b strings.Builder
	b.WriteString(t.Description)
	if t.ExpectedOutput != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(t.ExpectedOutput)
		b.WriteString("\nyou MUST return the actual complete content as the final answer, not a summary.")
	}
	if len(context) > 0 {
		raws := make([]string, len(context))
		for i, c := range context {
			raws[i] = c.Raw
		}
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(strings.Join(raws, contextSeparator))
	}
	return b.String()
}

// contextFor picks the outputs this task may see.
func (t *Task) contextFor(prior []TaskOutput) []TaskOutput {
	if t.Context == nil {
		return prior
	}
	var out []TaskOutput
	for _, want := range t.Context {
		for _, p := range prior {
			if p.task == want {
				out = append(out, p)
			}
		}
	}
	return out
}
