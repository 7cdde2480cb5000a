package crew

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	core "github.com/KamdynS/agentcrew/agent/core"
	"github.com/KamdynS/agentcrew/agent/supervisor"
	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/memory"
	obs "github.com/KamdynS/agentcrew/observability"
	"github.com/KamdynS/agentcrew/tools"
	"github.com/KamdynS/agentcrew/tools/filewriter"
	"github.com/KamdynS/agentcrew/workflow"
)

// Process selects how tasks are scheduled.
type Process string

// Sequential runs tasks in declaration order, each seeing earlier outputs.
const Sequential Process = "sequential"

var (
	ErrNoTasks            = errors.New("crew has no tasks")
	ErrNoLLM              = errors.New("crew has no LLM client")
	ErrUnsupportedProcess = errors.New("unsupported process")
)

// Crew is a set of agents and the tasks they perform.
type Crew struct {
	Agents  []*Agent
	Tasks   []*Task
	Process Process
	Verbose bool

	LLM llm.Client
	// Memory, when set, keeps each agent's conversation under
	// "<run id>:<role>".
	Memory     memory.Transcript
	Middleware []core.Middleware
	Logger     *log.Logger
	// OutputDir is where Task.OutputFile is written. Empty means ".".
	OutputDir string
	// OnDelta, when set, receives the last task's answer as the model
	// streams it.
	OnDelta func(task, delta string)
}

// Result is the outcome of a kickoff. Raw is the last task's output.
type Result struct {
	ID       string        `json:"id"`
	Raw      string        `json:"raw"`
	Tasks    []TaskOutput  `json:"tasks"`
	Duration time.Duration `json:"duration"`
}

func (r *Result) String() string { return r.Raw }

// Validate checks the crew can be kicked off.
func (c *Crew) Validate() error {
	if len(c.Tasks) == 0 {
		return ErrNoTasks
	}
	if c.Process != "" && c.Process != Sequential {
		return fmt.Errorf("%w: %s", ErrUnsupportedProcess, c.Process)
	}
	for i, t := range c.Tasks {
		if t.Agent == nil {
			return fmt.Errorf("task %s has no agent", taskName(t, i))
		}
	}
	return nil
}

func taskName(t *Task, i int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("task_%d", i+1)
}

// agents returns the crew members, including task agents missing from Agents.
func (c *Crew) agents() []*Agent {
	seen := make(map[*Agent]bool)
	var out []*Agent
	for _, a := range c.Agents {
		if a != nil && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, t := range c.Tasks {
		if t.Agent != nil && !seen[t.Agent] {
			seen[t.Agent] = true
			out = append(out, t.Agent)
		}
	}
	return out
}

func (c *Crew) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// build creates a runnable agent per crew member. Delegating members get
// a delegate_to_<role> tool for every other member.
func (c *Crew) build(runID string) map[*Agent]*core.ChatAgent {
	members := c.agents()
	built := make(map[*Agent]*core.ChatAgent, len(members))
	for _, a := range members {
		mw := append([]core.Middleware(nil), c.Middleware...)
		if c.Verbose || a.Verbose {
			mw = append(mw, &StepLogger{Logger: c.logger(), Role: a.Role})
		}
		built[a] = core.NewChatAgent(core.ChatConfig{
			Model:      c.LLM,
			Tools:      tools.NewRegistry(a.Tools...),
			Transcript: c.Memory,
			Middleware: mw,
			Processors: []core.HistoryProcessor{core.ToolCallFilter{}},
			Config: core.AgentConfig{
				Name:          a.Role,
				MaxIterations: a.MaxIter,
				SystemPrompt:  a.SystemPrompt(),
				Model:         a.Model,
				Session:       runID + ":" + a.Role,
			},
		})
	}
	for _, a := range members {
		if !a.AllowDelegation {
			continue
		}
		for _, other := range members {
			if other == a {
				continue
			}
			if err := built[a].Tools.Register(supervisor.NewAgentTool(other.Role, built[other])); err != nil {
				c.logger().Warn("Delegation tool not registered", "agent", a.Role, "to", other.Role, "error", err)
			}
		}
	}
	return built
}

func (c *Crew) workflow(runID string, built map[*Agent]*core.ChatAgent) (*workflow.Workflow, error) {
	b := workflow.New("crew-" + runID)
	last := len(c.Tasks) - 1
	for i, t := range c.Tasks {
		name := taskName(t, i)
		stream := i == last && c.OnDelta != nil
		b.Step(name, func(ctx context.Context, in any) (any, error) {
			prior, _ := in.([]TaskOutput)
			out, err := c.runTask(ctx, name, t, built[t.Agent], prior, stream)
			if err != nil {
				return nil, err
			}
			return append(append([]TaskOutput(nil), prior...), out), nil
		})
		if t.Condition != nil {
			cond := t.Condition
			b.When(func(ctx context.Context, _ any, prev any) bool {
				prior, _ := prev.([]TaskOutput)
				return cond(prior)
			})
		}
	}
	return b.Build()
}

func (c *Crew) runTask(ctx context.Context, name string, t *Task, agent *core.ChatAgent, prior []TaskOutput, stream bool) (TaskOutput, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "crew.task")
	span.SetAttribute(obs.AttrTaskName, name)
	span.SetAttribute(obs.AttrAgentRole, t.Agent.Role)
	defer span.End()

	start := time.Now()
	input := core.Message{Role: llm.RoleUser, Content: t.Prompt(t.contextFor(prior))}
	var (
		msg core.Message
		err error
	)
	if stream {
		msg, err = c.streamTask(ctx, name, agent, input)
	} else {
		msg, err = agent.Run(ctx, input)
	}
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return TaskOutput{}, err
	}
	out := TaskOutput{
		Task:     name,
		Agent:    t.Agent.Role,
		Raw:      msg.Content,
		Duration: time.Since(start),
		task:     t,
	}
	if t.OutputFile != "" {
		dir := c.OutputDir
		if dir == "" {
			dir = "."
		}
		out.File = filepath.Join(dir, t.OutputFile)
		if err := filewriter.Write(out.File, out.Raw, true); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return TaskOutput{}, fmt.Errorf("save %s: %w", t.OutputFile, err)
		}
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return out, nil
}

// streamTask runs agent through RunStream, passing each delta to OnDelta
// and returning the final message.
func (c *Crew) streamTask(ctx context.Context, name string, agent *core.ChatAgent, input core.Message) (core.Message, error) {
	out := make(chan core.Message)
	errc := make(chan error, 1)
	go func() { errc <- agent.RunStream(ctx, input, out) }()

	var final core.Message
	for m := range out {
		if m.Meta["final"] == "true" {
			final = m
			continue
		}
		c.OnDelta(name, m.Content)
	}
	if err := <-errc; err != nil {
		return core.Message{}, err
	}
	return final, nil
}

// Kickoff runs every task in order and returns the final output.
func (c *Crew) Kickoff(ctx context.Context) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.LLM == nil {
		return nil, ErrNoLLM
	}

	runID := uuid.NewString()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "crew.kickoff")
	span.SetAttribute(obs.AttrRequestID, runID)
	defer span.End()

	built := c.build(runID)
	defer c.forget(context.WithoutCancel(ctx), runID, built)
	wf, err := c.workflow(runID, built)
	if err != nil {
		return nil, err
	}

	logger := c.logger().With("run", runID[:8])
	events := make(chan workflow.Event, 2*len(c.Tasks)+1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range events {
			if c.Verbose {
				logEvent(logger, e)
			}
		}
	}()

	last := len(c.Tasks) - 1
	labels := map[string]string{"component": "crew", "name": taskName(c.Tasks[last], last)}
	obs.MetricsImpl.IncrementRequests(labels)
	start := time.Now()
	out, err := wf.Run(ctx, []TaskOutput(nil), workflow.WithBlockingEvents(events))
	close(events)
	wg.Wait()
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		obs.MetricsImpl.RecordError("crew_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}

	outputs, _ := out.([]TaskOutput)
	res := &Result{ID: runID, Tasks: outputs, Duration: time.Since(start)}
	if n := len(outputs); n > 0 {
		res.Raw = outputs[n-1].Raw
	}
	if c.Verbose {
		logger.Info("Crew finished", "tasks", len(outputs), "duration", res.Duration.Round(time.Millisecond))
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return res, nil
}

// forget drops the run's transcripts once the kickoff is over.
func (c *Crew) forget(ctx context.Context, runID string, built map[*Agent]*core.ChatAgent) {
	if c.Memory == nil {
		return
	}
	for a := range built {
		session := runID + ":" + a.Role
		if err := c.Memory.Reset(ctx, session); err != nil {
			c.logger().Warn("Failed to reset transcript", "session", session, "error", err)
		}
	}
}

func logEvent(logger *log.Logger, e workflow.Event) {
	switch e.Type {
	case workflow.EventStart:
		logger.Info("Task started", "task", e.Step)
	case workflow.EventEnd:
		logger.Info("Task completed", "task", e.Step, "duration", e.Duration.Round(time.Millisecond))
	case workflow.EventSkip:
		logger.Info("Task skipped", "task", e.Step)
	case workflow.EventError:
		logger.Error("Task failed", "task", e.Step, "error", e.Error)
	}
}

// Mermaid renders the task flow as a Mermaid flowchart, labelling each
// task with the agent that performs it.
func (c *Crew) Mermaid() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	wf, err := c.workflow("plan", nil)
	if err != nil {
		return "", err
	}
	labels := make(map[string]string, len(c.Tasks))
	for i, t := range c.Tasks {
		name := taskName(t, i)
		labels[name] = name + "<br/>" + t.Agent.Role
	}
	return wf.MermaidFlowchart(workflow.WithNodeLabels(labels), workflow.WithConditionIndicators(true)), nil
}
