// Package workflow runs a linear chain of named steps, passing each step's
// output to the next, and reports progress as events.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	obs "github.com/KamdynS/agentcrew/observability"
)

// StepFunc is the function executed by a step. It receives the previous output and returns the next output.
type StepFunc func(ctx context.Context, input any) (any, error)

// ConditionFunc decides whether a step runs. It sees the workflow input and
// the output of the last step that ran.
type ConditionFunc func(ctx context.Context, input any, previousOutput any) bool

// Event types.
const (
	EventStart = "start_step"
	EventEnd   = "end_step"
	EventSkip  = "skip_step"
	EventError = "error"
)

// Event represents a single execution event for observability/streaming.
type Event struct {
	Type      string        `json:"type"`
	Step      string        `json:"step"`
	Status    string        `json:"status"` // "ok", "skipped" or "error"
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Option configures workflow runs.
type Option func(*runConfig)

type runConfig struct {
	events   chan<- Event
	blocking bool
}

// WithEvents streams events to the provided channel during Run. Events are
// dropped when the channel is full.
func WithEvents(events chan<- Event) Option { return func(rc *runConfig) { rc.events = events } }

// WithBlockingEvents is WithEvents but waits for the receiver instead of dropping.
func WithBlockingEvents(events chan<- Event) Option {
	return func(rc *runConfig) {
		rc.events = events
		rc.blocking = true
	}
}

type step struct {
	name    string
	fn      StepFunc
	precond ConditionFunc
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

var (
	ErrNoSteps       = errors.New("workflow has no steps")
	ErrDuplicateStep = errors.New("duplicate step name")
)

// Builder constructs a workflow using a fluent API.
type Builder struct {
	name  string
	steps []*step
	err   error
}

// New creates a workflow builder.
func New(name string) *Builder { return &Builder{name: name} }

// Step appends a step. Step names must be unique.
func (b *Builder) Step(name string, fn StepFunc) *Builder {
	for _, s := range b.steps {
		if s.name == name && b.err == nil {
			b.err = fmt.Errorf("%w: %s", ErrDuplicateStep, name)
		}
	}
	b.steps = append(b.steps, &step{name: name, fn: fn})
	return b
}

// Then is an alias for Step.
func (b *Builder) Then(name string, fn StepFunc) *Builder { return b.Step(name, fn) }

// When sets the precondition of the most recently added step. A skipped
// step passes the previous output through unchanged.
func (b *Builder) When(cond ConditionFunc) *Builder {
	if n := len(b.steps); n > 0 && cond != nil {
		b.steps[n-1].precond = cond
	}
	return b
}

// Build finalizes the workflow.
func (b *Builder) Build() (*Workflow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.steps) == 0 {
		return nil, ErrNoSteps
	}
	return &Workflow{name: b.name, steps: append([]*step(nil), b.steps...)}, nil
}

// Workflow is an immutable, runnable step chain. It is safe for concurrent Runs.
type Workflow struct {
	name  string
	steps []*step
}

func (w *Workflow) Name() string { return w.name }

// Steps returns the step names in order.
func (w *Workflow) Steps() []string {
	names := make([]string, len(w.steps))
	for i, s := range w.steps {
		names[i] = s.name
	}
	return names
}

// Run executes the steps in order and returns the last output.
func (w *Workflow) Run(ctx context.Context, input any, opts ...Option) (any, error) {
	rc := &runConfig{}
	for _, o := range opts {
		o(rc)
	}

	span, ctx := obs.TracerImpl.StartSpan(ctx, "workflow.run")
	span.SetAttribute("workflow.name", w.name)
	defer span.End()

	prev := input
	for _, s := range w.steps {
		if err := ctx.Err(); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return nil, err
		}
		if s.precond != nil && !s.precond(ctx, input, prev) {
			emit(ctx, rc, Event{Type: EventSkip, Step: s.name, Status: "skipped", Timestamp: time.Now()})
			continue
		}

		start := time.Now()
		emit(ctx, rc, Event{Type: EventStart, Step: s.name, Status: "ok", Timestamp: start})
		out, err := s.fn(ctx, prev)
		labels := map[string]string{"component": "workflow", "name": s.name}
		obs.MetricsImpl.RecordLatency(time.Since(start), labels)
		if err != nil {
			obs.MetricsImpl.RecordError("step_error", labels)
			emit(ctx, rc, Event{Type: EventError, Step: s.name, Status: "error", Timestamp: time.Now(), Duration: time.Since(start), Error: err.Error()})
			span.SetStatus(obs.StatusCodeError, err.Error())
			return nil, &StepError{Step: s.name, Err: err}
		}
		emit(ctx, rc, Event{Type: EventEnd, Step: s.name, Status: "ok", Timestamp: time.Now(), Duration: time.Since(start), Output: out})
		prev = out
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return prev, nil
}

func emit(ctx context.Context, rc *runConfig, e Event) {
	if rc.events == nil {
		return
	}
	if rc.blocking {
		select {
		case rc.events <- e:
		case <-ctx.Done():
		}
		return
	}
	select {
	case rc.events <- e:
	default:
	}
}
