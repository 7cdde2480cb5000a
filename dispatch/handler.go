package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/KamdynS/agentcrew/crew"
	"github.com/KamdynS/agentcrew/history"
	obs "github.com/KamdynS/agentcrew/observability"
)

// ErrorPrefix starts every reply for a failed run.
const ErrorPrefix = "Error running crew: "

// Handler runs the crew selected by a message.
type Handler struct {
	Options crew.Options
	// History, when set, records every handled message.
	History history.Recorder
	Logger  *log.Logger
}

func (h *Handler) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}

// Crew builds the crew for req, filling in the default text or question
// when the request leaves them empty.
func (h *Handler) Crew(req Request) *crew.Crew {
	switch req.Mode {
	case ModeSummarize:
		text := req.Text
		if strings.TrimSpace(text) == "" {
			text = crew.DefaultSummarizeText
		}
		return crew.Summarize(text, h.Options)
	case ModeQA:
		q := req.Question
		if strings.TrimSpace(q) == "" {
			q = crew.DefaultQuestion
		}
		return crew.Answer(q, req.Context, h.Options)
	default:
		return crew.Demo(h.Options)
	}
}

// Run kicks off the crew for req.
func (h *Handler) Run(ctx context.Context, req Request) (*crew.Result, error) {
	return h.run(ctx, req, nil)
}

func (h *Handler) run(ctx context.Context, req Request, onDelta func(string)) (*crew.Result, error) {
	if req.Mode == "" {
		req.Mode = ModeDemo
	}
	span, ctx := obs.TracerImpl.StartSpan(ctx, "dispatch.run")
	span.SetAttribute(obs.AttrMode, string(req.Mode))
	defer span.End()

	labels := map[string]string{"component": "dispatch", "name": string(req.Mode)}
	obs.MetricsImpl.IncrementRequests(labels)
	start := time.Now()
	c := h.Crew(req)
	if onDelta != nil {
		c.OnDelta = func(_, delta string) { onDelta(delta) }
	}
	res, err := c.Kickoff(ctx)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		obs.MetricsImpl.RecordError("dispatch_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return res, nil
}

// Handle parses msg, runs the matching crew and returns its trimmed output.
// Failures are reported in the reply text, never as an error.
func (h *Handler) Handle(ctx context.Context, msg string) string {
	return h.HandleStream(ctx, msg, nil)
}

// HandleStream is Handle, passing the final task's answer to onDelta as
// the model produces it. A nil onDelta disables streaming.
func (h *Handler) HandleStream(ctx context.Context, msg string, onDelta func(string)) string {
	res, err := h.do(ctx, Parse(msg), msg, onDelta)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return strings.TrimSpace(res.Raw)
}

// Do runs req and records the outcome in History under input.
func (h *Handler) Do(ctx context.Context, req Request, input string) (*crew.Result, error) {
	return h.do(ctx, req, input, nil)
}

func (h *Handler) do(ctx context.Context, req Request, input string, onDelta func(string)) (*crew.Result, error) {
	start := time.Now()
	res, err := h.run(ctx, req, onDelta)

	run := history.Run{Mode: string(req.Mode), Input: input, Duration: time.Since(start)}
	if run.Mode == "" {
		run.Mode = string(ModeDemo)
	}
	if err != nil {
		h.logger().Error("Crew run failed", "mode", run.Mode, "error", err)
		run.ID = uuid.NewString()
		run.Error = err.Error()
		run.Output = ErrorPrefix + err.Error()
	} else {
		run.ID = res.ID
		run.Output = strings.TrimSpace(res.Raw)
		h.logger().Info("Crew run finished", "mode", run.Mode, "run", res.ID, "duration", run.Duration.Round(time.Millisecond))
	}

	if h.History != nil {
		if rerr := h.History.Record(context.WithoutCancel(ctx), run); rerr != nil {
			h.logger().Warn("Failed to record run", "run", run.ID, "error", rerr)
		}
	}
	return res, err
}
