// Package dispatch routes an inbound message to the demo, summarize or qa
// crew and turns the outcome into reply text.
package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects the crew to run.
type Mode string

const (
	ModeDemo      Mode = "demo"
	ModeSummarize Mode = "summarize"
	ModeQA        Mode = "qa"
)

// Modes lists the accepted mode keywords.
var Modes = []Mode{ModeDemo, ModeSummarize, ModeQA}

// ParseMode validates a mode keyword, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeDemo, nil
	case ModeDemo, ModeSummarize, ModeQA:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Request is a parsed inbound message. Text is set for summarize, Question
// and Context for qa.
type Request struct {
	Mode     Mode   `json:"mode"`
	Text     string `json:"text,omitempty"`
	Question string `json:"question,omitempty"`
	Context  string `json:"context,omitempty"`
}

const qaContextSep = ":::"

// Message renders r in the prefix form Parse accepts.
func (r Request) Message() string {
	switch r.Mode {
	case ModeSummarize:
		return "summarize: " + r.Text
	case ModeQA:
		if strings.TrimSpace(r.Context) == "" {
			return "qa: " + r.Question
		}
		return "qa: " + r.Question + " " + qaContextSep + " " + r.Context
	}
	return ""
}

// Parse maps msg to a Request. A JSON object with a summarize or qa mode
// wins, then the "summarize:" and "qa:" prefixes; anything else is a demo.
func Parse(msg string) Request {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return Request{Mode: ModeDemo}
	}
	if r, ok := parseJSON(msg); ok {
		return r
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.HasPrefix(lower, "summarize:"):
		return Request{Mode: ModeSummarize, Text: strings.TrimSpace(msg[len("summarize:"):])}
	case strings.HasPrefix(lower, "qa:"):
		body := strings.TrimSpace(msg[len("qa:"):])
		if q, c, found := strings.Cut(body, qaContextSep); found {
			return Request{Mode: ModeQA, Question: strings.TrimSpace(q), Context: strings.TrimSpace(c)}
		}
		return Request{Mode: ModeQA, Question: body}
	}
	return Request{Mode: ModeDemo}
}

func parseJSON(msg string) (Request, bool) {
	var env map[string]any
	if err := json.Unmarshal([]byte(msg), &env); err != nil {
		return Request{}, false
	}
	mode, _ := env["mode"].(string)
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeSummarize:
		return Request{Mode: ModeSummarize, Text: str(env["text"])}, true
	case ModeQA:
		return Request{Mode: ModeQA, Question: str(env["question"]), Context: str(env["context"])}, true
	}
	return Request{}, false
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
