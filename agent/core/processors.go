package core

import "context"

// TokenLimiter keeps the most recent messages whose combined content fits
// in MaxChars. The newest message is always kept.
type TokenLimiter struct {
	MaxChars int
}

func (p TokenLimiter) Process(ctx context.Context, msgs []Message) []Message {
	if p.MaxChars <= 0 || len(msgs) == 0 {
		return msgs
	}
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		total += len(msgs[i].Content)
		if total > p.MaxChars && i < len(msgs)-1 {
			break
		}
		start = i
	}
	return append([]Message(nil), msgs[start:]...)
}

// ToolCallFilter drops tool results from replayed history.
type ToolCallFilter struct{}

func (ToolCallFilter) Process(ctx context.Context, msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "tool" {
			continue
		}
		out = append(out, m)
	}
	return out
}
