// Package recommend ranks a small fixed song catalog against a free-text
// prompt by keyword and tag overlap.
package recommend

import (
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultLimit = 3
	MaxLimit     = 10

	// EmptyPromptReply is returned by Reply for a blank prompt.
	EmptyPromptReply = "Please provide a non-empty prompt."
)

// Scored is a catalog entry with its score for one prompt.
type Scored struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Score  int    `json:"score"`
}

// Wanted returns the set of tags a prompt asks for: the tags of every
// keyword contained in the prompt plus any prompt word that is itself a tag.
func Wanted(prompt string) map[string]struct{} {
	p := strings.ToLower(prompt)
	wanted := make(map[string]struct{})
	for _, k := range keywords {
		if strings.Contains(p, k.word) {
			for _, t := range k.tags {
				wanted[t] = struct{}{}
			}
		}
	}
	words := strings.Fields(strings.NewReplacer(",", " ", ".", " ").Replace(p))
	for _, w := range words {
		if _, ok := knownTags[w]; ok {
			wanted[w] = struct{}{}
		}
	}
	return wanted
}

// Score scores every catalog entry against prompt, highest first. Equal
// scores keep catalog order.
func Score(prompt string) []Scored {
	p := strings.ToLower(prompt)
	wanted := Wanted(prompt)

	out := make([]Scored, 0, len(catalog))
	for _, s := range catalog {
		n := 0
		for _, t := range s.Tags {
			if _, ok := wanted[t]; ok {
				n++
			}
		}
		if strings.Contains(p, strings.ToLower(s.Title)) {
			n += 3
		}
		if strings.Contains(p, strings.ToLower(s.Artist)) {
			n += 2
		}
		out = append(out, Scored{Title: s.Title, Artist: s.Artist, Score: n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// ClampLimit maps 0 to DefaultLimit and bounds the result to [1, MaxLimit].
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Recommend returns up to limit entries with a positive score. When nothing
// matches it returns the single top-ranked entry so the caller always has a
// suggestion.
func Recommend(prompt string, limit int) []Scored {
	limit = ClampLimit(limit)
	ranked := Score(prompt)
	var picks []Scored
	for _, r := range ranked {
		if r.Score <= 0 {
			break
		}
		picks = append(picks, r)
		if len(picks) == limit {
			break
		}
	}
	if len(picks) == 0 {
		picks = ranked[:1]
	}
	return picks
}

// Format renders picks under a header naming the prompt.
func Format(prompt string, picks []Scored) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎵 Song recommendations for: \"%s\"", prompt)
	for i, r := range picks {
		fmt.Fprintf(&b, "\n%d. %s — %s (match score %d)", i+1, r.Title, r.Artist, r.Score)
	}
	return b.String()
}

// Reply is the full text answer for a recommendation request.
func Reply(prompt string, limit int) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return EmptyPromptReply
	}
	return Format(prompt, Recommend(prompt, limit))
}
