// Package search implements the web_search tool on top of the Serper
// Google Search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/agentcrew/tools"
)

const DefaultEndpoint = "https://google.serper.dev/search"

// SerperTool queries Serper and returns the top organic results.
type SerperTool struct {
	apiKey   string
	endpoint string
	results  int
	client   *http.Client
}

// Option customises a SerperTool.
type Option func(*SerperTool)

func WithEndpoint(url string) Option { return func(s *SerperTool) { s.endpoint = url } }
func WithResults(n int) Option       { return func(s *SerperTool) { s.results = n } }
func WithHTTPClient(c *http.Client) Option {
	return func(s *SerperTool) { s.client = c }
}

func NewSerperTool(apiKey string, opts ...Option) *SerperTool {
	s := &SerperTool{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		results:  5,
		client:   &http.Client{Timeout: 20 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SerperTool) Name() string { return "web_search" }

func (s *SerperTool) Description() string {
	return "Searches the web and returns titles, links and snippets of the top results."
}

func (s *SerperTool) Schema() map[string]interface{} {
	return tools.ObjectSchema([]string{"query"}, map[string]string{
		"query": "Search query",
	})
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (s *SerperTool) Execute(ctx context.Context, input string) (string, error) {
	var a struct {
		Query string `json:"query"`
	}
	if err := tools.DecodeArgs(input, &a, "query"); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Query) == "" {
		return "", errors.New("query is required")
	}

	body, _ := json.Marshal(serperRequest{Q: a.Query, Num: s.results})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var sr serperResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	return format(a.Query, sr, s.results), nil
}

func format(query string, sr serperResponse, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", query)
	if sr.AnswerBox != nil {
		if ans := firstNonEmpty(sr.AnswerBox.Answer, sr.AnswerBox.Snippet); ans != "" {
			fmt.Fprintf(&b, "Answer: %s\n", ans)
		}
	}
	if len(sr.Organic) == 0 {
		b.WriteString("No results found.")
		return b.String()
	}
	for i, r := range sr.Organic {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.Link, r.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ tools.Tool = (*SerperTool)(nil)
