package main

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KamdynS/agentcrew/config"
	"github.com/KamdynS/agentcrew/dispatch"
	"github.com/KamdynS/agentcrew/history"
	"github.com/KamdynS/agentcrew/llm"
)

func newPrompter(stdin string, env map[string]string) (*prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return &prompter{
		in:     bufio.NewReader(strings.NewReader(stdin)),
		out:    &out,
		getenv: func(k string) string { return env[k] },
	}, &out
}

func TestPrompterSummarize(t *testing.T) {
	p, _ := newPrompter("ignored\n", nil)
	req := p.request(dispatch.ModeSummarize, inputFlags{text: " from flag "})
	if req.Text != "from flag" {
		t.Fatalf("text = %q", req.Text)
	}

	p, _ = newPrompter("ignored\n", map[string]string{"CREW_TEXT": "from env"})
	if req := p.request(dispatch.ModeSummarize, inputFlags{}); req.Text != "from env" {
		t.Fatalf("text = %q", req.Text)
	}

	p, out := newPrompter("typed text\n", nil)
	if req := p.request(dispatch.ModeSummarize, inputFlags{}); req.Text != "typed text" {
		t.Fatalf("text = %q", req.Text)
	}
	if !strings.Contains(out.String(), "Paste text to summarize") {
		t.Fatalf("missing prompt: %q", out.String())
	}
}

func TestPrompterQA(t *testing.T) {
	p, out := newPrompter("What is X?\nX is a letter\n", nil)
	req := p.request(dispatch.ModeQA, inputFlags{})
	want := dispatch.Request{Mode: dispatch.ModeQA, Question: "What is X?", Context: "X is a letter"}
	if req != want {
		t.Fatalf("req = %+v", req)
	}
	if !strings.Contains(out.String(), "Enter your question:") || !strings.Contains(out.String(), "Optional context") {
		t.Fatalf("missing prompts: %q", out.String())
	}

	// a question from flags never blocks on stdin for context
	p, out = newPrompter("should not be read\n", nil)
	req = p.request(dispatch.ModeQA, inputFlags{question: "Why?"})
	if req.Question != "Why?" || req.Context != "" || out.Len() != 0 {
		t.Fatalf("req = %+v, out = %q", req, out.String())
	}

	p, _ = newPrompter("", map[string]string{"CREW_QUESTION": "Q", "CREW_CONTEXT": "C"})
	if req := p.request(dispatch.ModeQA, inputFlags{}); req.Question != "Q" || req.Context != "C" {
		t.Fatalf("req = %+v", req)
	}
}

func TestPrompterEOF(t *testing.T) {
	p, _ := newPrompter("", nil)
	if got := p.ask("Choose mode: [demo | summarize | qa]"); got != "" {
		t.Fatalf("ask at EOF = %q", got)
	}
}

func TestPrintResultPlain(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, "SUMMARY", "# Title\n- point\n\n")
	want := "\n=== SUMMARY ===\n\n# Title\n- point\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := renderMarkdown("# Heading\n\nsome **bold** text", 60)
	if !strings.Contains(out, "Heading") || !strings.Contains(out, "bold") {
		t.Fatalf("rendered output lost content: %q", out)
	}
}

func TestPrintEnrollment(t *testing.T) {
	var buf bytes.Buffer
	printEnrollment(&buf, "https://reg.example/landing.html?agentId=a1")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[1] != "You can assign your agent using this link" || lines[2] != "https://reg.example/landing.html?agentId=a1" {
		t.Fatalf("unexpected banner: %q", lines)
	}
	if strings.Trim(lines[0], "*") != "" || lines[0] != lines[3] {
		t.Fatalf("banner borders: %q", lines)
	}
}

func TestBuildLLM(t *testing.T) {
	c, err := buildLLM(&config.Config{})
	if err != nil || c != nil {
		t.Fatalf("no keys: client=%v err=%v", c, err)
	}

	c, err = buildLLM(&config.Config{OpenAIKey: "sk-test", AnthropicKey: "ak-test"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Provider() != llm.ProviderOpenAI {
		t.Fatalf("default provider = %s", c.Provider())
	}

	c, err = buildLLM(&config.Config{OpenAIKey: "sk-test", AnthropicKey: "ak-test", Provider: "anthropic"})
	if err != nil || c.Provider() != llm.ProviderAnthropic {
		t.Fatalf("preferred provider: %v, %v", c, err)
	}

	c, err = buildLLM(&config.Config{OpenAIKey: "sk-test", AnthropicKey: "ak-test", Model: "claude-sonnet-4-20250514"})
	if err != nil || c.Provider() != llm.ProviderAnthropic {
		t.Fatalf("model provider: %v, %v", c, err)
	}

	if _, err := buildLLM(&config.Config{OpenAIKey: "sk-test", Provider: "anthropic"}); err == nil {
		t.Fatal("expected error for a provider without a key")
	}
	if _, err := buildLLM(&config.Config{OpenAIKey: "sk-test", Model: "mystery-1"}); err == nil {
		t.Fatal("expected error for an unknown model family")
	}
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, nil)
	if !strings.Contains(buf.String(), "No runs recorded yet.") {
		t.Fatalf("empty: %q", buf.String())
	}

	buf.Reset()
	printRuns(&buf, []history.Run{
		{ID: "0123456789abcdef", Mode: "qa", Input: "qa: why\nis the sky blue", Duration: 1500 * time.Millisecond, CreatedAt: time.Now()},
		{ID: "abc", Mode: "demo", Error: "boom", CreatedAt: time.Now()},
	})
	out := buf.String()
	for _, want := range []string{"WHEN", "01234567", "qa: why is the sky blue", "1.5s", "error"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789") {
		t.Fatalf("run id not shortened:\n%s", out)
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := clip("abcdefghijkl", 5); got != "abcd…" {
		t.Fatalf("got %q", got)
	}
}

func TestRecommendCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"recommend", "chill", "night", "study", "music", "--limit", "2"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.HasPrefix(got, `🎵 Song recommendations for: "chill night study music"`) {
		t.Fatalf("unexpected output: %q", got)
	}
	if strings.Count(got, "\n") != 3 {
		t.Fatalf("want header plus 2 picks: %q", got)
	}
}

func TestUnknownMode(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"--env-file", t.TempDir() + "/missing.env", "translate"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil); rootCmd.SetErr(nil); envFiles = nil })
	err := rootCmd.Execute()
	if !errors.Is(err, errReported) {
		t.Fatalf("err = %v, want errReported", err)
	}
	if !strings.Contains(out.String(), "Unknown mode. Choose one of: demo | summarize | qa") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "crewdemo "+version+"\n" {
		t.Fatalf("got %q", out.String())
	}
}
