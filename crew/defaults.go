package crew

import (
	"strings"

	"github.com/charmbracelet/log"

	core "github.com/KamdynS/agentcrew/agent/core"
	"github.com/KamdynS/agentcrew/llm"
	"github.com/KamdynS/agentcrew/memory"
	"github.com/KamdynS/agentcrew/tools"
	"github.com/KamdynS/agentcrew/tools/filewriter"
	"github.com/KamdynS/agentcrew/tools/search"
)

// Canned inputs.
const (
	DemoText = "Federated learning enables clients to train locally and only share model updates. " +
		"FedAvg reduces communication by taking multiple local SGD steps before averaging. " +
		"Benefits: privacy, bandwidth savings, edge compute usage. Challenges: client heterogeneity, " +
		"stragglers, privacy guarantees, unreliable connectivity."
	DemoQuestion = "What are the key challenges mentioned?"

	DefaultSummarizeText = "AI systems can summarize text to save time. Key tradeoffs include faithfulness and coverage."
	DefaultQuestion      = "What are the benefits and challenges of federated learning?"

	NoContext = "(no explicit context provided)"
)

// Keys used by Overrides.
const (
	KeySummarizer = "summarizer"
	KeyAnswerer   = "answerer"
	KeySummarize  = "summarize"
	KeyAnswer     = "answer"
)

// Options carries the shared dependencies of the stock crews.
type Options struct {
	LLM        llm.Client
	Memory     memory.Transcript
	Logger     *log.Logger
	Middleware []core.Middleware
	Verbose    bool

	// OutputDir receives summary.md and answer.md and roots file_writer.
	OutputDir string
	// SerperAPIKey enables web_search on the Q&A agent.
	SerperAPIKey  string
	SearchOptions []search.Option
	// AnswerTools are extra tools for the Q&A agent, e.g. MCP proxies.
	AnswerTools []tools.Tool
	Overrides   *Overrides
}

// NewSummarizer returns the summarization agent.
func NewSummarizer(opts Options) *Agent {
	a := &Agent{
		Role: "Concise Summarizer",
		Goal: "Distill any provided text into short, well-structured bullet points " +
			"with headers and clear takeaways.",
		Backstory: "You are Yushu's digital twin lite for summarization—crisp, plain language, " +
			"and action-oriented. Preserve key numbers and names.",
		Verbose: opts.Verbose,
		Tools:   []tools.Tool{filewriter.New(opts.OutputDir)},
	}
	opts.Overrides.applyAgent(KeySummarizer, a)
	return a
}

// NewAnswerer returns the Q&A agent. web_search is attached only when a
// Serper key is configured.
func NewAnswerer(opts Options) *Agent {
	ts := []tools.Tool{filewriter.New(opts.OutputDir)}
	if opts.SerperAPIKey != "" {
		ts = append(ts, search.NewSerperTool(opts.SerperAPIKey, opts.SearchOptions...))
	}
	ts = append(ts, opts.AnswerTools...)
	a := &Agent{
		Role: "Practical Q&A Specialist",
		Goal: "Answer questions accurately using provided context first; if insufficient " +
			"and search is available, do a brief search and synthesize a reliable answer.",
		Backstory: "A fast, evidence-minded assistant that explains clearly and includes a short " +
			"\"How I got this\" note when helpful.",
		Verbose: opts.Verbose,
		Tools:   ts,
	}
	opts.Overrides.applyAgent(KeyAnswerer, a)
	return a
}

// SummarizeTask asks agent to summarize text into summary.md.
func SummarizeTask(agent *Agent, text string, o *Overrides) *Task {
	t := &Task{
		Name: KeySummarize,
		Description: "Summarize the following content into crisp bullets grouped by 2–3 short headers. " +
			"Aim for 5–10 bullets; keep language plain.\n\nCONTENT:\n" + text,
		ExpectedOutput: "Markdown summary with a title, 5–10 bullets across a few sections, " +
			"and (if relevant) action items. Also save to \"summary.md\".",
		Agent:      agent,
		OutputFile: "summary.md",
	}
	o.applyTask(KeySummarize, t, map[string]string{"text": text})
	return t
}

// AnswerTask asks agent to answer question from context into answer.md.
// Blank context is replaced by a placeholder.
func AnswerTask(agent *Agent, question, context string, o *Overrides) *Task {
	ctx := strings.TrimSpace(context)
	if ctx == "" {
		ctx = NoContext
	}
	t := &Task{
		Name: KeyAnswer,
		Description: "Answer the user's question using the provided context. " +
			"If insufficient and a search tool is available, run a brief search (<=3 queries). " +
			"Return a short direct answer, a brief explanation, and tips/next steps if useful.\n\n" +
			"QUESTION: " + question + "\nCONTEXT: " + ctx,
		ExpectedOutput: "Helpful answer in markdown followed by a short explanation; " +
			"mention sources if used. Also save to \"answer.md\".",
		Agent:      agent,
		OutputFile: "answer.md",
	}
	o.applyTask(KeyAnswer, t, map[string]string{"question": question, "context": ctx})
	return t
}

func (opts Options) crew(agents []*Agent, tasks []*Task) *Crew {
	mw := append([]core.Middleware(nil), opts.Middleware...)
	if g := opts.Overrides.guardrails(); g != nil {
		mw = append(mw, g)
	}
	return &Crew{
		Agents:     agents,
		Tasks:      tasks,
		Process:    Sequential,
		Verbose:    opts.Verbose,
		LLM:        opts.LLM,
		Memory:     opts.Memory,
		Middleware: mw,
		Logger:     opts.Logger,
		OutputDir:  opts.OutputDir,
	}
}

// Summarize builds a one-task crew that summarizes text.
func Summarize(text string, opts Options) *Crew {
	a := NewSummarizer(opts)
	return opts.crew([]*Agent{a}, []*Task{SummarizeTask(a, text, opts.Overrides)})
}

// Answer builds a one-task crew that answers question.
func Answer(question, context string, opts Options) *Crew {
	a := NewAnswerer(opts)
	return opts.crew([]*Agent{a}, []*Task{AnswerTask(a, question, context, opts.Overrides)})
}

// Demo builds the two-agent crew: summarize DemoText, then answer
// DemoQuestion against it.
func Demo(opts Options) *Crew {
	s, a := NewSummarizer(opts), NewAnswerer(opts)
	return opts.crew(
		[]*Agent{s, a},
		[]*Task{
			SummarizeTask(s, DemoText, opts.Overrides),
			AnswerTask(a, DemoQuestion, DemoText, opts.Overrides),
		},
	)
}
