// Command crewdemo runs the summarizer and Q&A crews from the terminal and
// serves them over HTTP and MCP.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agentcrew/dispatch"
)

var version = "v0.1.0"

var (
	debug    bool
	envFiles []string

	textFlag     string
	questionFlag string
	contextFlag  string
)

// errReported marks failures already explained to the user.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "crewdemo [demo|summarize|qa]",
	Short: "Run the summarizer and Q&A agent crews",
	Long: `crewdemo runs a small crew of LLM agents.

  demo       summarize a sample text, then answer a question about it
  summarize  condense text into bullet points (saved to summary.md)
  qa         answer a question from optional context (saved to answer.md)

Without a mode argument the mode is read from stdin. Inputs come from
flags, then CREW_TEXT, CREW_QUESTION and CREW_CONTEXT, then stdin.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCrew,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and verbose crews")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.Flags().StringVar(&textFlag, "text", "", "text to summarize")
	rootCmd.Flags().StringVar(&questionFlag, "question", "", "question to answer")
	rootCmd.Flags().StringVar(&contextFlag, "context", "", "context for the question")

	rootCmd.AddCommand(serveCmd, mcpCmd, recommendCmd, planCmd, historyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var banners = map[dispatch.Mode]string{
	dispatch.ModeDemo:      "FINAL RESULT",
	dispatch.ModeSummarize: "SUMMARY",
	dispatch.ModeQA:        "ANSWER",
}

func runCrew(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()

	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.cfg.HasLLMKey() {
		fmt.Fprintln(out, "WARNING: OPENAI_API_KEY is not set; set it before running.")
	}

	p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out, getenv: os.Getenv}
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		raw = p.ask("Choose mode: [demo | summarize | qa]")
	}
	mode, err := dispatch.ParseMode(raw)
	if err != nil {
		fmt.Fprintln(out, "Unknown mode. Choose one of: demo | summarize | qa")
		return errReported
	}

	h, err := a.handler(ctx)
	if err != nil {
		return err
	}
	req := p.request(mode, inputFlags{text: textFlag, question: questionFlag, context: contextFlag})
	res, err := h.Do(ctx, req, req.Message())
	if err != nil {
		fmt.Fprintln(out, dispatch.ErrorPrefix+err.Error())
		return errReported
	}
	printResult(out, banners[mode], res.Raw)
	return nil
}

type inputFlags struct {
	text, question, context string
}

// prompter resolves crew inputs from flags, the environment and finally
// stdin.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	getenv func(string) string
}

// ask prints prompt and returns the next trimmed line. EOF yields "".
func (p *prompter) ask(prompt string) string {
	fmt.Fprintln(p.out, prompt)
	line, _ := p.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (p *prompter) lookup(flag, env string) (string, bool) {
	if v := strings.TrimSpace(flag); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(p.getenv(env)); v != "" {
		return v, true
	}
	return "", false
}

// request builds the request for mode. Empty answers are left empty so the
// dispatcher applies its defaults. Context is only prompted for when the
// question was.
func (p *prompter) request(mode dispatch.Mode, f inputFlags) dispatch.Request {
	req := dispatch.Request{Mode: mode}
	switch mode {
	case dispatch.ModeSummarize:
		if v, ok := p.lookup(f.text, "CREW_TEXT"); ok {
			req.Text = v
		} else {
			req.Text = p.ask("Paste text to summarize (press ENTER for a short sample):")
		}
	case dispatch.ModeQA:
		q, qok := p.lookup(f.question, "CREW_QUESTION")
		c, cok := p.lookup(f.context, "CREW_CONTEXT")
		if !qok {
			q = p.ask("Enter your question:")
			if !cok {
				c = p.ask("\nOptional context (press ENTER to skip):")
			}
		}
		req.Question, req.Context = q, c
	}
	return req
}
