package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 20 {
		return 80
	}
	return width - 4
}

// renderMarkdown styles md for a terminal, returning md unchanged when
// rendering fails.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.TokyoNightStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// printResult writes the banner and the crew output. Terminals get
// rendered markdown; pipes get the raw text.
func printResult(w io.Writer, banner, result string) {
	fmt.Fprintf(w, "\n=== %s ===\n\n", banner)
	if isTerminal(w) {
		fmt.Fprint(w, renderMarkdown(result, termWidth(w)))
		return
	}
	fmt.Fprintln(w, strings.TrimRight(result, "\n"))
}

// printEnrollment prints the registry link an operator uses to claim the
// agent.
func printEnrollment(w io.Writer, link string) {
	line := strings.Repeat("*", 54)
	fmt.Fprintf(w, "\n%s\nYou can assign your agent using this link\n%s\n%s\n\n", line, link, line)
}
