package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/germanamz/gmail-agent/pkg/mailagent"
)

const defaultWidth = 100

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

func terminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // file descriptors fit in int
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// renderMarkdown converts markdown text to terminal-formatted output. Any
// renderer failure falls back to the raw text.
func renderMarkdown(text string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// truncate shortens s to at most width display cells. Newlines are replaced
// with spaces for single-line display.
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "…")
}

// renderSteps formats the agent's tool calls and observations as a tree.
func renderSteps(steps []mailagent.Step, width int, styled bool) string {
	if len(steps) == 0 {
		return ""
	}

	style := func(st lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return st.Render(s)
	}

	var b strings.Builder
	for i, s := range steps {
		prefix := treeBranch
		if i == len(steps)-1 {
			prefix = treeCorner
		}
		head := prefix + style(toolNameStyle, s.Call.Name) + " " + truncate(s.Call.Arguments, max(width-len(s.Call.Name)-4, 10))
		b.WriteString(head + "\n")

		obs := "  " + treeCorner + truncate(s.Observation, max(width-4, 10))
		if s.IsError {
			b.WriteString(style(toolErrorStyle, obs) + "\n")
		} else {
			b.WriteString(style(toolResultStyle, obs) + "\n")
		}
	}
	return b.String()
}

// printResult writes the final answer to out, rendered as markdown when out
// is a terminal, and the step trace to trace when verbose.
func printResult(out, trace *os.File, res mailagent.Result, verbose bool) {
	if verbose && len(res.Steps) > 0 {
		fmt.Fprint(trace, renderSteps(res.Steps, terminalWidth(trace), isTerminal(trace)))
	}

	writeOutput(out, res.Output, isTerminal(out), terminalWidth(out))
}

func writeOutput(w io.Writer, text string, rendered bool, width int) {
	if rendered {
		text = renderMarkdown(text, width)
	}
	fmt.Fprintln(w, text)
}
