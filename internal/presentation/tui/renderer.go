// Package tui renders run summaries for the terminal.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/pergola/pkg/domain"
)

// NewRenderer returns a function that renders markdown for the current
// output. On a terminal it styles through glamour; when output is piped the
// markdown passes through untouched so it stays machine-readable.
func NewRenderer() func(string) (string, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ReportMarkdown builds the run summary as markdown.
func ReportMarkdown(res *domain.RunResult) string {
	var sb strings.Builder

	status := "completed"
	if res.Halted {
		status = "halted"
	}
	fmt.Fprintf(&sb, "# Run %s\n\n", res.RunID)
	fmt.Fprintf(&sb, "**Status:** %s, **Duration:** %s\n\n", status, res.Duration.Round(time.Millisecond))

	sb.WriteString("| Step | Kind | Passed | Failed | Cached | Duration |\n")
	sb.WriteString("|------|------|-------:|-------:|-------:|---------:|\n")
	for _, s := range res.Steps {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %d | %s |\n",
			s.Step, s.Kind, s.Passed, s.Failed, s.Cached, s.Duration.Round(time.Millisecond))
	}

	passed, failed, cached := res.Totals()
	fmt.Fprintf(&sb, "\n**Totals:** %d passed, %d failed, %d cached\n", passed, failed, cached)

	for _, s := range res.Steps {
		if len(s.Failures) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## Failures in %s\n\n", s.Step)
		for _, f := range s.Failures {
			fmt.Fprintf(&sb, "- `%v`: %s\n", f.Inputs, f.Cause)
		}
	}
	return sb.String()
}
