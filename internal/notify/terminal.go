package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/matsen/paperfeed/internal/digest"
)

var (
	primaryColor = lipgloss.Color("#0969DA")
	accentColor  = lipgloss.Color("#2DA44E")
	dimColor     = lipgloss.Color("#6E7681")
	linkColor    = lipgloss.Color("#58A6FF")
	scoreColor   = lipgloss.Color("#F778BA")

	headerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor)

	paperTitleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(dimColor)
	scoreStyle      = lipgloss.NewStyle().Foreground(scoreColor).Bold(true)
	linkStyle       = lipgloss.NewStyle().Foreground(linkColor).Underline(true)
)

// TerminalSink prints the digest, styled when the writer is a terminal.
type TerminalSink struct {
	w      io.Writer
	styled bool
}

// NewTerminalSink writes to w. Styling is enabled only when w is a TTY.
func NewTerminalSink(w io.Writer) *TerminalSink {
	if w == nil {
		w = os.Stdout
	}
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &TerminalSink{w: w, styled: styled}
}

func (s *TerminalSink) Name() string { return "terminal" }

func (s *TerminalSink) Send(ctx context.Context, d *digest.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, TerminalText(d, s.styled))
	return err
}

// TerminalText renders d for a terminal. Without styling it is plain text.
func TerminalText(d *digest.Digest, styled bool) string {
	render := func(st lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return st.Render(s)
	}

	var b strings.Builder
	b.WriteString(render(headerStyle, Title(d)) + "\n")
	if d.Empty() {
		b.WriteString(emptyMessage + "\n")
		return b.String()
	}
	b.WriteString(introLine(len(d.Entries)) + "\n")

	for i, e := range d.Entries {
		b.WriteString("\n")
		b.WriteString(render(paperTitleStyle, fmt.Sprintf("%d. %s", i+1, e.Title)) + "\n")
		b.WriteString(render(dimStyle, digest.FormatAuthors(e.Authors)) + "\n")
		b.WriteString(render(dimStyle, digest.FormatAffiliations(e.Affiliations)) + "\n")
		relevance := fmt.Sprintf("Relevance %.1f", e.Relevance())
		if stars := e.Stars(); stars != "" {
			relevance += " " + stars
		}
		b.WriteString(render(scoreStyle, relevance) + "\n")
		b.WriteString("TLDR: " + tldrText(e) + "\n")
		b.WriteString(render(linkStyle, e.AbsURL()))
		if e.CodeURL != "" {
			b.WriteString("  " + render(linkStyle, e.CodeURL))
		}
		b.WriteString("\n")
	}
	return b.String()
}
