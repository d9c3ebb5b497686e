// Package render turns a verification report into terminal text, markdown,
// or JSON. The engine's report is presentation-free; everything about
// colors and layout lives here.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"plancheck/internal/report"
)

// Format selects the output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(v)) {
	case FormatText, "":
		return FormatText, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, markdown, or json)", v)
}

// Styles holds the lipgloss styles for one renderer.
type Styles struct {
	Title    lipgloss.Style
	Category lipgloss.Style
	Info     lipgloss.Style
	Warning  lipgloss.Style
	Critical lipgloss.Style
	Item     lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Category: lipgloss.NewStyle().Bold(true).Underline(true),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Item:     lipgloss.NewStyle().Faint(true),
	}
}

// PlainStyles returns an uncolored style set for non-TTY output.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Category: s, Info: s, Warning: s, Critical: s, Item: s}
}

func (st Styles) severity(sev report.Severity) lipgloss.Style {
	switch sev {
	case report.Critical:
		return st.Critical
	case report.Warning:
		return st.Warning
	default:
		return st.Info
	}
}

// Text renders the report for the terminal.
func Text(r *report.Report, st Styles) string {
	var b strings.Builder
	b.WriteString(st.Title.Render(fmt.Sprintf("Plan check — %s / %s", r.PatientID, r.PlanID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("worst severity: %s (%d critical, %d warning)\n",
		r.WorstSeverity(), r.Count(report.Critical), r.Count(report.Warning)))

	for _, sec := range r.Sections {
		b.WriteString("\n")
		b.WriteString(st.Category.Render(string(sec.Category)))
		b.WriteString("\n")
		for _, f := range sec.Findings {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				st.severity(f.Severity).Render(fmt.Sprintf("[%s]", f.Severity)), f.Message))
			for _, item := range f.Checklist {
				b.WriteString(st.Item.Render(fmt.Sprintf("      [ ] %s", item)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// Markdown renders the report as a markdown document, used directly and as
// the source for the TUI's glamour viewport.
func Markdown(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan check — %s / %s\n\n", r.PatientID, r.PlanID)
	fmt.Fprintf(&b, "Worst severity: **%s** — %d critical, %d warning\n",
		r.WorstSeverity(), r.Count(report.Critical), r.Count(report.Warning))

	for _, sec := range r.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sec.Category)
		for _, f := range sec.Findings {
			fmt.Fprintf(&b, "- **%s** %s\n", f.Severity, f.Message)
			for _, item := range f.Checklist {
				fmt.Fprintf(&b, "  - [ ] %s\n", item)
			}
		}
	}
	return b.String()
}

// SectionMarkdown renders one category, for the tabbed viewer.
func SectionMarkdown(sec report.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", sec.Category)
	for _, f := range sec.Findings {
		fmt.Fprintf(&b, "- **%s** %s\n", f.Severity, f.Message)
		for _, item := range f.Checklist {
			fmt.Fprintf(&b, "  - [ ] %s\n", item)
		}
	}
	return b.String()
}

// JSON renders the report as indented JSON.
func JSON(r *report.Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(data) + "\n", nil
}
