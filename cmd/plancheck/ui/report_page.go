// Package ui implements the tabbed report viewer: one tab per report
// category, findings rendered as markdown in a scrolling viewport.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"plancheck/internal/render"
	"plancheck/internal/report"
)

// ReportModel is the bubbletea model for one verification report.
type ReportModel struct {
	report   *report.Report
	active   int
	width    int
	height   int
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   Styles
}

// NewReportModel creates the viewer positioned on the first category.
func NewReportModel(r *report.Report) ReportModel {
	vp := viewport.New(0, 0)
	m := ReportModel{
		report:   r,
		viewport: vp,
		styles:   DefaultStyles(),
	}
	m.setContent()
	return m
}

// Init initializes the model.
func (m ReportModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6
		m.rebuildRenderer()
		m.setContent()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.active = (m.active + 1) % len(m.report.Sections)
			m.setContent()
		case "shift+tab", "left", "h":
			m.active = (m.active - 1 + len(m.report.Sections)) % len(m.report.Sections)
			m.setContent()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// rebuildRenderer sizes the glamour renderer to the viewport.
func (m *ReportModel) rebuildRenderer() {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		m.renderer = r
	}
}

// setContent renders the active category into the viewport.
func (m *ReportModel) setContent() {
	sec := m.report.Sections[m.active]
	md := render.SectionMarkdown(sec)
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			m.viewport.SetContent(out)
			m.viewport.GotoTop()
			return
		}
	}
	m.viewport.SetContent(md)
	m.viewport.GotoTop()
}

// View renders the tab bar, viewport, and key help.
func (m ReportModel) View() string {
	var tabs []string
	for i, sec := range m.report.Sections {
		label := fmt.Sprintf(" %s (%d) ", sec.Category, len(sec.Findings))
		if i == m.active {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}

	header := m.styles.Title.Render(fmt.Sprintf("Plan check — %s / %s — worst: %s",
		m.report.PatientID, m.report.PlanID, m.report.WorstSeverity()))
	tabBar := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
	help := m.styles.Help.Render("tab/←→ switch category · ↑↓ scroll · q quit")

	return strings.Join([]string{header, tabBar, m.viewport.View(), help}, "\n")
}
