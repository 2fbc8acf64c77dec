package tui

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/clawshield/internal/models"
)

const defaultTableHeight = 15

// Model browses the findings of one scan report.
type Model struct {
	report   *models.Report
	history  []int
	findings []models.Finding

	table   table.Model
	visible []models.Finding
	filters filterState
	sortBy  sortField

	search     textinput.Model
	searching  bool
	prevSearch string

	width     int
	height    int
	statusMsg string

	// out receives OSC 52 clipboard sequences.
	out io.Writer
}

// New creates a browser for report. history holds earlier scores of the
// same skill, oldest first, and may be nil.
func New(report *models.Report, history []int) Model {
	findings := make([]models.Finding, len(report.Issues))
	copy(findings, report.Issues)

	ti := textinput.New()
	ti.Placeholder = "rule, file or match..."
	ti.CharLimit = 64

	m := Model{
		report:   report,
		history:  history,
		findings: findings,
		table:    newTable(nil, defaultTableHeight),
		sortBy:   sortBySeverity,
		search:   ti,
		width:    80,
		height:   24,
		out:      os.Stdout,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		for _, a := range browseActions {
			if key.Matches(msg, a.binding) {
				cmd = a.run(&m)
				return m, cmd
			}
		}
	}

	if m.searching {
		m.search, cmd = m.search.Update(msg)
	} else {
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(width)
	m.table.SetHeight(max(height-headerHeight-detailHeight-3, 3))
}

// updateSearch filters as the user types. Enter keeps the query, esc
// restores the one in effect before the search started.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.endSearch()
		return m, nil
	case tea.KeyEscape:
		m.search.SetValue(m.prevSearch)
		m.endSearch()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.filters.SearchText = m.search.Value()
	m.refresh()
	return m, cmd
}

func (m *Model) startSearch() tea.Cmd {
	m.searching = true
	m.prevSearch = m.filters.SearchText
	m.search.SetValue(m.prevSearch)
	m.search.CursorEnd()
	m.search.Focus()
	return textinput.Blink
}

func (m *Model) endSearch() {
	m.searching = false
	m.search.Blur()
	m.filters.SearchText = m.search.Value()
	m.refresh()
}

// cycleSeverity steps the filter through all, then each severity present
// in the report, most severe first.
func (m *Model) cycleSeverity() tea.Cmd {
	cycle := append([]models.Severity{""}, presentSeverities(m.findings)...)
	next := 0
	for i, sev := range cycle {
		if sev == m.filters.Severity {
			next = (i + 1) % len(cycle)
			break
		}
	}
	m.filters.Severity = cycle[next]
	m.refresh()
	if m.filters.Severity == "" {
		m.statusMsg = "Severity: all"
	} else {
		m.statusMsg = "Severity: " + string(m.filters.Severity)
	}
	return nil
}

func (m *Model) cycleSort() tea.Cmd {
	m.sortBy = (m.sortBy + 1) % sortFieldCount
	m.refresh()
	m.statusMsg = "Sort: " + sortFieldName(m.sortBy)
	return nil
}

func (m *Model) toggleIntentional() tea.Cmd {
	m.filters.HideIntentional = !m.filters.HideIntentional
	m.refresh()
	m.statusMsg = "Intentional shown"
	if m.filters.HideIntentional {
		m.statusMsg = "Intentional hidden"
	}
	return nil
}

func (m *Model) clearFilters() tea.Cmd {
	m.filters = filterState{}
	m.search.SetValue("")
	m.statusMsg = ""
	m.refresh()
	return nil
}

// refresh recomputes the visible findings and keeps the cursor on the
// previously selected finding when it is still visible.
func (m *Model) refresh() {
	prev := m.selected()
	var keep models.Finding
	if prev != nil {
		keep = *prev
	}

	m.visible = applyFilters(m.findings, m.filters)
	sortFindings(m.visible, m.sortBy)
	m.table.SetRows(buildRows(m.visible))

	cursor := 0
	if prev != nil {
		for i, f := range m.visible {
			if f.RuleID == keep.RuleID && f.File == keep.File {
				cursor = i
				break
			}
		}
	}
	m.table.SetCursor(cursor)
}

func (m *Model) selected() *models.Finding {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return nil
	}
	return &m.visible[cursor]
}

// visiblePoints sums the score contribution of the visible findings.
func (m *Model) visiblePoints() int {
	total := 0
	for _, f := range m.visible {
		total += f.SeverityValue
	}
	return total
}

// copySelected puts the selected finding on the clipboard via OSC 52.
func (m *Model) copySelected() tea.Cmd {
	f := m.selected()
	if f == nil {
		m.statusMsg = "Nothing to copy"
		return nil
	}
	text := fmt.Sprintf("[%s] %s %s:%d", f.Severity, f.RuleID, f.File, f.Line)
	if f.Match != "" {
		text += " -- " + f.Match
	}
	fmt.Fprintf(m.out, "\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	m.statusMsg = "Copied " + f.RuleID
	return nil
}

// View implements tea.Model.
func (m Model) View() string {
	parts := []string{renderHeader(m.report.Summary, m.history, m.width)}
	if m.searching {
		parts = append(parts, styleSearchPrompt.Render("/ ")+m.search.View())
	}
	parts = append(parts,
		m.table.View(),
		renderDetail(m.selected(), m.width),
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderFooter() string {
	help := make([]string, 0, len(browseActions))
	for _, a := range browseActions {
		h := a.binding.Help()
		help = append(help, h.Key+":"+h.Desc)
	}
	left := strings.Join(help, "  ")

	right := fmt.Sprintf("%d/%d findings  %d pts", len(m.visible), len(m.findings), m.visiblePoints())
	if m.statusMsg != "" {
		right = m.statusMsg + "  " + right
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the browser in the alternate screen and blocks until it exits.
func Run(report *models.Report, history []int) error {
	_, err := tea.NewProgram(New(report, history), tea.WithAltScreen()).Run()
	return err
}
