package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 5

// renderDetail produces the detail view for a selected finding.
func renderDetail(f *models.Finding, width int) string {
	if f == nil {
		return styleDetailPanel.Width(width).Render("No finding selected")
	}

	var b strings.Builder

	sevStyled := severityStyle(f.Severity).Render(string(f.Severity))
	b.WriteString(fmt.Sprintf("%s  %s / %s\n", sevStyled, f.RuleID, f.RuleName))
	b.WriteString(fmt.Sprintf("File: %s:%d\n", f.File, f.Line))

	if f.Match != "" {
		b.WriteString(fmt.Sprintf("Match: %s\n", f.Match))
	}

	line := f.Description
	if f.Intentional {
		line += fmt.Sprintf("  (declared intentional, rule tier %s)", f.OriginalSeverity)
	}
	b.WriteString(line)

	return styleDetailPanel.Width(width).Render(b.String())
}
