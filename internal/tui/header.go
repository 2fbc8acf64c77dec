package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 5

// renderHeader produces the header string from the report summary and the
// skill's earlier scores, oldest first.
func renderHeader(summary models.Summary, history []int, width int) string {
	var b strings.Builder

	// Line 1: title and status
	statusText := statusStyle(summary.Status).Render(
		fmt.Sprintf("%s (%d/100)", summary.Status, summary.Score),
	)
	b.WriteString(fmt.Sprintf("ClawShield  Status: %s", statusText))
	if summary.RootSafetyMode {
		b.WriteString("  ROOT SAFETY")
	}
	if summary.SecurityTool != nil {
		b.WriteString(fmt.Sprintf("  security tool: %s", *summary.SecurityTool))
	}
	b.WriteString("\n")

	// Line 2: files and issues
	b.WriteString(fmt.Sprintf("Files: %d scanned", summary.FilesScanned))
	if summary.FilesSkipped > 0 {
		b.WriteString(fmt.Sprintf(", %d skipped", summary.FilesSkipped))
	}
	b.WriteString(fmt.Sprintf("  Issues: %d", summary.IssuesFound))
	b.WriteString("\n")

	// Line 3: severity breakdown
	counts := []struct {
		sev models.Severity
		n   int
	}{
		{models.SeverityCritical, summary.CriticalIssues},
		{models.SeverityHigh, summary.HighIssues},
		{models.SeverityMedium, summary.MediumIssues},
		{models.SeverityInfo, summary.InfoIssues},
	}
	sevParts := make([]string, 0, len(counts))
	for _, c := range counts {
		if c.n > 0 {
			label := fmt.Sprintf("%s:%d", string(c.sev)[:1], c.n)
			sevParts = append(sevParts, severityStyle(c.sev).Render(label))
		}
	}
	if len(sevParts) > 0 {
		b.WriteString(strings.Join(sevParts, "  "))
	}
	b.WriteString("\n")

	// Line 4: score history
	if len(history) > 0 {
		b.WriteString("History: ")
		b.WriteString(Sparkline(append(history[:len(history):len(history)], summary.Score)))
		b.WriteString("  ")
		b.WriteString(scoreTrend(history[len(history)-1], summary.Score))
	}

	return styleHeader.Width(width).Render(b.String())
}

// scoreTrend describes the move from the previous scan's score to now.
// Higher scores are riskier.
func scoreTrend(prev, now int) string {
	switch d := now - prev; {
	case d > 0:
		return severityStyle(models.SeverityCritical).Render(fmt.Sprintf("▲ +%d since last scan", d))
	case d < 0:
		return statusStyle(models.StatusClean).Render(fmt.Sprintf("▼ %d since last scan", d))
	default:
		return "= unchanged since last scan"
	}
}

// Sparkline converts an int slice to a unicode sparkline string.
func Sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if max == min {
			b.WriteRune(bars[len(bars)/2])
		} else {
			normalized := float64(v-min) / float64(max-min)
			idx := int(normalized * float64(len(bars)-1))
			b.WriteRune(bars[idx])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
