package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
)

var separator = strings.Repeat("=", 60)

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
	styled bool
	b      *strings.Builder
}

// NewTextReporter creates a new text reporter
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
	}
}

// WithColor enables terminal colors for the status and score lines.
func (r *TextReporter) WithColor(enabled bool) *TextReporter {
	r.styled = enabled
	return r
}

// Generate writes the text report for res
func (r *TextReporter) Generate(res *models.ScanResult) error {
	_, err := io.WriteString(r.writer, r.Format(res))
	return err
}

// Format renders the text report for res.
func (r *TextReporter) Format(res *models.ScanResult) string {
	r.b = &strings.Builder{}
	intentional := res.IntentionalPatterns

	r.printf("\n%s\n", separator)
	r.printf("%s SECURITY SCAN REPORT\n", statusIcon(res.Status, intentional))
	r.printf("%s\n\n", separator)

	if res.RootSafetyMode {
		r.printf("⚠️  ROOT SAFETY MODE: ACTIVE\n")
		r.printf("   Enhanced security policies applied (running as root)\n\n")
	}

	r.printf("Status:        %s\n", r.colored(res.Status, string(res.Status)))
	r.printf("Risk Score:    %s\n", r.colored(res.Status, fmt.Sprintf("%d/100", res.Score)))
	r.printf("Files Scanned: %d\n", res.FilesScanned)
	if res.FilesSkipped > 0 {
		r.printf("Files Skipped: %d (unreadable)\n", res.FilesSkipped)
	}
	r.printf("Issues Found:  %d\n", len(res.Findings))

	if intentional {
		r.printf("\n🔍 Security tool with intentional patterns detected\n")
		r.printf("   Intentional patterns: %d\n", res.IntentionalCount())
	}

	if len(res.Findings) > 0 {
		r.printf("\nBreakdown:\n")
		r.printf("  🔴 Critical: %d\n", res.CountBySeverity(models.SeverityCritical))
		r.printf("  🟠 High:     %d\n", res.CountBySeverity(models.SeverityHigh))
		r.printf("  🟡 Medium:   %d\n", res.CountBySeverity(models.SeverityMedium))
		r.printf("  ℹ️  Info:     %d (intentional patterns)\n", res.CountBySeverity(models.SeverityInfo))
	}

	r.printf("\nDuration:      %s\n", formatDuration(res.Duration))
	r.printf("\n%s\n", separator)

	if len(res.Findings) > 0 {
		r.printFindings(res.Findings)
	}

	r.printf("\n%s\n", separator)
	r.printRecommendation(res.Status, intentional)

	return r.b.String()
}

// printFindings prints findings grouped by effective severity
func (r *TextReporter) printFindings(findings []models.Finding) {
	r.printf("\n📋 DETAILED FINDINGS:\n\n")

	grouped := make(map[models.Severity][]models.Finding)
	for _, f := range findings {
		grouped[f.Severity] = append(grouped[f.Severity], f)
	}

	for _, sev := range models.ReportOrder {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}
		label := string(sev)
		if sev == models.SeverityInfo {
			label = "INTENTIONAL SECURITY PATTERNS"
		}
		r.printf("%s (%d):\n", label, len(group))
		for _, f := range group {
			mark := ""
			if f.Intentional {
				mark = " [intentional]"
			}
			r.printf("  [%s] %s%s\n", f.RuleID, f.RuleName, mark)
			r.printf("    File: %s:%d\n", f.File, f.Line)
			r.printf("    %s\n\n", f.Description)
		}
	}
}

// printRecommendation prints the closing verdict for a status
func (r *TextReporter) printRecommendation(status models.Status, intentional bool) {
	switch status {
	case models.StatusBlocked:
		r.printf("\n⚠️  This skill is NOT SAFE to install.\n")
		r.printf("   Critical security issues detected.\n")
	case models.StatusWarning:
		r.printf("\n⚠️  Review required before installing.\n")
		r.printf("   High-risk patterns detected.\n")
	case models.StatusCaution:
		r.printf("\n⚡ Review recommended.\n")
		r.printf("   Some suspicious patterns detected.\n")
	default:
		if intentional {
			r.printf("\n🔍 Security tool detected with intentional patterns.\n")
			r.printf("   These patterns are used for detection and education.\n")
			r.printf("   Skill is SAFE to install.\n")
		} else {
			r.printf("\n✅ No significant security issues found.\n")
		}
	}
}

func (r *TextReporter) colored(status models.Status, text string) string {
	if !r.styled {
		return text
	}
	return StatusStyle(status).Render(text)
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.b, format, args...)
}
