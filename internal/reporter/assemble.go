package reporter

import (
	"fmt"
	"time"

	"github.com/ppiankov/clawshield/internal/models"
)

// Assemble builds the collaborator-facing report for a scan result.
func Assemble(res *models.ScanResult) *models.Report {
	issues := make([]models.Finding, len(res.Findings))
	copy(issues, res.Findings)

	return &models.Report{
		Summary:   Summarize(res),
		Issues:    issues,
		Formatted: NewTextReporter(nil).Format(res),
	}
}

// Summarize computes the report summary. Tier counts exclude intentional
// findings; those are counted as INFO.
func Summarize(res *models.ScanResult) models.Summary {
	s := models.Summary{
		Status:              res.Status,
		Score:               res.Score,
		RawScore:            res.RawScore,
		FilesScanned:        res.FilesScanned,
		FilesSkipped:        res.FilesSkipped,
		IssuesFound:         len(res.Findings),
		IntentionalPatterns: res.IntentionalPatterns,
		CriticalIssues:      res.CountBySeverity(models.SeverityCritical),
		HighIssues:          res.CountBySeverity(models.SeverityHigh),
		MediumIssues:        res.CountBySeverity(models.SeverityMedium),
		InfoIssues:          res.CountBySeverity(models.SeverityInfo),
		Duration:            formatDuration(res.Duration),
		RootSafetyMode:      res.RootSafetyMode,
		RunningAsRoot:       res.RunningAsRoot,
	}
	if tool := res.SecurityTool(); tool != "" {
		s.SecurityTool = &tool
	}
	return s
}

// formatDuration renders d as whole milliseconds, e.g. "12ms".
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
