package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/clawshield/internal/models"
)

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

func containsError(errors []string, substr string) bool {
	for _, err := range errors {
		if strings.Contains(err, substr) {
			return true
		}
	}
	return false
}

func validReport() *models.Report {
	tool := "envguard"
	return &models.Report{
		Summary: models.Summary{
			Status:              models.StatusCaution,
			Score:               32,
			RawScore:            32,
			FilesScanned:        4,
			IssuesFound:         4,
			IntentionalPatterns: true,
			SecurityTool:        &tool,
			CriticalIssues:      2,
			HighIssues:          1,
			InfoIssues:          1,
		},
		Issues: []models.Finding{
			{RuleID: "REVERSE_SHELL", Severity: models.SeverityCritical, OriginalSeverity: models.SeverityCritical, SeverityValue: 10, File: "run.sh", Line: 3},
			{RuleID: "EXFILTRATION_WEBHOOK", Severity: models.SeverityCritical, OriginalSeverity: models.SeverityCritical, SeverityValue: 10, File: "lib/hook.js", Line: 1},
			{RuleID: "SHELL_EXECUTION", Severity: models.SeverityHigh, OriginalSeverity: models.SeverityHigh, SeverityValue: 5, File: "lib/exec.js", Line: 9},
			{RuleID: "CREDENTIAL_HARVESTING", Severity: models.SeverityInfo, OriginalSeverity: models.SeverityCritical, File: "scan.js", Line: 2, Intentional: true},
		},
	}
}

func validationErrors(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	return verr.Errors
}

func TestValidateReportValid(t *testing.T) {
	if err := New().ValidateReport(mustJSON(t, validReport())); err != nil {
		t.Fatalf("expected valid report, got %v", err)
	}
}

func TestValidateReportEmptyClean(t *testing.T) {
	report := &models.Report{Summary: models.Summary{Status: models.StatusClean}}
	if err := New().ValidateReport(mustJSON(t, report)); err != nil {
		t.Fatalf("expected valid empty report, got %v", err)
	}
}

func TestValidateReportInvalidJSON(t *testing.T) {
	errs := validationErrors(t, New().ValidateReport([]byte("{not json")))
	if !containsError(errs, "Failed to parse JSON") {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestValidateReportSchema(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing summary", `{"issues": []}`, "summary"},
		{"missing issues", `{"summary": {"status": "CLEAN", "score": 0, "rawScore": 0, "filesScanned": 0, "issuesFound": 0, "criticalIssues": 0, "highIssues": 0, "mediumIssues": 0, "infoIssues": 0, "rootSafetyMode": false, "runningAsRoot": false}}`, "issues"},
		{"issue without line", `{"summary": {"status": "CLEAN", "score": 0, "rawScore": 0, "filesScanned": 1, "issuesFound": 1, "criticalIssues": 0, "highIssues": 0, "mediumIssues": 0, "infoIssues": 1, "rootSafetyMode": false, "runningAsRoot": false}, "issues": [{"ruleId": "X", "severity": "INFO", "originalSeverity": "HIGH", "file": "a.js", "intentional": true}]}`, "line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validationErrors(t, New().ValidateReport([]byte(tt.doc)))
			if !containsError(errs, "Schema:") || !containsError(errs, tt.want) {
				t.Errorf("expected schema error about %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestCheckAllowsUnlocatedLine(t *testing.T) {
	report := validReport()
	report.Issues[0].Line = 0
	if err := New().Check(report); err != nil {
		t.Errorf("line 0 marks an unlocated match: %v", err)
	}
}

func TestValidateReportRootSafetyStatus(t *testing.T) {
	report := validReport()
	report.Summary.RootSafetyMode = true
	report.Summary.RunningAsRoot = true
	report.Summary.Score = 48
	report.Summary.Status = models.StatusWarning

	if err := New().Check(report); err != nil {
		t.Fatalf("escalated status should be valid: %v", err)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.Report)
		want   string
	}{
		{"bad status", func(r *models.Report) { r.Summary.Status = "SAFE" }, "summary.status"},
		{"status mismatch", func(r *models.Report) { r.Summary.Status = models.StatusBlocked }, "does not match score"},
		{"score too high", func(r *models.Report) { r.Summary.Score = 150 }, "between 0 and 100"},
		{"negative raw score", func(r *models.Report) { r.Summary.RawScore = -1 }, "rawScore"},
		{"negative files", func(r *models.Report) { r.Summary.FilesScanned = -2 }, "filesScanned"},
		{"root safety without root", func(r *models.Report) { r.Summary.RootSafetyMode = true }, "did not run as root"},
		{"issue count", func(r *models.Report) { r.Summary.IssuesFound = 9 }, "issuesFound"},
		{"critical count", func(r *models.Report) { r.Summary.CriticalIssues = 1 }, "criticalIssues"},
		{"info count", func(r *models.Report) { r.Summary.InfoIssues = 0 }, "infoIssues"},
		{"missing rule id", func(r *models.Report) { r.Issues[0].RuleID = "" }, "ruleId"},
		{"bad tier", func(r *models.Report) { r.Issues[2].OriginalSeverity = "LOW"; r.Issues[2].Severity = "LOW" }, "originalSeverity"},
		{"intentional not info", func(r *models.Report) { r.Issues[3].Severity = models.SeverityCritical }, "severity INFO"},
		{"intentional scored", func(r *models.Report) { r.Issues[3].SeverityValue = 10 }, "must not add to the score"},
		{"downgraded without declaration", func(r *models.Report) { r.Issues[2].Severity = models.SeverityMedium }, "differs from originalSeverity"},
		{"absolute file", func(r *models.Report) { r.Issues[0].File = "/etc/passwd" }, "relative"},
		{"escaping file", func(r *models.Report) { r.Issues[0].File = "../x.js" }, "relative"},
		{"backslash file", func(r *models.Report) { r.Issues[0].File = `lib\x.js` }, "relative"},
		{"missing file", func(r *models.Report) { r.Issues[0].File = "" }, "'file'"},
		{"negative line", func(r *models.Report) { r.Issues[0].Line = -1 }, "line must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := validReport()
			tt.mutate(report)
			errs := validationErrors(t, New().Check(report))
			if !containsError(errs, tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestIntentionalPatternsWithoutIssues(t *testing.T) {
	tool := "envguard"
	report := &models.Report{Summary: models.Summary{Status: models.StatusClean, IntentionalPatterns: true, SecurityTool: &tool}}
	errs := validationErrors(t, New().Check(report))
	if !containsError(errs, "no issues were found") {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestIntentionalPatternsWithoutSecurityTool(t *testing.T) {
	report := validReport()
	report.Summary.SecurityTool = nil
	for i := range report.Issues {
		report.Issues[i].Intentional = false
	}
	errs := validationErrors(t, New().Check(report))
	if !containsError(errs, "no security tool is declared") {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestIntentionalPatternsSecurityToolWithIssues(t *testing.T) {
	report := validReport()
	if !report.Summary.IntentionalPatterns || report.Summary.SecurityTool == nil || len(report.Issues) == 0 {
		t.Fatal("fixture should declare a security tool with issues")
	}
	if err := New().Check(report); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Source: "report", Errors: []string{"a", "b"}}
	want := "Invalid report:\n  - a\n  - b"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
