// Package validator checks ClawShield JSON reports for internal
// consistency, e.g. reports stored by CI or sent between tools.
package validator

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/scoring"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s:\n  - %s", e.Source, strings.Join(e.Errors, "\n  - "))
}

//go:embed report.schema.json
var reportSchema string

// Validator validates ClawShield JSON reports
type Validator struct {
	schema gojsonschema.JSONLoader
}

// New creates a new validator
func New() *Validator {
	return &Validator{schema: gojsonschema.NewStringLoader(reportSchema)}
}

// ValidateReport parses data as a JSON report, checks its shape against the
// report schema and then its consistency.
func (v *Validator) ValidateReport(data []byte) error {
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return &ValidationError{
			Source: "report",
			Errors: []string{fmt.Sprintf("Failed to parse JSON: %v", err)},
		}
	}
	if err := v.checkSchema(data); err != nil {
		return err
	}
	return v.Check(&report)
}

// checkSchema reports missing fields, which json.Unmarshal zero-fills.
func (v *Validator) checkSchema(data []byte) error {
	result, err := gojsonschema.Validate(v.schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("report schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, "Schema: "+e.String())
	}
	return &ValidationError{Source: "report", Errors: errs}
}

// Check verifies that summary and issues of a report agree with each other
// and with the scoring rules.
func (v *Validator) Check(report *models.Report) error {
	var errs []string
	s := report.Summary

	if _, ok := models.ParseStatus(string(s.Status)); !ok {
		errs = append(errs, fmt.Sprintf("Field 'summary.status' has invalid value: '%s'", s.Status))
	} else if s.Score >= 0 && s.Score <= scoring.MaxScore {
		if want := scoring.Evaluate(s.Score, s.RootSafetyMode); want != s.Status {
			errs = append(errs, fmt.Sprintf("Status %s does not match score %d (expected %s)", s.Status, s.Score, want))
		}
	}

	if s.Score < 0 || s.Score > scoring.MaxScore {
		errs = append(errs, fmt.Sprintf("Field 'summary.score' must be between 0 and %d, got %d", scoring.MaxScore, s.Score))
	}
	if s.RawScore < 0 {
		errs = append(errs, "Field 'summary.rawScore' must be non-negative")
	}
	if s.FilesScanned < 0 {
		errs = append(errs, "Field 'summary.filesScanned' must be non-negative")
	}
	if s.FilesSkipped < 0 {
		errs = append(errs, "Field 'summary.filesSkipped' must be non-negative")
	}
	if s.RootSafetyMode && !s.RunningAsRoot {
		errs = append(errs, "Root safety mode is active but the scan did not run as root")
	}
	if s.IssuesFound != len(report.Issues) {
		errs = append(errs, fmt.Sprintf("Field 'summary.issuesFound' is %d but report has %d issues", s.IssuesFound, len(report.Issues)))
	}

	counts := make(map[models.Severity]int)
	intentional := 0
	for i, f := range report.Issues {
		errs = append(errs, v.checkFinding(i, f)...)
		if f.Intentional {
			intentional++
			counts[models.SeverityInfo]++
			continue
		}
		counts[f.Severity]++
	}

	expected := []struct {
		field string
		got   int
		sev   models.Severity
	}{
		{"criticalIssues", s.CriticalIssues, models.SeverityCritical},
		{"highIssues", s.HighIssues, models.SeverityHigh},
		{"mediumIssues", s.MediumIssues, models.SeverityMedium},
		{"infoIssues", s.InfoIssues, models.SeverityInfo},
	}
	for _, e := range expected {
		if e.got != counts[e.sev] {
			errs = append(errs, fmt.Sprintf("Field 'summary.%s' is %d but issues contain %d", e.field, e.got, counts[e.sev]))
		}
	}

	// intentionalPatterns requires a security-tool declaration and at least
	// one issue. The tool name is optional, so a nil securityTool is only
	// accepted when some issue was declared intentional.
	if s.IntentionalPatterns {
		if len(report.Issues) == 0 {
			errs = append(errs, "Field 'summary.intentionalPatterns' is set but no issues were found")
		}
		if s.SecurityTool == nil && intentional == 0 {
			errs = append(errs, "Field 'summary.intentionalPatterns' is set but no security tool is declared")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Source: "report", Errors: errs}
	}
	return nil
}

// checkFinding validates a single issue
func (v *Validator) checkFinding(i int, f models.Finding) []string {
	var errs []string
	at := fmt.Sprintf("Issue %d", i)
	if f.RuleID != "" {
		at = fmt.Sprintf("Issue %d (%s)", i, f.RuleID)
	}

	if f.RuleID == "" {
		errs = append(errs, at+": missing required field 'ruleId'")
	}
	if !f.OriginalSeverity.IsTier() {
		errs = append(errs, fmt.Sprintf("%s: invalid originalSeverity '%s'", at, f.OriginalSeverity))
	}

	if f.Intentional {
		if f.Severity != models.SeverityInfo {
			errs = append(errs, fmt.Sprintf("%s: intentional issue must have severity INFO, got '%s'", at, f.Severity))
		}
		if f.SeverityValue != 0 {
			errs = append(errs, at+": intentional issue must not add to the score")
		}
	} else if f.Severity != f.OriginalSeverity {
		errs = append(errs, fmt.Sprintf("%s: severity '%s' differs from originalSeverity '%s'", at, f.Severity, f.OriginalSeverity))
	}

	switch {
	case f.File == "":
		errs = append(errs, at+": missing required field 'file'")
	case strings.Contains(f.File, "\\"), path.IsAbs(f.File), !isLocal(f.File):
		errs = append(errs, fmt.Sprintf("%s: file '%s' must be a relative slash-separated path", at, f.File))
	}
	if f.Line < 0 {
		errs = append(errs, fmt.Sprintf("%s: line must not be negative, got %d", at, f.Line))
	}

	return errs
}

func isLocal(p string) bool {
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
