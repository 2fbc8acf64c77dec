package tui

import (
	"sort"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
)

// filterState holds current active filters.
type filterState struct {
	Severity        models.Severity
	SearchText      string
	HideIntentional bool
}

// sortField enumerates columns that can be sorted.
type sortField int

const (
	sortBySeverity sortField = iota
	sortByRule
	sortByFile
	sortByLine
)

// sortFieldCount is the total number of sortable columns.
const sortFieldCount = 4

// applyFilters returns findings matching all active filters.
func applyFilters(findings []models.Finding, f filterState) []models.Finding {
	result := make([]models.Finding, 0, len(findings))
	searchLower := strings.ToLower(f.SearchText)

	for _, finding := range findings {
		if f.Severity != "" && finding.Severity != f.Severity {
			continue
		}
		if f.HideIntentional && finding.Intentional {
			continue
		}
		if searchLower != "" && !matchesSearch(finding, searchLower) {
			continue
		}
		result = append(result, finding)
	}
	return result
}

func matchesSearch(f models.Finding, searchLower string) bool {
	return strings.Contains(strings.ToLower(f.RuleID), searchLower) ||
		strings.Contains(strings.ToLower(f.RuleName), searchLower) ||
		strings.Contains(strings.ToLower(string(f.Severity)), searchLower) ||
		strings.Contains(strings.ToLower(f.File), searchLower) ||
		strings.Contains(strings.ToLower(f.Match), searchLower)
}

// sortFindings sorts findings in place by the given field. Ties keep
// report order.
func sortFindings(findings []models.Finding, field sortField) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		switch field {
		case sortBySeverity:
			return a.Severity.Rank() < b.Severity.Rank()
		case sortByRule:
			return a.RuleID < b.RuleID
		case sortByFile:
			if a.File != b.File {
				return a.File < b.File
			}
			return a.Line < b.Line
		case sortByLine:
			return a.Line < b.Line
		default:
			return false
		}
	})
}

// presentSeverities returns the severities that occur in findings, most
// severe first.
func presentSeverities(findings []models.Finding) []models.Severity {
	seen := make(map[models.Severity]bool)
	for _, f := range findings {
		seen[f.Severity] = true
	}
	var out []models.Severity
	for _, sev := range models.ReportOrder {
		if seen[sev] {
			out = append(out, sev)
		}
	}
	return out
}

// sortFieldName returns a human-readable name for the sort field.
func sortFieldName(f sortField) string {
	switch f {
	case sortBySeverity:
		return "severity"
	case sortByRule:
		return "rule"
	case sortByFile:
		return "file"
	case sortByLine:
		return "line"
	default:
		return "unknown"
	}
}
