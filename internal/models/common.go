package models

import "time"

// Severity is a rule tier or, for findings, the effective severity after
// declared-intentional downgrades.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityInfo     Severity = "INFO"
)

// Tiers lists rule tiers from most to least severe.
var Tiers = []Severity{SeverityCritical, SeverityHigh, SeverityMedium}

// ReportOrder is the fixed grouping order used when rendering findings.
var ReportOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityInfo}

// IsTier reports whether s is a valid rule tier. INFO is not a tier.
func (s Severity) IsTier() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium:
		return true
	}
	return false
}

// Rank orders severities; lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityInfo:
		return 3
	default:
		return 4
	}
}

// Status is the scan verdict.
type Status string

const (
	StatusClean   Status = "CLEAN"
	StatusCaution Status = "CAUTION"
	StatusWarning Status = "WARNING"
	StatusBlocked Status = "BLOCKED"
)

// Rank orders statuses from CLEAN (0) to BLOCKED (3).
func (s Status) Rank() int {
	switch s {
	case StatusCaution:
		return 1
	case StatusWarning:
		return 2
	case StatusBlocked:
		return 3
	default:
		return 0
	}
}

// ParseStatus returns the status named by s (case-sensitive) and whether it is known.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusClean, StatusCaution, StatusWarning, StatusBlocked:
		return Status(s), true
	}
	return "", false
}

// Finding is one rule matched against one file.
type Finding struct {
	RuleID           string   `json:"ruleId"`
	RuleName         string   `json:"ruleName"`
	Severity         Severity `json:"severity"`
	OriginalSeverity Severity `json:"originalSeverity"`
	SeverityValue    int      `json:"severityValue"`
	RuleWeight       int      `json:"ruleWeight"`
	File             string   `json:"file"`
	Line             int      `json:"line"`
	Description      string   `json:"description"`
	Match            string   `json:"match"`
	Intentional      bool     `json:"intentional"`
}

// DeclarationInfo is the part of a skill's declaration surfaced in results.
type DeclarationInfo struct {
	IsSecurityTool bool     `json:"isSecurityTool"`
	Tool           string   `json:"tool,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	Ignored        []string `json:"ignored,omitempty"`
}

// ScanResult is the full outcome of a single scan.
type ScanResult struct {
	Root                string           `json:"root"`
	FilesScanned        int              `json:"filesScanned"`
	FilesSkipped        int              `json:"filesSkipped"`
	DirsSkipped         int              `json:"dirsSkipped"`
	Findings            []Finding        `json:"findings"`
	RawScore            int              `json:"rawScore"`
	Score               int              `json:"score"`
	Status              Status           `json:"status"`
	Duration            time.Duration    `json:"duration"`
	RootSafetyMode      bool             `json:"rootSafetyMode"`
	RunningAsRoot       bool             `json:"runningAsRoot"`
	IntentionalPatterns bool             `json:"intentionalPatterns"`
	Declaration         *DeclarationInfo `json:"declaration,omitempty"`
}

// SecurityTool returns the declared tool name when the skill was declared
// a security tool, or "" otherwise.
func (r *ScanResult) SecurityTool() string {
	if r.Declaration == nil || !r.Declaration.IsSecurityTool {
		return ""
	}
	return r.Declaration.Tool
}

// CountBySeverity counts findings whose effective severity is sev.
// Intentional findings only ever count as INFO.
func (r *ScanResult) CountBySeverity(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity != sev {
			continue
		}
		if f.Intentional && sev != SeverityInfo {
			continue
		}
		n++
	}
	return n
}

// IntentionalCount counts findings downgraded by a declaration.
func (r *ScanResult) IntentionalCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Intentional {
			n++
		}
	}
	return n
}
