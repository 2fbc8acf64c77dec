package models

import "time"

// SkillReport is the scan of one installed skill during an audit.
type SkillReport struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Location string  `json:"location,omitempty"`
	Report   *Report `json:"report,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// AuditSummary rolls up the scans of many skills.
type AuditSummary struct {
	TotalSkills   int            `json:"total_skills"`
	ScannedSkills int            `json:"scanned_skills"`
	FailedSkills  int            `json:"failed_skills"`
	WorstStatus   Status         `json:"worst_status"`
	HighestScore  int            `json:"highest_score"`
	TotalIssues   int            `json:"total_issues"`
	ByStatus      map[Status]int `json:"by_status"`
	IssuesByRule  map[string]int `json:"issues_by_rule"`
}

// AuditReport is the result of scanning every installed skill.
type AuditReport struct {
	Timestamp       time.Time        `json:"timestamp"`
	Skills          []SkillReport    `json:"skills"`
	Summary         AuditSummary     `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommendation is remediation advice for one rule.
type Recommendation struct {
	Severity Severity `json:"severity"`
	RuleID   string   `json:"rule_id"`
	Action   string   `json:"action"`
	Impact   string   `json:"impact"`
	Count    int      `json:"count"`
}

// Trend compares a scan of a skill with its previous scan.
type Trend struct {
	ComparedWith     time.Time `json:"compared_with"`
	PreviousScore    int       `json:"previous_score"`
	CurrentScore     int       `json:"current_score"`
	PreviousStatus   Status    `json:"previous_status"`
	CurrentStatus    Status    `json:"current_status"`
	Change           int       `json:"change"`
	Direction        string    `json:"direction"` // improving, degrading, stable
	NewFindings      []Finding `json:"new_findings"`
	ResolvedFindings []Finding `json:"resolved_findings"`
}

// TrendSummary describes the score history of a skill.
type TrendSummary struct {
	Skill          string `json:"skill"`
	RunsAnalyzed   int    `json:"runs_analyzed"`
	TimeRange      string `json:"time_range"`
	ScoreSparkline []int  `json:"score_sparkline"`
	Direction      string `json:"direction"`
}
