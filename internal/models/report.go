package models

// Summary is the collaborator-facing digest of a scan.
type Summary struct {
	Status              Status  `json:"status"`
	Score               int     `json:"score"`
	RawScore            int     `json:"rawScore"`
	FilesScanned        int     `json:"filesScanned"`
	FilesSkipped        int     `json:"filesSkipped"`
	IssuesFound         int     `json:"issuesFound"`
	IntentionalPatterns bool    `json:"intentionalPatterns"`
	SecurityTool        *string `json:"securityTool"`
	CriticalIssues      int     `json:"criticalIssues"`
	HighIssues          int     `json:"highIssues"`
	MediumIssues        int     `json:"mediumIssues"`
	InfoIssues          int     `json:"infoIssues"`
	Duration            string  `json:"duration"`
	RootSafetyMode      bool    `json:"rootSafetyMode"`
	RunningAsRoot       bool    `json:"runningAsRoot"`
}

// Report is what the engine hands to the CLI, the install gate and the
// cloud reporter.
type Report struct {
	Summary   Summary   `json:"summary"`
	Issues    []Finding `json:"issues"`
	Formatted string    `json:"formatted"`
}
