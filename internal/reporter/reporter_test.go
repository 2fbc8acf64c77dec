package reporter

import (
	"time"

	"github.com/ppiankov/clawshield/internal/models"
)

func sampleResult() *models.ScanResult {
	return &models.ScanResult{
		Root:         "/tmp/skill",
		FilesScanned: 3,
		FilesSkipped: 1,
		Findings: []models.Finding{
			{
				RuleID: "REVERSE_SHELL", RuleName: "Reverse shell detection",
				Severity: models.SeverityCritical, OriginalSeverity: models.SeverityCritical,
				SeverityValue: 10, File: "run.sh", Line: 3,
				Description: "Potential reverse shell or backdoor", Match: "bash -i",
			},
			{
				RuleID: "NETWORK_REQUEST", RuleName: "External network request",
				Severity: models.SeverityHigh, OriginalSeverity: models.SeverityHigh,
				SeverityValue: 5, File: "lib/net.js", Line: 12,
				Description: "Making external network requests", Match: "fetch(",
			},
			{
				RuleID: "CREDENTIAL_HARVESTING", RuleName: "Credential harvesting",
				Severity: models.SeverityInfo, OriginalSeverity: models.SeverityCritical,
				File: "index.js", Line: 1, Intentional: true,
				Description: "Attempting to access environment variables or credentials",
			},
		},
		RawScore:            15,
		Score:               15,
		Status:              models.StatusClean,
		Duration:            42 * time.Millisecond,
		IntentionalPatterns: true,
		Declaration: &models.DeclarationInfo{
			IsSecurityTool: true,
			Tool:           "envguard",
			Reason:         "detects leaked credentials",
			Ignored:        []string{"CREDENTIAL_HARVESTING"},
		},
	}
}
