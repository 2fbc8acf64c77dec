package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/reporter"
	"github.com/ppiankov/clawshield/internal/scoring"
)

var explainFormat string

var explainScoreCmd = &cobra.Command{
	Use:   "explain-score <path|skill>",
	Short: "Show the risk score formula step by step",
	Long: `Explain-score shows exactly how the risk score of a skill was
calculated:

  1. Findings per severity tier and the tier weights
  2. The raw score (intentional findings add nothing)
  3. The root safety multiplier, when active
  4. The status thresholds and escalation

When the argument is a directory it is scanned; otherwise it names a skill
whose latest stored scan is explained.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplainScore,
}

func init() {
	explainScoreCmd.Flags().StringVar(&explainFormat, "format", "text",
		"output format: text or json")
}

// explainResult holds the structured explanation.
type explainResult struct {
	Source         string             `json:"source"`
	PerTier        []tierContribution `json:"per_tier"`
	Intentional    int                `json:"intentional"`
	RawScore       int                `json:"raw_score"`
	RootSafetyMode bool               `json:"root_safety_mode"`
	Multiplier     float64            `json:"multiplier"`
	Score          int                `json:"score"`
	BaseStatus     models.Status      `json:"base_status"`
	Status         models.Status      `json:"status"`
	Formula        string             `json:"formula"`
	Thresholds     []threshold        `json:"thresholds"`
}

type tierContribution struct {
	Tier     models.Severity `json:"tier"`
	Weight   int             `json:"weight"`
	Findings int             `json:"findings"`
	Points   int             `json:"points"`
}

type threshold struct {
	Min    int           `json:"min"`
	Status models.Status `json:"status"`
}

func runExplainScore(cmd *cobra.Command, args []string) error {
	if err := validateFormat(explainFormat, "text", "json"); err != nil {
		return err
	}

	report, source, err := loadExplainTarget(cmd, args[0])
	if err != nil {
		return err
	}

	result := buildExplanation(report)
	result.Source = source

	if explainFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	writeExplainText(os.Stdout, result)
	return nil
}

// loadExplainTarget scans a directory or loads the latest stored scan.
func loadExplainTarget(cmd *cobra.Command, target string) (*models.Report, string, error) {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve path: %w", err)
		}
		s, err := newScanner(ScanOptions{})
		if err != nil {
			return nil, "", err
		}
		res, err := s.Scan(ctx, abs)
		if err != nil {
			return nil, "", fmt.Errorf("scan failed: %w", err)
		}
		return reporter.Assemble(res), abs, nil
	}

	store, err := openStore()
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve storage path: %w", err)
	}
	scan, err := store.GetLatestForSkill(target)
	if err != nil {
		return nil, "", noScansError(target, err)
	}
	return &models.Report{Summary: scan.Summary, Issues: scan.Issues},
		fmt.Sprintf("stored scan of %s at %s", scan.Skill, formatScanTime(scan)), nil
}

func buildExplanation(report *models.Report) explainResult {
	result := explainResult{
		Thresholds: []threshold{
			{Min: scoring.BlockedThreshold, Status: models.StatusBlocked},
			{Min: scoring.WarningThreshold, Status: models.StatusWarning},
			{Min: scoring.CautionThreshold, Status: models.StatusCaution},
			{Min: 0, Status: models.StatusClean},
		},
		RootSafetyMode: report.Summary.RootSafetyMode,
		Multiplier:     1,
	}

	counts := make(map[models.Severity]int)
	for _, f := range report.Issues {
		if f.Intentional {
			result.Intentional++
			continue
		}
		counts[f.Severity]++
	}

	terms := ""
	for _, tier := range models.Tiers {
		tc := tierContribution{
			Tier:     tier,
			Weight:   scoring.TierWeight(tier),
			Findings: counts[tier],
		}
		tc.Points = tc.Weight * tc.Findings
		result.RawScore += tc.Points
		result.PerTier = append(result.PerTier, tc)

		if terms != "" {
			terms += " + "
		}
		terms += fmt.Sprintf("%d×%d", tc.Findings, tc.Weight)
	}

	if result.RootSafetyMode {
		result.Multiplier = scoring.RootSafetyMultiplier
	}
	result.Score = scoring.FinalScore(result.RawScore, result.RootSafetyMode)
	result.BaseStatus = scoring.Classify(result.Score)
	result.Status = scoring.Evaluate(result.Score, result.RootSafetyMode)

	if result.RootSafetyMode {
		result.Formula = fmt.Sprintf("min(round((%s) × %.1f), %d) = %d",
			terms, result.Multiplier, scoring.MaxScore, result.Score)
	} else {
		result.Formula = fmt.Sprintf("min(%s, %d) = %d", terms, scoring.MaxScore, result.Score)
	}

	return result
}

func writeExplainText(w io.Writer, result explainResult) {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("Risk Score Breakdown\n")
	p("====================\n")
	if result.Source != "" {
		p("Source: %s\n", result.Source)
	}
	p("\n")

	// Step 1: Per-tier findings
	p("1. Findings per tier:\n")
	for _, tc := range result.PerTier {
		p("   %-9s  %d finding(s) × %2d = %d\n", tc.Tier, tc.Findings, tc.Weight, tc.Points)
	}
	if result.Intentional > 0 {
		p("   %-9s  %d intentional finding(s), not scored\n", models.SeverityInfo, result.Intentional)
	}
	p("\n")

	// Step 2: Raw score
	p("2. Raw score: %d\n\n", result.RawScore)

	// Step 3: Formula
	p("3. Formula:\n")
	if result.RootSafetyMode {
		p("   root safety mode active: raw score × %.1f\n", result.Multiplier)
	}
	p("   score = %s\n\n", result.Formula)

	// Step 4: Thresholds
	p("4. Thresholds:\n")
	for _, t := range result.Thresholds {
		marker := "  "
		if result.BaseStatus == t.Status {
			marker = "→ "
		}
		p("   %s≥ %-3d %s\n", marker, t.Min, t.Status)
	}
	if result.Status != result.BaseStatus {
		p("   escalated under root safety: %s → %s\n", result.BaseStatus, result.Status)
	}
	p("\n")

	p("Result: %s (score %d)\n", result.Status, result.Score)
}
