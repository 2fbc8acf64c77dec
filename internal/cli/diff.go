package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/aggregator"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/storage"
)

var (
	diffFormat   string
	diffOutput   string
	diffBaseline string
	diffFailNew  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <skill>",
	Short: "Show what changed between two scans of a skill",
	Long: `Compare the latest stored scan of a skill against a baseline to show
drift: new findings, resolved findings and the score change.

By default compares the two most recent stored scans of the skill. Use
--baseline to compare against a JSON report written by 'clawshield scan
--format json'.

Exit codes:
  0  No new findings (or --fail-new not set)
  1  New findings detected (with --fail-new)

Example:
  clawshield diff weather-skill
  clawshield diff weather-skill --fail-new
  clawshield diff weather-skill --baseline ./baseline.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text",
		"output format: text or json")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "",
		"write output to file instead of stdout")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "",
		"path to baseline report JSON (default: previous stored scan)")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit 1 if new findings are found (for CI gating)")
}

// DiffResult is the structured output of a diff operation.
type DiffResult struct {
	Skill    string       `json:"skill"`
	Baseline string       `json:"baseline"`
	Current  string       `json:"current"`
	Trend    models.Trend `json:"trend"`
	Summary  DiffSummary  `json:"summary"`
}

// DiffSummary holds aggregate counts for a diff.
type DiffSummary struct {
	BaselineTotal int                     `json:"baseline_total"`
	CurrentTotal  int                     `json:"current_total"`
	NewCount      int                     `json:"new_count"`
	ResolvedCount int                     `json:"resolved_count"`
	Delta         int                     `json:"delta"` // positive = more findings
	NewBySeverity map[models.Severity]int `json:"new_by_severity"`
	NewByRule     map[string]int          `json:"new_by_rule"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	if err := validateFormat(diffFormat, "text", "json"); err != nil {
		return err
	}
	skill := args[0]

	store, err := openStore()
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	var baseline, current *storage.StoredScan
	if diffBaseline != "" {
		current, err = store.GetLatestForSkill(skill)
		if err != nil {
			return noScansError(skill, err)
		}
		baseline, err = loadBaselineReport(diffBaseline, skill)
		if err != nil {
			logError("Failed to load baseline: %v", err)
			return err
		}
	} else {
		scans, err := store.GetLastNRuns(2, skill)
		if err != nil {
			return noScansError(skill, err)
		}
		if len(scans) < 2 {
			fmt.Printf("Need at least 2 stored scans of %s for diff.\n", skill)
			fmt.Println("Run 'clawshield scan --store' again to record another scan.")
			return nil
		}
		baseline, current = scans[0], scans[1]
	}

	logVerbose("Comparing %s (current) vs %s (baseline)",
		current.Timestamp.Format("2006-01-02 15:04"),
		baseline.Timestamp.Format("2006-01-02 15:04"))

	result := computeDiff(skill, baseline, current)

	if err := outputDiff(result, diffFormat, diffOutput); err != nil {
		return err
	}

	// CI gate
	if diffFailNew && result.Summary.NewCount > 0 {
		return &ThresholdExceededError{
			IssueCount: result.Summary.NewCount,
			Threshold:  0,
		}
	}

	return nil
}

// computeDiff calculates new and resolved findings between two scans.
func computeDiff(skill string, baseline, current *storage.StoredScan) *DiffResult {
	trend := aggregator.NewTrendAnalyzer().CalculateTrend(current, baseline)

	newBySeverity := map[models.Severity]int{}
	newByRule := map[string]int{}
	for _, f := range trend.NewFindings {
		newBySeverity[f.Severity]++
		newByRule[f.RuleID]++
	}

	return &DiffResult{
		Skill:    skill,
		Baseline: formatScanTime(baseline),
		Current:  formatScanTime(current),
		Trend:    *trend,
		Summary: DiffSummary{
			BaselineTotal: len(baseline.Issues),
			CurrentTotal:  len(current.Issues),
			NewCount:      len(trend.NewFindings),
			ResolvedCount: len(trend.ResolvedFindings),
			Delta:         len(current.Issues) - len(baseline.Issues),
			NewBySeverity: newBySeverity,
			NewByRule:     newByRule,
		},
	}
}

// outputDiff renders the diff result to the chosen format.
func outputDiff(result *DiffResult, format, outputPath string) error {
	var writer io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		printDiffText(writer, result)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use text or json)", format)
	}
}

func printDiffText(w io.Writer, r *DiffResult) {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║           ClawShield Scan Delta            ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Skill:    %s\n", r.Skill)
	p("Baseline: %s\n", r.Baseline)
	p("Current:  %s\n\n", r.Current)

	t := r.Trend
	p("Score:  %d → %d (%s %s)\n", t.PreviousScore, t.CurrentScore,
		t.Direction, aggregator.GetTrendIndicator(t.Direction))
	if t.PreviousStatus != t.CurrentStatus {
		p("Status: %s → %s\n", t.PreviousStatus, t.CurrentStatus)
	}

	deltaSign := "+"
	if r.Summary.Delta < 0 {
		deltaSign = ""
	}
	p("Issues: %d → %d (%s%d)\n", r.Summary.BaselineTotal, r.Summary.CurrentTotal, deltaSign, r.Summary.Delta)
	p("New: %d   Resolved: %d\n\n", r.Summary.NewCount, r.Summary.ResolvedCount)

	if len(t.NewFindings) > 0 {
		p("New Findings:\n")
		p("--------------------------------------------------\n")
		for _, f := range t.NewFindings {
			p("  [%s] %s: %s:%d\n", f.Severity, f.RuleID, f.File, f.Line)
			if f.Match != "" {
				p("         %s\n", f.Match)
			}
		}
		p("\n")
	}

	if len(t.ResolvedFindings) > 0 {
		p("Resolved Findings:\n")
		p("--------------------------------------------------\n")
		for _, f := range t.ResolvedFindings {
			p("  ✓ %s: %s\n", f.RuleID, f.File)
		}
		p("\n")
	}

	if len(r.Summary.NewBySeverity) > 0 {
		p("New by Severity:\n")
		for _, sev := range models.ReportOrder {
			if n := r.Summary.NewBySeverity[sev]; n > 0 {
				p("  %s: %d\n", sev, n)
			}
		}
		p("\n")
	}

	if r.Summary.NewCount == 0 && r.Summary.ResolvedCount == 0 {
		p("No drift detected.\n")
	} else if r.Summary.NewCount == 0 {
		p("No new findings, only improvements.\n")
	}
}

// loadBaselineReport loads a JSON scan report as a stored scan of skill.
func loadBaselineReport(path, skill string) (*storage.StoredScan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &storage.StoredScan{
		Timestamp: info.ModTime().UTC(),
		Skill:     skill,
		Path:      filepath.Clean(path),
		Summary:   report.Summary,
		Issues:    report.Issues,
	}, nil
}

func formatScanTime(s *storage.StoredScan) string {
	return s.Timestamp.Local().Format("2006-01-02 15:04:05")
}

// noScansError explains a missing history and preserves storage failures.
func noScansError(skill string, err error) error {
	if errors.Is(err, storage.ErrNoRuns) {
		return &ValidationError{Message: fmt.Sprintf("no stored scans of %s (run 'clawshield scan --store' first)", skill)}
	}
	return err
}
