package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ppiankov/clawshield/internal/aggregator"
	"github.com/ppiankov/clawshield/internal/apiclient"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/policy"
	"github.com/ppiankov/clawshield/internal/privilege"
	"github.com/ppiankov/clawshield/internal/reporter"
	"github.com/ppiankov/clawshield/internal/rules"
	"github.com/ppiankov/clawshield/internal/scanner"
	"github.com/ppiankov/clawshield/internal/storage"
	"github.com/ppiankov/clawshield/internal/tui"
)

// Replaced by tests.
var (
	isElevated = privilege.IsElevated
	runTUI     = tui.Run
	now        = time.Now
)

// historyLength is how many earlier scores the interactive browser shows.
const historyLength = 9

// ScanOptions are per-command overrides of the scan configuration.
type ScanOptions struct {
	MaxFiles     int
	MaxFileSize  int64
	PreciseLines bool
	NoRootSafety bool
}

// newScanner builds the scan engine from config and options.
func newScanner(opts ScanOptions) (*scanner.Scanner, error) {
	catalog, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to load rules: %v", err)}
	}

	maxFiles := cfg.MaxFiles
	if opts.MaxFiles > 0 {
		maxFiles = opts.MaxFiles
	}
	maxFileSize := cfg.MaxFileSize
	if opts.MaxFileSize > 0 {
		maxFileSize = opts.MaxFileSize
	}

	elevated := isElevated()
	rootSafety := privilege.RootSafety(cfg.RootSafetyMode && !opts.NoRootSafety, elevated)
	if rootSafety {
		logVerbose("running as root: root safety mode active")
	}

	return scanner.New(scanner.Config{
		MaxFiles:      maxFiles,
		MaxFileSize:   maxFileSize,
		Workers:       cfg.Workers,
		RootSafety:    rootSafety,
		RunningAsRoot: elevated,
		PreciseLines:  cfg.PreciseLines || opts.PreciseLines,
		Catalog:       catalog,
		Logger:        logger,
	}), nil
}

// PipelineConfig holds options for the shared post-scan pipeline.
type PipelineConfig struct {
	Format      string
	Output      string
	Store       bool
	Cloud       bool
	Interactive bool
	SkillPath   string
}

// RunPipeline takes a finished scan through the steps shared by scan and
// explain: report → policy → history → cloud → output.
func RunPipeline(ctx context.Context, res *models.ScanResult, pcfg PipelineConfig) (*models.Report, error) {
	// Step 1: Assemble report
	report := reporter.Assemble(res)
	logVerbose("Scanned %d files, %d issues, score %d (%s)",
		report.Summary.FilesScanned, report.Summary.IssuesFound, report.Summary.Score, report.Summary.Status)

	// Step 2: Policy check (informational for scan; install enforces it)
	if policyPath := policy.FindPolicyFile(); policyPath != "" {
		logVerbose("Found policy file: %s", policyPath)
		pol, err := policy.LoadFromFile(policyPath)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("failed to load policy: %v", err)}
		}
		if pol != nil {
			result := pol.Evaluate(report)
			for _, v := range result.Violations {
				logger.Warnw("policy violation", "rule", v.Rule, "message", v.Message)
			}
		}
	}

	skill := filepath.Base(pcfg.SkillPath)

	// Step 3: Scan history
	var history []int
	if pcfg.Store {
		var err error
		history, err = storeScan(report, skill, pcfg.SkillPath)
		if err != nil {
			logError("Failed to store scan: %v", err)
			return nil, err
		}
	}

	// Step 4: Cloud reporting never changes the outcome of a scan
	if pcfg.Cloud && cfg.CloudEnabled() {
		if err := submitToCloud(ctx, report, pcfg.SkillPath); err != nil {
			logError("Cloud report failed: %v", err)
		}
	}

	// Step 5: Output
	if pcfg.Interactive {
		if err := runTUI(report, history); err != nil {
			return nil, fmt.Errorf("interactive browser: %w", err)
		}
		return report, nil
	}
	if err := generateOutput(res, report, pcfg.Format, pcfg.Output); err != nil {
		logError("Failed to generate output: %v", err)
		return nil, err
	}

	return report, nil
}

// storeScan saves the scan and returns the scores of the skill's stored
// scans, oldest first and including this one.
func storeScan(report *models.Report, skill, skillPath string) ([]int, error) {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return nil, err
	}
	store := storage.NewLocal(storagePath)

	previous, err := store.GetLastNRuns(historyLength, skill)
	if err != nil {
		logDebug("No previous scans of %s: %v", skill, err)
	}

	current := &storage.StoredScan{
		Timestamp:   now().UTC(),
		Skill:       skill,
		Path:        skillPath,
		Fingerprint: apiclient.Fingerprint(skillPath),
		Summary:     report.Summary,
		Issues:      report.Issues,
	}
	if err := store.SaveScan(current); err != nil {
		return nil, err
	}
	logVerbose("Stored scan in: %s", storagePath)

	if len(previous) > 0 {
		trend := aggregator.NewTrendAnalyzer().CalculateTrend(current, previous[len(previous)-1])
		logVerbose("Score %d → %d (%s %s), %d new, %d resolved",
			trend.PreviousScore, trend.CurrentScore, trend.Direction,
			aggregator.GetTrendIndicator(trend.Direction),
			len(trend.NewFindings), len(trend.ResolvedFindings))
	}

	return append(aggregator.Scores(previous), report.Summary.Score), nil
}

// submitToCloud sends the anonymized scan to the configured endpoint.
func submitToCloud(ctx context.Context, report *models.Report, skillPath string) error {
	client := apiclient.New(cfg.Endpoint, cfg.APIKey)
	if client == nil {
		return nil
	}

	payload := apiclient.BuildPayload(report, skillPath, now())
	if err := client.SubmitScan(ctx, payload); err != nil {
		return err
	}

	logVerbose("Scan reported to %s", cfg.Endpoint)
	return nil
}

// generateOutput writes the report in the requested format.
func generateOutput(res *models.ScanResult, report *models.Report, format, outputPath string) error {
	var writer io.Writer = os.Stdout
	color := isTerminal(os.Stdout)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
		color = false
	}

	return writeReport(writer, res, report, format, color)
}

func writeReport(w io.Writer, res *models.ScanResult, report *models.Report, format string, color bool) error {
	switch format {
	case "text":
		return reporter.NewTextReporter(w).WithColor(color).Generate(res)
	case "json":
		return reporter.NewJSONReporter(w, true).Generate(report)
	case "sarif":
		return reporter.NewSARIFReporter(w, buildVersion).Generate(res)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or sarif)", format)}
	}
}

func validateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return &ValidationError{Message: fmt.Sprintf("invalid format: %s (must be %s)", format, strings.Join(allowed, ", "))}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
