package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/scanner"
)

var (
	scanFormat       string
	scanOutput       string
	scanNoCloud      bool
	scanStore        bool
	scanInteractive  bool
	scanMaxFiles     int
	scanMaxFileSize  int64
	scanPreciseLines bool
	scanNoRootSafety bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a skill directory for malicious patterns",
	Long: `Scan walks a skill directory, matches every source file against the
rule catalog and prints a risk score and status.

Files under node_modules, .git, tests and cache directories are skipped,
as are files over the size limit. Patterns the skill declares intentional
in .clawshieldignore are reported as INFO and do not add to the score.

Exit codes:
  0   CLEAN
  1   CAUTION
  2   WARNING
  3   BLOCKED
  99  Error (path not found, bad flags, I/O)

Example:
  clawshield scan ./weather-skill
  clawshield scan ./weather-skill --format json -o report.json
  clawshield scan ./weather-skill --store --interactive`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "",
		"output format: text, json, or sarif (default from config)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "",
		"write output to file")
	scanCmd.Flags().BoolVar(&scanNoCloud, "no-cloud", false,
		"do not report this scan to the cloud endpoint")
	scanCmd.Flags().BoolVar(&scanStore, "store", false,
		"persist the scan for history and diff")
	scanCmd.Flags().BoolVarP(&scanInteractive, "interactive", "i", false,
		"browse findings interactively (terminal only)")
	scanCmd.Flags().IntVar(&scanMaxFiles, "max-files", 0,
		"maximum number of files to scan (default from config)")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 0,
		"maximum file size in bytes (default from config)")
	scanCmd.Flags().BoolVar(&scanPreciseLines, "precise-lines", false,
		"report the line of each match instead of the first occurrence")
	scanCmd.Flags().BoolVar(&scanNoRootSafety, "no-root-safety", false,
		"disable root safety mode when running as root")
}

func runScan(cmd *cobra.Command, args []string) error {
	format := scanFormat
	if format == "" {
		format = cfg.Format
	}
	if err := validateFormat(format, "text", "json", "sarif"); err != nil {
		return err
	}
	if scanMaxFiles < 0 || scanMaxFileSize < 0 {
		return &ValidationError{Message: "--max-files and --max-file-size must be positive"}
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	s, err := newScanner(ScanOptions{
		MaxFiles:     scanMaxFiles,
		MaxFileSize:  scanMaxFileSize,
		PreciseLines: scanPreciseLines,
		NoRootSafety: scanNoRootSafety,
	})
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	logVerbose("Scanning %s", path)
	res, err := s.Scan(ctx, path)
	if err != nil {
		var notFound *scanner.PathNotFoundError
		if errors.As(err, &notFound) {
			return err
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	interactive := scanInteractive
	if interactive && (scanOutput != "" || !isTerminal(os.Stdout)) {
		logVerbose("Not a terminal, printing the report instead of the interactive browser")
		interactive = false
	}

	report, err := RunPipeline(ctx, res, PipelineConfig{
		Format:      format,
		Output:      scanOutput,
		Store:       scanStore || cfg.Store,
		Cloud:       !scanNoCloud,
		Interactive: interactive,
		SkillPath:   path,
	})
	if err != nil {
		return err
	}

	return statusResult(report.Summary.Status)
}
