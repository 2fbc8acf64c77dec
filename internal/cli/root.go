package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/clawshield/internal/config"
	"github.com/ppiankov/clawshield/internal/install"
	"github.com/ppiankov/clawshield/internal/logging"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/policy"
	"github.com/ppiankov/clawshield/internal/validator"
)

const (
	// Scan exit codes follow the status of the scanned skill
	ExitClean   = 0
	ExitCaution = 1
	ExitWarning = 2
	ExitBlocked = 3

	// Install exit codes
	ExitInstalled      = 0
	ExitInstallBlocked = 1
	ExitInstallFailed  = 2

	ExitPolicyFail   = 1  // New findings or policy violations
	ExitInvalidInput = 2  // Report failed validation
	ExitError        = 99 // Path not found, bad flags, I/O
)

var (
	// Global config instance
	cfg *config.Config

	// Logger built from --verbose and --debug
	logger = logging.Nop()

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// buildVersion is set by main via SetVersion
	buildVersion = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clawshield",
	Short: "ClawShield - Security scanner for agent skills",
	Long: `ClawShield scans agent skill directories for malicious or risky code
before you install them: data exfiltration, credential harvesting, reverse
shells, obfuscated payloads and download-and-execute chains.

Skills that legitimately contain such patterns (security tools) declare
them in a .clawshieldignore file and are reported as intentional.

Quick start:
  clawshield scan ./my-skill
  clawshield install weather-skill
  clawshield audit

Other commands:
  clawshield history --skill my-skill
  clawshield diff my-skill
  clawshield explain-score ./my-skill
  clawshield export --format sarif
  clawshield doctor`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return &ValidationError{Message: fmt.Sprintf("failed to load config: %v", err)}
		}

		// Override config with flags if provided
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		l, err := logging.New(cfg.Verbose, cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l

		return nil
	},
}

// Execute runs the root command and exits with the mapped exit code
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil && !isQuiet(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(HandleError(err))
}

// SetVersion sets the version reported by the version command and in SARIF
func SetVersion(v string) {
	buildVersion = v
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./clawshield.yaml or ~/clawshield.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(explainScoreCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ClawShield %s\n", buildVersion)
		fmt.Println("Security scanner for agent skills")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitClean
	}

	var statusErr *StatusError
	var blockedErr *BlockedError
	var thresholdErr *ThresholdExceededError
	var reportErr *validator.ValidationError
	var failedErr *install.FailedError

	switch {
	case errors.As(err, &statusErr):
		return statusErr.Status.Rank()
	case errors.As(err, &blockedErr):
		return ExitInstallBlocked
	case errors.Is(err, install.ErrRootRequiresForce):
		return ExitInstallBlocked
	case errors.As(err, &failedErr) && failedErr.Result.Step == "install":
		return ExitInstallFailed
	case errors.As(err, &thresholdErr):
		return ExitPolicyFail
	case errors.As(err, &reportErr):
		return ExitInvalidInput
	default:
		return ExitError
	}
}

// isQuiet reports whether err was already explained by command output
func isQuiet(err error) bool {
	var statusErr *StatusError
	var blockedErr *BlockedError
	return errors.As(err, &statusErr) || errors.As(err, &blockedErr)
}

// ValidationError represents invalid flags, arguments or configuration
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StatusError carries a non-clean scan status to the exit code
type StatusError struct {
	Status models.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scan status: %s", e.Status)
}

// statusResult returns nil for CLEAN and a StatusError otherwise
func statusResult(s models.Status) error {
	if s.Rank() == 0 {
		return nil
	}
	return &StatusError{Status: s}
}

// BlockedError reports a skill the install gate refused
type BlockedError struct {
	Status     models.Status
	Threshold  models.Status
	Violations []policy.Violation
}

func (e *BlockedError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("install blocked: status %s, %d policy violation(s)", e.Status, len(e.Violations))
	}
	return fmt.Sprintf("install blocked: status %s meets threshold %s", e.Status, e.Threshold)
}

// ThresholdExceededError represents a CI gate failure
type ThresholdExceededError struct {
	IssueCount int
	Threshold  int
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("issue count (%d) exceeds threshold (%d)", e.IssueCount, e.Threshold)
}

// commandContext returns the command context cancelled on interrupt
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := context.Background()
	if cmd != nil && cmd.Context() != nil {
		parent = cmd.Context()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

// logVerbose logs at info level, shown with --verbose
func logVerbose(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// logDebug logs at debug level, shown with --debug
func logDebug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// logError logs an error
func logError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// setLogger replaces the package logger; used by tests
func setLogger(l *zap.SugaredLogger) func() {
	old := logger
	logger = l
	return func() { logger = old }
}
