package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/install"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/policy"
	"github.com/ppiankov/clawshield/internal/reporter"
	"github.com/ppiankov/clawshield/internal/runner"
)

// execCommand runs installer commands; replaced by tests.
var execCommand runner.ExecFunc = runner.ExecCommand

var (
	installFailOn    string
	installForce     bool
	installReportOut string
	installFormat    string
	installDryRun    bool
)

var installCmd = &cobra.Command{
	Use:   "install <skill>",
	Short: "Scan a skill in quarantine and install it only if it passes",
	Long: `Install fetches a skill into a private quarantine directory, scans it,
and runs the installer only when the scan status is below the threshold
and the policy file (if any) passes.

The skill can be a registry name, a local path (./skill, /abs/skill) or
github:owner/repo[@branch]. The quarantine is always removed afterwards.

The default threshold is WARNING, or CAUTION when running as root.
Installing as root requires --force.

Exit codes:
  0   Installed (or dry run)
  1   Blocked by the security gate
  2   Installer failed
  99  Error

Example:
  clawshield install weather-skill
  clawshield install ./my-skill --fail-on CAUTION
  clawshield install github:acme/skill@dev --dry-run --report-out report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installFailOn, "fail-on", "",
		"block at this status or worse: BLOCKED, WARNING, or CAUTION")
	installCmd.Flags().BoolVar(&installForce, "force", false,
		"install even if the scan fails the gate")
	installCmd.Flags().StringVar(&installReportOut, "report-out", "",
		"write the JSON scan report to file")
	installCmd.Flags().StringVar(&installFormat, "format", "text",
		"report output format: text, json, or sarif")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false,
		"scan and evaluate but do not install")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if err := validateFormat(installFormat, "text", "json", "sarif"); err != nil {
		return err
	}

	failOn := installFailOn
	if failOn == "" {
		failOn = cfg.FailOn
	}
	var threshold models.Status
	if failOn != "" {
		t, err := policy.ParseThreshold(failOn)
		if err != nil {
			return &ValidationError{Message: err.Error()}
		}
		threshold = t
	}

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	s, err := newScanner(ScanOptions{})
	if err != nil {
		return err
	}

	orch := &install.Orchestrator{
		Scanner:       s,
		Runner:        runner.New(execCommand),
		QuarantineDir: cfg.GetQuarantineDir(),
		InstallCmd:    cfg.InstallCmd,
		Timeout:       runner.DefaultTimeout,
		Logger:        logger,
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	stop := startProgress("Scanning " + args[0] + " in quarantine...")
	out, runErr := orch.Run(ctx, args[0], install.Options{
		Threshold: threshold,
		Policy:    pol,
		Force:     installForce,
		DryRun:    installDryRun,
		Elevated:  isElevated(),
	})
	stop()

	if out != nil && out.Report != nil {
		if err := writeReport(os.Stdout, out.Result, out.Report, installFormat, isTerminal(os.Stdout)); err != nil {
			return err
		}
		if installReportOut != "" {
			if err := writeReportFile(installReportOut, out.Report); err != nil {
				return err
			}
			logVerbose("Report written to %s", installReportOut)
		}
	}
	if out != nil {
		printInstallOutcome(os.Stderr, out)
	}

	if runErr != nil {
		var failed *install.FailedError
		if errors.As(runErr, &failed) {
			logError("%s", failed.Error())
		}
		return runErr
	}

	if out.Blocked && !out.Forced {
		blocked := &BlockedError{Status: out.Result.Status, Threshold: out.Threshold}
		if out.Policy != nil {
			blocked.Violations = out.Policy.Violations
		}
		return blocked
	}

	return nil
}

// loadPolicy loads the nearest policy file, if any.
func loadPolicy() (*policy.Policy, error) {
	path := policy.FindPolicyFile()
	if path == "" {
		return nil, nil
	}
	logVerbose("Found policy file: %s", path)
	pol, err := policy.LoadFromFile(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to load policy: %v", err)}
	}
	return pol, nil
}

func writeReportFile(path string, report *models.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return reporter.NewJSONReporter(f, true).Generate(report)
}

// printInstallOutcome prints the gate decision and what happened next.
func printInstallOutcome(w io.Writer, out *install.Outcome) {
	if out.RootRefused {
		fmt.Fprintln(w, "Refusing to install as root. Re-run with --force, or use --dry-run to scan only.")
		return
	}
	if out.Result == nil {
		return
	}

	fmt.Fprintf(w, "Skill:     %s (%s)\n", out.Ref.Raw, out.Ref.Kind)
	fmt.Fprintf(w, "Status:    %s (%d/100), threshold %s\n", out.Result.Status, out.Result.Score, out.Threshold)

	if out.Policy != nil && !out.Policy.Pass {
		for _, v := range out.Policy.Violations {
			fmt.Fprintf(w, "Policy:    [%s] %s\n", v.Rule, v.Message)
		}
	}

	switch {
	case out.Blocked && !out.Forced:
		fmt.Fprintln(w, "Result:    BLOCKED, not installed")
	case out.DryRun:
		verdict := "would install"
		if out.Blocked {
			verdict = "would install (forced past the gate)"
		}
		fmt.Fprintf(w, "Result:    dry run, %s: %s\n", verdict, out.InstallCmd)
	case out.Installed:
		note := ""
		if out.Blocked {
			note = " (forced past the gate)"
		}
		fmt.Fprintf(w, "Result:    installed%s\n", note)
	case out.Install != nil:
		fmt.Fprintf(w, "Result:    install failed: %s\n", strings.TrimSpace(out.Install.Error))
	default:
		fmt.Fprintln(w, "Result:    not installed")
	}
}
