// Package install fetches a skill into quarantine, scans it and hands it
// to the installer only when the scan passes the gate.
package install

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/policy"
	"github.com/ppiankov/clawshield/internal/reporter"
	"github.com/ppiankov/clawshield/internal/runner"
)

// ErrRootRequiresForce is returned when installing as root without --force.
var ErrRootRequiresForce = errors.New("installing as root requires --force")

// Scanner scans a directory.
type Scanner interface {
	Scan(ctx context.Context, path string) (*models.ScanResult, error)
}

// CommandRunner executes installer commands.
type CommandRunner interface {
	Run(ctx context.Context, cfg runner.RunConfig) runner.RunResult
}

// FailedError reports a failed download or install command.
type FailedError struct {
	Result runner.RunResult
}

func (e *FailedError) Error() string {
	msg := fmt.Sprintf("%s failed: %s", e.Result.Step, e.Result.Error)
	if e.Result.Output != "" {
		msg += "\n" + e.Result.Output
	}
	return msg
}

// Options controls a single install.
type Options struct {
	Threshold models.Status
	Policy    *policy.Policy
	Force     bool
	DryRun    bool
	Elevated  bool
}

// Outcome is everything an install run decided.
type Outcome struct {
	Ref         Ref
	Quarantine  string
	Result      *models.ScanResult
	Report      *models.Report
	Threshold   models.Status
	Policy      *policy.Result
	Blocked     bool
	Forced      bool
	DryRun      bool
	Installed   bool
	InstallCmd  string
	Install     *runner.RunResult
	RootRefused bool
	Duration    time.Duration
}

// Orchestrator runs quarantine, scan, gate and install.
type Orchestrator struct {
	Scanner       Scanner
	Runner        CommandRunner
	QuarantineDir string
	InstallCmd    string
	Timeout       time.Duration
	HTTPClient    *http.Client
	GitHubURL     string
	Logger        *zap.SugaredLogger
}

func (o *Orchestrator) logger() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// Run installs the skill named by rawRef. A blocked skill is not an error:
// the outcome says Blocked and nothing is installed. The quarantine
// directory is always removed.
func (o *Orchestrator) Run(ctx context.Context, rawRef string, opts Options) (*Outcome, error) {
	start := time.Now()
	log := o.logger()

	ref, err := ParseRef(rawRef)
	if err != nil {
		return nil, err
	}

	threshold := opts.Threshold
	if threshold == "" {
		threshold = policy.DefaultThreshold(opts.Elevated)
	}

	out := &Outcome{
		Ref:       ref,
		Threshold: threshold,
		Forced:    opts.Force,
		DryRun:    opts.DryRun,
	}

	if opts.Elevated && !opts.Force {
		if !opts.DryRun {
			out.RootRefused = true
			return out, ErrRootRequiresForce
		}
		log.Warnw("running as root without --force, continuing as dry run")
	}

	bin, installArgs, err := runner.Command(o.InstallCmd, ref.Raw)
	if err != nil {
		return nil, fmt.Errorf("install command: %w", err)
	}
	out.InstallCmd = runner.RunResult{Binary: bin, Args: installArgs}.String()

	quarantine, err := o.createQuarantine()
	if err != nil {
		return nil, err
	}
	out.Quarantine = quarantine
	defer func() {
		if err := os.RemoveAll(quarantine); err != nil {
			log.Warnw("failed to remove quarantine", "path", quarantine, "error", err)
			return
		}
		log.Debugw("removed quarantine", "path", quarantine)
	}()

	log.Infow("fetching skill", "ref", ref.Raw, "kind", ref.Kind.String(), "quarantine", quarantine)
	if err := o.fetch(ctx, ref, bin, quarantine); err != nil {
		return nil, err
	}

	res, err := o.Scanner.Scan(ctx, quarantine)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	out.Result = res
	out.Report = reporter.Assemble(res)

	out.Blocked = policy.ShouldBlock(res.Status, threshold)
	if opts.Policy != nil {
		out.Policy = opts.Policy.Evaluate(out.Report)
		if !out.Policy.Pass {
			out.Blocked = true
		}
	}
	log.Infow("scan evaluated", "status", res.Status, "score", res.Score, "threshold", threshold, "blocked", out.Blocked)

	if out.Blocked && !opts.Force {
		out.Duration = time.Since(start)
		return out, nil
	}
	if out.Blocked {
		log.Warnw("installing despite failed security gate", "ref", ref.Raw)
	}

	if opts.DryRun || (opts.Elevated && !opts.Force) {
		out.Duration = time.Since(start)
		return out, nil
	}

	result := o.Runner.Run(ctx, runner.RunConfig{
		Step:    "install",
		Binary:  bin,
		Args:    installArgs,
		Timeout: o.Timeout,
	})
	out.Install = &result
	out.Duration = time.Since(start)
	if !result.Success {
		return out, &FailedError{Result: result}
	}
	out.Installed = true
	return out, nil
}

func (o *Orchestrator) createQuarantine() (string, error) {
	base := o.QuarantineDir
	if base == "" {
		base = filepath.Join(os.TempDir(), "clawshield-quarantine")
	}
	if err := os.MkdirAll(base, 0o700); err != nil {
		return "", fmt.Errorf("create quarantine: %w", err)
	}
	dir := filepath.Join(base, "skill-"+strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("create quarantine: %w", err)
	}
	return dir, nil
}

func (o *Orchestrator) fetch(ctx context.Context, ref Ref, bin, quarantine string) error {
	switch ref.Kind {
	case RefLocal:
		if err := copyLocal(ref.Path, quarantine); err != nil {
			return fmt.Errorf("copy to quarantine: %w", err)
		}
		return nil

	case RefGitHub:
		client := o.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: DownloadTimeout}
		}
		base := o.GitHubURL
		if base == "" {
			base = DefaultGitHubURL
		}
		data, err := download(ctx, client, archiveURL(base, ref))
		if err != nil {
			return fmt.Errorf("github %s: %w", ref.Repo, err)
		}
		if err := extractZip(data, quarantine); err != nil {
			return fmt.Errorf("github %s: %w", ref.Repo, err)
		}
		return nil
	}

	result := o.Runner.Run(ctx, runner.RunConfig{
		Step:    "download",
		Binary:  bin,
		Args:    []string{"download", ref.Raw},
		Dir:     quarantine,
		Timeout: o.Timeout,
	})
	if !result.Success {
		return &FailedError{Result: result}
	}
	return nil
}
