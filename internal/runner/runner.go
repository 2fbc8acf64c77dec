package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single installer invocation.
const DefaultTimeout = 120 * time.Second

// maxOutput caps the captured output kept in a result.
const maxOutput = 64 * 1024

// ExecFunc runs a command in dir and returns its combined output.
type ExecFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecCommand is the ExecFunc backed by os/exec.
func ExecCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	return c.CombinedOutput()
}

// RunConfig describes a single installer invocation.
type RunConfig struct {
	Step    string
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// RunResult is the outcome of a single invocation.
type RunResult struct {
	Step     string        `json:"step"`
	Binary   string        `json:"binary"`
	Args     []string      `json:"args,omitempty"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Runner executes installer commands.
type Runner struct {
	execFn ExecFunc
}

// New creates a Runner with the given exec function.
func New(execFn ExecFunc) *Runner {
	return &Runner{
		execFn: execFn,
	}
}

// Command splits a configured command line such as "clawhub install" and
// appends extra arguments.
func Command(cmdline string, extra ...string) (string, []string, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	args := append(fields[1:len(fields):len(fields)], extra...)
	return fields[0], args, nil
}

// Run executes one command under its timeout.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) RunResult {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := r.execFn(runCtx, cfg.Dir, cfg.Binary, cfg.Args...)
	duration := time.Since(start)

	res := RunResult{
		Step:     cfg.Step,
		Binary:   cfg.Binary,
		Args:     cfg.Args,
		Output:   clip(out),
		Duration: duration,
		Success:  err == nil,
	}
	if err != nil {
		res.Error = err.Error()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			res.Error = fmt.Sprintf("timed out after %s", timeout)
		}
	}
	return res
}

// String renders the command line of a result for logs.
func (r RunResult) String() string {
	return strings.TrimSpace(r.Binary + " " + strings.Join(r.Args, " "))
}

func clip(out []byte) string {
	if len(out) > maxOutput {
		out = out[len(out)-maxOutput:]
	}
	return strings.TrimSpace(string(out))
}
