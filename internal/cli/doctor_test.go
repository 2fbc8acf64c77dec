package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withDoctorFormat(t *testing.T, format string) {
	t.Helper()
	old, oldConfig := doctorFormat, configFile
	doctorFormat = format
	configFile = ""
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLAWSHIELD_SKILLS_DIR", "")
	t.Setenv("OPENCLAW_SKILLS_DIR", "")
	t.Cleanup(func() { doctorFormat, configFile = old, oldConfig })
}

func runDoctorJSON(t *testing.T) doctorResult {
	t.Helper()
	out := captureStdout(t, func() {
		if err := runDoctor(nil, nil); err != nil {
			t.Errorf("runDoctor: %v", err)
		}
	})
	var result doctorResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	return result
}

func findCheck(t *testing.T, result doctorResult, name string) doctorCheck {
	t.Helper()
	for _, c := range result.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q missing from %+v", name, result.Checks)
	return doctorCheck{}
}

func TestRunDoctorJSON(t *testing.T) {
	testConfig(t)
	withLookPath(t, true)
	withDoctorFormat(t, "json")
	t.Setenv("CLAWSHIELD_SKILLS_DIR", skillsDir(t))

	result := runDoctorJSON(t)

	for _, name := range []string{"config", "privilege", "installer", "skills", "rules", "policy", "cloud", "storage", "quarantine"} {
		findCheck(t, result, name)
	}
	if c := findCheck(t, result, "installer"); c.Status != "ok" || c.Detail != "/usr/local/bin/clawhub" {
		t.Errorf("installer = %+v", c)
	}
	if c := findCheck(t, result, "skills"); c.Status != "ok" || !strings.HasPrefix(c.Detail, "2 skill(s)") {
		t.Errorf("skills = %+v", c)
	}
	if c := findCheck(t, result, "rules"); c.Status != "ok" || c.Detail != "10 built-in rules" {
		t.Errorf("rules = %+v", c)
	}
	if c := findCheck(t, result, "storage"); c.Status != "ok" {
		t.Errorf("storage = %+v", c)
	}
}

func TestRunDoctorWarnings(t *testing.T) {
	c := testConfig(t)
	withElevated(t, true)
	withLookPath(t, false)
	withDoctorFormat(t, "json")
	c.Cloud = true

	result := runDoctorJSON(t)

	if c := findCheck(t, result, "privilege"); c.Status != "warn" {
		t.Errorf("privilege = %+v", c)
	}
	if c := findCheck(t, result, "installer"); c.Status != "warn" {
		t.Errorf("installer = %+v", c)
	}
	if c := findCheck(t, result, "cloud"); c.Status != "warn" || !strings.Contains(c.Detail, "activate") {
		t.Errorf("cloud = %+v", c)
	}
}

func TestRunDoctorFailures(t *testing.T) {
	c := testConfig(t)
	withLookPath(t, true)
	withDoctorFormat(t, "json")

	c.RulesFile = filepath.Join(t.TempDir(), "missing-rules.yaml")
	c.Cloud = true
	c.APIKey = "bogus"
	notDir := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(notDir, []byte("x"), 0o644)
	c.QuarantineDir = notDir

	result := runDoctorJSON(t)

	for _, name := range []string{"rules", "cloud", "quarantine"} {
		if got := findCheck(t, result, name); got.Status != "fail" {
			t.Errorf("%s = %+v, want fail", name, got)
		}
	}
	if result.Summary != "3 issue(s) found" {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestRunDoctorText(t *testing.T) {
	testConfig(t)
	withLookPath(t, true)
	withDoctorFormat(t, "text")

	out := captureStdout(t, func() {
		if err := runDoctor(nil, nil); err != nil {
			t.Errorf("runDoctor: %v", err)
		}
	})
	if !strings.Contains(out, "✓ installer") || !strings.Contains(out, "rules") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCheckCloudConfigured(t *testing.T) {
	c := testConfig(t)
	c.Cloud = true
	c.APIKey = testKey
	c.Endpoint = "https://example.invalid/scan-report"

	got := checkCloud()
	if got.Status != "ok" || strings.Contains(got.Detail, testKey) {
		t.Errorf("checkCloud = %+v", got)
	}
}

func TestJoinMax(t *testing.T) {
	tests := []struct {
		in   []string
		n    int
		want string
	}{
		{nil, 2, ""},
		{[]string{"a", "b"}, 2, "a, b"},
		{[]string{"a", "b", "c", "d"}, 2, "a, b +2 more"},
	}
	for _, tt := range tests {
		if got := joinMax(tt.in, tt.n); got != tt.want {
			t.Errorf("joinMax(%v, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

// --- rules ---

func withRulesFlags(t *testing.T, format, pack string) {
	t.Helper()
	oldFormat, oldPack := rulesFormat, rulesPack
	rulesFormat, rulesPack = format, pack
	t.Cleanup(func() { rulesFormat, rulesPack = oldFormat, oldPack })
}

func TestRunRulesText(t *testing.T) {
	testConfig(t)
	withRulesFlags(t, "text", "")

	out := captureStdout(t, func() {
		if err := runRules(nil, nil); err != nil {
			t.Errorf("runRules: %v", err)
		}
	})
	for _, want := range []string{"10 rule(s)", "CRITICAL (10 points each)", "HIGH (5 points each)", "MEDIUM (2 points each)", "REVERSE_SHELL", "SENSITIVE_FILE_ACCESS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunRulesWithPack(t *testing.T) {
	testConfig(t)
	pack := filepath.Join(t.TempDir(), "rules.yaml")
	_ = os.WriteFile(pack, []byte(`version: "1"
rules:
  - id: CRYPTO_MINER
    tier: HIGH
    weight: 70
    description: Cryptocurrency miner
    pattern: 'stratum\+tcp://'
`), 0o644)
	withRulesFlags(t, "json", pack)

	out := captureStdout(t, func() {
		if err := runRules(nil, nil); err != nil {
			t.Errorf("runRules: %v", err)
		}
	})
	var entries []ruleEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 11 {
		t.Fatalf("rules = %d, want 11", len(entries))
	}
	last := entries[len(entries)-1]
	if last.ID != "CRYPTO_MINER" || last.Points != 5 || last.Name != "CRYPTO_MINER" {
		t.Errorf("pack rule = %+v", last)
	}
}

func TestRunRulesBadPack(t *testing.T) {
	testConfig(t)
	pack := filepath.Join(t.TempDir(), "rules.yaml")
	_ = os.WriteFile(pack, []byte("rules:\n  - id: X\n    tier: LOW\n    pattern: x\n"), 0o644)
	withRulesFlags(t, "text", pack)

	var ve *ValidationError
	if err := runRules(nil, nil); !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}
