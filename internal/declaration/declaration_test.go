package declaration

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseFull(t *testing.T) {
	input := `# ClawShield declaration
is_security_tool: true
tool: clawscan
reason: "Detects credential theft in other skills"
ignore:
  - CREDENTIAL_HARVESTING
  - REVERSE_SHELL   # signatures only

  # more below
  - BASE64_OBFUSCATION
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.IsSecurityTool {
		t.Error("expected IsSecurityTool")
	}
	if cfg.Tool != "clawscan" {
		t.Errorf("tool = %q", cfg.Tool)
	}
	if cfg.Reason != "Detects credential theft in other skills" {
		t.Errorf("reason = %q", cfg.Reason)
	}

	want := []string{"BASE64_OBFUSCATION", "CREDENTIAL_HARVESTING", "REVERSE_SHELL"}
	if got := cfg.IgnoredIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IgnoredIDs = %v, want %v", got, want)
	}
}

func TestParseListClosesOnTopLevelLine(t *testing.T) {
	input := `ignore:
  - NETWORK_REQUEST
tool: late-name
  - SHELL_EXECUTION
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.IsIgnored("NETWORK_REQUEST") {
		t.Error("expected NETWORK_REQUEST ignored")
	}
	if cfg.IsIgnored("SHELL_EXECUTION") {
		t.Error("item after list closed must not be ignored")
	}
	if cfg.Tool != "late-name" {
		t.Errorf("closing line must be read as top-level, tool = %q", cfg.Tool)
	}
}

func TestParseSecurityToolFlag(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"is_security_tool: true", true},
		{"is_security_tool:true", true},
		{"IS_SECURITY_TOOL: TRUE", true},
		{"  is_security_tool:   true  ", true},
		{"is_security_tool: false", false},
		{"# is_security_tool: true", false},
	}
	for _, tt := range tests {
		cfg, err := Parse(strings.NewReader(tt.line))
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.line, err)
		}
		if cfg.IsSecurityTool != tt.want {
			t.Errorf("Parse(%q).IsSecurityTool = %v, want %v", tt.line, cfg.IsSecurityTool, tt.want)
		}
	}
}

func TestParseReasonQuotes(t *testing.T) {
	tests := map[string]string{
		`reason: "double"`:  "double",
		`reason: 'single'`:  "single",
		`reason: bare text`: "bare text",
		`reason: ""`:        "",
	}
	for line, want := range tests {
		cfg, err := Parse(strings.NewReader(line))
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		if cfg.Reason != want {
			t.Errorf("Parse(%q).Reason = %q, want %q", line, cfg.Reason, want)
		}
	}
}

func TestParseBareDashClosesList(t *testing.T) {
	cfg, err := Parse(strings.NewReader("ignore:\n  - A\n  - \n  - B\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.IgnoredIDs(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("IgnoredIDs = %v, want [A]", got)
	}
}

func TestParseCommentOnlyItem(t *testing.T) {
	cfg, err := Parse(strings.NewReader("ignore:\n  -  # only a comment\n  - A\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"# only a comment", "A"}
	if got := cfg.IgnoredIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IgnoredIDs = %v, want %v", got, want)
	}
}

func TestListItem(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"- A", "A"},
		{"- A   # why", "A"},
		{"- A\t# why", "A"},
		{"- A#B", "A#B"},
		{"-  # only a comment", "# only a comment"},
		{"- \tX", "X"},
	}
	for _, tt := range tests {
		if got := listItem(tt.line); got != tt.want {
			t.Errorf("listItem(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	if _, err := Parse(strings.NewReader("tool: \xff\xfe\n")); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestNilConfig(t *testing.T) {
	var c *Config
	if c.IsIgnored("ANY") {
		t.Error("nil config must ignore nothing")
	}
	if c.IgnoredIDs() != nil {
		t.Error("nil config must have no ids")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if Load(dir) != nil {
		t.Fatal("expected nil when no declaration file exists")
	}

	content := "is_security_tool: true\ntool: scanner\nignore:\n  - CREDENTIAL_HARVESTING\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Load(dir)
	if cfg == nil {
		t.Fatal("expected declaration")
	}
	if !cfg.IsIgnored("CREDENTIAL_HARVESTING") {
		t.Error("expected CREDENTIAL_HARVESTING ignored")
	}
}

func TestLoadMalformedIsAbsent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("ignore:\n  - \xff\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if Load(dir) != nil {
		t.Fatal("malformed declaration must be treated as absent")
	}

	other := t.TempDir()
	if err := os.Mkdir(filepath.Join(other, FileName), 0755); err != nil {
		t.Fatal(err)
	}
	if Load(other) != nil {
		t.Fatal("unreadable declaration must be treated as absent")
	}
}
