// Package rules holds the detection rule catalog used by the scanner.
package rules

import (
	"fmt"
	"regexp"

	"github.com/ppiankov/clawshield/internal/models"
)

// Rule is a single detection pattern.
type Rule struct {
	ID          string
	Name        string
	Tier        models.Severity
	Weight      int // per-rule severity metadata; scoring uses Tier only
	Description string
	Pattern     *regexp.Regexp
}

// Catalog is an immutable, ordered set of rules with unique IDs.
type Catalog struct {
	rules []Rule
	index map[string]int
}

// New validates rules and builds a catalog preserving their order.
func New(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := validate(r); err != nil {
			return nil, err
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		c.index[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
	}
	return c, nil
}

func validate(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if !r.Tier.IsTier() {
		return fmt.Errorf("rule %s: invalid tier %q (must be CRITICAL, HIGH or MEDIUM)", r.ID, r.Tier)
	}
	if r.Pattern == nil {
		return fmt.Errorf("rule %s: pattern is required", r.ID)
	}
	if r.Weight < 0 || r.Weight > 100 {
		return fmt.Errorf("rule %s: weight must be between 0 and 100", r.ID)
	}
	return nil
}

// Rules returns the rules in catalog order. The slice is a copy.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Lookup returns the rule with the given id.
func (c *Catalog) Lookup(id string) (Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Merge returns a new catalog with extra rules appended. A rule whose ID
// already exists replaces the original in place.
func (c *Catalog) Merge(extra []Rule) (*Catalog, error) {
	merged := c.Rules()
	for _, r := range extra {
		if i, ok := c.index[r.ID]; ok {
			merged[i] = r
			continue
		}
		merged = append(merged, r)
	}
	return New(merged...)
}

// ByTier returns the rules of one tier in catalog order.
func (c *Catalog) ByTier(tier models.Severity) []Rule {
	var out []Rule
	for _, r := range c.rules {
		if r.Tier == tier {
			out = append(out, r)
		}
	}
	return out
}

// mustPattern compiles a case-insensitive pattern for the built-in table.
func mustPattern(expr string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + expr)
}

// Default builds the built-in catalog. Each call returns a fresh catalog.
func Default() *Catalog {
	c, err := New(builtin()...)
	if err != nil {
		panic(fmt.Sprintf("built-in rule catalog: %v", err))
	}
	return c
}

func builtin() []Rule {
	return []Rule{
		// Critical
		{
			ID:          "EXFILTRATION_WEBHOOK",
			Name:        "Exfiltration to external webhook",
			Tier:        models.SeverityCritical,
			Weight:      100,
			Description: "Detected potential data exfiltration to external service",
			Pattern:     mustPattern(`webhook\.site|requestbin|hookbin|ngrok\.io.*POST|curl.*https://[^\s]*data`),
		},
		{
			ID:          "CREDENTIAL_HARVESTING",
			Name:        "Credential harvesting",
			Tier:        models.SeverityCritical,
			Weight:      95,
			Description: "Attempting to access environment variables or credentials",
			Pattern:     mustPattern(`process\.env\[|\.env\.|os\.environ|cat.*\.env|printenv|getenv`),
		},
		{
			ID:          "REVERSE_SHELL",
			Name:        "Reverse shell detection",
			Tier:        models.SeverityCritical,
			Weight:      100,
			Description: "Potential reverse shell or backdoor",
			Pattern:     mustPattern(`nc\s+-e|bash\s+-i|/bin/sh.*-i|socket.*connect.*shell|subprocess.*shell`),
		},
		{
			ID:          "BASE64_OBFUSCATION",
			Name:        "Base64 obfuscation",
			Tier:        models.SeverityCritical,
			Weight:      85,
			Description: "Base64 encoded payload - possible obfuscation",
			Pattern:     mustPattern(`base64\s+-d|atob\(|Buffer\.from.*['"]base64['"]|b64decode`),
		},
		{
			ID:          "SUSPICIOUS_DOWNLOAD",
			Name:        "Suspicious download and execute",
			Tier:        models.SeverityCritical,
			Weight:      95,
			Description: "Downloading and executing code from remote source",
			Pattern:     mustPattern(`curl.*\|.*bash|wget.*\|.*sh|curl.*\|.*python|download.*execute`),
		},
		{
			ID:          "FILE_EXFILTRATION",
			Name:        "File exfiltration",
			Tier:        models.SeverityCritical,
			Weight:      90,
			Description: "Uploading files to external servers",
			Pattern:     mustPattern(`curl.*-F.*file|scp.*@|rsync.*@|upload.*http.*file`),
		},

		// High
		{
			ID:          "NETWORK_REQUEST",
			Name:        "External network request",
			Tier:        models.SeverityHigh,
			Weight:      70,
			Description: "Making external network requests",
			Pattern:     mustPattern(`fetch\(|axios\.|request\(|curl|wget|http\.get`),
		},
		{
			ID:          "SHELL_EXECUTION",
			Name:        "Shell command execution",
			Tier:        models.SeverityHigh,
			Weight:      65,
			Description: "Executing shell commands",
			Pattern:     mustPattern(`exec\(|execSync|spawn\(|shell_exec|system\(`),
		},
		{
			ID:          "DYNAMIC_CODE",
			Name:        "Dynamic code execution",
			Tier:        models.SeverityHigh,
			Weight:      60,
			Description: "Executing dynamic code",
			Pattern:     mustPattern("eval\\(|new Function\\(|setTimeout\\(['\"`].*['\"`]|setInterval\\(['\"`]"),
		},

		// Medium
		{
			ID:          "SENSITIVE_FILE_ACCESS",
			Name:        "Sensitive file access",
			Tier:        models.SeverityMedium,
			Weight:      45,
			Description: "Accessing potentially sensitive files",
			// Whole words, or a camelCase suffix such as apiKey. The suffix is
			// case-sensitive so "monkey" and "API_KEY" stay clean.
			Pattern: mustPattern(`\.ssh/|\.aws/|\.docker/|\b(?:tokens?|secrets?|keys?|passwords?)\b|(?-i:[a-z](?:Token|Secret|Key|Password)s?)\b`),
		},
	}
}
