package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/clawshield/internal/models"
	"gopkg.in/yaml.v3"
)

// FileNames are the policy file names searched for, in order.
var FileNames = []string{".clawshield-policy.yaml", ".clawshield-policy.yml"}

// Policy defines enforcement rules for scan reports.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules.
type Rules struct {
	MaxScore    *int     `yaml:"max_score,omitempty"`
	MaxCritical *int     `yaml:"max_critical,omitempty"`
	MaxHigh     *int     `yaml:"max_high,omitempty"`
	MaxMedium   *int     `yaml:"max_medium,omitempty"`
	ForbidRules []string `yaml:"forbid_rules,omitempty"`

	// Rules that may only appear when declared intentional.
	RequireDeclarationFor []string `yaml:"require_declaration_for,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	return &p, nil
}

// FindPolicyFile searches for a policy file in the current directory
// and parent directories up to the filesystem root.
func FindPolicyFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findFrom(dir)
}

func findFrom(dir string) string {
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// Evaluate checks a scan report against the policy rules.
func (p *Policy) Evaluate(report *models.Report) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	var violations []Violation

	// max_score
	if p.Rules.MaxScore != nil && report.Summary.Score > *p.Rules.MaxScore {
		violations = append(violations, Violation{
			Rule:    "max_score",
			Message: fmt.Sprintf("score %d exceeds limit %d", report.Summary.Score, *p.Rules.MaxScore),
		})
	}

	// per-tier limits
	limits := []struct {
		rule  string
		label string
		max   *int
		count int
	}{
		{"max_critical", "critical", p.Rules.MaxCritical, report.Summary.CriticalIssues},
		{"max_high", "high", p.Rules.MaxHigh, report.Summary.HighIssues},
		{"max_medium", "medium", p.Rules.MaxMedium, report.Summary.MediumIssues},
	}
	for _, l := range limits {
		if l.max != nil && l.count > *l.max {
			violations = append(violations, Violation{
				Rule:    l.rule,
				Message: fmt.Sprintf("%s issues %d exceeds limit %d", l.label, l.count, *l.max),
			})
		}
	}

	// forbid_rules: a declaration does not excuse a forbidden rule
	if len(p.Rules.ForbidRules) > 0 {
		counts := countByRule(report.Issues, true)
		for _, id := range p.Rules.ForbidRules {
			if n := counts[id]; n > 0 {
				violations = append(violations, Violation{
					Rule:    "forbid_rules",
					Message: fmt.Sprintf("forbidden rule %s matched in %d file(s)", id, n),
				})
			}
		}
	}

	// require_declaration_for
	if len(p.Rules.RequireDeclarationFor) > 0 {
		counts := countByRule(report.Issues, false)
		for _, id := range p.Rules.RequireDeclarationFor {
			if n := counts[id]; n > 0 {
				violations = append(violations, Violation{
					Rule:    "require_declaration_for",
					Message: fmt.Sprintf("rule %s matched in %d file(s) without an intentional declaration", id, n),
				})
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}

// countByRule counts findings per rule. Intentional findings are only
// counted when withIntentional is set.
func countByRule(issues []models.Finding, withIntentional bool) map[string]int {
	counts := make(map[string]int)
	for _, f := range issues {
		if withIntentional || !f.Intentional {
			counts[f.RuleID]++
		}
	}
	return counts
}
