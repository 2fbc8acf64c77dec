package scanner

import (
	"strings"

	"github.com/ppiankov/clawshield/internal/declaration"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/rules"
	"github.com/ppiankov/clawshield/internal/scoring"
)

// maxMatchLen bounds the matched text kept on a finding, in runes.
const maxMatchLen = 100

// matchContent runs every rule of the catalog against content and returns
// one finding per matching rule, in catalog order.
func matchContent(content, rel string, catalog *rules.Catalog, decl *declaration.Config, precise bool) []models.Finding {
	var findings []models.Finding

	for _, rule := range catalog.Rules() {
		loc := rule.Pattern.FindStringIndex(content)
		if loc == nil {
			continue
		}
		matched := content[loc[0]:loc[1]]

		offset := loc[0]
		if !precise {
			// First textual occurrence of the matched text, which may precede
			// the regex match itself.
			offset = strings.Index(content, matched)
		}

		f := models.Finding{
			RuleID:           rule.ID,
			RuleName:         rule.Name,
			Severity:         rule.Tier,
			OriginalSeverity: rule.Tier,
			SeverityValue:    scoring.TierWeight(rule.Tier),
			RuleWeight:       rule.Weight,
			File:             rel,
			Line:             lineAt(content, offset),
			Description:      rule.Description,
			Match:            truncate(matched, maxMatchLen),
		}
		if decl.IsIgnored(rule.ID) {
			f.Severity = models.SeverityInfo
			f.SeverityValue = 0
			f.Intentional = true
		}
		findings = append(findings, f)
	}

	return findings
}

// lineAt returns the 1-based line containing byte offset, or 0 when the
// offset is not inside content.
func lineAt(content string, offset int) int {
	if offset < 0 || offset > len(content) {
		return 0
	}
	return strings.Count(content[:offset], "\n") + 1
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
