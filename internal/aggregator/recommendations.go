package aggregator

import (
	"fmt"
	"sort"

	"github.com/ppiankov/clawshield/internal/models"
)

// ruleActions is remediation advice for the built-in rules. %d is the
// number of occurrences.
var ruleActions = map[string]string{
	"EXFILTRATION_WEBHOOK":  "Remove %d webhook or paste-service URL(s) the skill posts to",
	"CREDENTIAL_HARVESTING": "Audit %d environment or credential read(s) and drop the ones the skill does not need",
	"REVERSE_SHELL":         "Remove %d reverse shell construct(s); no skill needs an interactive remote shell",
	"BASE64_OBFUSCATION":    "Decode and review %d base64 payload(s) before trusting the skill",
	"SUSPICIOUS_DOWNLOAD":   "Replace %d download-and-execute pipeline(s) with pinned, reviewed dependencies",
	"FILE_EXFILTRATION":     "Check %d place(s) where local files are read and sent over the network",
	"NETWORK_REQUEST":       "Verify the destination of %d network request(s)",
	"SHELL_EXECUTION":       "Review %d shell command invocation(s) for injected input",
	"DYNAMIC_CODE":          "Replace %d dynamic code evaluation(s) with static code",
	"SENSITIVE_FILE_ACCESS": "Confirm the skill needs the %d sensitive file reference(s)",
}

// RecommendationGenerator creates remediation advice from findings
type RecommendationGenerator struct{}

// NewRecommendationGenerator creates a new recommendation generator
func NewRecommendationGenerator() *RecommendationGenerator {
	return &RecommendationGenerator{}
}

// GenerateRecommendations groups findings by rule and returns one
// recommendation per rule, most severe first. Intentional findings were
// declared by the skill author and get no advice.
func (r *RecommendationGenerator) GenerateRecommendations(findings []models.Finding) []models.Recommendation {
	type group struct {
		severity models.Severity
		count    int
	}
	groups := make(map[string]*group)

	for _, f := range findings {
		if f.Intentional {
			continue
		}
		if g, ok := groups[f.RuleID]; ok {
			g.count++
			continue
		}
		groups[f.RuleID] = &group{severity: f.Severity, count: 1}
	}

	recommendations := make([]models.Recommendation, 0, len(groups))
	for id, g := range groups {
		recommendations = append(recommendations, models.Recommendation{
			Severity: g.severity,
			RuleID:   id,
			Action:   r.generateAction(id, g.count),
			Impact:   r.generateImpact(g.severity),
			Count:    g.count,
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.RuleID < b.RuleID
	})

	return recommendations
}

// generateAction creates actionable text for a rule
func (r *RecommendationGenerator) generateAction(ruleID string, count int) string {
	if format, ok := ruleActions[ruleID]; ok {
		return fmt.Sprintf(format, count)
	}
	return fmt.Sprintf("Review %d match(es) of %s", count, ruleID)
}

// generateImpact describes what a finding of this severity can mean
func (r *RecommendationGenerator) generateImpact(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "Skill may steal data or give an attacker control of the host"
	case models.SeverityHigh:
		return "Skill can reach the network or run arbitrary commands"
	case models.SeverityMedium:
		return "Skill touches sensitive files"
	default:
		return "Review and address as needed"
	}
}

// GetTopRecommendations returns the top N most critical recommendations
func (r *RecommendationGenerator) GetTopRecommendations(recommendations []models.Recommendation, n int) []models.Recommendation {
	if n < 0 || n >= len(recommendations) {
		return recommendations
	}
	return recommendations[:n]
}

// GroupBySeverity groups recommendations by severity level
func (r *RecommendationGenerator) GroupBySeverity(recommendations []models.Recommendation) map[models.Severity][]models.Recommendation {
	grouped := make(map[models.Severity][]models.Recommendation)

	for _, rec := range recommendations {
		grouped[rec.Severity] = append(grouped[rec.Severity], rec)
	}

	return grouped
}
