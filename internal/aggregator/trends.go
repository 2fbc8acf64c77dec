package aggregator

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/storage"
)

// TrendAnalyzer analyzes the score history of a skill
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// CalculateTrend compares the current scan with the previous one. A lower
// score is an improvement.
func (t *TrendAnalyzer) CalculateTrend(current, previous *storage.StoredScan) *models.Trend {
	if current == nil || previous == nil {
		return nil
	}

	trend := &models.Trend{
		ComparedWith:     previous.Timestamp,
		PreviousScore:    previous.Summary.Score,
		CurrentScore:     current.Summary.Score,
		PreviousStatus:   previous.Summary.Status,
		CurrentStatus:    current.Summary.Status,
		Change:           current.Summary.Score - previous.Summary.Score,
		NewFindings:      diffFindings(current.Issues, previous.Issues),
		ResolvedFindings: diffFindings(previous.Issues, current.Issues),
	}
	trend.Direction = direction(trend.Change)

	return trend
}

// AnalyzeHistory summarizes runs of one skill, oldest first
func (t *TrendAnalyzer) AnalyzeHistory(runs []*storage.StoredScan) *models.TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &models.TrendSummary{
		Skill:          runs[len(runs)-1].Skill,
		RunsAnalyzed:   len(runs),
		ScoreSparkline: Scores(runs),
		Direction:      "stable",
	}

	if len(runs) > 1 {
		earliest := runs[0]
		latest := runs[len(runs)-1]
		days := int(latest.Timestamp.Sub(earliest.Timestamp).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
		summary.Direction = direction(latest.Summary.Score - earliest.Summary.Score)
	} else {
		summary.TimeRange = "Single run"
	}

	return summary
}

// Scores returns the score of each run in order.
func Scores(runs []*storage.StoredScan) []int {
	scores := make([]int, len(runs))
	for i, r := range runs {
		scores[i] = r.Summary.Score
	}
	return scores
}

// GetTrendIndicator returns a visual indicator for trend direction
func GetTrendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	case "stable":
		return "→"
	default:
		return "?"
	}
}

func direction(change int) string {
	switch {
	case change < 0:
		return "improving"
	case change > 0:
		return "degrading"
	default:
		return "stable"
	}
}

// findingKey identifies a finding across scans. Lines are left out so an
// edit above a match does not count as new.
func findingKey(f models.Finding) string {
	return f.RuleID + "|" + f.File + "|" + strconv.FormatBool(f.Intentional)
}

// diffFindings returns the findings of a whose key does not occur in b
func diffFindings(a, b []models.Finding) []models.Finding {
	seen := make(map[string]bool, len(b))
	for _, f := range b {
		seen[findingKey(f)] = true
	}
	out := []models.Finding{}
	for _, f := range a {
		if !seen[findingKey(f)] {
			out = append(out, f)
		}
	}
	return out
}
