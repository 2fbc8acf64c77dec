// Package scoring turns findings into a bounded risk score and a status.
package scoring

import (
	"math"

	"github.com/ppiankov/clawshield/internal/models"
)

// MaxScore is the upper bound of a final score.
const MaxScore = 100

// RootSafetyMultiplier scales the raw score when scanning in an elevated context.
const RootSafetyMultiplier = 1.5

// TierWeight returns the score contribution of one finding of severity sev.
func TierWeight(sev models.Severity) int {
	switch sev {
	case models.SeverityCritical:
		return 10
	case models.SeverityHigh:
		return 5
	case models.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// RawScore sums tier weights over findings. Intentional findings add nothing.
func RawScore(findings []models.Finding) int {
	total := 0
	for _, f := range findings {
		if f.Intentional {
			continue
		}
		total += TierWeight(f.Severity)
	}
	return total
}

// FinalScore applies the root safety multiplier once and caps at MaxScore.
func FinalScore(raw int, rootSafety bool) int {
	if raw <= 0 {
		return 0
	}
	score := float64(raw)
	if rootSafety {
		score = math.Round(score * RootSafetyMultiplier)
	}
	if score > MaxScore {
		return MaxScore
	}
	return int(score)
}
