package scoring

import "github.com/ppiankov/clawshield/internal/models"

// Status thresholds on the final score, inclusive.
const (
	BlockedThreshold = 86
	WarningThreshold = 61
	CautionThreshold = 31
)

// Classify maps a final score to a status.
func Classify(score int) models.Status {
	switch {
	case score >= BlockedThreshold:
		return models.StatusBlocked
	case score >= WarningThreshold:
		return models.StatusWarning
	case score >= CautionThreshold:
		return models.StatusCaution
	default:
		return models.StatusClean
	}
}

// Escalate raises CAUTION to WARNING and WARNING to BLOCKED.
// CLEAN and BLOCKED are returned unchanged.
func Escalate(s models.Status) models.Status {
	switch s {
	case models.StatusCaution:
		return models.StatusWarning
	case models.StatusWarning:
		return models.StatusBlocked
	default:
		return s
	}
}

// Evaluate classifies score and escalates the result under root safety.
func Evaluate(score int, rootSafety bool) models.Status {
	s := Classify(score)
	if rootSafety {
		s = Escalate(s)
	}
	return s
}
