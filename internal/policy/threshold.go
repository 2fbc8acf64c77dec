package policy

import (
	"fmt"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
)

// ParseThreshold parses an install gate threshold. CLEAN is not a valid
// threshold since it would block every skill.
func ParseThreshold(s string) (models.Status, error) {
	st, ok := models.ParseStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !ok || st == models.StatusClean {
		return "", fmt.Errorf("invalid threshold %q (must be BLOCKED, WARNING, or CAUTION)", s)
	}
	return st, nil
}

// DefaultThreshold is WARNING, tightened to CAUTION when running as root.
func DefaultThreshold(elevated bool) models.Status {
	if elevated {
		return models.StatusCaution
	}
	return models.StatusWarning
}

// ShouldBlock reports whether status meets or exceeds threshold. An
// unknown threshold blocks only BLOCKED.
func ShouldBlock(status, threshold models.Status) bool {
	switch threshold {
	case models.StatusBlocked, models.StatusWarning, models.StatusCaution:
		return status.Rank() >= threshold.Rank()
	default:
		return status == models.StatusBlocked
	}
}
