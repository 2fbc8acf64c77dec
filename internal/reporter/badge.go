package reporter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/clawshield/internal/models"
)

var (
	colorBlocked = lipgloss.Color("#FF0000")
	colorWarning = lipgloss.Color("#FF8800")
	colorCaution = lipgloss.Color("#FFFF00")
	colorClean   = lipgloss.Color("#00FF00")
)

// StatusStyle returns the terminal style for a status.
func StatusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusBlocked:
		return lipgloss.NewStyle().Foreground(colorBlocked).Bold(true)
	case models.StatusWarning:
		return lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	case models.StatusCaution:
		return lipgloss.NewStyle().Foreground(colorCaution)
	case models.StatusClean:
		return lipgloss.NewStyle().Foreground(colorClean)
	default:
		return lipgloss.NewStyle()
	}
}

// StatusBadge renders a status with its icon in the status color.
func StatusBadge(s models.Status) string {
	return StatusStyle(s).Render(statusIcon(s, false) + " " + string(s))
}

func statusIcon(s models.Status, intentional bool) string {
	switch s {
	case models.StatusBlocked:
		return "🔴"
	case models.StatusWarning:
		return "🟠"
	case models.StatusCaution:
		return "🟡"
	default:
		if intentional {
			return "🔍"
		}
		return "🟢"
	}
}
