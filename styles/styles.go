package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette of the terminal output.
const (
	colourHeader  = "#ffffff"
	colourBorder  = "#5f5fd7"
	colourError   = "#ff0000"
	colourSuccess = "#00ff00"
	colourInfo    = "#00afff"
	colourWarning = "#FFA500"
	colourMuted   = "#8a8a8a"
)

// Header styles
func HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colourHeader)).
		Bold(true)
}

func HeaderBorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(colourBorder))
}

// Message styles
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colourError))
}

func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colourSuccess))
}

func InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colourInfo))
}

func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colourWarning))
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colourMuted))
}

// UtilisationStyle colours a share of device memory: comfortable, close to
// the limit, or over it.
func UtilisationStyle(share float64) lipgloss.Style {
	switch {
	case share > 1:
		return ErrorStyle().Bold(true)
	case share > 0.95:
		return WarningStyle().Bold(true)
	default:
		return SuccessStyle().Bold(true)
	}
}
