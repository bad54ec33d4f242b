package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/kbassist/pkg/toast"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	sourcesStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("109"))
	successStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warningStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	dropZoneStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	dropZoneActiveStyle = dropZoneStyle.BorderForeground(lipgloss.Color("205"))
)

func toastStyle(k toast.Kind) lipgloss.Style {
	switch k {
	case toast.KindSuccess:
		return successStyle
	case toast.KindError:
		return errorStyle
	case toast.KindWarning:
		return warningStyle
	default:
		return subHeaderStyle
	}
}
