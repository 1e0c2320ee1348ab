package tui

import "github.com/charmbracelet/lipgloss"

// Tokyonight-ish palette, matching the one-shot query output.
var (
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorAccent   = lipgloss.Color("#bb9af7")
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorError    = lipgloss.Color("#f7768e")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorSelected = lipgloss.Color("#283457")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	userTextStyle = lipgloss.NewStyle().
			Foreground(colorText)

	attachmentStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorError)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorTextDim).
			Padding(0, 1)

	pickerTitleStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true).
				Padding(0, 1)

	pickerItemStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Padding(0, 2)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Background(colorSelected).
				Bold(true).
				Padding(0, 2)

	pickerMetaStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)
