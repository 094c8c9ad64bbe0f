package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("214") // Amber
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorError     = lipgloss.Color("196")
)

// Logo is the app name in the header.
var Logo = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorPrimary).
	Padding(0, 1)

// ResultCount style for "Found N results".
var ResultCount = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// SelectedItem style for the row under the cursor in the focused pane.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("62")).
	Padding(0, 1)

// OpenItem marks the result whose detail is shown.
var OpenItem = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Padding(0, 1)

// NormalItem style for other rows.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// YearStyle for the year after a title.
var YearStyle = lipgloss.NewStyle().
	Foreground(colorMuted)

// Pane frames the results and side panes.
var Pane = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// FocusedPane frames the pane that receives navigation keys.
var FocusedPane = Pane.
	BorderForeground(colorPrimary)

// PaneTitle style for pane headers.
var PaneTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// DetailLabel style for field labels in the detail pane.
var DetailLabel = lipgloss.NewStyle().
	Foreground(colorSecondary)

// Stars style for the rating widget.
var Stars = lipgloss.NewStyle().
	Foreground(colorPrimary)

// SuccessStyle for confirmations.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// HelpStyle for placeholder and hint text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// DebugPanel frames the event overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorHighlight).
	Padding(1, 2)

// DebugHeaderStyle for section headers inside the overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
