package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#569CD6")
	secondaryColor = lipgloss.Color("#4EC9B0")
	accentColor    = lipgloss.Color("#DCDCAA")
	mutedColor     = lipgloss.Color("#6C757D")
	errorColor     = lipgloss.Color("#E74C3C")
	dlqColor       = lipgloss.Color("#CE9178")

	// Header
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1).
			MarginBottom(1)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	// Message list
	messageListStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(secondaryColor).
				Padding(0, 1)

	selectedMessageStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#2D2D44")).
				Foreground(accentColor).
				Bold(true)

	dlqTagStyle = lipgloss.NewStyle().
			Foreground(dlqColor).
			Bold(true)

	activeTagStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	timestampStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Detail panel
	detailPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(1)

	fieldNameStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	dividerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Help bar
	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	helpCategoryStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	helpOverlayStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(1, 2)

	confirmationStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Bold(true)

	emptyStateStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	// Utility styles
	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)
