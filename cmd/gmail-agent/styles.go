package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for terminal output.
var (
	// Authorization notice.
	noticeTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")) // yellow
	noticeURLStyle   = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("4"))
	noticeBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("3")).
				Padding(0, 1)

	// Spinner / status styles.
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray/dim

	// Step trace styles.
	toolNameStyle   = lipgloss.NewStyle().Bold(true)
	toolResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	toolErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	// Errors.
	errorKindStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// Tree-drawing characters for the step trace.
const (
	treeCorner = "└ "
	treeBranch = "├ "
)
