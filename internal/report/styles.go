// Package report renders the pipeline's computed artifacts as styled
// terminal output using lipgloss. Renderers are pure string builders so
// they stay testable without a terminal.
package report

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#FF6B6B")
	// SuccessColor indicates good metric values.
	SuccessColor = lipgloss.Color("#4ECDC4") // Teal
	// WarningColor indicates values worth a second look.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// InfoColor indicates informational text.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SubtitleStyle is used for secondary headings.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// SuccessStyle formats good metric values.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats cautionary values.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))
)

// Icons.
const (
	ChartIcon   = "📊"
	ModelIcon   = "🌲"
	LensIcon    = "🔍"
	HistoryIcon = "🗄️"
)

// FormatTitle formats a section title with its icon.
func FormatTitle(icon, title string) string {
	return TitleStyle.Render(icon + " " + title)
}
