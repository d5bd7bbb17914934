package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lecture-board/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ColumnStyle frames one board column.
var ColumnStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// FocusedColumnStyle frames the column holding the cursor.
var FocusedColumnStyle = ColumnStyle.
	BorderForeground(ColorBlue)

// DropTargetStyle frames the column a grabbed card would land in.
var DropTargetStyle = ColumnStyle.
	BorderForeground(ColorMagenta)

// ColumnTitleStyle renders a column heading.
var ColumnTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// CardStyle is the base style for a task card.
var CardStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedCardStyle highlights the card under the cursor.
var SelectedCardStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// GrabbedCardStyle marks the card being carried to another column.
var GrabbedCardStyle = SelectedCardStyle.
	Foreground(ColorMagenta).
	BorderForeground(ColorMagenta)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary card details.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// DeadlineStyle returns a color-coded badge style for a deadline status
// name (overdue, urgent, soon, normal).
func DeadlineStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case "overdue":
		return base.Foreground(ColorRed)
	case "urgent":
		return base.Foreground(ColorOrange)
	case "soon":
		return base.Foreground(ColorYellow)
	case "normal":
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// NoticeStyle returns the status bar style for a notice of the given
// severity.
func NoticeStyle(s model.Severity) lipgloss.Style {
	base := StatusBarStyle.Bold(true)

	switch s {
	case model.SeveritySuccess:
		return base.Background(ColorGreen)
	case model.SeverityWarning:
		return base.Background(ColorOrange)
	case model.SeverityError:
		return base.Background(ColorRed)
	default:
		return base
	}
}
