package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/theme"
)

// Layout manages the board's terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with the board title on the
// left and a summary (the goal targets) on the right.
func (l Layout) RenderHeader(title string, summary string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	summaryRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(summary)

	return joinFilled(theme.HeaderStyle, l.Width, titleRendered, summaryRendered)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return joinFilled(theme.StatusBarStyle, l.Width, theme.StatusBarStyle.Render(hints), "")
}

// RenderNotice renders a notice in place of the status bar, colored by
// its severity.
func (l Layout) RenderNotice(n model.Notice) string {
	style := theme.NoticeStyle(n.Severity)
	return joinFilled(style, l.Width, style.Render(n.Title+": "+n.Message), "")
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

// joinFilled places left and right on one line of width, padding the gap
// with style's background.
func joinFilled(style lipgloss.Style, width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}
