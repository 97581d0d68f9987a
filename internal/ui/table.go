package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "245", Dark: "240"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent)

	TableCellStyle = lipgloss.NewStyle().
		PaddingRight(2)

	TableBorderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	WarnStyle = lipgloss.NewStyle().
		Foreground(ColorWarn)

	PassStyle = lipgloss.NewStyle().
		Foreground(ColorPass)

	MutedStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
)

// RenderTable renders headers and rows as a bordered table sized to the
// terminal. Falls back to plain styling when color is off.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers(headers...).
		Rows(rows...)

	if ShouldUseColor() {
		t.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	} else {
		t.StyleFunc(func(_, _ int) lipgloss.Style {
			return TableCellStyle
		})
	}

	if w := GetWidth(); w > 0 {
		t.Width(min(w, 160))
	}
	return t.Render()
}
