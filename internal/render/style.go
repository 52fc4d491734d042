package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Vineyard palette. The first three are the brand colors; the rest extend
// it for forecasts with many SKUs.
var palette = []string{
	"#640E1B", // primary
	"#A52A2A", // secondary
	"#795548", // tertiary
	"#B5651D",
	"#8E4585",
	"#6B8E23",
	"#C08081",
	"#4A0C2B",
}

const (
	backgroundHex = "#F5F5DC"
	trackHex      = "#5C5C5C"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C08081"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(trackHex))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	kpiBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(palette[0])).
			Padding(0, 2)
	kpiLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	kpiValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5F5DC"))

	itemKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C08081"))
)

// termColor returns the i-th palette color for the terminal.
func termColor(i int) lipgloss.Color {
	return lipgloss.Color(palette[i%len(palette)])
}

// pngColor returns the i-th palette color for go-chart.
func pngColor(i int) drawing.Color {
	return drawing.ColorFromHex(palette[i%len(palette)][1:])
}
