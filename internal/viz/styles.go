package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	LabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	ActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	GraphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	HelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00")).Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

// Graph renders a series as an asciigraph line chart.
func Graph(series []float64, width, height int, caption string) string {
	if len(series) == 0 {
		return ""
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Graphs overlays several series of equal length in one chart.
func Graphs(series [][]float64, width, height int, caption string) string {
	if len(series) == 0 || len(series[0]) == 0 {
		return ""
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow, asciigraph.Red),
	)
}

// MetricsTable renders name/value pairs sorted by name.
func MetricsTable(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var s strings.Builder
	for _, name := range names {
		s.WriteString(LabelStyle.Render(name) + ValueStyle.Render(fmt.Sprintf("%.6g", metrics[name])) + "\n")
	}
	return s.String()
}

// KeyValue renders one labelled line.
func KeyValue(label string, value any) string {
	return LabelStyle.Render(label) + ValueStyle.Render(fmt.Sprint(value))
}

// Separator draws a muted horizontal rule.
func Separator(width int) string {
	if width < 7 {
		width = 7
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return HelpStyle.Render(left + " ◆ " + right)
}
