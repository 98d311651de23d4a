package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/allbin/cleanroom/internal/tui/styles"
)

// Chart draws one quantity as an ASCII line graph inside a bordered panel
type Chart struct {
	title     string
	lower     float64
	upper     float64
	precision uint
	color     lipgloss.Color
	width     int
	height    int
	values    []float64
}

func NewChart(title string, lower, upper float64, precision uint, color lipgloss.Color) *Chart {
	return &Chart{
		title:     title,
		lower:     lower,
		upper:     upper,
		precision: precision,
		color:     color,
		width:     40,
		height:    8,
	}
}

// SetSize sets the outer size of the panel
func (c *Chart) SetSize(width, height int) {
	c.width = width
	c.height = height
}

func (c *Chart) SetValues(values []float64) {
	c.values = values
}

func (c *Chart) Title() string {
	return c.title
}

func (c *Chart) View() string {
	// border and padding take 4 columns, the title and border 3 rows
	innerWidth := c.width - 4
	plotHeight := c.height - 3
	if innerWidth < 20 {
		innerWidth = 20
	}
	if plotHeight < 2 {
		plotHeight = 2
	}

	title := styles.PanelTitleStyle.Render(c.title)

	var body string
	if len(c.values) == 0 {
		body = lipgloss.Place(innerWidth, plotHeight, lipgloss.Center, lipgloss.Center,
			styles.MutedStyle.Render("no data"))
	} else {
		// y-axis labels take roughly a dozen columns
		graphWidth := innerWidth - 12
		if graphWidth < 2 {
			graphWidth = 2
		}
		graph := asciigraph.Plot(c.values,
			asciigraph.Height(plotHeight-1),
			asciigraph.Width(graphWidth),
			asciigraph.LowerBound(c.lower),
			asciigraph.UpperBound(c.upper),
			asciigraph.Precision(c.precision),
		)
		body = lipgloss.NewStyle().Foreground(c.color).Render(graph)
	}

	return styles.PanelStyle.
		Width(innerWidth + 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}
