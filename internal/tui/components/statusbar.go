package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/cleanroom/internal/tui/styles"
	"github.com/allbin/cleanroom/reading"
)

// StatusBar is the bottom line of the dashboard: refresh state, data
// directory, current cleanliness class, selected range and last update.
type StatusBar struct {
	dataDir    string
	width      int
	running    bool
	rangeLabel string
	class      *reading.Classification
	updated    time.Time
	records    int
	err        error
}

func NewStatusBar(dataDir string) *StatusBar {
	return &StatusBar{dataDir: dataDir}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetRunning(running bool) {
	sb.running = running
}

func (sb *StatusBar) SetRange(label string) {
	sb.rangeLabel = label
}

// SetLatest records the classification of the newest reading and when the
// data was loaded. A nil class means no reading is available.
func (sb *StatusBar) SetLatest(class *reading.Classification, records int, updated time.Time) {
	sb.class = class
	sb.records = records
	sb.updated = updated
	sb.err = nil
}

func (sb *StatusBar) SetError(err error) {
	sb.err = err
}

func (sb *StatusBar) View() string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeText := "PAUSED"
	if sb.running {
		modeText = "RUNNING"
	}
	mode := styles.ModeStyle(sb.running).Render(modeText)

	dir := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.dataDir)

	var class string
	if sb.class != nil {
		class = lipgloss.NewStyle().
			Foreground(styles.Base).
			Background(styles.ISOClassColor(sb.class.ISO)).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ISO %d / class %d", sb.class.ISO, sb.class.FedStd))
	} else {
		class = styles.MutedStyle.Padding(0, 1).Render("no data")
	}

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	var info string
	if sb.err != nil {
		info = lipgloss.NewStyle().Foreground(styles.Red).Padding(0, 1).Render("✗ " + sb.err.Error())
	} else {
		info = lipgloss.NewStyle().Foreground(styles.Subtext0).Padding(0, 1).
			Render(fmt.Sprintf("%s, %d records", sb.rangeLabel, sb.records))
	}

	stamp := "--:--:--"
	if !sb.updated.IsZero() {
		stamp = sb.updated.Format("15:04:05")
	}
	ts := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(stamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, dir, class, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, info, divider, ts)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
