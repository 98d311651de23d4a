// Package models holds the Bubble Tea models behind the interactive commands.
package models

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/cleanroom/datalog"
	"github.com/allbin/cleanroom/internal/tui/components"
	"github.com/allbin/cleanroom/internal/tui/keys"
	"github.com/allbin/cleanroom/internal/tui/styles"
	"github.com/allbin/cleanroom/reading"
)

const (
	// DefaultRefresh is how often a running dashboard reloads the day files
	DefaultRefresh = 3 * time.Second

	dayRecords   = 720
	monthRecords = 21600
	monthStride  = 30

	tableRows = 6
)

// Range selects which part of the loaded history is drawn
type Range int

const (
	RangeDay Range = iota
	RangeMonth
)

func (r Range) String() string {
	switch r {
	case RangeMonth:
		return "last 30 days"
	default:
		return "last 24 hours"
	}
}

// Select cuts the range out of readings. A day is the last 720 records; a
// month is every 30th of the last 21600.
func (r Range) Select(readings []reading.Reading) []reading.Reading {
	if r == RangeMonth {
		return datalog.Every(datalog.Tail(readings, monthRecords), monthStride)
	}
	return datalog.Tail(readings, dayRecords)
}

// Loader returns the recorded history, oldest first
type Loader func() ([]reading.Reading, error)

// DirLoader loads the newest days day files of dir
func DirLoader(dir string, days int) Loader {
	return func() ([]reading.Reading, error) {
		return datalog.LoadLast(dir, days)
	}
}

type tickMsg struct {
	gen int
}

type loadedMsg struct {
	readings []reading.Reading
	err      error
	at       time.Time
}

// quantity is one chart of the dashboard
type quantity struct {
	title     string
	lower     float64
	upper     float64
	precision uint
	value     func(reading.Reading) (float64, bool)
}

var quantities = []quantity{
	{"Temperature [C]", 18, 28, 1, func(r reading.Reading) (float64, bool) { return r.Temperature.Get() }},
	{"Humidity [%]", 30, 80, 1, func(r reading.Reading) (float64, bool) { return r.Humidity.Get() }},
	{"Pressure [Pa]", 90000, 110000, 0, func(r reading.Reading) (float64, bool) {
		p, ok := r.Pressure.Get()
		return float64(p), ok
	}},
	{"Particles > 0.5 um", 0, 100, 0, func(r reading.Reading) (float64, bool) { return r.Count05.Get() }},
}

// Dashboard is the live monitor: it reloads the day files on a timer while
// running and redraws one chart per quantity, a table of recent readings and
// a status bar with the current cleanliness class.
type Dashboard struct {
	load    Loader
	refresh time.Duration
	now     func() time.Time

	keys      keys.DashboardKeys
	help      help.Model
	statusBar *components.StatusBar
	table     *components.ReadingsTable
	charts    []*components.Chart

	readings []reading.Reading
	visible  []reading.Reading
	rng      Range
	running  bool
	gen      int
	err      error

	lastUpdate time.Time

	width  int
	height int
	ready  bool
}

func NewDashboard(dataDir string, load Loader, refresh time.Duration) *Dashboard {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	charts := make([]*components.Chart, len(quantities))
	for i, q := range quantities {
		charts[i] = components.NewChart(q.title, q.lower, q.upper, q.precision, styles.ChartColors[i%len(styles.ChartColors)])
	}

	d := &Dashboard{
		load:      load,
		refresh:   refresh,
		now:       time.Now,
		keys:      keys.NewDashboardKeys(),
		help:      help.New(),
		statusBar: components.NewStatusBar(dataDir),
		table:     components.NewReadingsTable(tableRows),
		charts:    charts,
		rng:       RangeDay,
	}
	d.statusBar.SetRange(d.rng.String())
	return d
}

// Running reports whether the refresh timer is active
func (d *Dashboard) Running() bool {
	return d.running
}

func (d *Dashboard) Range() Range {
	return d.rng
}

// Visible returns the readings currently drawn
func (d *Dashboard) Visible() []reading.Reading {
	return d.visible
}

func (d *Dashboard) Err() error {
	return d.err
}

// Init starts the refresh timer and loads the history once
func (d *Dashboard) Init() tea.Cmd {
	d.setRunning(true)
	return tea.Batch(d.loadCmd(), d.tickCmd())
}

func (d *Dashboard) loadCmd() tea.Cmd {
	load, now := d.load, d.now
	return func() tea.Msg {
		readings, err := load()
		return loadedMsg{readings: readings, err: err, at: now()}
	}
}

func (d *Dashboard) tickCmd() tea.Cmd {
	gen := d.gen
	return tea.Tick(d.refresh, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// setRunning invalidates any pending tick so a stop followed by a quick
// start never leaves two timers alive.
func (d *Dashboard) setRunning(running bool) {
	d.running = running
	d.gen++
	d.statusBar.SetRunning(running)
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.ready = true
		d.layout()
		return d, nil

	case tickMsg:
		if !d.running || msg.gen != d.gen {
			return d, nil
		}
		return d, tea.Batch(d.loadCmd(), d.tickCmd())

	case loadedMsg:
		if msg.err != nil {
			d.err = msg.err
			d.statusBar.SetError(msg.err)
			return d, nil
		}
		d.err = nil
		d.readings = msg.readings
		d.rebuild(msg.at)
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			d.setRunning(false)
			return d, tea.Quit
		case key.Matches(msg, d.keys.Help):
			d.help.ShowAll = !d.help.ShowAll
			d.layout()
			return d, nil
		case key.Matches(msg, d.keys.Toggle):
			d.setRunning(!d.running)
			if d.running {
				return d, tea.Batch(d.loadCmd(), d.tickCmd())
			}
			return d, nil
		case key.Matches(msg, d.keys.Refresh):
			return d, d.loadCmd()
		case key.Matches(msg, d.keys.Range):
			if d.rng == RangeDay {
				d.rng = RangeMonth
			} else {
				d.rng = RangeDay
			}
			d.statusBar.SetRange(d.rng.String())
			d.rebuild(time.Time{})
			return d, nil
		case key.Matches(msg, d.keys.Up), key.Matches(msg, d.keys.Down):
			return d, d.table.Update(msg)
		}
	}

	return d, nil
}

// rebuild recomputes everything derived from the loaded history. A zero at
// keeps the previous update time.
func (d *Dashboard) rebuild(at time.Time) {
	d.visible = d.rng.Select(d.readings)

	for i, q := range quantities {
		values := make([]float64, 0, len(d.visible))
		for _, r := range d.visible {
			if v, ok := q.value(r); ok {
				values = append(values, v)
			}
		}
		d.charts[i].SetValues(values)
	}

	d.table.SetReadings(datalog.Tail(d.visible, 100))

	if at.IsZero() {
		at = d.lastUpdate
	}
	d.lastUpdate = at

	var class *reading.Classification
	if n := len(d.readings); n > 0 {
		c := d.readings[n-1].Classification
		class = &c
	}
	d.statusBar.SetLatest(class, len(d.visible), at)
}

func (d *Dashboard) layout() {
	d.statusBar.SetWidth(d.width)

	helpHeight := lipgloss.Height(d.help.View(d.keys))
	// title, table header and borders, status bar
	chrome := 1 + 4 + 1 + helpHeight
	chartHeight := (d.height - chrome - tableRows) / 2
	if chartHeight < 5 {
		chartHeight = 5
	}
	chartWidth := d.width / 2
	for _, c := range d.charts {
		c.SetSize(chartWidth, chartHeight)
	}
}

func (d *Dashboard) View() string {
	if !d.ready {
		return "Initializing..."
	}

	title := styles.TitleStyle.Render("Cleanroom monitor · " + d.rng.String())

	var views []string
	for _, c := range d.charts {
		views = append(views, c.View())
	}
	grid := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, views[0], views[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, views[2], views[3]),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		grid,
		d.table.View(),
		d.statusBar.View(),
		d.help.View(d.keys),
	)
}
