package components

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/cleanroom/internal/tui/styles"
	"github.com/allbin/cleanroom/reading"
)

const (
	columnTime  = "time"
	columnTemp  = "temp"
	columnHum   = "hum"
	columnPres  = "pres"
	columnC05   = "c05"
	columnC25   = "c25"
	columnISO   = "iso"
	columnClass = "class"
)

// ReadingsTable lists the most recent readings, newest first
type ReadingsTable struct {
	table    table.Model
	pageSize int
	rows     int
}

func NewReadingsTable(pageSize int) *ReadingsTable {
	if pageSize < 1 {
		pageSize = 5
	}
	columns := []table.Column{
		table.NewColumn(columnTime, "Time", 19),
		table.NewColumn(columnTemp, "T [C]", 7),
		table.NewColumn(columnHum, "RH [%]", 7),
		table.NewColumn(columnPres, "P [Pa]", 8),
		table.NewColumn(columnC05, ">0.5um", 9),
		table.NewColumn(columnC25, ">2.5um", 9),
		table.NewColumn(columnISO, "ISO", 4),
		table.NewColumn(columnClass, "Class", 8),
	}

	t := table.New(columns).
		WithPageSize(pageSize).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(styles.Text)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(styles.Subtext1).BorderForeground(styles.Surface1)).
		Focused(true)

	return &ReadingsTable{table: t, pageSize: pageSize}
}

// SetReadings shows readings newest first
func (rt *ReadingsTable) SetReadings(readings []reading.Reading) {
	rows := make([]table.Row, 0, len(readings))
	for i := len(readings) - 1; i >= 0; i-- {
		rows = append(rows, readingRow(readings[i]))
	}
	rt.rows = len(rows)
	rt.table = rt.table.WithRows(rows)
}

func (rt *ReadingsTable) SetPageSize(n int) {
	if n < 1 {
		n = 1
	}
	rt.pageSize = n
	rt.table = rt.table.WithPageSize(n)
}

func (rt *ReadingsTable) Rows() int {
	return rt.rows
}

func (rt *ReadingsTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	rt.table, cmd = rt.table.Update(msg)
	return cmd
}

func (rt *ReadingsTable) View() string {
	return rt.table.View()
}

func readingRow(r reading.Reading) table.Row {
	return table.NewRow(table.RowData{
		columnTime:  r.Time.Format(reading.DateLayout + " " + reading.TimeLayout),
		columnTemp:  optional(r.Temperature, func(v float64) string { return fmt.Sprintf("%.1f", v) }),
		columnHum:   optional(r.Humidity, func(v float64) string { return fmt.Sprintf("%.1f", v) }),
		columnPres:  optional(r.Pressure, func(v int64) string { return strconv.FormatInt(v, 10) }),
		columnC05:   optional(r.Count05, func(v float64) string { return fmt.Sprintf("%.0f", v) }),
		columnC25:   optional(r.Count25, func(v float64) string { return fmt.Sprintf("%.0f", v) }),
		columnISO:   strconv.Itoa(r.ISO),
		columnClass: strconv.Itoa(r.FedStd),
	})
}

func optional[T reading.Number](v reading.Value[T], format func(T) string) string {
	if x, ok := v.Get(); ok {
		return format(x)
	}
	return "-"
}
