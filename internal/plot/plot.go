// Package plot renders the recorded day files as PNG charts: one image per
// day, and one covering the most recent days.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/allbin/cleanroom/datalog"
	"github.com/allbin/cleanroom/reading"
)

const (
	// RecentFile is the image Recent writes when no output path is given
	RecentFile = "biweekly_plot.png"
	// DefaultRecentDays is how many day files the recent plot covers
	DefaultRecentDays = 14

	width  = 16 * vg.Inch
	height = 10 * vg.Inch
)

// ErrNoData is returned when there is nothing to plot
var ErrNoData = errors.New("no readings to plot")

var (
	black = color.Black
	blue  = color.RGBA{B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

// refLine is a horizontal marker drawn across a panel
type refLine struct {
	y     float64
	width vg.Length
	color color.Color
}

// panel describes one quantity in the 2x2 grid
type panel struct {
	label    string
	min, max float64
	value    func(reading.Reading) (float64, bool)
	refs     []refLine
}

func panels(withRefs bool) [][]panel {
	temp := panel{label: "temperature [C]", min: 18, max: 28, value: func(r reading.Reading) (float64, bool) { return r.Temperature.Get() }}
	hum := panel{label: "humidity [%]", min: 30, max: 80, value: func(r reading.Reading) (float64, bool) { return r.Humidity.Get() }}
	pres := panel{label: "pressure [Pa]", min: 90000, max: 110000, value: func(r reading.Reading) (float64, bool) {
		p, ok := r.Pressure.Get()
		return float64(p), ok
	}}
	cnt := panel{label: "# particles > 0.5 um / inch^3 [-]", min: 0, max: 100, value: func(r reading.Reading) (float64, bool) { return r.Count05.Get() }}
	if withRefs {
		cnt.refs = []refLine{
			{y: 6, width: vg.Points(1.5), color: blue},
			{y: 60, width: vg.Points(2), color: red},
		}
	}

	// temperature above humidity in the left column, pressure above counts in the right
	return [][]panel{
		{temp, pres},
		{hum, cnt},
	}
}

// Daily renders <day>.png next to every day file in dir that does not have
// one yet. It returns the images written.
func Daily(dir string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := datalog.Files(dir)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, file := range files {
		out := strings.TrimSuffix(file, datalog.FileExt) + ".png"
		if _, err := os.Stat(out); err == nil {
			continue
		}

		readings, err := datalog.ReadFile(file, datalog.WithReadLogger(logger))
		if err != nil {
			logger.Warn("skipping unreadable day file", zap.String("file", file), zap.Error(err))
			continue
		}
		if len(readings) == 0 {
			logger.Debug("skipping empty day file", zap.String("file", file))
			continue
		}

		if err := render(out, readings, "2006-01-02 15:04", false); err != nil {
			return written, fmt.Errorf("plot %s: %w", filepath.Base(file), err)
		}
		logger.Info("rendered daily plot", zap.String("file", out), zap.Int("readings", len(readings)))
		written = append(written, out)
	}
	return written, nil
}

// Recent renders the last days day files of dir into out, overwriting it.
// An empty out writes RecentFile inside dir.
func Recent(dir string, days int, out string) (string, error) {
	if days <= 0 {
		days = DefaultRecentDays
	}
	if out == "" {
		out = filepath.Join(dir, RecentFile)
	}

	readings, err := datalog.LoadLast(dir, days)
	if err != nil {
		return "", err
	}
	if len(readings) == 0 {
		return "", ErrNoData
	}

	if err := render(out, readings, "2006-01-02 15h", true); err != nil {
		return "", err
	}
	return out, nil
}

func render(out string, readings []reading.Reading, tickFormat string, withRefs bool) error {
	grid := panels(withRefs)

	plots := make([][]*plot.Plot, len(grid))
	for i, row := range grid {
		plots[i] = make([]*plot.Plot, len(row))
		for j, pn := range row {
			p, err := newPanel(pn, readings, tickFormat)
			if err != nil {
				return err
			}
			plots[i][j] = p
		}
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
	}

	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newPanel(pn panel, readings []reading.Reading, tickFormat string) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = pn.label
	p.Y.Min = pn.min
	p.Y.Max = pn.max
	p.X.Tick.Marker = plot.TimeTicks{
		Format: tickFormat,
		Time:   func(t float64) time.Time { return time.Unix(int64(t), 0) },
	}
	p.Add(plotter.NewGrid())

	var pts plotter.XYs
	for _, r := range readings {
		if v, ok := pn.value(r); ok {
			pts = append(pts, plotter.XY{X: float64(r.Time.Unix()), Y: v})
		}
	}

	first, last := float64(readings[0].Time.Unix()), float64(readings[len(readings)-1].Time.Unix())
	if last <= first {
		last = first + 1
	}
	p.X.Min = first
	p.X.Max = last

	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = black
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
	}

	for _, ref := range pn.refs {
		y := ref.y
		line := plotter.NewFunction(func(float64) float64 { return y })
		line.Width = ref.width
		line.Color = ref.color
		p.Add(line)
	}

	// plotters widen the axes to their data; keep the fixed ranges
	p.Y.Min = pn.min
	p.Y.Max = pn.max

	return p, nil
}
