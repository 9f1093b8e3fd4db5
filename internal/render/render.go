// Package render draws deviation series as PNG line charts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"IndexDeviation/internal/model"
)

// ErrNothingToPlot is returned when no point of the chart window has a defined deviation.
var ErrNothingToPlot = errors.New("no defined deviation in chart window")

// Renderer turns a deviation series into an artifact and returns its path.
type Renderer interface {
	Render(series *model.DeviationSeries, startDate time.Time) (string, error)
}

// PNGRenderer writes one PNG per series into OutputDir.
type PNGRenderer struct {
	OutputDir string
	Width     vg.Length
	Height    vg.Length
	DPI       int
}

// NewPNGRenderer creates a renderer sized in inches. Zero sizes fall back to 12x6 at 300 DPI.
func NewPNGRenderer(outputDir string, widthIn, heightIn float64, dpi int) *PNGRenderer {
	if widthIn <= 0 {
		widthIn = 12
	}
	if heightIn <= 0 {
		heightIn = 6
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &PNGRenderer{
		OutputDir: outputDir,
		Width:     vg.Length(widthIn) * vg.Inch,
		Height:    vg.Length(heightIn) * vg.Inch,
		DPI:       dpi,
	}
}

// UseFont registers a TrueType/OpenType font file as the default plot font.
// The bundled Liberation fonts have no CJK glyphs.
func UseFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font: %w", err)
	}
	face, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	f := font.Font{Typeface: font.Typeface(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))}
	font.DefaultCache.Add([]font.Face{{Font: f, Face: face}})
	plot.DefaultFont = f
	plotter.DefaultFont = f
	return nil
}

// FileName is the chart file name for an index and its latest date.
func FileName(displayName string, window int, latest time.Time) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(displayName)
	return fmt.Sprintf("%sMA%d偏离度_%s.png", safe, window, latest.Format(model.DateLayout))
}

// Title is the chart title for an index and its latest date.
func Title(displayName string, window int, latest time.Time) string {
	return fmt.Sprintf("%s MA%d 偏离度 最新日期：%s", displayName, window, latest.Format(model.DateLayout))
}

func (r *PNGRenderer) Render(series *model.DeviationSeries, startDate time.Time) (string, error) {
	if series == nil || series.Len() == 0 {
		return "", ErrNothingToPlot
	}
	latest := series.Latest()

	xys := make(plotter.XYs, 0, series.Len())
	for _, p := range series.Points {
		if p.Date.Before(startDate) || !p.Deviation.Valid {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(p.Date.Unix()), Y: p.Deviation.Decimal.InexactFloat64()})
	}
	if len(xys) == 0 {
		return "", ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = Title(series.Spec.DisplayName, series.Window, latest.Date)
	p.X.Label.Text = "date"
	p.Y.Label.Text = "deviation"
	p.X.Tick.Marker = halfYearTicks{}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Y.Tick.Marker = percentTicks{}
	p.Add(plotter.NewGrid())

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = color.Gray{Y: 128}
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(zero)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return "", fmt.Errorf("line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)

	last := plotter.XYs{xys[len(xys)-1]}
	marker, err := plotter.NewScatter(last)
	if err != nil {
		return "", fmt.Errorf("marker: %w", err)
	}
	marker.GlyphStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	marker.GlyphStyle.Radius = vg.Points(3)
	marker.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(marker)

	label, err := plotter.NewLabels(plotter.XYLabels{XYs: last, Labels: []string{formatPercent(last[0].Y, 2)}})
	if err != nil {
		return "", fmt.Errorf("label: %w", err)
	}
	label.Offset = vg.Point{X: vg.Points(-24), Y: vg.Points(6)}
	p.Add(label)

	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(r.OutputDir, FileName(series.Spec.DisplayName, series.Window, latest.Date))

	c := vgimg.NewWith(vgimg.UseWH(r.Width, r.Height), vgimg.UseDPI(r.DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close chart: %w", err)
	}
	return path, nil
}

// halfYearTicks places labelled ticks on the first day of every June and December.
type halfYearTicks struct{}

func (halfYearTicks) Ticks(min, max float64) []plot.Tick {
	lo := time.Unix(int64(min), 0).UTC()
	hi := time.Unix(int64(max), 0).UTC()

	var ticks []plot.Tick
	t := time.Date(lo.Year(), lo.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !t.After(hi) {
		if !t.Before(lo) {
			label := ""
			if t.Month() == time.June || t.Month() == time.December {
				label = t.Format("2006-01")
			}
			ticks = append(ticks, plot.Tick{Value: float64(t.Unix()), Label: label})
		}
		t = t.AddDate(0, 1, 0)
	}
	return ticks
}

// percentTicks formats fractional values as percentages.
type percentTicks struct{}

func (percentTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatPercent(ticks[i].Value, 0)
		}
	}
	return ticks
}

func formatPercent(v float64, prec int) string {
	return fmt.Sprintf("%.*f%%", prec, v*100)
}
