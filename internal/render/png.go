package render

import (
	"bytes"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"grapeiq/internal/dashboard"
)

const (
	defaultPNGWidth  = 960
	defaultPNGHeight = 480
)

// PNGFactory renders charts to PNG with go-chart.
type PNGFactory struct {
	Width  int
	Height int
}

// Create implements Factory. The image is rendered eagerly.
func (f PNGFactory) Create(spec Spec) (Chart, error) {
	if spec.Width <= 0 {
		spec.Width = f.Width
	}
	if spec.Height <= 0 {
		spec.Height = f.Height
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, spec); err != nil {
		return nil, err
	}
	return &pngChart{spec: spec, data: buf.Bytes()}, nil
}

type pngChart struct {
	spec Spec
	data []byte
}

func (c *pngChart) Spec() Spec  { return c.spec }
func (c *pngChart) Destroy()    { c.data = nil }
func (c *pngChart) PNG() []byte { return c.data }

// WritePNG renders spec as a PNG image to w.
func WritePNG(w io.Writer, spec Spec) error {
	width, height := spec.Width, spec.Height
	if width <= 0 {
		width = defaultPNGWidth
	}
	if height <= 0 {
		height = defaultPNGHeight
	}

	var r interface {
		Render(chart.RendererProvider, io.Writer) error
	}
	switch spec.Kind {
	case Bar:
		r = barPNG(spec, width, height)
	case Donut:
		r = donutPNG(spec, width, height)
	case Line:
		r = linePNG(spec, width, height)
	default:
		return fmt.Errorf("unsupported chart kind %s", spec.Kind)
	}
	if err := r.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering %s png: %w", spec.Kind, err)
	}
	return nil
}

func background() chart.Style {
	return chart.Style{
		FillColor: drawing.ColorFromHex(backgroundHex[1:]),
		Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
	}
}

// noDataStyle styles the placeholder value drawn for an empty chart.
// go-chart refuses to render a bar or donut chart without values.
func noDataStyle() chart.Style {
	return chart.Style{FillColor: drawing.ColorFromHex(trackHex[1:]), StrokeColor: drawing.ColorFromHex(trackHex[1:])}
}

func barPNG(spec Spec, width, height int) *chart.BarChart {
	s := spec.Series
	bars := make([]chart.Value, 0, s.Len())
	maxVal := 0.0
	for i, label := range s.Labels {
		v := math.Max(s.Values[i], 0)
		maxVal = math.Max(maxVal, v)
		bars = append(bars, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{FillColor: pngColor(0), StrokeColor: pngColor(0)},
		})
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: NoData, Value: 0, Style: noDataStyle()})
	}
	if maxVal == 0 {
		maxVal = 1
	}

	n := len(bars)
	spacing := 16
	barWidth := (width-120)/n - spacing
	if barWidth < 6 {
		barWidth, spacing = 6, 2
	}
	if barWidth > 80 {
		barWidth = 80
	}

	return &chart.BarChart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		Background: background(),
		BarWidth:   barWidth,
		BarSpacing: spacing,
		XAxis:      chart.Style{},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return dashboard.FormatCompact(f)
				}
				return ""
			},
		},
		Bars: bars,
	}
}

func donutPNG(spec Spec, width, height int) *chart.DonutChart {
	s := spec.Series
	values := make([]chart.Value, 0, s.Len())
	for i, label := range s.Labels {
		if s.Values[i] <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s", label, dashboard.FormatCompact(s.Values[i])),
			Value: s.Values[i],
			Style: chart.Style{FillColor: pngColor(i), FontColor: drawing.ColorWhite},
		})
	}
	if len(values) == 0 {
		values = append(values, chart.Value{Label: NoData, Value: 1, Style: noDataStyle()})
	}
	return &chart.DonutChart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		Background: background(),
		Values:     values,
	}
}

func linePNG(spec Spec, width, height int) *chart.Chart {
	fc := spec.Forecast

	series := make([]chart.Series, 0, len(fc.Series))
	for si, s := range fc.Series {
		var xs, ys []float64
		for i, smp := range s.Samples {
			if smp.Present {
				xs = append(xs, float64(i))
				ys = append(ys, smp.Qty)
			}
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.SKU,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: pngColor(si),
				StrokeWidth: 2,
				DotColor:    pngColor(si),
				DotWidth:    3,
			},
		})
	}
	hasData := len(series) > 0
	if !hasData {
		series = append(series, chart.ContinuousSeries{
			Name:    NoData,
			XValues: []float64{0, 1},
			YValues: []float64{0, 0},
			Style:   chart.Style{Hidden: true},
		})
	}

	maxX := math.Max(float64(len(fc.Dates)-1), 1)
	maxY := fc.MaxQty()
	if maxY == 0 {
		maxY = 1
	}

	ticks := make([]chart.Tick, 0, len(fc.Dates))
	step := 1
	if len(fc.Dates) > 12 {
		step = (len(fc.Dates) + 11) / 12
	}
	for i := 0; i < len(fc.Dates); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: formatDateLabel(fc.Dates[i])})
	}

	ch := &chart.Chart{
		Title:      spec.Title,
		Width:      width,
		Height:     height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  spec.XLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: maxX},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return dashboard.FormatCompact(f)
				}
				return ""
			},
		},
		Series: series,
	}
	if hasData {
		ch.Elements = []chart.Renderable{chart.Legend(ch)}
	}
	return ch
}
