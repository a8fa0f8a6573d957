package charts

import (
	"bytes"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ContentType is the MIME type of a drawn canvas.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// maxTicks bounds the labelled x-axis ticks on line charts.
const maxTicks = 12

// Renderer draws validated charts at a fixed size.
type Renderer struct {
	Width  int
	Height int
}

func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}
	return &Renderer{Width: width, Height: height}
}

// Draw renders c into a new Canvas owned by the caller.
func (r *Renderer) Draw(c Chart, f Format) (*Canvas, error) {
	rp := chart.PNG
	if f == FormatSVG {
		rp = chart.SVG
	} else {
		f = FormatPNG
	}
	var buf bytes.Buffer
	var err error
	switch v := c.(type) {
	case BarChart:
		bc := r.bar(v)
		err = bc.Render(rp, &buf)
	case LineChart:
		lc := r.line(v)
		err = lc.Render(rp, &buf)
	case PieChart:
		pc := r.pie(v)
		err = pc.Render(rp, &buf)
	case ScatterChart:
		sc := r.scatter(v)
		err = sc.Render(rp, &buf)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, c)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", c.Kind(), err)
	}
	return newCanvas(buf.Bytes(), f), nil
}

func (r *Renderer) padding() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}}
}

func (r *Renderer) bar(c BarChart) chart.BarChart {
	var bars []chart.Value
	multi := len(c.Series) > 1
	for i, label := range c.Labels {
		for si, s := range c.Series {
			name := label
			if multi {
				name = label + " · " + s.Label
			}
			bars = append(bars, chart.Value{
				Label: name,
				Value: s.Values[i],
				Style: chart.Style{FillColor: chart.GetDefaultColor(si), StrokeColor: chart.GetDefaultColor(si)},
			})
		}
	}
	bw := 50
	if n := len(bars); n > 0 {
		if w := (r.Width-80)/n - 8; w < bw {
			bw = w
		}
	}
	if bw < 4 {
		bw = 4
	}
	bc := chart.BarChart{
		Title:      c.Title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   bw,
		Background: r.padding(),
		Bars:       bars,
	}
	lo, hi := valueRange(bars)
	if lo == hi {
		bc.YAxis.Range = &chart.ContinuousRange{Min: math.Min(0, lo), Max: hi + 1}
	}
	return bc
}

func (r *Renderer) line(c LineChart) chart.Chart {
	var series []chart.Series
	var ys []float64
	for si, s := range c.Series {
		var xv, yv []float64
		for i, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			xv = append(xv, float64(i))
			yv = append(yv, v)
		}
		if len(xv) == 0 {
			continue
		}
		xv, yv = padSingle(xv, yv)
		ys = append(ys, yv...)
		series = append(series, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: xv,
			YValues: yv,
			Style:   chart.Style{StrokeColor: chart.GetDefaultColor(si), StrokeWidth: 2},
		})
	}
	ch := chart.Chart{
		Title:      c.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: r.padding(),
		XAxis:      chart.XAxis{Ticks: labelTicks(c.Labels)},
		Series:     series,
	}
	if rg := flatRange(ys); rg != nil {
		ch.YAxis.Range = rg
	}
	if len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch
}

func (r *Renderer) pie(c PieChart) chart.PieChart {
	var vals []chart.Value
	for i, l := range c.Labels {
		if c.Values[i] <= 0 {
			continue
		}
		vals = append(vals, chart.Value{Label: l, Value: c.Values[i]})
	}
	return chart.PieChart{
		Title:      c.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: r.padding(),
		Values:     vals,
	}
}

func (r *Renderer) scatter(c ScatterChart) chart.Chart {
	var series []chart.Series
	var xs, ys []float64
	for si, s := range c.Series {
		if len(s.Points) == 0 {
			continue
		}
		xv := make([]float64, len(s.Points))
		yv := make([]float64, len(s.Points))
		for i, p := range s.Points {
			xv[i], yv[i] = p.X, p.Y
		}
		xs = append(xs, xv...)
		ys = append(ys, yv...)
		col := chart.GetDefaultColor(si)
		series = append(series, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: xv,
			YValues: yv,
			Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 3, DotColor: col},
		})
	}
	ch := chart.Chart{
		Title:      c.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: r.padding(),
		XAxis:      chart.XAxis{Name: c.XLabel},
		YAxis:      chart.YAxis{Name: c.YLabel},
		Series:     series,
	}
	if rg := flatRange(xs); rg != nil {
		ch.XAxis.Range = rg
	}
	if rg := flatRange(ys); rg != nil {
		ch.YAxis.Range = rg
	}
	if len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch
}

// padSingle duplicates a lone point; go-chart needs a non-zero x range.
func padSingle(xs, ys []float64) ([]float64, []float64) {
	if len(xs) != 1 {
		return xs, ys
	}
	return []float64{xs[0], xs[0] + 1}, []float64{ys[0], ys[0]}
}

// flatRange returns an explicit range when all values are equal.
func flatRange(vals []float64) *chart.ContinuousRange {
	if len(vals) == 0 {
		return nil
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

func valueRange(vals []chart.Value) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi := vals[0].Value, vals[0].Value
	for _, v := range vals[1:] {
		lo = math.Min(lo, v.Value)
		hi = math.Max(hi, v.Value)
	}
	return lo, hi
}

func labelTicks(labels []string) []chart.Tick {
	if len(labels) < 2 {
		return nil
	}
	step := 1
	if len(labels) > maxTicks {
		step = (len(labels) + maxTicks - 1) / maxTicks
	}
	var ticks []chart.Tick
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}
