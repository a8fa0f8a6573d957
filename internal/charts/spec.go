// Package charts validates backend chart specs into a closed set of chart
// kinds and draws them with go-chart.
package charts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindPie     Kind = "pie"
	KindScatter Kind = "scatter"
)

// ErrUnknownKind is returned for chart types outside the supported set.
var ErrUnknownKind = errors.New("unknown chart type")

// InvalidError describes a spec whose data does not match its declared kind.
type InvalidError struct {
	Kind   string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s chart: %s", e.Kind, e.Reason)
}

// Chart is one of BarChart, LineChart, PieChart or ScatterChart.
type Chart interface {
	Kind() Kind
	Info() Meta
	sealed()
}

// Meta carries the display text shared by all chart kinds.
type Meta struct {
	Title       string
	Description string
}

type Series struct {
	Label  string
	Values []float64
}

// LineSeries values may contain NaN for gaps (null in the spec).
type LineSeries struct {
	Label  string
	Values []float64
}

type Point struct{ X, Y float64 }

type PointSeries struct {
	Label  string
	Points []Point
}

type BarChart struct {
	Meta
	Labels []string
	Series []Series
}

type LineChart struct {
	Meta
	Labels []string
	Series []LineSeries
}

type PieChart struct {
	Meta
	Labels []string
	Values []float64
}

type ScatterChart struct {
	Meta
	XLabel string
	YLabel string
	Series []PointSeries
}

func (BarChart) Kind() Kind     { return KindBar }
func (LineChart) Kind() Kind    { return KindLine }
func (PieChart) Kind() Kind     { return KindPie }
func (ScatterChart) Kind() Kind { return KindScatter }

func (c BarChart) Info() Meta     { return c.Meta }
func (c LineChart) Info() Meta    { return c.Meta }
func (c PieChart) Info() Meta     { return c.Meta }
func (c ScatterChart) Info() Meta { return c.Meta }

func (BarChart) sealed()     {}
func (LineChart) sealed()    {}
func (PieChart) sealed()     {}
func (ScatterChart) sealed() {}

// Decode validates one chart spec. Only specs that pass are ever drawn.
func Decode(raw json.RawMessage) (Chart, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &InvalidError{Kind: "?", Reason: "not JSON"}
	}
	spec := gjson.ParseBytes(raw)
	if !spec.IsObject() {
		return nil, &InvalidError{Kind: "?", Reason: "spec is not an object"}
	}
	meta := Meta{Title: spec.Get("title").String(), Description: spec.Get("description").String()}
	kind := strings.ToLower(strings.TrimSpace(spec.Get("type").String()))
	data := spec.Get("data")
	switch kind {
	case "bar":
		return decodeBar(meta, data)
	case "line":
		return decodeLine(meta, data)
	case "pie", "doughnut":
		return decodePie(meta, data)
	case "scatter":
		return decodeScatter(meta, data, spec.Get("options"))
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownKind)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// TitleOf extracts the title of a spec without validating it.
func TitleOf(raw json.RawMessage) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	return gjson.GetBytes(raw, "title").String()
}

func decodeBar(meta Meta, data gjson.Result) (Chart, error) {
	labels, err := decodeLabels("bar", data)
	if err != nil {
		return nil, err
	}
	sets, err := datasets("bar", data)
	if err != nil {
		return nil, err
	}
	c := BarChart{Meta: meta, Labels: labels}
	for i, ds := range sets {
		vals, err := numbers("bar", ds.Get("data"), len(labels), false)
		if err != nil {
			return nil, err
		}
		c.Series = append(c.Series, Series{Label: seriesLabel(ds, i), Values: vals})
	}
	return c, nil
}

func decodeLine(meta Meta, data gjson.Result) (Chart, error) {
	labels, err := decodeLabels("line", data)
	if err != nil {
		return nil, err
	}
	sets, err := datasets("line", data)
	if err != nil {
		return nil, err
	}
	c := LineChart{Meta: meta, Labels: labels}
	points := 0
	for i, ds := range sets {
		vals, err := numbers("line", ds.Get("data"), len(labels), true)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if !math.IsNaN(v) {
				points++
			}
		}
		c.Series = append(c.Series, LineSeries{Label: seriesLabel(ds, i), Values: vals})
	}
	if points == 0 {
		return nil, &InvalidError{Kind: "line", Reason: "no numeric points"}
	}
	return c, nil
}

func decodePie(meta Meta, data gjson.Result) (Chart, error) {
	labels, err := decodeLabels("pie", data)
	if err != nil {
		return nil, err
	}
	sets, err := datasets("pie", data)
	if err != nil {
		return nil, err
	}
	vals, err := numbers("pie", sets[0].Get("data"), len(labels), false)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, v := range vals {
		if v < 0 {
			return nil, &InvalidError{Kind: "pie", Reason: "negative slice"}
		}
		sum += v
	}
	if sum <= 0 {
		return nil, &InvalidError{Kind: "pie", Reason: "slices sum to zero"}
	}
	return PieChart{Meta: meta, Labels: labels, Values: vals}, nil
}

func decodeScatter(meta Meta, data, options gjson.Result) (Chart, error) {
	sets, err := datasets("scatter", data)
	if err != nil {
		return nil, err
	}
	c := ScatterChart{
		Meta:   meta,
		XLabel: options.Get("scales.x.title.text").String(),
		YLabel: options.Get("scales.y.title.text").String(),
	}
	total := 0
	for i, ds := range sets {
		pts := ds.Get("data")
		if !pts.IsArray() {
			return nil, &InvalidError{Kind: "scatter", Reason: fmt.Sprintf("dataset %d has no data array", i)}
		}
		s := PointSeries{Label: seriesLabel(ds, i)}
		for j, p := range pts.Array() {
			x, y := p.Get("x"), p.Get("y")
			if x.Type != gjson.Number || y.Type != gjson.Number {
				return nil, &InvalidError{Kind: "scatter", Reason: fmt.Sprintf("point %d of dataset %d is not {x,y}", j, i)}
			}
			s.Points = append(s.Points, Point{X: x.Float(), Y: y.Float()})
		}
		total += len(s.Points)
		c.Series = append(c.Series, s)
	}
	if total == 0 {
		return nil, &InvalidError{Kind: "scatter", Reason: "no points"}
	}
	return c, nil
}

func decodeLabels(kind string, data gjson.Result) ([]string, error) {
	l := data.Get("labels")
	if !l.IsArray() || len(l.Array()) == 0 {
		return nil, &InvalidError{Kind: kind, Reason: "missing labels"}
	}
	var out []string
	for _, v := range l.Array() {
		out = append(out, v.String())
	}
	return out, nil
}

func datasets(kind string, data gjson.Result) ([]gjson.Result, error) {
	ds := data.Get("datasets")
	if !ds.IsArray() || len(ds.Array()) == 0 {
		return nil, &InvalidError{Kind: kind, Reason: "missing datasets"}
	}
	return ds.Array(), nil
}

// numbers reads a numeric array whose length must equal want. With gaps set,
// null entries become NaN instead of failing.
func numbers(kind string, arr gjson.Result, want int, gaps bool) ([]float64, error) {
	if !arr.IsArray() {
		return nil, &InvalidError{Kind: kind, Reason: "dataset has no data array"}
	}
	items := arr.Array()
	if len(items) != want {
		return nil, &InvalidError{Kind: kind, Reason: fmt.Sprintf("%d values for %d labels", len(items), want)}
	}
	out := make([]float64, len(items))
	for i, v := range items {
		switch {
		case v.Type == gjson.Number:
			f := v.Float()
			if math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, &InvalidError{Kind: kind, Reason: fmt.Sprintf("value %d is not finite", i)}
			}
			out[i] = f
		case v.Type == gjson.Null && gaps:
			out[i] = math.NaN()
		default:
			return nil, &InvalidError{Kind: kind, Reason: fmt.Sprintf("value %d is not a number", i)}
		}
	}
	return out, nil
}

func seriesLabel(ds gjson.Result, i int) string {
	if l := ds.Get("label").String(); l != "" {
		return l
	}
	return fmt.Sprintf("Series %d", i+1)
}
