package charts

import (
	"errors"
	"fmt"
	"sync"
)

// ErrGalleryClosed is returned by a gallery after Close.
var ErrGalleryClosed = errors.New("chart gallery closed")

// Gallery owns the canvases drawn for one results view. Canvases are drawn on
// first request and all of them are released together by Close.
type Gallery struct {
	mu       sync.Mutex
	renderer *Renderer
	format   Format
	charts   []Chart
	canvases []*Canvas
	closed   bool
}

func NewGallery(r *Renderer, f Format, charts []Chart) *Gallery {
	if r == nil {
		r = NewRenderer(0, 0)
	}
	return &Gallery{
		renderer: r,
		format:   f,
		charts:   charts,
		canvases: make([]*Canvas, len(charts)),
	}
}

func (g *Gallery) Len() int { return len(g.charts) }

// Chart returns the i-th validated chart.
func (g *Gallery) Chart(i int) (Chart, bool) {
	if i < 0 || i >= len(g.charts) {
		return nil, false
	}
	return g.charts[i], true
}

// Canvas returns the drawn canvas for chart i, drawing it if needed.
func (g *Gallery) Canvas(i int) (*Canvas, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrGalleryClosed
	}
	if i < 0 || i >= len(g.charts) {
		return nil, fmt.Errorf("chart %d out of range", i)
	}
	if c := g.canvases[i]; c != nil {
		return c, nil
	}
	c, err := g.renderer.Draw(g.charts[i], g.format)
	if err != nil {
		return nil, err
	}
	g.canvases[i] = c
	return c, nil
}

// Close releases every canvas drawn so far.
func (g *Gallery) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	for i, c := range g.canvases {
		if c != nil {
			_ = c.Close()
			g.canvases[i] = nil
		}
	}
	return nil
}
