package web

import (
	"sync"
	"time"

	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/render"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
)

// view is one browser's session plus the chart canvases currently on display.
type view struct {
	sess     *session.Session
	renderer *charts.Renderer
	// lastSeen is guarded by the server's mutex.
	lastSeen time.Time

	mu        sync.Mutex
	doc       *results.Document
	built     *render.View
	gallery   *charts.Gallery
	healthErr string
}

// sync rebuilds the display tree when the session's results changed and
// releases the canvases of results no longer shown.
func (v *view) sync() (*render.View, *charts.Gallery) {
	var doc *results.Document
	if p, ok := v.sess.State().(session.Processed); ok {
		doc = p.Results
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if doc == v.doc {
		return v.built, v.gallery
	}
	if v.gallery != nil {
		_ = v.gallery.Close()
		v.gallery = nil
	}
	v.doc, v.built = doc, nil
	if doc == nil {
		return nil, nil
	}
	v.built = render.Build(doc)
	if sec, ok := v.built.Charts(); ok && len(sec.Charts) > 0 {
		v.gallery = charts.NewGallery(v.renderer, charts.FormatPNG, sec.Charts)
	}
	return v.built, v.gallery
}

func (v *view) releaseCharts() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gallery != nil {
		_ = v.gallery.Close()
		v.gallery = nil
	}
	v.doc, v.built = nil, nil
}

// release drops the selected file, results and chart canvases.
func (v *view) release() {
	v.sess.Remove()
	v.releaseCharts()
}

func (v *view) setHealthErr(msg string) {
	v.mu.Lock()
	v.healthErr = msg
	v.mu.Unlock()
}

func (v *view) healthError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.healthErr
}
