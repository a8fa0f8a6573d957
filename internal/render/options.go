package render

import (
	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
)

// DefaultPreviewRows bounds the preview table when Options.PreviewRows is 0.
const DefaultPreviewRows = 10

// ImageSource resolves the image reference (path, URL or data URI) of the
// i-th drawable chart of a ChartsSection.
type ImageSource interface {
	ChartImage(i int) (string, error)
}

// ImageFunc adapts a function to ImageSource.
type ImageFunc func(i int) (string, error)

func (f ImageFunc) ChartImage(i int) (string, error) { return f(i) }

// GalleryImages inlines the gallery's canvases as data URIs.
func GalleryImages(g *charts.Gallery) ImageSource {
	return ImageFunc(func(i int) (string, error) {
		c, err := g.Canvas(i)
		if err != nil {
			return "", err
		}
		return c.DataURI()
	})
}

type Options struct {
	// Images, when set, adds an image reference for every drawable chart.
	Images      ImageSource
	PreviewRows int
}

func (o Options) previewRows() int {
	if o.PreviewRows > 0 {
		return o.PreviewRows
	}
	return DefaultPreviewRows
}
