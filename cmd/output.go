package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/render"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

// Output formats accepted by --format.
var resultFormats = []string{"text", "markdown", "html", "json", "xlsx"}

type outputOptions struct {
	Format    string
	Output    string
	ChartsDir string
}

func validateFormat(f string) error {
	for _, ok := range resultFormats {
		if f == ok {
			return nil
		}
	}
	return fmt.Errorf("unsupported --format: %s (use %s)", f, strings.Join(resultFormats, ", "))
}

// writeResults renders doc in the requested format to --output or stdout.
// Chart canvases drawn along the way are released before returning.
func writeResults(cmd *cobra.Command, doc *results.Document, opt outputOptions) error {
	if err := validateFormat(opt.Format); err != nil {
		return err
	}
	view := render.Build(doc)

	var ropt render.Options
	if sec, ok := view.Charts(); ok && len(sec.Charts) > 0 && (opt.ChartsDir != "" || opt.Format == "html") {
		g := charts.NewGallery(charts.NewRenderer(cfg.ChartWidth, cfg.ChartHeight), charts.FormatPNG, sec.Charts)
		defer g.Close()
		if opt.ChartsDir != "" {
			paths, err := saveCharts(g, opt.ChartsDir)
			if err != nil {
				return err
			}
			ropt.Images = render.ImageFunc(func(i int) (string, error) { return paths[i], nil })
			for _, p := range paths {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Chart saved: %s\n", p)
			}
		} else {
			ropt.Images = render.GalleryImages(g)
		}
	}

	var buf bytes.Buffer
	var err error
	switch opt.Format {
	case "text":
		err = render.Text(&buf, view, ropt)
	case "markdown":
		err = render.Markdown(&buf, view, ropt)
	case "html":
		err = writeHTMLPage(&buf, view, ropt)
	case "json":
		raw := doc.Raw
		if len(raw) == 0 {
			raw = []byte("{}")
		}
		buf.Write(utils.IndentJSON(raw))
		buf.WriteByte('\n')
	case "xlsx":
		if opt.Output == "" {
			opt.Output = filepath.Join(cfg.OutputDir, "results_"+orJob(doc.JobID)+".xlsx")
		}
		err = render.WriteWorkbook(&buf, view)
	}
	if err != nil {
		return err
	}

	if opt.Output == "" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := utils.SafeWriteFile(opt.Output, buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Results saved to %s\n", opt.Output)
	return nil
}

func saveCharts(g *charts.Gallery, dir string) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	paths := make([]string, g.Len())
	for i := range paths {
		c, err := g.Canvas(i)
		if err != nil {
			return nil, fmt.Errorf("draw chart %d: %w", i+1, err)
		}
		b, err := c.Bytes()
		if err != nil {
			return nil, err
		}
		p := filepath.Join(dir, fmt.Sprintf("chart_%d.%s", i+1, c.Format()))
		if err := utils.SafeWriteFile(p, b); err != nil {
			return nil, fmt.Errorf("write chart: %w", err)
		}
		paths[i] = p
	}
	return paths, nil
}

func writeHTMLPage(w io.Writer, v *render.View, opt render.Options) error {
	frag, err := render.HTMLFragment(v, opt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head><meta charset=\"utf-8\"><title>UnstructIQ results</title></head>\n<body>\n%s\n</body>\n</html>\n", frag)
	return err
}

func orJob(id string) string {
	if id == "" {
		return "job"
	}
	return id
}

// stderrIsTerminal reports whether stage labels can be redrawn in place.
func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
