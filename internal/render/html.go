package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/unstructiq-cli/internal/insights"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var htmlTmpl = template.Must(template.New("results.html").Funcs(FuncMap()).ParseFS(templateFS, "templates/results.html"))

// FuncMap holds the helpers used by the results templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"num":       num,
		"pct":       pct,
		"signedPct": signedPct,
		"count":     count,
		"orDash":    orDash,
		"fixed2":    func(f float64) string { return fmt.Sprintf("%.2f", f) },
		"fixed3":    func(f float64) string { return fmt.Sprintf("%.3f", f) },
		"truncate":  utils.Truncate,
		"join":      strings.Join,
		"inc":       func(i int) int { return i + 1 },
		"lower":     strings.ToLower,
	}
}

type htmlSection struct {
	Kind  string
	Title string
	Data  any
}

type htmlBlock struct {
	Kind   string
	Level  int
	Number int
	Text   string
	Body   template.HTML
}

type htmlChart struct {
	Index       int
	Kind        string
	Title       string
	Description string
	Src         template.URL
}

type htmlCharts struct {
	Charts  []htmlChart
	Skipped []SkippedChart
}

type htmlPreview struct {
	Columns []string
	Rows    [][]string
	More    int
}

// HTML writes v as a self-contained fragment (no <html> or <body>).
// Narrative prose goes through markdown with raw HTML dropped.
func HTML(w io.Writer, v *View, opt Options) error {
	frag, err := HTMLFragment(v, opt)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, string(frag))
	return err
}

// HTMLFragment renders v for embedding into a page template.
func HTMLFragment(v *View, opt Options) (template.HTML, error) {
	data := struct {
		JobID    string
		Status   string
		Sections []htmlSection
	}{JobID: v.JobID, Status: v.Status}
	for _, s := range v.Sections {
		hs := htmlSection{Title: s.Title(), Data: s}
		switch sec := s.(type) {
		case SummarySection:
			hs.Kind = "summary"
		case DataInfoSection:
			hs.Kind = "datainfo"
		case CleaningSection:
			hs.Kind = "cleaning"
		case StatisticsSection:
			hs.Kind = "statistics"
		case AnomaliesSection:
			hs.Kind = "anomalies"
		case TrendsSection:
			hs.Kind = "trends"
		case OutliersSection:
			hs.Kind = "outliers"
		case CorrelationsSection:
			hs.Kind = "correlations"
		case InsightsSection:
			hs.Kind = "insights"
			hs.Data = htmlBlocks(sec.Blocks)
		case PreviewSection:
			hs.Kind = "preview"
			hs.Data = previewData(sec, opt.previewRows())
		case ChartsSection:
			hs.Kind = "charts"
			hs.Data = chartData(sec, opt.Images)
		}
		data.Sections = append(data.Sections, hs)
	}
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func htmlBlocks(blocks []insights.Block) []htmlBlock {
	out := make([]htmlBlock, 0, len(blocks))
	for _, b := range blocks {
		hb := htmlBlock{Kind: b.Kind.String(), Level: b.Level, Number: b.Number, Text: b.Text}
		switch b.Kind {
		case insights.KindCallout:
			hb.Body = markdownHTML(b.Body)
		case insights.KindProse:
			hb.Body = markdownHTML(b.Text)
		}
		out = append(out, hb)
	}
	return out
}

// markdownHTML converts prose to HTML. Raw HTML in the input is skipped, so
// the result is safe to embed.
func markdownHTML(s string) template.HTML {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(s), p, r))
}

func previewData(p PreviewSection, limit int) htmlPreview {
	rows := p.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return htmlPreview{Columns: p.Columns, Rows: rows, More: len(p.Rows) - len(rows)}
}

func chartData(sec ChartsSection, images ImageSource) htmlCharts {
	out := htmlCharts{Skipped: sec.Skipped}
	for i, c := range sec.Charts {
		m := c.Info()
		hc := htmlChart{Index: i, Kind: string(c.Kind()), Title: m.Title, Description: m.Description}
		if images != nil {
			if src, err := images.ChartImage(i); err == nil {
				// produced by our own ImageSource, never by the server
				hc.Src = template.URL(src)
			}
		}
		out.Charts = append(out.Charts, hc)
	}
	return out
}
