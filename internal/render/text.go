package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/unstructiq-cli/internal/insights"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

// Text writes v as plain terminal text with bracketed section headers.
func Text(w io.Writer, v *View, opt Options) error {
	return writeReport(w, v, opt, false)
}

// Markdown writes v as a markdown document.
func Markdown(w io.Writer, v *View, opt Options) error {
	return writeReport(w, v, opt, true)
}

type report struct {
	b   strings.Builder
	md  bool
	opt Options
}

func writeReport(w io.Writer, v *View, opt Options, md bool) error {
	r := &report{md: md, opt: opt}
	if md {
		r.line("# Analysis Results")
		r.line("")
	}
	if v.JobID != "" {
		r.line("Job ID: %s", v.JobID)
	}
	if v.Status != "" {
		r.line("Status: %s", v.Status)
	}
	if v.Empty() {
		r.line("(no results to display)")
	}
	for _, s := range v.Sections {
		r.header(s.Title())
		switch sec := s.(type) {
		case SummarySection:
			for _, c := range sec.Cards {
				r.line("- %s: %s", c.Label, c.Value)
			}
		case DataInfoSection:
			r.dataInfo("Original", sec.Original)
			r.dataInfo("Cleaned", sec.Cleaned)
		case CleaningSection:
			r.cleaning(sec.Report)
		case StatisticsSection:
			r.statistics(sec)
		case AnomaliesSection:
			r.anomalies(sec.Anomalies)
		case TrendsSection:
			for _, t := range sec.Trends {
				r.line("- %s: %s (%s)", t.Column, orDash(t.Direction), signedPct(t.ChangePercent))
			}
		case OutliersSection:
			for _, o := range sec.Outliers {
				r.line("- %s: %s outliers (%s), bounds [%s, %s]", o.Column, count(o.Count), pct(o.Percentage), num(o.LowerBound), num(o.UpperBound))
			}
		case CorrelationsSection:
			for _, p := range sec.Pairs {
				r.line("- %s ~ %s: r=%.3f %s", p.A, p.B, p.Coefficient, p.Strength)
			}
			if len(sec.Pairs) == 0 {
				r.matrix(sec.Columns, sec.Matrix)
			}
		case InsightsSection:
			r.insights(sec.Blocks)
		case PreviewSection:
			r.preview(sec)
		case ChartsSection:
			r.charts(sec)
		}
	}
	_, err := io.WriteString(w, r.b.String())
	return err
}

func (r *report) line(format string, args ...any) {
	if len(args) == 0 {
		r.b.WriteString(format)
	} else {
		fmt.Fprintf(&r.b, format, args...)
	}
	r.b.WriteString("\n")
}

func (r *report) header(title string) {
	r.line("")
	if r.md {
		r.line("## %s", title)
		r.line("")
		return
	}
	r.line("[%s]", strings.ToUpper(title))
}

func (r *report) dataInfo(label string, d *results.DataInfo) {
	if d == nil {
		return
	}
	r.line("- %s: %s rows × %s columns", label, count(d.Rows), count(d.Columns))
	if d.MemoryUsage != "" {
		r.line("  memory: %s", d.MemoryUsage)
	}
	if len(d.ColumnNames) > 0 {
		r.line("  columns: %s", strings.Join(d.ColumnNames, ", "))
	}
}

func (r *report) cleaning(c *results.CleaningReport) {
	if c.OriginalRows != nil || c.CleanedRows != nil {
		r.line("Rows: %s → %s", count(c.OriginalRows), count(c.CleanedRows))
	}
	if c.OriginalColumns != nil || c.CleanedColumns != nil {
		r.line("Columns: %s → %s", count(c.OriginalColumns), count(c.CleanedColumns))
	}
	if c.RowsRemoved != nil {
		r.line("Rows removed: %d", *c.RowsRemoved)
	}
	for i, op := range c.Operations {
		if op.Detail == "" {
			r.line("%d. %s", i+1, op.Step)
			continue
		}
		r.line("%d. %s: %s", i+1, op.Step, op.Detail)
	}
}

func (r *report) statistics(s StatisticsSection) {
	if len(s.Numeric) > 0 {
		r.table(
			[]string{"Column", "Mean", "Median", "Std", "Min", "Max"},
			mapRows(s.Numeric, func(n results.NumericStat) []string {
				return []string{n.Column, num(n.Mean), num(n.Median), num(n.Std), num(n.Min), num(n.Max)}
			}),
		)
	}
	for _, c := range s.Categorical {
		var top []string
		for _, vc := range c.MostCommon {
			top = append(top, fmt.Sprintf("%s(%d)", utils.Truncate(vc.Value, 40), vc.Count))
		}
		r.line("- %s: unique=%s; top: %s", c.Column, count(c.UniqueValues), orDash(strings.Join(top, ", ")))
	}
}

func (r *report) anomalies(a *results.Anomalies) {
	if a.DuplicateRows != nil {
		r.line("- Duplicate rows: %d", *a.DuplicateRows)
	}
	if len(a.SingleValueColumns) > 0 {
		r.line("- Single-value columns: %s", strings.Join(a.SingleValueColumns, ", "))
	}
	for _, n := range a.HighNullRateColumns {
		r.line("- High null rate: %s (%s%%)", n.Column, utils.FormatNumber(n.Percentage))
	}
}

func (r *report) matrix(cols []string, m [][]float64) {
	rows := make([][]string, 0, len(m))
	for i, row := range m {
		cells := []string{cols[i]}
		for _, x := range row {
			cells = append(cells, fmt.Sprintf("%.2f", x))
		}
		rows = append(rows, cells)
	}
	r.table(append([]string{""}, cols...), rows)
}

func (r *report) insights(blocks []insights.Block) {
	for i, b := range blocks {
		if i > 0 {
			r.line("")
		}
		switch b.Kind {
		case insights.KindHeading:
			if r.md {
				r.line("%s %s", strings.Repeat("#", min(b.Level+2, 6)), b.Text)
			} else {
				r.line("» %s", b.Text)
			}
		case insights.KindCallout:
			if r.md {
				r.line("> **%d. %s** %s", b.Number, b.Text, b.Body)
			} else {
				r.line("(%d) %s: %s", b.Number, strings.ToUpper(b.Text), b.Body)
			}
		default:
			r.line("%s", b.Text)
		}
	}
}

func (r *report) preview(p PreviewSection) {
	rows := p.Rows
	limit := r.opt.previewRows()
	if len(rows) > limit {
		rows = rows[:limit]
	}
	r.table(p.Columns, rows)
	if n := len(p.Rows) - len(rows); n > 0 {
		r.line("(%d more rows)", n)
	}
}

func (r *report) charts(sec ChartsSection) {
	for i, c := range sec.Charts {
		m := c.Info()
		title := orDash(m.Title)
		if r.md && r.opt.Images != nil {
			if src, err := r.opt.Images.ChartImage(i); err == nil {
				r.line("![%s](%s)", title, src)
			}
		} else {
			r.line("- [%s] %s", c.Kind(), title)
			if r.opt.Images != nil {
				if src, err := r.opt.Images.ChartImage(i); err == nil {
					r.line("  image: %s", src)
				}
			}
		}
		if m.Description != "" {
			r.line("  %s", m.Description)
		}
	}
	for _, s := range sec.Skipped {
		r.line("- skipped chart #%d %q: %s", s.Index+1, s.Title, s.Reason)
	}
}

// table writes a pipe table; markdown-compatible in both modes.
func (r *report) table(cols []string, rows [][]string) {
	r.b.WriteString("| ")
	for i, c := range cols {
		if i > 0 {
			r.b.WriteString(" | ")
		}
		r.b.WriteString(cell(c))
	}
	r.b.WriteString(" |\n|")
	for range cols {
		r.b.WriteString(" --- |")
	}
	r.b.WriteString("\n")
	for _, row := range rows {
		r.b.WriteString("| ")
		for i := range cols {
			if i > 0 {
				r.b.WriteString(" | ")
			}
			if i < len(row) {
				r.b.WriteString(cell(row[i]))
			}
		}
		r.b.WriteString(" |\n")
	}
}

func cell(s string) string {
	return utils.Truncate(strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/"), 60)
}

func mapRows[T any](in []T, fn func(T) []string) [][]string {
	out := make([][]string, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

func num(f *float64) string {
	if f == nil {
		return "-"
	}
	return utils.FormatNumber(*f)
}

func pct(f *float64) string {
	if f == nil {
		return "-"
	}
	return utils.FormatNumber(*f) + "%"
}

func signedPct(f *float64) string {
	if f == nil {
		return "-"
	}
	if *f > 0 {
		return "+" + utils.FormatNumber(*f) + "%"
	}
	return utils.FormatNumber(*f) + "%"
}

func count(n *int64) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
