// Package render turns a results document into a display tree and writes that
// tree as terminal text, markdown, an HTML fragment or an XLSX workbook.
package render

import (
	"errors"
	"strconv"

	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/insights"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
)

// View is the display tree of one results document. Sections appear in
// display order and only when their data is present and non-empty.
type View struct {
	JobID    string
	Status   string
	Sections []Section
}

// Section is one of the *Section types in this package.
type Section interface {
	Title() string
	sealed()
}

type Card struct {
	Label string
	Value string
}

type SummarySection struct{ Cards []Card }

type DataInfoSection struct {
	Original *results.DataInfo
	Cleaned  *results.DataInfo
}

type CleaningSection struct{ Report *results.CleaningReport }

type StatisticsSection struct {
	Numeric     []results.NumericStat
	Categorical []results.CategoricalStat
}

type AnomaliesSection struct{ Anomalies *results.Anomalies }

type TrendsSection struct{ Trends []results.Trend }

type OutliersSection struct{ Outliers []results.Outlier }

type CorrelationsSection struct {
	Pairs []results.CorrelationPair
	// Columns and Matrix are set when the server sent a full matrix.
	Columns []string
	Matrix  [][]float64
}

type InsightsSection struct{ Blocks []insights.Block }

type PreviewSection struct {
	Columns []string
	Rows    [][]string
}

// ChartsSection holds the charts that passed validation, in document order,
// and the ones that did not.
type ChartsSection struct {
	Charts  []charts.Chart
	Skipped []SkippedChart
}

// SkippedChart describes a chart spec that was not drawn.
type SkippedChart struct {
	Index  int
	Title  string
	Reason string
}

func (SummarySection) Title() string      { return "Summary" }
func (DataInfoSection) Title() string     { return "Data Info" }
func (CleaningSection) Title() string     { return "Cleaning Report" }
func (StatisticsSection) Title() string   { return "Statistics" }
func (AnomaliesSection) Title() string    { return "Anomalies" }
func (TrendsSection) Title() string       { return "Trends" }
func (OutliersSection) Title() string     { return "Outliers" }
func (CorrelationsSection) Title() string { return "Correlations" }
func (InsightsSection) Title() string     { return "AI Insights" }
func (PreviewSection) Title() string      { return "Data Preview" }
func (ChartsSection) Title() string       { return "Charts" }

func (SummarySection) sealed()      {}
func (DataInfoSection) sealed()     {}
func (CleaningSection) sealed()     {}
func (StatisticsSection) sealed()   {}
func (AnomaliesSection) sealed()    {}
func (TrendsSection) sealed()       {}
func (OutliersSection) sealed()     {}
func (CorrelationsSection) sealed() {}
func (InsightsSection) sealed()     {}
func (PreviewSection) sealed()      {}
func (ChartsSection) sealed()       {}

// Build walks the optional sections of doc. A nil doc yields an empty view.
func Build(doc *results.Document) *View {
	v := &View{}
	if doc == nil {
		return v
	}
	v.JobID, v.Status = doc.JobID, doc.Status

	if s := summary(doc); s != nil {
		v.add(*s)
	}
	if doc.OriginalInfo != nil || doc.CleanedInfo != nil {
		v.add(DataInfoSection{Original: doc.OriginalInfo, Cleaned: doc.CleanedInfo})
	}
	if c := doc.Cleaning; !c.Empty() {
		v.add(CleaningSection{Report: c})
	}
	if st := doc.Statistics; st != nil && (len(st.Numeric) > 0 || len(st.Categorical) > 0) {
		v.add(StatisticsSection{Numeric: st.Numeric, Categorical: st.Categorical})
	}
	if adv := doc.Advanced; adv != nil {
		if adv.Anomalies != nil {
			v.add(AnomaliesSection{Anomalies: adv.Anomalies})
		}
		if len(adv.Trends) > 0 {
			v.add(TrendsSection{Trends: adv.Trends})
		}
		if len(adv.Outliers) > 0 {
			v.add(OutliersSection{Outliers: adv.Outliers})
		}
		if c := adv.Correlations; c != nil {
			sec := CorrelationsSection{Pairs: c.Pairs}
			if len(c.Columns) > 0 && len(c.Matrix) == len(c.Columns) {
				sec.Columns, sec.Matrix = c.Columns, c.Matrix
			}
			if len(sec.Pairs) > 0 || len(sec.Matrix) > 0 {
				v.add(sec)
			}
		}
	}
	if blocks := insights.Parse(doc.Insights); len(blocks) > 0 {
		v.add(InsightsSection{Blocks: blocks})
	}
	if p := doc.Preview; p != nil && len(p.Columns) > 0 && len(p.Rows) > 0 {
		v.add(PreviewSection{Columns: p.Columns, Rows: p.Rows})
	}
	if len(doc.Charts) > 0 {
		v.add(chartSection(doc))
	}
	return v
}

func (v *View) add(s Section) { v.Sections = append(v.Sections, s) }

// Charts returns the charts section, if any.
func (v *View) Charts() (ChartsSection, bool) {
	for _, s := range v.Sections {
		if c, ok := s.(ChartsSection); ok {
			return c, true
		}
	}
	return ChartsSection{}, false
}

// Empty reports whether there is nothing to display.
func (v *View) Empty() bool { return len(v.Sections) == 0 }

func summary(doc *results.Document) *SummarySection {
	var cards []Card
	if doc.Statistics != nil && doc.Statistics.Summary != nil {
		s := doc.Statistics.Summary
		cards = appendCount(cards, "Total Rows", s.TotalRows)
		cards = appendCount(cards, "Total Columns", s.TotalColumns)
		cards = appendCount(cards, "Numeric Columns", s.NumericColumns)
		cards = appendCount(cards, "Categorical Columns", s.CategoricalColumns)
	}
	if doc.Cleaning != nil {
		cards = appendCount(cards, "Rows Removed", doc.Cleaning.RowsRemoved)
	}
	if len(cards) == 0 {
		return nil
	}
	return &SummarySection{Cards: cards}
}

func appendCount(cards []Card, label string, n *int64) []Card {
	if n == nil {
		return cards
	}
	return append(cards, Card{Label: label, Value: strconv.FormatInt(*n, 10)})
}

func chartSection(doc *results.Document) ChartsSection {
	var sec ChartsSection
	for i, raw := range doc.Charts {
		c, err := charts.Decode(raw)
		if err != nil {
			sec.Skipped = append(sec.Skipped, SkippedChart{Index: i, Title: charts.TitleOf(raw), Reason: skipReason(err)})
			continue
		}
		sec.Charts = append(sec.Charts, c)
	}
	return sec
}

func skipReason(err error) string {
	var inv *charts.InvalidError
	if errors.As(err, &inv) {
		return inv.Reason
	}
	return err.Error()
}
