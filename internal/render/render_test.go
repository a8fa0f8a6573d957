package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/unstructiq-cli/internal/charts"
	"github.com/KaramelBytes/unstructiq-cli/internal/insights"
	"github.com/KaramelBytes/unstructiq-cli/internal/results"
)

const fullResults = `{
  "message": "ok",
  "results": {
    "job_id": "abc123",
    "status": "completed",
    "statistics": {
      "summary": {"total_rows": 120, "total_columns": 5},
      "numeric_stats": {"price": {"mean": 10.5, "median": 9, "min": 1, "max": 40}},
      "categorical_stats": {"city": {"unique_values": 3, "most_common": {"Cape Town": 60, "Durban": 40}}}
    },
    "cleaning_report": {
      "rows_removed": 4,
      "operations": [{"step": "drop_duplicates", "detail": "4 rows"}]
    },
    "advanced_analytics": {
      "anomalies": {"duplicate_rows": 4},
      "trends": {"price": {"direction": "increasing", "change_percent": 12.5}},
      "correlation_matrix": {"pairs": [{"col1": "price", "col2": "qty", "correlation": -0.81, "strength": "strong"}]}
    },
    "insights": "## Summary\n\nSales grew in **Q3**.\n\n1. **Watch churn**: it doubled.",
    "data_preview": {"columns": ["city", "price"], "rows": [{"city": "Durban", "price": 3}]},
    "charts": [
      {"type": "bar", "title": "Price by city", "data": {"labels": ["Durban", "Cape Town"], "datasets": [{"label": "price", "data": [3, 4]}]}},
      {"type": "radar", "title": "Odd", "data": {}}
    ]
  }
}`

func buildView(t *testing.T, body string) *View {
	t.Helper()
	doc, err := results.Parse([]byte(body))
	require.NoError(t, err)
	return Build(doc)
}

func sectionTitles(v *View) []string {
	var out []string
	for _, s := range v.Sections {
		out = append(out, s.Title())
	}
	return out
}

func TestBuildSummaryCards(t *testing.T) {
	v := buildView(t, `{"results": {"statistics": {"summary": {"total_rows": 120, "total_columns": 5}}}}`)
	require.Len(t, v.Sections, 1)
	sum, ok := v.Sections[0].(SummarySection)
	require.True(t, ok)
	assert.Equal(t, []Card{{"Total Rows", "120"}, {"Total Columns", "5"}}, sum.Cards)

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, v, Options{}))
	assert.Contains(t, buf.String(), "Total Rows: 120")
	assert.Contains(t, buf.String(), "Total Columns: 5")
}

func TestBuildOmitsAbsentSections(t *testing.T) {
	v := buildView(t, `{"insights": "plain words", "charts": []}`)
	assert.Equal(t, []string{"AI Insights"}, sectionTitles(v))
	_, ok := v.Charts()
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, v, Options{}))
	assert.NotContains(t, buf.String(), "[CHARTS]")
}

func TestBuildNilAndEmpty(t *testing.T) {
	assert.True(t, Build(nil).Empty())
	v := buildView(t, `{"statistics": {}, "cleaning_report": {"operations": []}, "data_preview": {"columns": [], "rows": []}}`)
	assert.True(t, v.Empty())

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, v, Options{}))
	assert.Contains(t, buf.String(), "no results to display")
}

func TestBuildKeepsCountOnlyCleaningReport(t *testing.T) {
	doc, err := results.Parse([]byte(`{"cleaning_report": {"original_rows": 100, "cleaned_columns": 4}}`))
	require.NoError(t, err)
	require.NotNil(t, doc.Cleaning)

	v := Build(doc)
	assert.Equal(t, []string{"Cleaning Report"}, sectionTitles(v))

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, v, Options{}))
	assert.Contains(t, buf.String(), "Rows: 100 → -")
	assert.Contains(t, buf.String(), "Columns: - → 4")

	html, err := HTMLFragment(v, Options{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "Columns: - → 4")
}

func TestBuildFullDocumentOrder(t *testing.T) {
	v := buildView(t, fullResults)
	assert.Equal(t, "abc123", v.JobID)
	assert.Equal(t, []string{
		"Summary", "Cleaning Report", "Statistics", "Anomalies", "Trends",
		"Correlations", "AI Insights", "Data Preview", "Charts",
	}, sectionTitles(v))

	sum := v.Sections[0].(SummarySection)
	assert.Contains(t, sum.Cards, Card{"Rows Removed", "4"})
}

func TestInsightsHeadingThenProse(t *testing.T) {
	v := buildView(t, `{"insights": "## Summary\n\nThe data looks clean."}`)
	require.Len(t, v.Sections, 1)
	sec := v.Sections[0].(InsightsSection)
	require.Len(t, sec.Blocks, 2)
	assert.Equal(t, insights.KindHeading, sec.Blocks[0].Kind)
	assert.Equal(t, "Summary", sec.Blocks[0].Text)
	assert.Equal(t, insights.KindProse, sec.Blocks[1].Kind)

	frag, err := HTMLFragment(v, Options{})
	require.NoError(t, err)
	html := string(frag)
	h := strings.Index(html, `class="insight-heading"`)
	p := strings.Index(html, `class="prose"`)
	require.True(t, h >= 0 && p >= 0, html)
	assert.Less(t, h, p)
}

func TestChartsSkipInvalid(t *testing.T) {
	v := buildView(t, fullResults)
	sec, ok := v.Charts()
	require.True(t, ok)
	require.Len(t, sec.Charts, 1)
	assert.Equal(t, charts.KindBar, sec.Charts[0].Kind())
	require.Len(t, sec.Skipped, 1)
	assert.Equal(t, 1, sec.Skipped[0].Index)
	assert.Equal(t, "Odd", sec.Skipped[0].Title)

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, v, Options{}))
	assert.Contains(t, buf.String(), "## Charts")
	assert.Contains(t, buf.String(), `skipped chart #2 "Odd"`)
}

func TestMarkdownReport(t *testing.T) {
	v := buildView(t, fullResults)
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, v, Options{
		Images: ImageFunc(func(i int) (string, error) { return "charts/chart_1.png", nil }),
	}))
	out := buf.String()
	assert.Contains(t, out, "# Analysis Results")
	assert.Contains(t, out, "#### Summary")
	assert.Contains(t, out, "> **1. Watch churn** it doubled.")
	assert.Contains(t, out, "| city | price |")
	assert.Contains(t, out, "![Price by city](charts/chart_1.png)")
	assert.Contains(t, out, "price ~ qty: r=-0.810 strong")
}

func TestHTMLDropsRawHTML(t *testing.T) {
	v := buildView(t, `{"insights": "<script>alert(1)</script>\n\nhello <b>there</b>"}`)
	frag, err := HTMLFragment(v, Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(frag), "<script>")
	assert.NotContains(t, string(frag), "<b>")
	assert.Contains(t, string(frag), "hello")
}

func TestHTMLInlinesGalleryImages(t *testing.T) {
	v := buildView(t, fullResults)
	sec, _ := v.Charts()
	g := charts.NewGallery(charts.NewRenderer(320, 200), charts.FormatPNG, sec.Charts)
	defer g.Close()

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, v, Options{Images: GalleryImages(g)}))
	assert.Contains(t, buf.String(), `src="data:image/png;base64,`)
	assert.Contains(t, buf.String(), "could not be displayed")
}

func TestWorkbookSheets(t *testing.T) {
	v := buildView(t, fullResults)
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, v))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.ElementsMatch(t, []string{SheetSummary, SheetCleaning, SheetStatistics, SheetInsights, SheetPreview}, f.GetSheetList())

	val, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "abc123", val)

	col, err := f.GetCellValue(SheetPreview, "A1")
	require.NoError(t, err)
	assert.Equal(t, "city", col)
}
