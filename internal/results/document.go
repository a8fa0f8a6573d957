// Package results decodes the processing results document. Every section is
// optional: missing keys, empty collections and wrong-typed fields are treated
// as absent rather than as errors.
package results

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the body is not JSON at all.
var ErrInvalidJSON = errors.New("results body is not valid JSON")

type Document struct {
	JobID       string
	Status      string
	ProcessedAt string

	Statistics   *Statistics
	Cleaning     *CleaningReport
	Preview      *DataPreview
	Advanced     *Advanced
	Insights     string
	Charts       []json.RawMessage
	OriginalInfo *DataInfo
	CleanedInfo  *DataInfo

	Raw json.RawMessage
}

type Statistics struct {
	Summary     *Summary
	Numeric     []NumericStat
	Categorical []CategoricalStat
}

// Summary counts are pointers so a missing count is distinguishable from zero.
type Summary struct {
	TotalRows          *int64
	TotalColumns       *int64
	NumericColumns     *int64
	CategoricalColumns *int64
}

type NumericStat struct {
	Column string
	Mean   *float64
	Median *float64
	Std    *float64
	Min    *float64
	Max    *float64
}

type CategoricalStat struct {
	Column       string
	UniqueValues *int64
	MostCommon   []ValueCount
}

type ValueCount struct {
	Value string
	Count int64
}

type CleaningReport struct {
	OriginalRows    *int64
	OriginalColumns *int64
	CleanedRows     *int64
	CleanedColumns  *int64
	RowsRemoved     *int64
	Operations      []Operation
}

// Empty reports whether the report carries neither counts nor steps.
func (r *CleaningReport) Empty() bool {
	return r == nil || (len(r.Operations) == 0 &&
		r.OriginalRows == nil && r.OriginalColumns == nil &&
		r.CleanedRows == nil && r.CleanedColumns == nil && r.RowsRemoved == nil)
}

// Operation is one cleaning step. Detail is synthesized from the step's other
// keys when the server did not send one.
type Operation struct {
	Step   string
	Detail string
}

type DataPreview struct {
	Columns []string
	Rows    [][]string
}

type DataInfo struct {
	Rows        *int64
	Columns     *int64
	ColumnNames []string
	MemoryUsage string
}

type Advanced struct {
	Anomalies    *Anomalies
	Trends       []Trend
	Outliers     []Outlier
	Correlations *Correlations
}

type Anomalies struct {
	DuplicateRows       *int64
	SingleValueColumns  []string
	HighNullRateColumns []NullRate
}

type NullRate struct {
	Column     string
	Percentage float64
}

type Trend struct {
	Column         string
	Direction      string
	ChangePercent  *float64
	FirstHalfMean  *float64
	SecondHalfMean *float64
}

type Outlier struct {
	Column     string
	Count      *int64
	Percentage *float64
	LowerBound *float64
	UpperBound *float64
}

type Correlations struct {
	Columns []string
	Matrix  [][]float64
	Pairs   []CorrelationPair
}

type CorrelationPair struct {
	A, B        string
	Coefficient float64
	Strength    string
}

// Parse decodes a results body. It only fails when the body is not JSON.
func Parse(body []byte) (*Document, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(body)
	// a {message, results} envelope is unwrapped
	if r := root.Get("results"); r.IsObject() {
		root = r
	}
	doc := &Document{Raw: json.RawMessage(root.Raw)}
	if !root.IsObject() {
		return doc, nil
	}
	doc.JobID = str(root.Get("job_id"))
	doc.Status = str(root.Get("status"))
	doc.ProcessedAt = str(root.Get("processed_at"))
	doc.Statistics = parseStatistics(root.Get("statistics"))
	doc.Cleaning = parseCleaning(root.Get("cleaning_report"))
	doc.Preview = parsePreview(root.Get("data_preview"))
	doc.Advanced = parseAdvanced(root.Get("advanced_analytics"))
	doc.Insights = str(root.Get("insights"))
	doc.OriginalInfo = parseDataInfo(root.Get("original_data_info"))
	doc.CleanedInfo = parseDataInfo(root.Get("cleaned_data_info"))
	if ch := root.Get("charts"); ch.IsArray() {
		ch.ForEach(func(_, v gjson.Result) bool {
			doc.Charts = append(doc.Charts, json.RawMessage(v.Raw))
			return true
		})
	}
	return doc, nil
}

// Empty reports whether the document carries nothing displayable.
func (d *Document) Empty() bool {
	return d.Statistics == nil && d.Cleaning == nil && d.Preview == nil &&
		d.Advanced == nil && d.Insights == "" && len(d.Charts) == 0 &&
		d.OriginalInfo == nil && d.CleanedInfo == nil
}

func parseStatistics(v gjson.Result) *Statistics {
	if !v.IsObject() {
		return nil
	}
	s := &Statistics{}
	if sum := v.Get("summary"); sum.IsObject() {
		out := &Summary{
			TotalRows:          intPtr(sum.Get("total_rows")),
			TotalColumns:       intPtr(sum.Get("total_columns")),
			NumericColumns:     intPtr(sum.Get("numeric_columns")),
			CategoricalColumns: intPtr(sum.Get("categorical_columns")),
		}
		if out.TotalRows != nil || out.TotalColumns != nil || out.NumericColumns != nil || out.CategoricalColumns != nil {
			s.Summary = out
		}
	}
	eachObject(v.Get("numeric_stats"), func(col string, m gjson.Result) {
		s.Numeric = append(s.Numeric, NumericStat{
			Column: col,
			Mean:   floatPtr(m.Get("mean")),
			Median: floatPtr(m.Get("median")),
			Std:    floatPtr(m.Get("std")),
			Min:    floatPtr(m.Get("min")),
			Max:    floatPtr(m.Get("max")),
		})
	})
	eachObject(v.Get("categorical_stats"), func(col string, m gjson.Result) {
		cs := CategoricalStat{Column: col, UniqueValues: intPtr(m.Get("unique_values"))}
		if mc := m.Get("most_common"); mc.IsObject() {
			mc.ForEach(func(k, n gjson.Result) bool {
				if n.Type == gjson.Number {
					cs.MostCommon = append(cs.MostCommon, ValueCount{Value: k.String(), Count: n.Int()})
				}
				return true
			})
			sort.SliceStable(cs.MostCommon, func(i, j int) bool { return cs.MostCommon[i].Count > cs.MostCommon[j].Count })
		}
		s.Categorical = append(s.Categorical, cs)
	})
	if s.Summary == nil && len(s.Numeric) == 0 && len(s.Categorical) == 0 {
		return nil
	}
	return s
}

func parseCleaning(v gjson.Result) *CleaningReport {
	if !v.IsObject() {
		return nil
	}
	r := &CleaningReport{
		OriginalRows:    intPtr(v.Get("original_rows")),
		OriginalColumns: intPtr(v.Get("original_columns")),
		CleanedRows:     intPtr(v.Get("cleaned_rows")),
		CleanedColumns:  intPtr(v.Get("cleaned_columns")),
		RowsRemoved:     intPtr(v.Get("rows_removed")),
	}
	if ops := v.Get("operations"); ops.IsArray() {
		ops.ForEach(func(_, op gjson.Result) bool {
			switch {
			case op.IsObject():
				step := str(op.Get("step"))
				if step == "" {
					step = "step"
				}
				r.Operations = append(r.Operations, Operation{Step: step, Detail: operationDetail(op)})
			case op.Type == gjson.String:
				r.Operations = append(r.Operations, Operation{Step: op.String()})
			}
			return true
		})
	}
	if r.Empty() {
		return nil
	}
	return r
}

func parsePreview(v gjson.Result) *DataPreview {
	if !v.IsObject() {
		return nil
	}
	p := &DataPreview{}
	if cols := v.Get("columns"); cols.IsArray() {
		for _, c := range cols.Array() {
			p.Columns = append(p.Columns, c.String())
		}
	}
	rows := v.Get("rows")
	if !rows.IsArray() {
		return nilIfEmptyPreview(p)
	}
	for _, row := range rows.Array() {
		if row.IsArray() {
			var cells []string
			for _, cell := range row.Array() {
				cells = append(cells, cellString(cell))
			}
			p.Rows = append(p.Rows, cells)
			continue
		}
		if !row.IsObject() {
			continue
		}
		if len(p.Columns) == 0 {
			row.ForEach(func(k, _ gjson.Result) bool {
				p.Columns = append(p.Columns, k.String())
				return true
			})
		}
		cells := make([]string, len(p.Columns))
		for i, c := range p.Columns {
			cells[i] = cellString(row.Get(gjson.Escape(c)))
		}
		p.Rows = append(p.Rows, cells)
	}
	return nilIfEmptyPreview(p)
}

func cellString(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

func nilIfEmptyPreview(p *DataPreview) *DataPreview {
	if len(p.Rows) == 0 {
		return nil
	}
	return p
}

func parseDataInfo(v gjson.Result) *DataInfo {
	if !v.IsObject() {
		return nil
	}
	d := &DataInfo{
		Rows:        intPtr(v.Get("rows")),
		Columns:     intPtr(v.Get("columns")),
		MemoryUsage: str(v.Get("memory_usage")),
	}
	if m := v.Get("memory_usage"); m.Type == gjson.Number {
		d.MemoryUsage = m.Raw
	}
	if names := v.Get("column_names"); names.IsArray() {
		for _, n := range names.Array() {
			d.ColumnNames = append(d.ColumnNames, n.String())
		}
	}
	if d.Rows == nil && d.Columns == nil && len(d.ColumnNames) == 0 {
		return nil
	}
	return d
}

func parseAdvanced(v gjson.Result) *Advanced {
	if !v.IsObject() {
		return nil
	}
	a := &Advanced{
		Anomalies:    parseAnomalies(v.Get("anomalies")),
		Correlations: parseCorrelations(v.Get("correlation_matrix")),
	}
	eachObject(v.Get("trends"), func(col string, t gjson.Result) {
		a.Trends = append(a.Trends, Trend{
			Column:         col,
			Direction:      str(t.Get("direction")),
			ChangePercent:  floatPtr(t.Get("change_percent")),
			FirstHalfMean:  floatPtr(t.Get("first_half_mean")),
			SecondHalfMean: floatPtr(t.Get("second_half_mean")),
		})
	})
	eachObject(v.Get("outliers"), func(col string, o gjson.Result) {
		a.Outliers = append(a.Outliers, Outlier{
			Column:     col,
			Count:      intPtr(o.Get("count")),
			Percentage: floatPtr(o.Get("percentage")),
			LowerBound: floatPtr(o.Get("lower_bound")),
			UpperBound: floatPtr(o.Get("upper_bound")),
		})
	})
	if a.Anomalies == nil && a.Correlations == nil && len(a.Trends) == 0 && len(a.Outliers) == 0 {
		return nil
	}
	return a
}

func parseAnomalies(v gjson.Result) *Anomalies {
	if !v.IsObject() {
		return nil
	}
	an := &Anomalies{DuplicateRows: intPtr(v.Get("duplicate_rows"))}
	if cols := v.Get("columns_with_single_value"); cols.IsArray() {
		for _, c := range cols.Array() {
			an.SingleValueColumns = append(an.SingleValueColumns, c.String())
		}
	}
	if hn := v.Get("columns_with_high_null_rate"); hn.IsArray() {
		for _, c := range hn.Array() {
			if !c.IsObject() {
				continue
			}
			an.HighNullRateColumns = append(an.HighNullRateColumns, NullRate{
				Column:     str(c.Get("column")),
				Percentage: c.Get("null_percentage").Float(),
			})
		}
	}
	if an.DuplicateRows == nil && len(an.SingleValueColumns) == 0 && len(an.HighNullRateColumns) == 0 {
		return nil
	}
	return an
}

func parseCorrelations(v gjson.Result) *Correlations {
	if !v.IsObject() {
		return nil
	}
	c := &Correlations{}
	if cols := v.Get("columns"); cols.IsArray() {
		for _, col := range cols.Array() {
			c.Columns = append(c.Columns, col.String())
		}
	}
	if m := v.Get("matrix"); m.IsArray() {
		for _, row := range m.Array() {
			if !row.IsArray() {
				continue
			}
			var vals []float64
			for _, x := range row.Array() {
				vals = append(vals, x.Float())
			}
			c.Matrix = append(c.Matrix, vals)
		}
	}
	if pairs := v.Get("pairs"); pairs.IsArray() {
		for _, p := range pairs.Array() {
			coef := p.Get("correlation")
			if !p.IsObject() || coef.Type != gjson.Number {
				continue
			}
			c.Pairs = append(c.Pairs, CorrelationPair{
				A:           str(p.Get("col1")),
				B:           str(p.Get("col2")),
				Coefficient: coef.Float(),
				Strength:    str(p.Get("strength")),
			})
		}
	}
	if len(c.Pairs) == 0 && len(c.Matrix) == 0 {
		return nil
	}
	return c
}

// eachObject visits the object-valued members of v in document order.
func eachObject(v gjson.Result, fn func(key string, val gjson.Result)) {
	if !v.IsObject() {
		return
	}
	v.ForEach(func(k, val gjson.Result) bool {
		if val.IsObject() {
			fn(k.String(), val)
		}
		return true
	})
}

func str(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

func intPtr(v gjson.Result) *int64 {
	if v.Type != gjson.Number {
		return nil
	}
	n := v.Int()
	return &n
}

func floatPtr(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}
