package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/unstructiq-cli/internal/insights"
)

// Sheet names, in workbook order. Sheets without data are left out, except
// Summary which always exists.
const (
	SheetSummary    = "Summary"
	SheetStatistics = "Statistics"
	SheetCleaning   = "Cleaning"
	SheetInsights   = "Insights"
	SheetPreview    = "Preview"
)

// Workbook builds an XLSX report of v. The caller closes the file.
func Workbook(v *View) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	wb := &workbook{f: f}
	wb.summary(v)
	for _, s := range v.Sections {
		switch sec := s.(type) {
		case StatisticsSection:
			wb.statistics(sec)
		case CleaningSection:
			wb.cleaning(sec)
		case InsightsSection:
			wb.insights(sec)
		case PreviewSection:
			wb.preview(sec)
		}
	}
	if wb.err != nil {
		f.Close()
		return nil, fmt.Errorf("build workbook: %w", wb.err)
	}
	return f, nil
}

// WriteWorkbook writes the XLSX report of v to w.
func WriteWorkbook(w io.Writer, v *View) error {
	f, err := Workbook(v)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// workbook keeps the first error so sheet writers can stay linear.
type workbook struct {
	f   *excelize.File
	err error
}

func (wb *workbook) sheet(name string) bool {
	if wb.err != nil {
		return false
	}
	if _, err := wb.f.NewSheet(name); err != nil {
		wb.err = err
		return false
	}
	return true
}

func (wb *workbook) row(sheet string, r int, vals ...any) {
	for c, v := range vals {
		if wb.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(c+1, r)
		if err != nil {
			wb.err = err
			return
		}
		wb.err = wb.f.SetCellValue(sheet, cell, v)
	}
}

func (wb *workbook) summary(v *View) {
	r := 1
	wb.row(SheetSummary, r, "Field", "Value")
	if v.JobID != "" {
		r++
		wb.row(SheetSummary, r, "Job ID", v.JobID)
	}
	if v.Status != "" {
		r++
		wb.row(SheetSummary, r, "Status", v.Status)
	}
	for _, s := range v.Sections {
		switch sec := s.(type) {
		case SummarySection:
			for _, c := range sec.Cards {
				r++
				wb.row(SheetSummary, r, c.Label, c.Value)
			}
		case AnomaliesSection:
			if sec.Anomalies.DuplicateRows != nil {
				r++
				wb.row(SheetSummary, r, "Duplicate Rows", *sec.Anomalies.DuplicateRows)
			}
		case ChartsSection:
			r++
			wb.row(SheetSummary, r, "Charts", len(sec.Charts))
			if len(sec.Skipped) > 0 {
				r++
				wb.row(SheetSummary, r, "Charts Skipped", len(sec.Skipped))
			}
		}
	}
}

func (wb *workbook) statistics(sec StatisticsSection) {
	if !wb.sheet(SheetStatistics) {
		return
	}
	r := 1
	wb.row(SheetStatistics, r, "Column", "Mean", "Median", "Std", "Min", "Max")
	for _, n := range sec.Numeric {
		r++
		wb.row(SheetStatistics, r, n.Column, cellFloat(n.Mean), cellFloat(n.Median), cellFloat(n.Std), cellFloat(n.Min), cellFloat(n.Max))
	}
	if len(sec.Categorical) == 0 {
		return
	}
	r += 2
	wb.row(SheetStatistics, r, "Column", "Unique Values", "Value", "Count")
	for _, c := range sec.Categorical {
		unique := any("")
		if c.UniqueValues != nil {
			unique = *c.UniqueValues
		}
		if len(c.MostCommon) == 0 {
			r++
			wb.row(SheetStatistics, r, c.Column, unique)
			continue
		}
		for i, vc := range c.MostCommon {
			r++
			if i == 0 {
				wb.row(SheetStatistics, r, c.Column, unique, vc.Value, vc.Count)
			} else {
				wb.row(SheetStatistics, r, "", "", vc.Value, vc.Count)
			}
		}
	}
}

func (wb *workbook) cleaning(sec CleaningSection) {
	if !wb.sheet(SheetCleaning) {
		return
	}
	r := 1
	wb.row(SheetCleaning, r, "#", "Step", "Detail")
	for i, op := range sec.Report.Operations {
		r++
		wb.row(SheetCleaning, r, i+1, op.Step, op.Detail)
	}
	if sec.Report.RowsRemoved != nil {
		r += 2
		wb.row(SheetCleaning, r, "", "Rows removed", *sec.Report.RowsRemoved)
	}
}

func (wb *workbook) insights(sec InsightsSection) {
	if !wb.sheet(SheetInsights) {
		return
	}
	wb.row(SheetInsights, 1, "Kind", "Title", "Text")
	for i, b := range sec.Blocks {
		switch b.Kind {
		case insights.KindCallout:
			wb.row(SheetInsights, i+2, b.Kind.String(), fmt.Sprintf("%d. %s", b.Number, b.Text), b.Body)
		case insights.KindHeading:
			wb.row(SheetInsights, i+2, b.Kind.String(), b.Text, "")
		default:
			wb.row(SheetInsights, i+2, b.Kind.String(), "", b.Text)
		}
	}
}

func (wb *workbook) preview(sec PreviewSection) {
	if !wb.sheet(SheetPreview) {
		return
	}
	header := make([]any, len(sec.Columns))
	for i, c := range sec.Columns {
		header[i] = c
	}
	wb.row(SheetPreview, 1, header...)
	for i, row := range sec.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		wb.row(SheetPreview, i+2, vals...)
	}
}

func cellFloat(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}
