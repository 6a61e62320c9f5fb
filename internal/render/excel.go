package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
)

const (
	samplesSheet    = "Samples"
	parametersSheet = "Parameters"
)

// WriteXLSX writes an Excel workbook with the sampled curve, the evaluation
// parameters, and a native line chart of discharge against head.
func WriteXLSX(w io.Writer, eval domain.Evaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", samplesSheet); err != nil {
		return fmt.Errorf("name samples sheet: %w", err)
	}
	if err := f.SetSheetRow(samplesSheet, "A1", &[]any{"Head H (m)", "Discharge Q (m³/s)"}); err != nil {
		return fmt.Errorf("write samples header: %w", err)
	}
	for i, s := range eval.Curve {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(samplesSheet, cell, &[]any{s.Head, s.Discharge}); err != nil {
			return fmt.Errorf("write sample row %d: %w", i, err)
		}
	}

	if _, err := f.NewSheet(parametersSheet); err != nil {
		return fmt.Errorf("create parameters sheet: %w", err)
	}
	paramRows := [][]any{
		{"Evaluation ID", eval.ID},
		{"Discharge coefficient Cd", eval.Params.Cd},
		{"Crest width b (m)", eval.Params.CrestWidth},
		{"Maximum head H_max (m)", eval.Params.MaxHead},
		{"Samples", eval.Sampling.Count},
		{"Minimum head (m)", eval.Sampling.MinHead},
		{"Peak discharge (m³/s)", eval.Peak.Discharge},
		{"Evaluated at", eval.EvaluatedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for i, row := range paramRows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(parametersSheet, cell, &row); err != nil {
			return fmt.Errorf("write parameter row %d: %w", i, err)
		}
	}

	lastRow := len(eval.Curve) + 1
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", samplesSheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", samplesSheet, lastRow),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", samplesSheet, lastRow),
		}},
		Title: []excelize.RichTextRun{{Text: eval.Title()}},
		XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Head H (m)"}}},
		YAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Discharge Q (m³/s)"}}},
	}
	if err := f.AddChart(samplesSheet, "D2", chart); err != nil {
		return fmt.Errorf("add rating chart: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
