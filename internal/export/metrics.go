package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/validation"
)

// ReportInfo describes the run that produced the metrics.
type ReportInfo struct {
	Model     string
	Strategy  string
	InputDir  string
	Generated time.Time
}

const (
	summarySheet = "Summary"
	fieldsSheet  = "Fields"
	errorsSheet  = "Errors"
)

// MetricsXLSX renders metrics as a three-sheet workbook and returns its bytes.
func MetricsXLSX(m validation.Metrics, info ReportInfo) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, s := range []string{fieldsSheet, errorsSheet} {
		if _, err := f.NewSheet(s); err != nil {
			return nil, err
		}
	}
	idx, _ := f.GetSheetIndex(summarySheet)
	f.SetActiveSheet(idx)

	generated := info.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	summary := [][]any{
		{"Model", info.Model},
		{"Strategy", info.Strategy},
		{"Input", info.InputDir},
		{"Generated", generated.UTC().Format(time.RFC3339)},
		{"Total Samples", m.TotalSamples},
		{"Total Fields", m.TotalFields},
		{"Correct Fields", m.CorrectFields},
		{"Incorrect Fields", m.IncorrectFields},
		{"Overall Accuracy", m.Accuracy},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	fields := [][]any{{"Field", "Correct", "Total", "Accuracy"}}
	for _, fa := range m.Fields {
		fields = append(fields, []any{fa.Field, fa.Correct, fa.Total, fa.Accuracy})
	}
	if err := writeRows(f, fieldsSheet, fields); err != nil {
		return nil, err
	}

	errs := [][]any{{"Document", "Field", "Expected", "Got"}}
	for _, e := range m.Errors {
		errs = append(errs, []any{e.Document, e.Field, e.Expected, e.Actual})
	}
	if err := writeRows(f, errorsSheet, errs); err != nil {
		return nil, err
	}

	// percentages for accuracy cells
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(summarySheet, "B9", "B9", pct)
	if len(fields) > 1 {
		_ = f.SetCellStyle(fieldsSheet, "D2", fmt.Sprintf("D%d", len(fields)), pct)
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)
	_ = f.SetColWidth(fieldsSheet, "A", "A", 32)
	_ = f.SetColWidth(errorsSheet, "A", "B", 28)
	_ = f.SetColWidth(errorsSheet, "C", "D", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetricsReport stores the workbook at path, replacing any previous report.
func WriteMetricsReport(path string, m validation.Metrics, info ReportInfo, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	b, err := MetricsXLSX(m, info)
	if err != nil {
		return common.NewAppError(common.CodeWrite, "render metrics report", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.NewAppError(common.CodeWrite, "create report dir", err)
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return common.NewAppError(common.CodeWrite, "write metrics report", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return common.NewAppError(common.CodeWrite, "write metrics report", err)
	}
	logger.Info("export.metrics.ok",
		"path", path,
		"bytes", len(b),
		"fields", len(m.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
