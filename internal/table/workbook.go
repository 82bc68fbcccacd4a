package table

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

// WorkbookSource is a sheet of a local .xlsx file.
type WorkbookSource struct {
	path  string
	sheet string
	log   *slog.Logger
}

func NewWorkbookSource(path, sheet string, log *slog.Logger) *WorkbookSource {
	if log == nil {
		log = slog.Default()
	}
	return &WorkbookSource{path: path, sheet: sheet, log: log}
}

func (w *WorkbookSource) Rows(ctx context.Context) ([][]string, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, common.NewAppError(common.CodeSource, "open workbook "+w.path, err)
	}
	defer w.close(f)

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return nil, common.NewAppError(common.CodeSource, fmt.Sprintf("read sheet %q", w.sheet), err)
	}
	w.log.Debug("table.workbook.read", "path", w.path, "sheet", w.sheet, "rows", len(rows))
	return rows, nil
}

// AppendRows writes rows after the last used row, never above DataRow.
func (w *WorkbookSource) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return common.NewAppError(common.CodeSource, "open workbook "+w.path, err)
	}
	defer w.close(f)

	existing, err := f.GetRows(w.sheet)
	if err != nil {
		return common.NewAppError(common.CodeSource, fmt.Sprintf("read sheet %q", w.sheet), err)
	}
	next := max(len(existing), DataRow) + 1 // 1-based
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, next+i)
		r := row
		if err := f.SetSheetRow(w.sheet, cell, &r); err != nil {
			return common.NewAppError(common.CodeSource, "write row "+cell, err)
		}
	}
	if err := f.Save(); err != nil {
		return common.NewAppError(common.CodeSource, "save workbook", err)
	}
	w.log.Info("table.workbook.appended", "path", w.path, "sheet", w.sheet, "first_row", next, "rows", len(rows))
	return nil
}

func (w *WorkbookSource) close(f *excelize.File) {
	if err := f.Close(); err != nil {
		w.log.Warn("table.workbook.close_error", "path", w.path, "error", err)
	}
}

// CreateWorkbook writes a new workbook whose sheet holds grid from A1. It refuses to overwrite.
func CreateWorkbook(path, sheet string, grid [][]any) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	for i, row := range grid {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
