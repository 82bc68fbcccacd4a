// Package tablesync appends extraction results to the data rows of a schema workbook.
package tablesync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/output"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/table"
)

// Stats counts one sync. Total = Appended + Skipped + Failed.
type Stats struct {
	Total    int
	Appended int
	Skipped  int
	Failed   int
}

type Syncer struct {
	src table.Source
	log *slog.Logger
}

func New(src table.Source, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{src: src, log: log}
}

// existing indexes FILE NAME values already in the sheet, exact and normalized.
type existing struct {
	exact      map[string]bool
	normalized map[string]string
}

func (e existing) match(name string) (string, bool) {
	if e.exact[name] {
		return name, true
	}
	if orig, ok := e.normalized[NormalizeName(name)]; ok {
		return orig, true
	}
	return "", false
}

func (e existing) add(name string) {
	e.exact[name] = true
	e.normalized[NormalizeName(name)] = name
}

// Sync appends one row per result whose document is not in the sheet yet. Unreadable results are
// counted and skipped; sheet errors abort the sync.
func (s *Syncer) Sync(ctx context.Context, resultPaths []string) (Stats, error) {
	start := time.Now()
	var stats Stats

	rows, err := s.src.Rows(ctx)
	if err != nil {
		return stats, err
	}
	if len(rows) <= table.HeaderRow {
		return stats, common.NewAppError(common.CodeSource,
			fmt.Sprintf("sheet has %d rows, the schema header needs 3", len(rows)), common.ErrSchema)
	}
	headers := make([]string, len(rows[table.HeaderRow]))
	for i, h := range rows[table.HeaderRow] {
		headers[i] = strings.TrimSpace(h)
	}
	nameCol := indexOf(headers, constants.FileNameColumn)
	if nameCol < 0 {
		return stats, common.NewAppError(common.CodeSource,
			fmt.Sprintf("%q column not found in headers", constants.FileNameColumn), common.ErrSchema)
	}

	seen := existing{exact: map[string]bool{}, normalized: map[string]string{}}
	for _, r := range rows[table.DataRow:] {
		if nameCol < len(r) {
			if name := strings.TrimSpace(r[nameCol]); name != "" {
				seen.add(name)
			}
		}
	}
	s.log.Info("sync.sheet.read", "rows", len(rows), "existing", len(seen.exact))

	var pending [][]any
	for _, p := range resultPaths {
		stats.Total++
		name := DocumentName(p)
		if orig, dup := seen.match(name); dup {
			s.log.Info("sync.document.skipped", "document", name, "existing", orig)
			stats.Skipped++
			continue
		}

		res, err := output.ReadJSON(p)
		if err != nil {
			s.log.Warn("sync.document.read_failed", "path", p, "error", err)
			stats.Failed++
			continue
		}
		pending = append(pending, s.row(headers, nameCol, name, res))
		seen.add(name)
	}

	if len(pending) > 0 {
		if err := s.src.AppendRows(ctx, pending); err != nil {
			stats.Failed += len(pending)
			return stats, err
		}
	}
	stats.Appended = len(pending)

	s.log.Info("sync.done",
		"total", stats.Total,
		"appended", stats.Appended,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// row lays fields out under their exact header; unknown keys are logged and dropped.
func (s *Syncer) row(headers []string, nameCol int, name string, res output.Result) []any {
	row := make([]any, len(headers))
	for i := range row {
		row[i] = ""
	}
	row[nameCol] = name
	for _, f := range res.Fields {
		if f.Key == "" {
			continue
		}
		i := indexOf(headers, f.Key)
		if i < 0 {
			s.log.Debug("sync.field.no_column", "document", name, "key", f.Key)
			continue
		}
		if i == nameCol {
			continue
		}
		row[i] = FormatValue(f.Value)
	}
	return row
}

func indexOf(headers []string, key string) int {
	for i, h := range headers {
		if h == key {
			return i
		}
	}
	return -1
}

// FindResults lists every result JSON under root in lexical order.
func FindResults(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), constants.ResultSuffix) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, root)
		}
		return nil, err
	}
	return out, nil
}
