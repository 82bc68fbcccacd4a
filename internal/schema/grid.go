package schema

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

// Row indexes of the workbook schema convention; data records start at DataStartRow.
const (
	AlternativeNamesRow = 0
	ExtractionRulesRow  = 1
	HeaderRow           = 2
	DataStartRow        = 3
)

// FromGrid interprets a workbook grid: row 0 alternative names, row 1 extraction rules, row 2 field
// keys. Every non-empty header becomes a field. Label cells in rows 0/1 never become metadata.
func FromGrid(grid [][]string, documentType string) (Template, Metadata, error) {
	if len(grid) < DataStartRow {
		return Template{}, Metadata{}, SchemaError("workbook needs at least 3 rows for the schema, got "+itoa(len(grid)), nil)
	}
	if strings.TrimSpace(documentType) == "" {
		documentType = constants.DefaultDocumentType
	}

	altRow := grid[AlternativeNamesRow]
	rulesRow := grid[ExtractionRulesRow]
	headers := grid[HeaderRow]
	altLabel := labelColumn(altRow, constants.AlternativeNamesLabel)
	rulesLabel := labelColumn(rulesRow, constants.ExtractionRulesLabel)

	t := Template{DocumentType: documentType}
	meta := Metadata{
		AlternativeNames: make(map[string]string),
		ExtractionRules:  make(map[string]string),
	}
	for i, h := range headers {
		key := strings.TrimSpace(h)
		if key == "" {
			continue
		}
		t.Fields = append(t.Fields, FieldTemplate{Key: key})
		if v := cell(altRow, i); v != "" && i != altLabel {
			meta.AlternativeNames[key] = v
		}
		if v := cell(rulesRow, i); v != "" && i != rulesLabel {
			meta.ExtractionRules[key] = v
		}
	}
	if len(t.Fields) == 0 {
		return Template{}, Metadata{}, SchemaError("workbook header row has no field names", nil)
	}
	return t, meta, nil
}

// GridReader yields a rectangular (possibly ragged) grid of cell values.
type GridReader interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Builder produces a template from a live tabular source.
type Builder struct {
	src          GridReader
	documentType string
	log          *slog.Logger
}

func NewBuilder(src GridReader, documentType string, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{src: src, documentType: documentType, log: log}
}

// Build reads the source grid and interprets its first three rows. Source I/O errors propagate.
func (b *Builder) Build(ctx context.Context) (Template, Metadata, error) {
	grid, err := b.src.Rows(ctx)
	if err != nil {
		b.log.Error("schema.build.source_error", "error", err)
		return Template{}, Metadata{}, err
	}
	t, meta, err := FromGrid(grid, b.documentType)
	if err != nil {
		b.log.Error("schema.build.invalid", "rows", len(grid), "error", err)
		return Template{}, Metadata{}, err
	}
	b.log.Info("schema.build.ok",
		"document_type", t.DocumentType,
		"fields", len(t.Fields),
		"alternative_names", len(meta.AlternativeNames),
		"extraction_rules", len(meta.ExtractionRules),
	)
	return t, meta, nil
}

func labelColumn(row []string, label string) int {
	for i, c := range row {
		if strings.EqualFold(strings.TrimSpace(c), label) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func itoa(i int) string { return strconv.Itoa(i) }
