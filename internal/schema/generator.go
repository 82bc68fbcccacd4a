package schema

import (
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

// Generate builds a template from workbook headers, dropping bookkeeping columns
// (FILE NAME, APPROVED, synced, Unnamed:*) and blanks. Duplicate headers keep their first position.
func Generate(headers []string, documentType string) (Template, error) {
	if strings.TrimSpace(documentType) == "" {
		documentType = constants.DefaultDocumentType
	}
	t := Template{DocumentType: documentType}
	seen := make(map[string]bool)
	for _, h := range headers {
		key := strings.TrimSpace(h)
		if constants.IsExcludedHeader(key) || seen[key] {
			continue
		}
		seen[key] = true
		t.Fields = append(t.Fields, FieldTemplate{Key: key})
	}
	if len(t.Fields) == 0 {
		return Template{}, SchemaError("no usable headers to generate a template from", nil)
	}
	return t, nil
}

// HeaderRowOf picks the header row of a sheet: the third row when the sheet follows the
// metadata-row convention, the first row otherwise.
func HeaderRowOf(grid [][]string) ([]string, error) {
	if len(grid) == 0 {
		return nil, SchemaError("sheet is empty", nil)
	}
	if len(grid) > HeaderRow && labelColumn(grid[AlternativeNamesRow], constants.AlternativeNamesLabel) >= 0 {
		return grid[HeaderRow], nil
	}
	return grid[0], nil
}
