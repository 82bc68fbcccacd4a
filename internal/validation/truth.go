package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/output"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/table"
)

// TruthFromRows reads ground truth from the data rows of a schema sheet, keyed by the FILE NAME
// column with any .pdf extension dropped. Blank cells carry no expectation and are left out.
func TruthFromRows(rows [][]string) (Values, error) {
	if len(rows) <= table.HeaderRow {
		return nil, common.NewAppError(common.CodeSource,
			fmt.Sprintf("sheet has %d rows, the schema header needs 3", len(rows)), common.ErrSchema)
	}
	headers := rows[table.HeaderRow]
	nameCol := -1
	for i, h := range headers {
		if strings.TrimSpace(h) == constants.FileNameColumn {
			nameCol = i
			break
		}
	}
	if nameCol < 0 {
		return nil, common.NewAppError(common.CodeSource,
			fmt.Sprintf("%q column not found in headers", constants.FileNameColumn), common.ErrSchema)
	}

	out := Values{}
	for _, r := range rows[table.DataRow:] {
		if nameCol >= len(r) {
			continue
		}
		doc := strings.TrimSpace(r[nameCol])
		if strings.EqualFold(filepath.Ext(doc), ".pdf") {
			doc = strings.TrimSpace(doc[:len(doc)-len(".pdf")])
		}
		if doc == "" {
			continue
		}
		fields := map[string]string{}
		for i, h := range headers {
			key := strings.TrimSpace(h)
			if i == nameCol || i >= len(r) || constants.IsExcludedHeader(key) {
				continue
			}
			if v := strings.TrimSpace(r[i]); v != "" {
				fields[key] = v
			}
		}
		out[doc] = fields
	}
	return out, nil
}

// ValuesFromResults loads result JSON files keyed by file stem. It serves both predictions and
// ground truth kept in result form. The first value of a repeated key wins.
func ValuesFromResults(paths []string) (Values, error) {
	out := Values{}
	for _, p := range paths {
		res, err := output.ReadJSON(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		base := filepath.Base(p)
		doc := strings.TrimSuffix(base, filepath.Ext(base))
		fields := map[string]string{}
		for _, f := range res.Fields {
			if _, dup := fields[f.Key]; !dup {
				fields[f.Key] = f.Value
			}
		}
		out[doc] = fields
	}
	return out, nil
}
