package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/validation"
)

func TestWriteMetricsReport(t *testing.T) {
	m := validation.Evaluate(
		validation.Values{"jan": {"Vendor": "ACME", "Total": "10"}},
		validation.Values{"jan": {"Vendor": "ACME", "Total": "11"}},
		validation.DefaultErrorLimit,
	)
	path := filepath.Join(t.TempDir(), "reports", "metrics.xlsx")

	err := WriteMetricsReport(path, m, ReportInfo{
		Model:     "ft:gpt-4o-mini:acme",
		Strategy:  "fine_tuned",
		InputDir:  "validation/",
		Generated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "Fields", "Errors"}, f.GetSheetList())

	model, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "ft:gpt-4o-mini:acme", model)

	generated, err := f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05Z", generated)

	samples, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "1", samples)

	fields, err := f.GetRows("Fields")
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"Field", "Correct", "Total", "Accuracy"}, fields[0])
	assert.Equal(t, "Vendor", fields[1][0])
	assert.Equal(t, "Total", fields[2][0])

	errs, err := f.GetRows("Errors")
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"jan", "Total", "10", "11"}, errs[1])

	assert.NoFileExists(t, path+".part")
}
