package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

func TestIsFilenameField(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"File Name", true},
		{"FILENAME", true},
		{"source_file_name", true},
		{"Document Name", true},
		{"document_name_full", true},
		{"Invoice Number", false},
		{"Name", false},
		{"File", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFilenameField(tt.key))
			assert.Equal(t, IsFilenameField(tt.key), IsFilenameField(strings.ToUpper(tt.key)))
			assert.Equal(t, IsFilenameField(tt.key), IsFilenameField(strings.ToLower(tt.key)))
		})
	}
}

func TestFilenameFields(t *testing.T) {
	tpl := Template{
		DocumentType: "Invoice",
		Fields:       []FieldTemplate{{Key: "File Name"}, {Key: "Invoice Number"}},
	}
	got := FilenameFields(tpl, "/data/in/invoice_042.pdf")
	assert.Equal(t, map[string]string{"File Name": "invoice_042"}, got)
	assert.Equal(t, "report.v2", FilenameValue("report.v2.pdf"))
}

func TestPartitionDoesNotMutate(t *testing.T) {
	tpl := Template{
		DocumentType: "Invoice",
		Fields:       []FieldTemplate{{Key: "File Name"}, {Key: "Invoice Number"}, {Key: "Total"}},
	}
	content, filename := tpl.Partition()

	assert.Equal(t, []string{"Invoice Number", "Total"}, content.Keys())
	assert.Equal(t, "Invoice", content.DocumentType)
	require.Len(t, filename, 1)
	assert.Equal(t, "File Name", filename[0].Key)
	assert.Len(t, tpl.Fields, 3)
}

func TestPatterns(t *testing.T) {
	tpl := Template{Fields: []FieldTemplate{
		{Key: "Account"},
		{Key: "Line Item_1"},
		{Key: "Line Item_2"},
		{Key: "Line Item_n"},
		{Key: "Total"},
	}}
	assert.Equal(t, []Pattern{
		{Key: "Account"},
		{Key: "Line Item", Repeating: true},
		{Key: "Total"},
	}, tpl.Patterns())

	assert.True(t, tpl.Matches("Account"))
	assert.True(t, tpl.Matches("Line Item_7"))
	assert.False(t, tpl.Matches("Line Item"))
	assert.False(t, tpl.Matches("Other_1"))

	key, ok := tpl.Resolve("Line Item_3")
	assert.True(t, ok)
	assert.Equal(t, "Line Item_n", key)
	key, ok = tpl.Resolve("Total")
	assert.True(t, ok)
	assert.Equal(t, "Total", key)
	_, ok = tpl.Resolve("Line Item_x")
	assert.False(t, ok)

	noPlaceholder := Template{Fields: []FieldTemplate{{Key: "Page_1"}}}
	key, ok = noPlaceholder.Resolve("Page_4")
	assert.True(t, ok)
	assert.Equal(t, "Page_1", key)
}

func TestFromGrid(t *testing.T) {
	grid := [][]string{
		{"Alternative Column Names", "Acct No, Account #", "", "Amount Due"},
		{"Column Extraction Rules", "", "", "Use the grand total"},
		{"FILE NAME", "Account Number", "  ", "Total"},
		{"a.pdf", "123", "", "10"},
	}
	tpl, meta, err := FromGrid(grid, "")
	require.NoError(t, err)

	assert.Equal(t, "Financial Statement", tpl.DocumentType)
	assert.Equal(t, []string{"FILE NAME", "Account Number", "Total"}, tpl.Keys())
	assert.Equal(t, map[string]string{
		"Account Number": "Acct No, Account #",
		"Total":          "Amount Due",
	}, meta.AlternativeNames)
	assert.Equal(t, map[string]string{"Total": "Use the grand total"}, meta.ExtractionRules)
	assert.NotContains(t, meta.AlternativeNames, "FILE NAME")
}

func TestFromGridErrors(t *testing.T) {
	tests := []struct {
		name string
		grid [][]string
	}{
		{"too few rows", [][]string{{"a"}, {"b"}}},
		{"blank headers", [][]string{{"x"}, {"y"}, {"", " "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := FromGrid(tt.grid, "Invoice")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrSchema))
			assert.Equal(t, common.CodeSchema, common.CodeOf(err))
		})
	}
}

type gridStub struct {
	rows [][]string
	err  error
}

func (g gridStub) Rows(context.Context) ([][]string, error) { return g.rows, g.err }

func TestBuilder(t *testing.T) {
	b := NewBuilder(gridStub{rows: [][]string{{""}, {""}, {"Invoice Number"}}}, "Invoice", nil)
	tpl, meta, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice Number"}, tpl.Keys())
	assert.True(t, meta.Empty())

	ioErr := errors.New("connection reset")
	_, _, err = NewBuilder(gridStub{err: ioErr}, "Invoice", nil).Build(context.Background())
	assert.ErrorIs(t, err, ioErr)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "t.json")
	yamlPath := filepath.Join(dir, "t.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"document_type":"Invoice","fields":[{"key":"Invoice Number","value":""}]}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("document_type: Invoice\nfields:\n  - key: Invoice Number\n  - key: Total\n"), 0o644))

	tpl, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Invoice", tpl.DocumentType)
	assert.Equal(t, []string{"Invoice Number"}, tpl.Keys())

	tpl, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice Number", "Total"}, tpl.Keys())
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"document_type":`), 0o644))
	require.NoError(t, os.WriteFile(empty, []byte(`{"document_type":"x","fields":[]}`), 0o644))

	for _, p := range []string{bad, empty, filepath.Join(dir, "missing.json")} {
		_, err := LoadFile(p)
		require.Error(t, err, p)
		assert.ErrorIs(t, err, common.ErrSchema)
	}
}

func TestGenerate(t *testing.T) {
	tpl, err := Generate([]string{"FILE NAME", "Account", "APPROVED", "Unnamed: 4", "", "synced", "Total", "Account"}, "CAS")
	require.NoError(t, err)
	assert.Equal(t, "CAS", tpl.DocumentType)
	assert.Equal(t, []string{"Account", "Total"}, tpl.Keys())

	_, err = Generate([]string{"FILE NAME", "APPROVED"}, "CAS")
	assert.ErrorIs(t, err, common.ErrSchema)
}

func TestHeaderRowOf(t *testing.T) {
	plain := [][]string{{"FILE NAME", "Total"}, {"a.pdf", "10"}}
	h, err := HeaderRowOf(plain)
	require.NoError(t, err)
	assert.Equal(t, []string{"FILE NAME", "Total"}, h)

	labelled := [][]string{
		{"alternative column names", "Amt"},
		{"Column Extraction Rules", ""},
		{"FILE NAME", "Amount"},
	}
	h, err = HeaderRowOf(labelled)
	require.NoError(t, err)
	assert.Equal(t, []string{"FILE NAME", "Amount"}, h)

	_, err = HeaderRowOf(nil)
	assert.ErrorIs(t, err, common.ErrSchema)
}

func TestWriteFileReloads(t *testing.T) {
	tpl, err := Generate([]string{"FILE NAME", "Account", "Line Item_1", "Line Item_n"}, "CAS")
	require.NoError(t, err)

	for _, name := range []string{"nested/cas.json", "cas.yaml"} {
		p := filepath.Join(t.TempDir(), name)
		require.NoError(t, WriteFile(p, tpl))
		got, err := LoadFile(p)
		require.NoError(t, err, name)
		assert.Equal(t, tpl, got, name)
	}

	assert.ErrorIs(t, WriteFile(filepath.Join(t.TempDir(), "x.json"), Template{}), common.ErrSchema)
}

func TestPatternHints(t *testing.T) {
	meta := Metadata{
		AlternativeNames: map[string]string{"Holding_1": "Position", "Holding_n": "Security", "Total": "Grand Total"},
		ExtractionRules:  map[string]string{"Holding_n": "One per row"},
	}

	alt, rule := meta.PatternHints(Pattern{Key: "Holding", Repeating: true})
	assert.Equal(t, "Position", alt)
	assert.Equal(t, "One per row", rule)

	alt, rule = meta.PatternHints(Pattern{Key: "Total"})
	assert.Equal(t, "Grand Total", alt)
	assert.Empty(t, rule)

	alt, _ = meta.PatternHints(Pattern{Key: "Holding"})
	assert.Empty(t, alt)
}
