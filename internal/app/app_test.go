package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/table"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitConfig, ExitCode(common.NewAppError(common.CodeConfig, "bad flag", nil)))
	assert.Equal(t, ExitFailure, ExitCode(common.NewAppError(common.CodeLLM, "timeout", nil)))
}

func TestNewCompleter(t *testing.T) {
	_, release, err := NewCompleter(context.Background(), common.LLMConfig{Provider: "cohere"}, quietLogger())
	require.Error(t, err)
	release()
	assert.Equal(t, ExitConfig, ExitCode(err))

	c, release, err := NewCompleter(context.Background(), common.LLMConfig{Provider: common.ProviderAnthropic, APIKey: "k", RatePerSec: 1}, quietLogger())
	require.NoError(t, err)
	release()
	_, limited := c.(*llm.LimitedCompleter)
	assert.True(t, limited)

	c, release, err = NewCompleter(context.Background(), common.LLMConfig{Provider: common.ProviderOpenAI, APIKey: "k", CacheDir: t.TempDir()}, quietLogger())
	require.NoError(t, err)
	defer release()
	_, cached := c.(*llm.CachedCompleter)
	assert.True(t, cached)

	c, release, err = NewCompleter(context.Background(), common.LLMConfig{Provider: common.ProviderGemini, APIKey: "k"}, quietLogger())
	require.NoError(t, err)
	release()
	assert.NotNil(t, c)
}

func TestLoadSchemaFromTemplateFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "invoice.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"document_type":"Invoice","fields":[{"key":"Total","value":""}]}`), 0o644))

	tpl, meta, err := LoadSchema(context.Background(), common.SchemaConfig{TemplatePath: p}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "Invoice", tpl.DocumentType)
	assert.Equal(t, []string{"Total"}, tpl.Keys())
	assert.True(t, meta.Empty())
}

func TestLoadSchemaFromWorkbook(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fields.xlsx")
	require.NoError(t, table.CreateWorkbook(p, "Fields", [][]any{
		{"Alternative Column Names", "Acct #", ""},
		{"Column Extraction Rules", "", "Grand total"},
		{"FILE NAME", "Account Number", "Total"},
	}))

	tpl, meta, err := LoadSchema(context.Background(), common.SchemaConfig{
		WorkbookPath: p, Sheet: "Fields", DocumentType: "Statement",
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "Statement", tpl.DocumentType)
	assert.Equal(t, []string{"FILE NAME", "Account Number", "Total"}, tpl.Keys())
	assert.Equal(t, "Acct #", meta.AlternativeName("Account Number"))
	assert.Equal(t, "Grand total", meta.Rule("Total"))
}

func TestTableSourceRequiresWorkbook(t *testing.T) {
	_, err := TableSource(context.Background(), common.SchemaConfig{}, quietLogger())
	assert.Equal(t, ExitConfig, ExitCode(err))
}

func TestOpenLedger(t *testing.T) {
	ctx := context.Background()

	ledger, release, err := OpenLedger(ctx, common.LedgerConfig{Driver: common.DriverSQLite}, quietLogger())
	require.NoError(t, err)
	release()
	assert.Nil(t, ledger)

	_, release, err = OpenLedger(ctx, common.LedgerConfig{Driver: "mysql", DSN: "x"}, quietLogger())
	release()
	assert.Equal(t, ExitConfig, ExitCode(err))

	ledger, release, err = OpenLedger(ctx, common.LedgerConfig{
		Driver: common.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "runs.db"),
	}, quietLogger())
	require.NoError(t, err)
	defer release()
	run, err := ledger.Start(ctx, "a.pdf", "gpt-4o-mini", "base")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}
