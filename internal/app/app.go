// Package app builds the collaborators shared by the command-line binaries from a loaded Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/annotate"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm/anthropic"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/ocr"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/output"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/repository"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/table"
)

// Exit codes shared by every binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case common.CodeOf(err) == common.CodeConfig:
		return ExitConfig
	default:
		return ExitFailure
	}
}

// NewCompleter builds the provider client wrapped in the rate limiter and, when a cache dir is
// configured, the completion cache. The returned func releases the cache.
func NewCompleter(ctx context.Context, cfg common.LLMConfig, log *slog.Logger) (llm.Completer, func(), error) {
	if log == nil {
		log = slog.Default()
	}
	var c llm.Completer
	switch cfg.Provider {
	case common.ProviderOpenAI, "":
		c = openai.NewClient(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, log)
	case common.ProviderAnthropic:
		c = anthropic.NewClient(anthropic.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, log)
	case common.ProviderGemini:
		g, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, log)
		if err != nil {
			return nil, func() {}, common.NewAppError(common.CodeConfig, "gemini client", err)
		}
		c = g
	default:
		return nil, func() {}, common.NewAppError(common.CodeConfig, "unknown provider "+cfg.Provider, common.ErrInvalidInput)
	}
	c = llm.NewLimitedCompleter(c, cfg.RatePerSec)

	if cfg.CacheDir == "" {
		return c, func() {}, nil
	}
	cached, err := llm.OpenCachedCompleter(c, cfg.CacheDir, 0, log)
	if err != nil {
		return nil, func() {}, common.NewAppError(common.CodeConfig, "open completion cache", err)
	}
	return cached, func() {
		if err := cached.Close(); err != nil {
			log.Warn("llm.cache.close_failed", "error", err)
		}
	}, nil
}

// NewAnalyzer fixes the client configuration for the whole run.
func NewAnalyzer(cfg common.LLMConfig, c llm.Completer, log *slog.Logger) *llm.Analyzer {
	return llm.NewAnalyzer(llm.ClientConfig{
		Model:       cfg.Model,
		Strategy:    cfg.Strategy,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, c, nil, log)
}

// NewLayout builds the span extractor with the OCR text fallback when enabled.
func NewLayout(cfg *common.Config, log *slog.Logger) *layout.PDFExtractor {
	var fallback layout.TextFallback
	if cfg.Layout.OCRFallback {
		fallback = ocr.NewExtractor(ocr.Config{
			TesseractLang: cfg.OCR.Language,
			DPI:           cfg.OCR.DPI,
			TessdataDir:   cfg.OCR.TessdataDir,
		}, nil, log)
	}
	return layout.NewPDFExtractor(layout.Config{
		Group: layout.GroupOptions{
			RowTolerance: cfg.Layout.RowTolerance,
			WordSpace:    cfg.Layout.WordSpace,
			ColumnGap:    cfg.Layout.ColumnGap,
		},
		OCRFallback: cfg.Layout.OCRFallback,
	}, fallback, log)
}

// NewWriter wires the result writer to an annotator reading spans from lx.
func NewWriter(lx layout.Extractor, log *slog.Logger) *output.Writer {
	return output.NewWriter(annotate.New(lx, annotate.DefaultStyle(), log), log)
}

// TableSource opens the local workbook or, failing that, the remote one.
func TableSource(ctx context.Context, cfg common.SchemaConfig, log *slog.Logger) (table.Source, error) {
	switch {
	case cfg.WorkbookPath != "":
		return table.NewWorkbookSource(cfg.WorkbookPath, cfg.Sheet, log), nil
	case cfg.Graph.Enabled():
		return table.NewGraphSource(ctx, table.GraphOptions{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			BaseURL:      cfg.Graph.BaseURL,
			DriveID:      cfg.Graph.DriveID,
			ItemID:       cfg.Graph.ItemID,
			Worksheet:    cfg.Graph.Worksheet,
		}, log), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, "no workbook configured (--workbook or schema.graph)", common.ErrInvalidInput)
	}
}

// LoadSchema returns the extraction template from a static file or a workbook grid.
func LoadSchema(ctx context.Context, cfg common.SchemaConfig, log *slog.Logger) (schema.Template, schema.Metadata, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TemplatePath != "" {
		t, err := schema.LoadFile(cfg.TemplatePath)
		if err != nil {
			return schema.Template{}, schema.Metadata{}, err
		}
		log.Info("schema.load.ok", "path", cfg.TemplatePath, "fields", len(t.Fields))
		return t, schema.Metadata{}, nil
	}
	src, err := TableSource(ctx, cfg, log)
	if err != nil {
		return schema.Template{}, schema.Metadata{}, err
	}
	return schema.NewBuilder(src, cfg.DocumentType, log).Build(ctx)
}

// OpenLedger opens the run ledger. An empty DSN disables it and returns a nil ledger.
func OpenLedger(ctx context.Context, cfg common.LedgerConfig, log *slog.Logger) (repository.RunLedger, func(), error) {
	if cfg.DSN == "" {
		return nil, func() {}, nil
	}
	db, err := repository.Open(ctx, repository.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxConns:        4,
		MaxConnLifetime: 30 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, log)
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			return nil, func() {}, common.NewAppError(common.CodeConfig, "ledger", err)
		}
		return nil, func() {}, fmt.Errorf("open ledger: %w", err)
	}
	return repository.NewRunLedger(db, log), func() { repository.Close(db, log) }, nil
}
