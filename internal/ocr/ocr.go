// Package ocr recovers plain text from PDFs that have no usable text layer, using poppler and
// tesseract binaries.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewExtractor builds an extractor; a nil runner executes real binaries.
func NewExtractor(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{log: logger}
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract tries the embedded text layer via pdftotext first and rasterizes + OCRs when it is empty.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	e.logger.Debug("ocr.extract.start", "path", path)

	text, pages, warns, err := e.pdfToText(ctx, path)
	if err == nil && strings.TrimSpace(strings.ReplaceAll(text, "\f", "")) != "" {
		return ExtractionResult{
			Text:     Normalize(text),
			Pages:    pages,
			Method:   "pdf-text",
			Duration: time.Since(start),
			Warnings: warns,
		}, nil
	}
	if err != nil {
		e.logger.Warn("ocr.pdftotext.failed", "path", path, "error", err)
	}

	text, pages, warns2, err := e.pdfToOCR(ctx, path)
	warns = append(warns, warns2...)
	if err != nil {
		e.logger.Error("ocr.extract.failed", "path", path, "error", err)
		return ExtractionResult{Method: "pdf-ocr", Warnings: warns, Duration: time.Since(start)}, fmt.Errorf("ocr %s: %w", path, err)
	}
	res := ExtractionResult{
		Text:     Normalize(text),
		Pages:    pages,
		Method:   "pdf-ocr",
		Duration: time.Since(start),
		Warnings: warns,
	}
	e.logger.Info("ocr.extract.ok", "path", path, "method", res.Method, "pages", pages, "text_len", len(res.Text), "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

// ExtractText satisfies layout.TextFallback.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	res, err := e.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
