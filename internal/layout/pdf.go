package layout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

// Letter is used when a page carries no readable MediaBox.
var Letter = PageSize{Width: 612, Height: 792}

// Config tunes PDFExtractor.
type Config struct {
	Group       GroupOptions
	OCRFallback bool
}

// PDFExtractor reads text layers with ledongthuc/pdf and groups glyphs into spans.
type PDFExtractor struct {
	cfg      Config
	fallback TextFallback
	log      *slog.Logger
}

// NewPDFExtractor builds an extractor; fallback may be nil.
func NewPDFExtractor(cfg Config, fallback TextFallback, log *slog.Logger) *PDFExtractor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Group == (GroupOptions{}) {
		cfg.Group = DefaultGroupOptions()
	}
	return &PDFExtractor{cfg: cfg, fallback: fallback, log: log}
}

// Extract returns text, spans and page sizes for every page.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc Document, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = common.NewAppError(common.CodeLayout, "malformed pdf "+path, fmt.Errorf("panic: %v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, common.NewAppError(common.CodeLayout, "open pdf "+path, err)
	}
	defer f.Close()

	texts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		p := r.Page(i)
		size := pageSize(p)
		doc.Pages = append(doc.Pages, size)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, e.pageText(p, i, path))
		glyphs, gerr := pageGlyphs(p)
		if gerr != nil {
			e.log.Warn("layout.page.content_error", "file", path, "page", i, "error", gerr)
			continue
		}
		doc.Spans = append(doc.Spans, GroupSpans(i-1, size.Height, glyphs, e.cfg.Group)...)
	}
	doc.Text = strings.Join(texts, "\n")

	if strings.TrimSpace(doc.Text) == "" {
		text, ferr := e.fallbackText(ctx, path)
		if ferr != nil {
			return Document{}, ferr
		}
		doc.Text = text
	}

	e.log.Info("layout.extract.ok",
		"file", path,
		"pages", len(doc.Pages),
		"spans", len(doc.Spans),
		"text_len", len(doc.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// ExtractText returns only the plain text; no span grouping is done.
func (e *PDFExtractor) ExtractText(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.NewAppError(common.CodeLayout, "malformed pdf "+path, fmt.Errorf("panic: %v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", common.NewAppError(common.CodeLayout, "open pdf "+path, err)
	}
	defer f.Close()

	texts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		texts = append(texts, e.pageText(p, i, path))
	}
	text = strings.Join(texts, "\n")
	if strings.TrimSpace(text) == "" {
		return e.fallbackText(ctx, path)
	}
	return text, nil
}

func (e *PDFExtractor) fallbackText(ctx context.Context, path string) (string, error) {
	if !e.cfg.OCRFallback || e.fallback == nil {
		e.log.Warn("layout.extract.no_text", "file", path)
		return "", nil
	}
	e.log.Info("layout.extract.ocr_fallback", "file", path)
	text, err := e.fallback.ExtractText(ctx, path)
	if err != nil {
		return "", common.NewAppError(common.CodeLayout, "ocr fallback "+path, err)
	}
	return text, nil
}

func (e *PDFExtractor) pageText(p pdf.Page, n int, path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("layout.page.text_panic", "file", path, "page", n, "panic", fmt.Sprint(r))
			text = ""
		}
	}()
	text, err := p.GetPlainText(nil)
	if err != nil {
		e.log.Warn("layout.page.text_error", "file", path, "page", n, "error", err)
		return ""
	}
	return text
}

func pageGlyphs(p pdf.Page) (glyphs []Glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()
	content := p.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, Font: t.Font, S: t.S})
	}
	return glyphs, nil
}

// pageSize reads MediaBox from the page or its ancestors.
func pageSize(p pdf.Page) (size PageSize) {
	defer func() {
		if r := recover(); r != nil {
			size = Letter
		}
	}()
	v := p.V
	for depth := 0; depth < 8 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return PageSize{Width: w, Height: h}
			}
		}
		v = v.Key("Parent")
	}
	return Letter
}
