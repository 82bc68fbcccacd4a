package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/reconcile"
)

const (
	minLabelSize = 4.0
	labelGap     = 2.0
	labelFont    = "Helvetica"
	pageBox      = "/MediaBox"
)

// Style is the highlight look. Colours are 0-255 RGB.
type Style struct {
	Fill    [3]int
	Label   [3]int
	Opacity float64
}

func DefaultStyle() Style {
	return Style{Fill: [3]int{255, 204, 0}, Label: [3]int{0, 0, 255}, Opacity: 0.5}
}

// Annotator re-reads span positions from the source PDF to narrow each highlight, imports every
// source page and paints highlights and key labels on top.
type Annotator struct {
	spans layout.Extractor
	style Style
	log   *slog.Logger
}

// New accepts a nil extractor; highlights then use the field bbox as is.
func New(spans layout.Extractor, style Style, log *slog.Logger) *Annotator {
	if log == nil {
		log = slog.Default()
	}
	return &Annotator{spans: spans, style: style, log: log}
}

// Annotate writes dstPDF. Fields without a position are skipped; highlights on pages the source
// does not have are logged and dropped.
func (a *Annotator) Annotate(ctx context.Context, srcPDF, dstPDF, documentType string, fields []reconcile.Field) (err error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	// gofpdi reports unreadable sources by panicking
	defer func() {
		if r := recover(); r != nil {
			err = common.NewAppError(common.CodeWrite, "import pages of "+srcPDF, fmt.Errorf("panic: %v", r))
		}
	}()

	pdfCtx, err := api.ReadContextFile(srcPDF)
	if err != nil {
		return fmt.Errorf("read source pdf: %w", err)
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return fmt.Errorf("source pdf %s has no pages", srcPDF)
	}

	var spans []layout.Span
	if a.spans != nil {
		doc, err := a.spans.Extract(ctx, srcPDF)
		if err != nil {
			a.log.Warn("annotate.spans_unavailable", "req_id", rid, "error", err)
		} else {
			spans = doc.Spans
		}
	}

	byPage := make(map[int][]Highlight)
	skipped := 0
	for _, f := range fields {
		h, ok := Locate(spans, f)
		if !ok {
			skipped++
			continue
		}
		if h.Page < 0 || h.Page >= pageCount {
			a.log.Warn("annotate.page_out_of_range", "req_id", rid, "key", f.Key, "page", h.Page, "pages", pageCount)
			skipped++
			continue
		}
		byPage[h.Page] = append(byPage[h.Page], h)
	}

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(documentType, true)
	imp := gofpdi.NewImporter()
	for n := 1; n <= pageCount; n++ {
		tpl := imp.ImportPage(pdf, srcPDF, n, pageBox)
		size := imp.GetPageSizes()[n][pageBox]
		w, h := size["w"], size["h"]
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)
		for _, hl := range byPage[n-1] {
			a.draw(pdf, hl)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("compose annotated pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPDF), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := dstPDF + ".part"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write annotated pdf: %w", err)
	}
	if err := os.Rename(tmp, dstPDF); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename annotated pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(dstPDF, conf); err != nil {
		a.log.Warn("annotate.validate_failed", "req_id", rid, "path", dstPDF, "error", err)
	}

	a.log.Debug("annotate.ok",
		"req_id", rid,
		"pages", pageCount,
		"highlights", len(fields)-skipped,
		"skipped", skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (a *Annotator) draw(pdf *fpdf.Fpdf, h Highlight) {
	x0, y0, x1, y1 := h.BBox[0], h.BBox[1], h.BBox[2], h.BBox[3]

	pdf.SetAlpha(a.style.Opacity, "Normal")
	pdf.SetFillColor(a.style.Fill[0], a.style.Fill[1], a.style.Fill[2])
	pdf.Rect(x0, y0, x1-x0, y1-y0, "F")
	pdf.SetAlpha(1, "Normal")

	size := LabelSize(h.FontSize)
	pdf.SetFont(labelFont, "", size)
	pdf.SetTextColor(a.style.Label[0], a.style.Label[1], a.style.Label[2])
	pdf.Text(x0, y1+labelGap+size, latin(h.Label))
}

// latin encodes s for the core fonts, keeping s when it has no cp1252 form.
func latin(s string) string {
	enc, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return enc
}
