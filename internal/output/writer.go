package output

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/reconcile"
)

// Annotator draws field highlights onto a copy of the source PDF. Fields without a bbox must be
// skipped, not reported as errors.
type Annotator interface {
	Annotate(ctx context.Context, srcPDF, dstPDF, documentType string, fields []reconcile.Field) error
}

type Writer struct {
	annotator Annotator
	log       *slog.Logger
}

// NewWriter accepts a nil annotator; annotation is then skipped.
func NewWriter(annotator Annotator, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{annotator: annotator, log: log}
}

// Write stores the JSON artifact, then the annotated PDF unless validation is set or annotatedPath
// is empty.
func (w *Writer) Write(ctx context.Context, r Result, srcPDF string, paths Paths, validation bool) error {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	if err := WriteJSON(paths.JSON, r); err != nil {
		return common.NewAppError(common.CodeWrite, "write result json", err)
	}
	w.log.Info("output.json.ok", common.LogAttrs(ctx, "path", paths.JSON, "fields", len(r.Fields))...)

	if validation || paths.Annotated == "" || w.annotator == nil {
		return nil
	}
	if err := w.annotator.Annotate(ctx, srcPDF, paths.Annotated, r.DocumentType, r.Fields); err != nil {
		return common.NewAppError(common.CodeWrite, "annotate pdf", err)
	}
	w.log.Info("output.annotate.ok",
		"req_id", rid,
		"path", paths.Annotated,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
