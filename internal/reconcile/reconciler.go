package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/coords"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
)

// Input is everything one document contributes. Template is the full schema, filename fields
// included. Spans is ignored in validation mode.
type Input struct {
	Template       schema.Template
	Filename       map[string]string
	Analysis       []llm.Field
	Spans          []layout.Span
	ValidationMode bool
	// Coordinates reports that the document text was sent with position markers; only then are
	// markers in values decoded.
	Coordinates bool
}

// Stats summarizes one reconciliation.
type Stats struct {
	Total    int
	Filename int
	Marker   int
	Matched  int
	Missed   int
}

// Located is the number of fields that ended up with a position.
func (s Stats) Located() int { return s.Marker + s.Matched }

type Reconciler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{log: log}
}

// Reconcile emits filename fields in template order, then model fields in response order. A key
// returned twice keeps its first value; model values for filename keys are dropped.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) ([]Field, Stats) {
	rid := common.RequestIDFromContext(ctx)
	var (
		out   []Field
		stats Stats
		seen  = make(map[string]bool)
	)

	for _, f := range in.Template.Fields {
		if !schema.IsFilenameField(f.Key) || seen[f.Key] {
			continue
		}
		value, ok := in.Filename[f.Key]
		if !ok {
			continue
		}
		seen[f.Key] = true
		out = append(out, unplaced(f.Key, value, SourceFilename))
		stats.Filename++
	}

	spans := in.Spans
	if in.ValidationMode {
		spans = nil
	}
	for _, af := range in.Analysis {
		if seen[af.Key] {
			r.log.Debug("reconcile.duplicate_key", "req_id", rid, "key", af.Key)
			continue
		}
		if schema.IsFilenameField(af.Key) {
			r.log.Debug("reconcile.filename_key_from_model", "req_id", rid, "key", af.Key)
			continue
		}
		seen[af.Key] = true

		if !in.Template.Matches(af.Key) {
			r.log.Debug("reconcile.unexpected_key", "req_id", rid, "key", af.Key)
		}

		f := r.resolve(af, spans, in.ValidationMode, in.Coordinates)
		switch f.Source {
		case SourceMarker:
			stats.Marker++
		case SourceSpanMatch:
			stats.Matched++
		default:
			stats.Missed++
			level := slog.LevelWarn
			if in.ValidationMode {
				level = slog.LevelDebug
			}
			r.log.Log(ctx, level, "reconcile.position_miss", common.LogAttrs(ctx, "key", f.Key)...)
		}
		out = append(out, f)
	}

	stats.Total = len(out)
	return out, stats
}

// resolve runs the marker and span-match branches for one model field.
func (r *Reconciler) resolve(af llm.Field, spans []layout.Span, validation, coordinates bool) Field {
	if validation {
		return unplaced(af.Key, af.Value, SourceUnplaced)
	}
	value := af.Value
	if coordinates {
		if m, ok := coords.Decode(value); ok {
			return placed(af.Key, coords.StripMarkers(value), m.Page, m.BBox, SourceMarker)
		}
		value = coords.StripMarkers(value)
	}
	if s, ok := FirstMatch(spans, value); ok {
		return placed(af.Key, value, s.Page, s.BBox, SourceSpanMatch)
	}
	return unplaced(af.Key, value, SourceUnplaced)
}

// FirstMatch returns the first span whose text contains value, compared exactly. An empty value is
// contained in every span and anchors to the first one.
func FirstMatch(spans []layout.Span, value string) (layout.Span, bool) {
	for _, s := range spans {
		if strings.Contains(s.Text, value) {
			return s, true
		}
	}
	return layout.Span{}, false
}
