package layout

import (
	"math"
	"strings"
)

// Glyph is one positioned text run as reported by the PDF content stream (bottom-left origin).
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	Font     string
	S        string
}

// GroupOptions tunes GroupSpans. Multipliers are relative to the font size.
type GroupOptions struct {
	RowTolerance float64 // points of baseline drift still counted as the same line
	WordSpace    float64 // gap that inserts a space
	ColumnGap    float64 // gap that starts a new span
}

// DefaultGroupOptions mirrors the common layout-analysis defaults.
func DefaultGroupOptions() GroupOptions {
	return GroupOptions{RowTolerance: 3.0, WordSpace: 0.3, ColumnGap: 2.0}
}

type spanBuilder struct {
	text     strings.Builder
	x0, x1   float64
	baseline float64
	fontSize float64
	font     string
	open     bool
}

// GroupSpans merges glyphs, in content-stream order, into spans. A span ends at a line change, a
// font change, a wide horizontal gap or a backwards jump. pageHeight flips Y to a top-left origin.
func GroupSpans(page int, pageHeight float64, glyphs []Glyph, opts GroupOptions) []Span {
	var (
		out []Span
		cur spanBuilder
	)
	flush := func() {
		if !cur.open {
			return
		}
		if s, ok := cur.span(page, pageHeight); ok {
			out = append(out, s)
		}
		cur = spanBuilder{}
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if strings.ContainsAny(g.S, "\r\n") {
			flush()
			continue
		}
		fs := g.FontSize
		if fs <= 0 {
			fs = 1
		}
		if cur.open {
			gap := g.X - cur.x1
			switch {
			case math.Abs(g.Y-cur.baseline) > opts.RowTolerance,
				math.Abs(fs-cur.fontSize) > 0.5,
				g.Font != cur.font,
				gap > opts.ColumnGap*fs,
				gap < -fs:
				flush()
			case gap > opts.WordSpace*fs && g.S != " " && !strings.HasSuffix(cur.text.String(), " "):
				cur.text.WriteByte(' ')
			}
		}
		if !cur.open {
			cur = spanBuilder{x0: g.X, x1: g.X, baseline: g.Y, fontSize: fs, font: g.Font, open: true}
		}
		cur.text.WriteString(g.S)
		cur.x1 = math.Max(cur.x1, g.X+g.W)
	}
	flush()
	return out
}

func (b *spanBuilder) span(page int, pageHeight float64) (Span, bool) {
	text := strings.TrimSpace(b.text.String())
	if text == "" {
		return Span{}, false
	}
	top := pageHeight - b.baseline - b.fontSize
	bottom := pageHeight - b.baseline + 0.2*b.fontSize
	// glyphs may start left of the page edge; boxes stay on the page
	x0 := math.Max(b.x0, 0)
	return Span{
		Page:     page,
		BBox:     BBox{x0, math.Max(top, 0), math.Max(b.x1, x0), math.Max(bottom, 0)},
		Text:     text,
		Origin:   Point{X: b.x0, Y: pageHeight - b.baseline},
		FontSize: b.fontSize,
	}, true
}
