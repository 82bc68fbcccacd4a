// Package annotate writes a copy of a source PDF with extracted values highlighted and labelled.
package annotate

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/reconcile"
)

// Highlight is a rectangle to paint on a 0-indexed page.
type Highlight struct {
	Page     int
	BBox     layout.BBox
	FontSize float64
	Label    string
}

// Locate narrows a located field to the value's own rectangle. It tries a span whose text equals
// the value, then a span containing it (estimating the offset from an average character width),
// and otherwise keeps the field's bbox. Fields without a position are not located.
func Locate(spans []layout.Span, f reconcile.Field) (Highlight, bool) {
	if !f.Located() {
		return Highlight{}, false
	}
	page := *f.Page
	h := Highlight{Page: page, BBox: *f.BBox, FontSize: f.BBox.Height(), Label: f.Key}
	if f.Value == "" {
		return h, true
	}

	for _, s := range spans {
		if s.Page == page && strings.TrimSpace(s.Text) == f.Value {
			h.BBox, h.FontSize = s.BBox, s.FontSize
			return h, true
		}
	}
	for _, s := range spans {
		if s.Page != page {
			continue
		}
		idx := strings.Index(s.Text, f.Value)
		if idx < 0 {
			continue
		}
		n := utf8.RuneCountInString(s.Text)
		if n == 0 {
			continue
		}
		cw := s.BBox.Width() / float64(n)
		start := float64(utf8.RuneCountInString(s.Text[:idx]))
		length := float64(utf8.RuneCountInString(f.Value))
		h.BBox = layout.BBox{
			s.BBox[0] + start*cw,
			s.BBox[1],
			s.BBox[0] + (start+length)*cw,
			s.BBox[3],
		}
		h.FontSize = s.FontSize
		return h, true
	}
	return h, true
}

// LabelSize is a quarter of the value's font size, never below minLabelSize.
func LabelSize(fontSize float64) float64 {
	size := fontSize / 4
	if size < minLabelSize {
		return minLabelSize
	}
	return size
}
