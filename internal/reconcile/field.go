// Package reconcile merges filename-derived and model-returned fields and anchors each one to a
// page position when it can.
package reconcile

import "github.com/joseph-ayodele/pdf-field-extractor/internal/layout"

// Source records which branch resolved a field.
type Source string

const (
	SourceFilename  Source = "filename"
	SourceMarker    Source = "marker"
	SourceSpanMatch Source = "span_match"
	SourceUnplaced  Source = "unplaced"
)

// Field is a final extracted field. Page and BBox are both set or both nil.
type Field struct {
	Key    string       `json:"key"`
	Value  string       `json:"value"`
	Page   *int         `json:"page"`
	BBox   *layout.BBox `json:"bbox"`
	Source Source       `json:"-"`
}

// Located reports whether the field carries a position.
func (f Field) Located() bool { return f.Page != nil && f.BBox != nil }

func unplaced(key, value string, src Source) Field {
	return Field{Key: key, Value: value, Source: src}
}

func placed(key, value string, page int, bbox layout.BBox, src Source) Field {
	p, b := page, bbox
	return Field{Key: key, Value: value, Page: &p, BBox: &b, Source: src}
}
