// Package layout recovers document text and positioned text spans from PDFs.
package layout

import "context"

// BBox is (x0, y0, x1, y1) in PDF points with a top-left origin; x0<=x1 and y0<=y1.
type BBox [4]float64

func (b BBox) Width() float64  { return b[2] - b[0] }
func (b BBox) Height() float64 { return b[3] - b[1] }

// Point is a position in PDF points, top-left origin.
type Point struct {
	X float64
	Y float64
}

// Span is a contiguous run of text on one line of a page.
type Span struct {
	Page     int // 0-indexed
	BBox     BBox
	Text     string
	Origin   Point // baseline start
	FontSize float64
}

// PageSize is a page's media box size in points.
type PageSize struct {
	Width  float64
	Height float64
}

// Document is everything the pipeline needs from a PDF.
type Document struct {
	Text  string
	Spans []Span
	Pages []PageSize
}

// Extractor recovers text and spans. ExtractText skips span computation entirely.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
	ExtractText(ctx context.Context, path string) (string, error)
}

// TextFallback supplies text for PDFs without an extractable text layer.
type TextFallback interface {
	ExtractText(ctx context.Context, path string) (string, error)
}
