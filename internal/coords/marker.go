// Package coords embeds span positions into document text as inline markers a text-only model can
// echo back, and decodes them from returned values.
//
// Marker wire format: [<span text>]<@<page>:<x0>,<y0>,<x1>,<y1>>
package coords

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
)

// MarkerPattern is the decoder contract; any float precision is accepted.
var MarkerPattern = regexp.MustCompile(`<@(\d+):([\d.]+),([\d.]+),([\d.]+),([\d.]+)>`)

// bracketedMarker additionally captures a directly preceding [...] so it can be unwrapped.
var bracketedMarker = regexp.MustCompile(`(?:\[([^\[\]]*)\])?\s*<@\d+:[\d.]+,[\d.]+,[\d.]+,[\d.]+>`)

// Marker is a decoded position.
type Marker struct {
	Page int
	BBox layout.BBox
}

// FormatMarker renders a span as [text]<@page:x0,y0,x1,y1> with one decimal per coordinate.
func FormatMarker(s layout.Span) string {
	return fmt.Sprintf("[%s]<@%d:%.1f,%.1f,%.1f,%.1f>", s.Text, s.Page, s.BBox[0], s.BBox[1], s.BBox[2], s.BBox[3])
}

// Decode parses the first marker in value. ok is false when no marker is present or its numbers do
// not parse; later markers are ignored.
func Decode(value string) (m Marker, ok bool) {
	g := MarkerPattern.FindStringSubmatch(value)
	if g == nil {
		return Marker{}, false
	}
	page, err := strconv.Atoi(g[1])
	if err != nil {
		return Marker{}, false
	}
	for i := 0; i < 4; i++ {
		f, err := strconv.ParseFloat(g[i+2], 64)
		if err != nil {
			return Marker{}, false
		}
		m.BBox[i] = f
	}
	m.Page = page
	return m, true
}

// HasMarker reports whether value carries at least one marker.
func HasMarker(value string) bool {
	return MarkerPattern.MatchString(value)
}

// StripMarkers removes every marker together with the brackets wrapping the text before it, then
// trims surrounding space. Applying it twice changes nothing.
func StripMarkers(value string) string {
	if !HasMarker(value) {
		return value
	}
	out := bracketedMarker.ReplaceAllString(value, "$1")
	return strings.TrimSpace(out)
}
