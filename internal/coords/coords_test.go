package coords

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
)

func round1(f float64) float64 { return math.Round(f*10) / 10 }

func TestFormatMarker(t *testing.T) {
	s := layout.Span{Page: 0, BBox: layout.BBox{72, 100.54, 130.25, 112}, Text: "INV-001"}
	assert.Equal(t, "[INV-001]<@0:72.0,100.5,130.2,112.0>", FormatMarker(s))
}

func TestMarkerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		x0, y0 := rng.Float64()*600, rng.Float64()*800
		s := layout.Span{
			Page: rng.Intn(40),
			BBox: layout.BBox{round1(x0), round1(y0), round1(x0 + rng.Float64()*200), round1(y0 + rng.Float64()*30)},
			Text: "value " + string(rune('A'+rng.Intn(26))),
		}
		m, ok := Decode(FormatMarker(s))
		require.True(t, ok)
		assert.Equal(t, s.Page, m.Page)
		for j := 0; j < 4; j++ {
			assert.InDelta(t, s.BBox[j], m.BBox[j], 1e-9)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
		want  Marker
	}{
		{"bracketed", "[42]<@1:5.0,6.0,7.0,8.0>", true, Marker{Page: 1, BBox: layout.BBox{5, 6, 7, 8}}},
		{"high precision", "x<@3:1.23456,2,3.5,4.75>", true, Marker{Page: 3, BBox: layout.BBox{1.23456, 2, 3.5, 4.75}}},
		{"first wins", "[a]<@0:1,1,2,2> [b]<@4:9,9,9,9>", true, Marker{Page: 0, BBox: layout.BBox{1, 1, 2, 2}}},
		{"no marker", "INV-001", false, Marker{}},
		{"negative page rejected", "<@-1:1,2,3,4>", false, Marker{}},
		{"bad float", "<@1:1.2.3,2,3,4>", false, Marker{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Decode(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestStripMarkers(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"[42]<@1:5.0,6.0,7.0,8.0>", "42"},
		{"INV-001", "INV-001"},
		{"  padded  ", "  padded  "},
		{"Total: [100]<@0:1,2,3,4>", "Total: 100"},
		{"[a]<@0:1,1,2,2> [b]<@4:9,9,9,9>", "a b"},
		{"[ACME Corp] <@2:1.0,2.0,3.0,4.0>", "ACME Corp"},
		{"[x] y", "[x] y"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := StripMarkers(tt.value)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StripMarkers(got))
		})
	}
}

func TestEncode(t *testing.T) {
	spans := []layout.Span{
		{Page: 1, BBox: layout.BBox{10, 10, 50, 20}, Text: "Page two"},
		{Page: 0, BBox: layout.BBox{72, 90, 120, 100}, Text: "Invoice"},
		{Page: 0, BBox: layout.BBox{0, 0, 0, 0}, Text: "   "},
		{Page: 0, BBox: layout.BBox{130, 90, 170.04, 100}, Text: "INV-001"},
	}
	got := Encode("Invoice INV-001\nPage two", spans)

	want := "=== DOCUMENT WITH COORDINATE MARKERS ===\n" +
		"--- PAGE 1 ---\n" +
		"[Invoice]<@0:72.0,90.0,120.0,100.0> [INV-001]<@0:130.0,90.0,170.0,100.0>\n\n" +
		"--- PAGE 2 ---\n" +
		"[Page two]<@1:10.0,10.0,50.0,20.0>\n\n" +
		"=== END DOCUMENT ===\n\n" +
		"=== ORIGINAL TEXT ===\n" +
		"Invoice INV-001\nPage two"
	assert.Equal(t, want, got)
}

func TestEncodeEveryMarkerDecodes(t *testing.T) {
	spans := []layout.Span{
		{Page: 0, BBox: layout.BBox{1.04, 2.05, 3.06, 4.07}, Text: "a"},
		{Page: 5, BBox: layout.BBox{100, 200, 300, 400}, Text: "b"},
	}
	enc := Encode("", spans)
	found := MarkerPattern.FindAllStringSubmatch(enc, -1)
	require.Len(t, found, 2)
	for _, f := range found {
		_, ok := Decode(f[0])
		assert.True(t, ok)
	}
}

func TestEncodeNoSpans(t *testing.T) {
	got := Encode("plain", nil)
	assert.Equal(t, BannerStart+"\n"+BannerEnd+"\n\n"+OriginalHead+"\nplain", got)
}

func TestGroupedSpanOffPageLeftDecodes(t *testing.T) {
	var glyphs []layout.Glyph
	for i, r := range "Memo" {
		glyphs = append(glyphs, layout.Glyph{X: -3.2 + float64(i)*5, Y: 700, W: 5, FontSize: 10, S: string(r)})
	}
	spans := layout.GroupSpans(0, 792, glyphs, layout.DefaultGroupOptions())
	require.Len(t, spans, 1)

	m, ok := Decode(FormatMarker(spans[0]))
	require.True(t, ok)
	assert.Equal(t, 0.0, m.BBox[0])
	assert.InDelta(t, 16.8, m.BBox[2], 0.05)
}
