package coords

import (
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
)

const (
	BannerStart  = "=== DOCUMENT WITH COORDINATE MARKERS ==="
	BannerEnd    = "=== END DOCUMENT ==="
	OriginalHead = "=== ORIGINAL TEXT ==="
)

// PageHeader is the 1-indexed header line for a 0-indexed page.
func PageHeader(page int) string {
	return "--- PAGE " + strconv.Itoa(page+1) + " ---"
}

// Encode renders spans grouped by page (ascending), each page's non-blank spans space-joined in
// span-list order, between fixed banners, followed by the unmarked text.
func Encode(text string, spans []layout.Span) string {
	byPage := make(map[int][]layout.Span)
	var pages []int
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if _, ok := byPage[s.Page]; !ok {
			pages = append(pages, s.Page)
		}
		byPage[s.Page] = append(byPage[s.Page], s)
	}
	sort.Ints(pages)

	var b strings.Builder
	b.WriteString(BannerStart)
	b.WriteByte('\n')
	for _, p := range pages {
		b.WriteString(PageHeader(p))
		b.WriteByte('\n')
		for i, s := range byPage[p] {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(FormatMarker(s))
		}
		b.WriteString("\n\n")
	}
	b.WriteString(BannerEnd)
	b.WriteString("\n\n")
	b.WriteString(OriginalHead)
	b.WriteByte('\n')
	b.WriteString(text)
	return b.String()
}
