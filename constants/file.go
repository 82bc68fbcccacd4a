package constants

import "strings"

const (
	// PDFExt is the only input extension the extractor ingests.
	PDFExt = "pdf"

	// ResultSuffix and AnnotatedSuffix name the per-document outputs: <stem>.json and <stem>_annotated.pdf.
	ResultSuffix    = ".json"
	AnnotatedSuffix = "_annotated.pdf"
)

// AllowedExtensions holds the file extensions picked up by batch and watch ingestion.
var AllowedExtensions = map[string]struct{}{
	PDFExt: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowed reports whether a path's extension is ingestible.
func IsAllowed(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
