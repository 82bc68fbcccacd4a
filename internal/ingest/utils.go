package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

// AllowedExt reports whether a path has an ingestible extension.
func AllowedExt(path string) bool {
	return constants.IsAllowed(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 1 && strings.HasPrefix(base, ".")
}

// IsAnnotatedOutput reports whether a PDF is one this tool wrote, so re-runs never annotate annotations.
func IsAnnotatedOutput(path string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), constants.AnnotatedSuffix)
}
