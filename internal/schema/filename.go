package schema

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

// IsFilenameField reports whether key is resolved from the input file name. Case-insensitive.
func IsFilenameField(key string) bool {
	k := strings.ToLower(key)
	for _, m := range constants.FilenameMarkers() {
		if strings.Contains(k, m) {
			return true
		}
	}
	return false
}

// FilenameValue is the base name of path without its extension.
func FilenameValue(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FilenameFields maps every filename field of t to the value derived from path.
func FilenameFields(t Template, path string) map[string]string {
	out := make(map[string]string)
	value := FilenameValue(path)
	for _, f := range t.Fields {
		if IsFilenameField(f.Key) {
			out[f.Key] = value
		}
	}
	return out
}
