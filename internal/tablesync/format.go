package tablesync

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	parenthesized = regexp.MustCompile(`^\(([\d.]+)\)`)
	plainNumber   = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?$`)
)

// FormatValue prepares an extracted value for a sheet cell: currency symbols and thousands
// separators go, "(n)" becomes "-n", and plain numbers become float64. Anything else stays a
// trimmed string.
func FormatValue(v string) any {
	s := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(v))
	if m := parenthesized.FindStringSubmatch(s); m != nil {
		s = "-" + m[1]
	}
	if plainNumber.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

var punctuation = strings.NewReplacer(
	",", " ", ".", " ", "!", " ", "?", " ", ";", " ", ":", " ",
	"-", " ", "_", " ", "(", " ", ")", " ", "[", " ", "]", " ",
	"{", " ", "}", " ", "'", " ", `"`, " ",
)

// NormalizeName folds a document name for duplicate detection only: lowercase, punctuation to
// spaces, single spaces, and a trailing "pdf" word dropped.
func NormalizeName(name string) string {
	n := strings.Join(strings.Fields(punctuation.Replace(strings.ToLower(name))), " ")
	if strings.HasSuffix(n, " pdf") {
		n = strings.TrimSpace(strings.TrimSuffix(n, " pdf"))
	}
	return n
}

// DocumentName is the name stored in the FILE NAME column for a result file.
func DocumentName(resultPath string) string {
	base := filepath.Base(resultPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
