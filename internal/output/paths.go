package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

// Paths are the outputs of one input PDF, mirrored under the output root.
type Paths struct {
	Dir       string
	JSON      string
	Annotated string
}

// PathsFor mirrors pdfPath's directory relative to inputRoot under outputRoot. A pdfPath outside
// inputRoot lands directly in outputRoot.
func PathsFor(inputRoot, outputRoot, pdfPath string) (Paths, error) {
	rel, err := filepath.Rel(inputRoot, filepath.Dir(pdfPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = "."
	}
	base := filepath.Base(pdfPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return Paths{}, fmt.Errorf("no file name in %q", pdfPath)
	}
	dir := filepath.Join(outputRoot, rel)
	return Paths{
		Dir:       dir,
		JSON:      filepath.Join(dir, stem+constants.ResultSuffix),
		Annotated: filepath.Join(dir, stem+constants.AnnotatedSuffix),
	}, nil
}

// Done reports whether the outputs already exist and are non-empty. The annotated PDF is only
// required when withAnnotated is set.
func (p Paths) Done(withAnnotated bool) bool {
	if !nonEmpty(p.JSON) {
		return false
	}
	return !withAnnotated || nonEmpty(p.Annotated)
}

func nonEmpty(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}
