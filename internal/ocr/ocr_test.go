package ocr

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// stubRunner answers by binary name and records calls. For pdftoppm it writes `pages` PNG files
// next to the requested prefix.
type stubRunner struct {
	outputs map[string]string
	errs    map[string]error
	pages   int
	calls   []call
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if err := s.errs[name]; err != nil {
		return nil, []byte("boom"), err
	}
	if name == "pdftoppm" {
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			if err := os.WriteFile(prefix+"-"+string(rune('0'+i))+".png", []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
	}
	return []byte(s.outputs[name]), nil, nil
}

func TestExtractUsesTextLayer(t *testing.T) {
	r := &stubRunner{outputs: map[string]string{"pdftotext": "Invoice   INV-001\r\n\fPage two\f"}}
	e := NewExtractor(Config{}, r, nil)

	res, err := e.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Invoice INV-001\n\nPage two", res.Text)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "doc.pdf", "-"}, r.calls[0].args)
}

func TestExtractFallsBackToTesseract(t *testing.T) {
	r := &stubRunner{
		outputs: map[string]string{"pdftotext": "\f", "tesseract": "Total 100\n----\n"},
		pages:   2,
	}
	e := NewExtractor(Config{TessdataDir: "/td"}, r, nil)

	text, err := e.ExtractText(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Total 100\n\nTotal 100", text)

	var tess int
	for _, c := range r.calls {
		if c.name == "tesseract" {
			tess++
			assert.Contains(t, c.args, "--tessdata-dir")
		}
	}
	assert.Equal(t, 2, tess)
}

func TestExtractNoPagesRendered(t *testing.T) {
	r := &stubRunner{errs: map[string]error{"pdftotext": errors.New("missing")}}
	_, err := NewExtractor(Config{}, r, nil).Extract(context.Background(), "x.pdf")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "a b\n\nc", Normalize("a\t\tb   \r\n\n\n\nc"))
	assert.Equal(t, "01/02 (1,698,064)", Normalize("01/02   (1,698,064)  "))
}
