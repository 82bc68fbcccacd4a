// Package output writes per-document results: the JSON artifact and, through an Annotator, the
// highlighted PDF.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/reconcile"
)

// Result is the processing result for one document.
type Result struct {
	DocumentType string            `json:"document_type"`
	Fields       []reconcile.Field `json:"fields"`
	TextContent  string            `json:"text_content"`
}

// Marshal renders r with two-space indentation and without HTML escaping.
func Marshal(r Result) ([]byte, error) {
	if r.Fields == nil {
		r.Fields = []reconcile.Field{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes r to path through a temp file in the same directory.
func WriteJSON(path string, r Result) error {
	b, err := Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close result: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename result: %w", err)
	}
	return nil
}

// ReadJSON loads a result previously written by WriteJSON.
func ReadJSON(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}
