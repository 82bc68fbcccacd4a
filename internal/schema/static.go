package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a static template. .yaml/.yml files are decoded as YAML, anything else as JSON.
// Static templates carry no metadata.
func LoadFile(path string) (Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Template{}, SchemaError("read template "+path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return ParseJSON(b)
	}
}

// ParseJSON decodes {"document_type": ..., "fields": [{"key": ..., "value": ...}]}.
func ParseJSON(b []byte) (Template, error) {
	var t Template
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&t); err != nil {
		return Template{}, SchemaError("parse template json", err)
	}
	return t, validateTemplate(t)
}

// ParseYAML decodes the YAML rendition of the template format.
func ParseYAML(b []byte) (Template, error) {
	var t Template
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Template{}, SchemaError("parse template yaml", err)
	}
	return t, validateTemplate(t)
}

func validateTemplate(t Template) error {
	if len(t.Fields) == 0 {
		return SchemaError("template has no fields", nil)
	}
	for i, f := range t.Fields {
		if strings.TrimSpace(f.Key) == "" {
			return SchemaError("template field "+itoa(i)+" has an empty key", nil)
		}
	}
	return nil
}

// WriteFile saves t in the format LoadFile reads back, chosen by extension. Existing files are
// replaced.
func WriteFile(path string, t Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(t)
	default:
		b, err = json.MarshalIndent(t, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return SchemaError("encode template", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return SchemaError("create template dir", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return SchemaError("write template "+path, err)
	}
	return nil
}
