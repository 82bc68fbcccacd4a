// Package schema describes what to extract from a document: an ordered field list plus optional
// per-field hints, loaded from a static template or a workbook grid.
package schema

import (
	"regexp"
	"strings"
)

// FieldTemplate is a field to extract; Key is unique within a template by convention.
type FieldTemplate struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Template is an extraction schema. It is treated as immutable once built.
type Template struct {
	DocumentType string          `json:"document_type" yaml:"document_type"`
	Fields       []FieldTemplate `json:"fields" yaml:"fields"`
}

// Metadata carries optional, sparse hints keyed by field key.
type Metadata struct {
	AlternativeNames map[string]string
	ExtractionRules  map[string]string
}

// AlternativeName returns the alternative-name hint for key, or "".
func (m Metadata) AlternativeName(key string) string {
	return strings.TrimSpace(m.AlternativeNames[key])
}

// Rule returns the extraction-rule hint for key, or "".
func (m Metadata) Rule(key string) string {
	return strings.TrimSpace(m.ExtractionRules[key])
}

// PatternHints returns the alternative name and rule for a pattern. Repeating patterns fall back to
// the hints stored under Key_1, then Key_n.
func (m Metadata) PatternHints(p Pattern) (alt, rule string) {
	keys := []string{p.Key}
	if p.Repeating {
		keys = append(keys, p.Key+"_1", p.Key+"_n")
	}
	for _, k := range keys {
		if alt == "" {
			alt = m.AlternativeName(k)
		}
		if rule == "" {
			rule = m.Rule(k)
		}
	}
	return alt, rule
}

// Empty reports whether no hints are present.
func (m Metadata) Empty() bool {
	return len(m.AlternativeNames) == 0 && len(m.ExtractionRules) == 0
}

// Keys returns field keys in template order.
func (t Template) Keys() []string {
	keys := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Filter returns a new template holding the fields keep accepts. t is not modified.
func (t Template) Filter(keep func(FieldTemplate) bool) Template {
	out := Template{DocumentType: t.DocumentType, Fields: make([]FieldTemplate, 0, len(t.Fields))}
	for _, f := range t.Fields {
		if keep(f) {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// Partition splits t into the template sent for analysis and the fields resolved from the file name.
func (t Template) Partition() (content Template, filename []FieldTemplate) {
	content = t.Filter(func(f FieldTemplate) bool { return !IsFilenameField(f.Key) })
	for _, f := range t.Fields {
		if IsFilenameField(f.Key) {
			filename = append(filename, f)
		}
	}
	return content, filename
}

// Pattern is one entry of the analysis field list. Numbered fields (Key_1 ... Key_n) collapse into a
// single repeating pattern on their base key.
type Pattern struct {
	Key       string
	Repeating bool
}

var numberedKey = regexp.MustCompile(`^(.+)_(\d+)$`)

// Patterns collapses numbered fields: Key_1 yields a repeating Key pattern, Key_n placeholders and
// further instances (Key_2, Key_3) are dropped, everything else is kept verbatim in template order.
func (t Template) Patterns() []Pattern {
	repeating := make(map[string]bool)
	for _, f := range t.Fields {
		if strings.HasSuffix(f.Key, "_1") {
			repeating[strings.TrimSuffix(f.Key, "_1")] = true
		}
	}

	var out []Pattern
	seen := make(map[string]bool)
	for _, f := range t.Fields {
		switch {
		case strings.HasSuffix(f.Key, "_n"):
			continue
		case strings.HasSuffix(f.Key, "_1"):
			base := strings.TrimSuffix(f.Key, "_1")
			if !seen[base] {
				seen[base] = true
				out = append(out, Pattern{Key: base, Repeating: true})
			}
		default:
			if m := numberedKey.FindStringSubmatch(f.Key); m != nil && repeating[m[1]] {
				continue
			}
			out = append(out, Pattern{Key: f.Key})
		}
	}
	return out
}

// Matches reports whether a returned key belongs to t, either verbatim or as an instance of a
// repeating pattern.
func (t Template) Matches(key string) bool {
	_, ok := t.Resolve(key)
	return ok
}

// Resolve maps a returned key to the template key it instantiates: "Line Item_3" resolves to
// "Line Item_n" when the template carries that placeholder, else to "Line Item_1".
func (t Template) Resolve(key string) (string, bool) {
	for _, p := range t.Patterns() {
		if !p.Repeating && p.Key == key {
			return key, true
		}
	}
	m := numberedKey.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	for _, p := range t.Patterns() {
		if !p.Repeating || p.Key != m[1] {
			continue
		}
		for _, f := range t.Fields {
			if f.Key == p.Key+"_n" {
				return f.Key, true
			}
		}
		return p.Key + "_1", true
	}
	return "", false
}
