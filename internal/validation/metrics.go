// Package validation scores extraction results against ground truth.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultErrorLimit caps the error examples kept by Evaluate.
const DefaultErrorLimit = 5

// Values maps document name → field key → value.
type Values map[string]map[string]string

type ErrorExample struct {
	Document string
	Field    string
	Expected string
	Actual   string
}

type FieldAccuracy struct {
	Field    string
	Correct  int
	Total    int
	Accuracy float64
}

type Metrics struct {
	TotalSamples    int
	TotalFields     int
	CorrectFields   int
	IncorrectFields int
	Accuracy        float64
	Fields          []FieldAccuracy // accuracy descending, then name
	Errors          []ErrorExample
	// Unpredicted lists ground-truth documents that had no prediction; they are not scored.
	Unpredicted []string
}

// Normalize folds a value for comparison: lowercase, trimmed, no spaces.
func Normalize(v string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "")
}

// Equal compares two values after Normalize.
func Equal(expected, actual string) bool {
	return Normalize(expected) == Normalize(actual)
}

// Evaluate scores every ground-truth field of every predicted document. A field missing from the
// prediction counts as wrong. Documents are visited in name order so error examples are stable.
func Evaluate(truth, predicted Values, errorLimit int) Metrics {
	if errorLimit < 0 {
		errorLimit = 0
	}
	var (
		m        Metrics
		perField = map[string]*FieldAccuracy{}
	)

	for _, doc := range sortedKeys(truth) {
		pred, ok := predicted[doc]
		if !ok {
			m.Unpredicted = append(m.Unpredicted, doc)
			continue
		}
		m.TotalSamples++

		expectedFields := truth[doc]
		for _, key := range sortedKeys(expectedFields) {
			expected := expectedFields[key]
			actual := pred[key]
			correct := Equal(expected, actual)

			fa := perField[key]
			if fa == nil {
				fa = &FieldAccuracy{Field: key}
				perField[key] = fa
			}
			fa.Total++
			m.TotalFields++
			if correct {
				fa.Correct++
				m.CorrectFields++
				continue
			}
			if len(m.Errors) < errorLimit {
				m.Errors = append(m.Errors, ErrorExample{Document: doc, Field: key, Expected: expected, Actual: actual})
			}
		}
	}

	m.IncorrectFields = m.TotalFields - m.CorrectFields
	if m.TotalFields > 0 {
		m.Accuracy = float64(m.CorrectFields) / float64(m.TotalFields)
	}
	for _, fa := range perField {
		fa.Accuracy = float64(fa.Correct) / float64(fa.Total)
		m.Fields = append(m.Fields, *fa)
	}
	sort.Slice(m.Fields, func(i, j int) bool {
		if m.Fields[i].Accuracy != m.Fields[j].Accuracy {
			return m.Fields[i].Accuracy > m.Fields[j].Accuracy
		}
		return m.Fields[i].Field < m.Fields[j].Field
	})
	return m
}

func (m Metrics) String() string {
	var b strings.Builder
	b.WriteString("Validation Results\n")
	b.WriteString("------------------\n")
	fmt.Fprintf(&b, "Total Samples: %d\n", m.TotalSamples)
	fmt.Fprintf(&b, "Total Fields: %d\n", m.TotalFields)
	fmt.Fprintf(&b, "Correct Fields: %d\n", m.CorrectFields)
	fmt.Fprintf(&b, "Incorrect Fields: %d\n", m.IncorrectFields)
	fmt.Fprintf(&b, "Overall Accuracy: %.2f%%\n", m.Accuracy*100)
	if len(m.Fields) > 0 {
		b.WriteString("\nField-level Accuracies:\n")
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "  %s: %.2f%%\n", f.Field, f.Accuracy*100)
		}
	}
	if len(m.Errors) > 0 {
		b.WriteString("\nError Examples:\n")
		for _, e := range m.Errors {
			fmt.Fprintf(&b, "\nDocument: %s\nField: %s\nExpected: %s\nGot: %s\n", e.Document, e.Field, e.Expected, e.Actual)
		}
	}
	if len(m.Unpredicted) > 0 {
		fmt.Fprintf(&b, "\nNot scored (no prediction): %s\n", strings.Join(m.Unpredicted, ", "))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
