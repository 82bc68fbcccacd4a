package constants

import "strings"

// DefaultDocumentType is used when a schema source does not name one.
const DefaultDocumentType = "Financial Statement"

// Label cells in the first column of the metadata rows of a workbook schema.
const (
	AlternativeNamesLabel = "Alternative Column Names"
	ExtractionRulesLabel  = "Column Extraction Rules"
)

// FileNameColumn is the workbook column holding the source document name.
const FileNameColumn = "FILE NAME"

// filenameMarkers classify a field key as resolved from the input file name.
var filenameMarkers = []string{
	"filename",
	"file_name",
	"file name",
	"document_name",
	"document name",
}

// excludedHeaders are workbook columns that never become template fields.
var excludedHeaders = map[string]struct{}{
	"file name": {},
	"approved":  {},
	"synced":    {},
}

// FilenameMarkers returns a copy of the substrings that mark filename fields.
func FilenameMarkers() []string {
	out := make([]string, len(filenameMarkers))
	copy(out, filenameMarkers)
	return out
}

// IsExcludedHeader reports whether a workbook header is bookkeeping rather than a field.
func IsExcludedHeader(h string) bool {
	n := strings.ToLower(strings.TrimSpace(h))
	if n == "" || strings.HasPrefix(n, "unnamed:") {
		return true
	}
	_, ok := excludedHeaders[n]
	return ok
}

// ModelStrategy selects how prompts are shaped for the target model.
type ModelStrategy string

const (
	StrategyBase      ModelStrategy = "base"
	StrategyFineTuned ModelStrategy = "fine_tuned"
)

// FineTunedModelPrefix marks fine-tuned model identifiers.
const FineTunedModelPrefix = "ft:"

// StrategyForModel derives the prompting strategy from a model identifier.
// It is meant to run once while loading configuration.
func StrategyForModel(model string) ModelStrategy {
	if strings.HasPrefix(strings.TrimSpace(model), FineTunedModelPrefix) {
		return StrategyFineTuned
	}
	return StrategyBase
}
