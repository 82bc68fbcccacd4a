package llm

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
)

// PromptInput is everything a prompt strategy may render. Patterns never include filename fields.
type PromptInput struct {
	DocumentType string
	Patterns     []schema.Pattern
	Meta         schema.Metadata
	Text         string
	Coordinates  bool
}

const markerExample = `If the document contains [INV-2024-001]<@0:72.0,100.5,160.3,112.0> and that is the invoice number, return {"key": "Invoice Number", "value": "[INV-2024-001]<@0:72.0,100.5,160.3,112.0>"}.`

// BuildMessages renders the prompt for the configured strategy.
func BuildMessages(strategy constants.ModelStrategy, in PromptInput) []Message {
	if strategy == constants.StrategyFineTuned {
		return []Message{{Role: RoleUser, Content: BuildFineTunedPrompt(in)}}
	}
	return []Message{
		{Role: RoleSystem, Content: BuildSystemPrompt(in)},
		{Role: RoleUser, Content: BuildUserPrompt(in)},
	}
}

// BuildFineTunedPrompt is a single user message. Keys are listed verbatim since fine-tuned models
// reproduce them exactly.
func BuildFineTunedPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from this " + in.DocumentType + ".\n")
	b.WriteString("Use these exact keys, character for character:\n")
	for _, p := range in.Patterns {
		b.WriteString("- " + p.Key)
		if p.Repeating {
			b.WriteString(" (repeating: " + p.Key + "_1, " + p.Key + "_2, ...)")
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nReturn JSON: {\"fields\": [{\"key\": \"<key>\", \"value\": \"<value>\"}]}\n")

	if in.Coordinates {
		b.WriteString("\nThe document text carries coordinate markers in the form [text]<@page:x0,y0,x1,y1>.\n")
		b.WriteString("For every value, copy the bracketed text together with its marker exactly as it appears.\n")
		b.WriteString("Example: " + markerExample + "\n")
	}

	if hints := fieldHints(in); len(hints) > 0 {
		b.WriteString("\nField hints:\n")
		for _, h := range hints {
			b.WriteString("- " + h + "\n")
		}
	}

	b.WriteString("\nDocument:\n")
	b.WriteString(in.Text)
	return b.String()
}

// BuildSystemPrompt sets the persona, document type, described field list and numbered rules.
func BuildSystemPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are a document analysis expert. This is a " + in.DocumentType + ".\n")
	b.WriteString("Extract only the following fields, maintaining their exact keys:\n\n")
	for _, p := range in.Patterns {
		b.WriteString(describeField(p, in.Meta))
		b.WriteByte('\n')
	}

	rules := []string{
		"Use each key exactly as written above. Do not rename, reword or translate keys.",
		"A field may appear in the document under one of its alternative names; search for those too.",
		"Follow the extraction tip given for a field when one is present.",
		"Write parenthesized numbers as negatives without separators, e.g. (1,698,064) becomes -1698064.",
		"For repeating items, identify all instances and number them sequentially (Key_1, Key_2, ...).",
		"Omit fields that are not present in the document. Never invent values.",
	}
	if in.Coordinates {
		rules = append(rules,
			"The document text carries coordinate markers [text]<@page:x0,y0,x1,y1>. Keep the bracketed text and its marker exactly as they appear in each value. "+markerExample)
	}
	rules = append(rules, `Return a JSON object {"fields": [{"key": ..., "value": ...}]} and nothing else.`)

	b.WriteString("\nInstructions:\n")
	for i, r := range rules {
		b.WriteString(strconv.Itoa(i+1) + ". " + r + "\n")
	}
	return b.String()
}

// BuildUserPrompt carries the document text.
func BuildUserPrompt(in PromptInput) string {
	return "Extract the specified fields from this document:\n\n" + in.Text
}

func describeField(p schema.Pattern, meta schema.Metadata) string {
	line := "- " + p.Key
	if p.Repeating {
		line += ": Look for multiple instances, numbered sequentially"
	}
	alt, rule := meta.PatternHints(p)
	if alt != "" {
		line += " (also known as: " + alt + ")"
	}
	if rule != "" {
		line += " [Tip: " + rule + "]"
	}
	return line
}

func fieldHints(in PromptInput) []string {
	var out []string
	for _, p := range in.Patterns {
		var parts []string
		alt, rule := in.Meta.PatternHints(p)
		if alt != "" {
			parts = append(parts, "alternative names: "+alt)
		}
		if rule != "" {
			parts = append(parts, "rule: "+rule)
		}
		if len(parts) > 0 {
			out = append(out, p.Key+": "+strings.Join(parts, "; "))
		}
	}
	return out
}
