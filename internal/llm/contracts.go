// Package llm turns document text into {key,value} field lists through a chat-completion model.
package llm

import (
	"context"
	"time"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one chat-completion call. JSONResponse asks the provider for a JSON object.
type CompletionRequest struct {
	Model        string    `json:"model"`
	Messages     []Message `json:"messages"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	JSONResponse bool      `json:"json_response"`
}

// Completer is the completion capability the analyzer depends on.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// Field is a raw {key,value} pair as returned by the model. Value may embed a coordinate marker.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Analysis is the analyzer's output for one document.
type Analysis struct {
	DocumentType string
	Fields       []Field
	TextContent  string
}

// ClientConfig is fixed at construction; nothing changes it per call.
type ClientConfig struct {
	Model       string
	Strategy    constants.ModelStrategy
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}
