// Package anthropic adapts the Messages API to llm.Completer.
package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096
)

var errEmptyContent = errors.New("no text content in anthropic response")

// Config for the Anthropic client.
type Config struct {
	APIKey     string // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements llm.Completer.
type Client struct {
	api sdk.Client
	log *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{api: sdk.NewClient(opts...), log: logger}
}

// Complete maps system messages to the system prompt and concatenates the text blocks of the reply.
// The API has no JSON-object mode; the prompt already asks for JSON only.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(model),
		MaxTokens:   maxTokens,
		Temperature: sdk.Float(req.Temperature),
	}
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
			continue
		}
		params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
	}

	c.log.Debug("llm.anthropic.request", "req_id", rid, "model", model, "messages", len(params.Messages))
	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		c.log.Error("llm.anthropic.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errEmptyContent
	}
	c.log.Debug("llm.anthropic.ok",
		"req_id", rid,
		"stop_reason", resp.StopReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(b.String()), nil
}
