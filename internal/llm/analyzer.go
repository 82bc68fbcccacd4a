package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/coords"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
)

// AnalyzeRequest is one document. Template must already exclude filename fields.
type AnalyzeRequest struct {
	Template    schema.Template
	Meta        schema.Metadata
	Text        string
	Spans       []layout.Span
	Coordinates bool
}

// Analyzer renders the prompt for its configured strategy, calls the completer and parses the reply.
type Analyzer struct {
	cfg       ClientConfig
	completer Completer
	validator *FieldValidator
	log       *slog.Logger
}

func NewAnalyzer(cfg ClientConfig, completer Completer, validator *FieldValidator, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	if validator == nil {
		validator = MustFieldValidator()
	}
	return &Analyzer{cfg: cfg, completer: completer, validator: validator, log: log}
}

// Config returns the immutable client configuration.
func (a *Analyzer) Config() ClientConfig { return a.cfg }

// Analyze returns the raw fields for one document. Completion errors are returned; unusable
// completions degrade to an empty field list.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	out := Analysis{DocumentType: req.Template.DocumentType, TextContent: req.Text}
	patterns := req.Template.Patterns()
	if len(patterns) == 0 {
		a.log.Info("llm.analyze.no_fields", "req_id", rid)
		return out, nil
	}

	text := req.Text
	withMarkers := req.Coordinates && len(req.Spans) > 0
	if withMarkers {
		text = coords.Encode(req.Text, req.Spans)
	}

	a.log.Info("llm.analyze.start",
		"req_id", rid,
		"model", a.cfg.Model,
		"strategy", a.cfg.Strategy,
		"fields", len(patterns),
		"text_len", len(req.Text),
		"coordinates", withMarkers,
	)

	msgs := BuildMessages(a.cfg.Strategy, PromptInput{
		DocumentType: req.Template.DocumentType,
		Patterns:     patterns,
		Meta:         req.Meta,
		Text:         text,
		Coordinates:  withMarkers,
	})

	callCtx, cancel := common.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	content, err := a.completer.Complete(callCtx, CompletionRequest{
		Model:        a.cfg.Model,
		Messages:     msgs,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
		JSONResponse: true,
	})
	if err != nil {
		a.log.Error("llm.analyze.completion_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Analysis{}, common.NewAppError(common.CodeLLM, "completion failed", fmt.Errorf("%w: %w", common.ErrExternal, err))
	}

	rep := ParseResponse(content, a.validator)
	if rep.Err != nil {
		a.log.Warn("llm.analyze.parse_failed",
			"req_id", rid, "error", rep.Err, "content_len", len(content),
		)
	} else if rep.Recovered {
		a.log.Warn("llm.analyze.parse_recovered", "req_id", rid)
	}
	for _, s := range rep.Skipped {
		a.log.Warn("llm.analyze.field_skipped", "req_id", rid, "reason", s.Reason)
	}

	out.Fields = rep.Fields
	a.log.Info("llm.analyze.ok",
		"req_id", rid,
		"returned", len(rep.Fields),
		"skipped", len(rep.Skipped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
