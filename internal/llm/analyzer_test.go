package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/coords"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
)

type recordingCompleter struct {
	reply string
	err   error
	calls []CompletionRequest
}

func (r *recordingCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	r.calls = append(r.calls, req)
	return r.reply, r.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func invoiceRequest(coordinates bool) AnalyzeRequest {
	return AnalyzeRequest{
		Template: schema.Template{DocumentType: "Invoice", Fields: []schema.FieldTemplate{{Key: "Invoice Number"}}},
		Text:     "Invoice Number: INV-001",
		Spans: []layout.Span{
			{Page: 0, BBox: layout.BBox{10, 10, 50, 20}, Text: "INV-001"},
		},
		Coordinates: coordinates,
	}
}

func newTestAnalyzer(c Completer, strategy constants.ModelStrategy) *Analyzer {
	return NewAnalyzer(ClientConfig{Model: "gpt-4o-mini", Strategy: strategy, MaxTokens: 512}, c, nil, quietLogger())
}

func TestAnalyze(t *testing.T) {
	rc := &recordingCompleter{reply: `{"fields":[{"key":"Invoice Number","value":"INV-001"}]}`}
	a := newTestAnalyzer(rc, constants.StrategyBase)

	got, err := a.Analyze(context.Background(), invoiceRequest(false))
	require.NoError(t, err)
	assert.Equal(t, "Invoice", got.DocumentType)
	assert.Equal(t, "Invoice Number: INV-001", got.TextContent)
	assert.Equal(t, []Field{{Key: "Invoice Number", Value: "INV-001"}}, got.Fields)

	require.Len(t, rc.calls, 1)
	req := rc.calls[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 512, req.MaxTokens)
	assert.True(t, req.JSONResponse)
	require.Len(t, req.Messages, 2)
	assert.NotContains(t, req.Messages[1].Content, coords.BannerStart)
}

func TestAnalyzeEncodesCoordinates(t *testing.T) {
	rc := &recordingCompleter{reply: `{"fields":[{"key":"Invoice Number","value":"[INV-001]<@0:10.0,10.0,50.0,20.0>"}]}`}
	a := newTestAnalyzer(rc, constants.StrategyFineTuned)

	got, err := a.Analyze(context.Background(), invoiceRequest(true))
	require.NoError(t, err)
	assert.Equal(t, "[INV-001]<@0:10.0,10.0,50.0,20.0>", got.Fields[0].Value)

	require.Len(t, rc.calls[0].Messages, 1)
	prompt := rc.calls[0].Messages[0].Content
	assert.Contains(t, prompt, coords.BannerStart)
	assert.Contains(t, prompt, "[INV-001]<@0:10.0,10.0,50.0,20.0>")
}

func TestAnalyzeCoordinatesWithoutSpans(t *testing.T) {
	rc := &recordingCompleter{reply: `{"fields":[]}`}
	req := invoiceRequest(true)
	req.Spans = nil

	_, err := newTestAnalyzer(rc, constants.StrategyBase).Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.NotContains(t, rc.calls[0].Messages[0].Content, "<@page:")
}

func TestAnalyzeMalformedCompletion(t *testing.T) {
	rc := &recordingCompleter{reply: "Sorry, I cannot help with that."}
	got, err := newTestAnalyzer(rc, constants.StrategyBase).Analyze(context.Background(), invoiceRequest(false))
	require.NoError(t, err)
	assert.Empty(t, got.Fields)
	assert.Equal(t, "Invoice", got.DocumentType)
}

func TestAnalyzeCompletionError(t *testing.T) {
	boom := errors.New("connection reset")
	rc := &recordingCompleter{err: boom}
	_, err := newTestAnalyzer(rc, constants.StrategyBase).Analyze(context.Background(), invoiceRequest(false))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExternal)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, common.CodeLLM, common.CodeOf(err))
}

func TestAnalyzeNoContentFields(t *testing.T) {
	rc := &recordingCompleter{}
	req := invoiceRequest(false)
	req.Template.Fields = nil
	got, err := newTestAnalyzer(rc, constants.StrategyBase).Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, got.Fields)
	assert.Empty(t, rc.calls)
}
