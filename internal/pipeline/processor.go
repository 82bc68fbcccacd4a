// Package pipeline drives documents through layout extraction, analysis, reconciliation and output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/output"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/reconcile"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/repository"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
)

// Analyzer is the completion-backed field analysis step.
type Analyzer interface {
	Analyze(ctx context.Context, req llm.AnalyzeRequest) (llm.Analysis, error)
	Config() llm.ClientConfig
}

// Options are the per-document switches.
type Options struct {
	Paths output.Paths
	// ValidationMode skips span extraction, coordinate markers and annotation.
	ValidationMode bool
	Coordinates    bool
}

// Outcome is what one document produced.
type Outcome struct {
	Result output.Result
	Stats  reconcile.Stats
	RunID  string
}

// Processor runs one document at a time through every stage. It holds no per-document state, so
// one Processor may serve concurrent workers.
type Processor struct {
	Logger     *slog.Logger
	Layout     layout.Extractor
	Template   schema.Template
	Meta       schema.Metadata
	Analyzer   Analyzer
	Reconciler *reconcile.Reconciler
	Writer     *output.Writer
	// Ledger is optional.
	Ledger repository.RunLedger
}

func NewProcessor(
	logger *slog.Logger,
	lx layout.Extractor,
	tmpl schema.Template,
	meta schema.Metadata,
	analyzer Analyzer,
	writer *output.Writer,
	ledger repository.RunLedger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:     logger,
		Layout:     lx,
		Template:   tmpl,
		Meta:       meta,
		Analyzer:   analyzer,
		Reconciler: reconcile.New(logger),
		Writer:     writer,
		Ledger:     ledger,
	}
}

// ProcessPDF extracts, analyzes, reconciles and writes one document. Nothing is written when any
// stage before the writer fails.
func (p *Processor) ProcessPDF(ctx context.Context, path string, opts Options) (Outcome, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()
	p.Logger.Info("pipeline.document.start", "req_id", rid, "path", path, "validation", opts.ValidationMode)

	runID := p.startRun(ctx, path)
	if runID != "" {
		ctx = common.WithRunID(ctx, runID)
	}

	out, err := p.guardedProcess(ctx, path, opts)
	out.RunID = runID
	if err != nil {
		p.Logger.Error("pipeline.document.failed",
			"req_id", rid, "path", path, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		p.failRun(ctx, runID, err)
		return out, err
	}

	p.finishRun(ctx, runID, out.Stats)
	p.Logger.Info("pipeline.document.ok",
		"req_id", rid,
		"path", path,
		"fields", out.Stats.Total,
		"located", out.Stats.Located(),
		"missed", out.Stats.Missed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// guardedProcess turns a panic in any stage into a failed document.
func (p *Processor) guardedProcess(ctx context.Context, path string, opts Options) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Outcome{}, fmt.Errorf("process %s: panic: %v", path, r)
		}
	}()
	return p.process(ctx, path, opts)
}

func (p *Processor) process(ctx context.Context, path string, opts Options) (Outcome, error) {
	rid := common.RequestIDFromContext(ctx)

	// 1) text, plus spans unless validating
	var doc layout.Document
	if opts.ValidationMode {
		text, err := p.Layout.ExtractText(ctx, path)
		if err != nil {
			return Outcome{}, layoutError(err)
		}
		doc.Text = text
	} else {
		d, err := p.Layout.Extract(ctx, path)
		if err != nil {
			return Outcome{}, layoutError(err)
		}
		doc = d
	}
	p.Logger.Debug("pipeline.layout.ok", "req_id", rid, "text_len", len(doc.Text), "spans", len(doc.Spans))

	// 2) schema split: filename fields never reach the model
	content, _ := p.Template.Partition()
	filename := schema.FilenameFields(p.Template, path)

	// 3) analysis
	analysis, err := p.Analyzer.Analyze(ctx, llm.AnalyzeRequest{
		Template:    content,
		Meta:        p.Meta,
		Text:        doc.Text,
		Spans:       doc.Spans,
		Coordinates: opts.Coordinates && !opts.ValidationMode,
	})
	if err != nil {
		return Outcome{}, err
	}

	// 4) reconciliation
	fields, stats := p.Reconciler.Reconcile(ctx, reconcile.Input{
		Template:       p.Template,
		Filename:       filename,
		Analysis:       analysis.Fields,
		Spans:          doc.Spans,
		ValidationMode: opts.ValidationMode,
		Coordinates:    opts.Coordinates,
	})

	docType := analysis.DocumentType
	if docType == "" {
		docType = p.Template.DocumentType
	}
	res := output.Result{DocumentType: docType, Fields: fields, TextContent: doc.Text}

	// 5) artifacts
	if err := p.Writer.Write(ctx, res, path, opts.Paths, opts.ValidationMode); err != nil {
		return Outcome{Result: res, Stats: stats}, err
	}
	return Outcome{Result: res, Stats: stats}, nil
}

func layoutError(err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return common.NewAppError(common.CodeLayout, "extract layout", err)
}

func (p *Processor) startRun(ctx context.Context, path string) string {
	if p.Ledger == nil {
		return ""
	}
	cfg := p.Analyzer.Config()
	run, err := p.Ledger.Start(ctx, path, cfg.Model, string(cfg.Strategy))
	if err != nil {
		p.Logger.Warn("pipeline.ledger.start_failed", "path", path, "error", err)
		return ""
	}
	return run.ID
}

func (p *Processor) finishRun(ctx context.Context, runID string, stats reconcile.Stats) {
	if p.Ledger == nil || runID == "" {
		return
	}
	if err := p.Ledger.Finish(ctx, runID, stats.Total, stats.Located()); err != nil {
		p.Logger.Warn("pipeline.ledger.finish_failed", "run_id", runID, "error", err)
	}
}

func (p *Processor) failRun(ctx context.Context, runID string, cause error) {
	if p.Ledger == nil || runID == "" {
		return
	}
	// the document context may already be dead; the ledger row should still close
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.Ledger.Fail(ctx, runID, fmt.Sprint(cause)); err != nil {
		p.Logger.Warn("pipeline.ledger.fail_failed", "run_id", runID, "error", err)
	}
}
