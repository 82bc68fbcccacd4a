package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/app"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("pdf-extract", pflag.ContinueOnError)
	common.RegisterFlags(fs)
	input := fs.String("input", "", "PDF file or directory to process (required)")
	skipHidden := fs.Bool("skip-hidden", true, "ignore dot-files and dot-directories")

	cfg, err := common.LoadConfig(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return app.ExitOK
	}
	if err == nil && *input == "" {
		err = common.NewAppError(common.CodeConfig, "--input is required", common.ErrInvalidInput)
	}
	if err == nil {
		err = cfg.ValidateSchemaSource()
	}
	if err == nil {
		err = cfg.ValidateLLM()
	}
	if err != nil {
		printError("Error: %v\n", err)
		return app.ExitCode(err)
	}
	if _, err := os.Stat(*input); err != nil {
		printError("Error: input %s: %v\n", *input, err)
		return app.ExitConfig
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tmpl, meta, err := app.LoadSchema(ctx, cfg.Schema, logger)
	if err != nil {
		logger.Error("failed to load schema", "error", err)
		return app.ExitCode(err)
	}

	completer, closeCache, err := app.NewCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build completion client", "error", err)
		return app.ExitCode(err)
	}
	defer closeCache()

	ledger, closeLedger, err := app.OpenLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.Error("failed to open run ledger", "error", err)
		return app.ExitCode(err)
	}
	defer closeLedger()

	lx := app.NewLayout(cfg, logger)
	proc := pipeline.NewProcessor(logger, lx, tmpl, meta,
		app.NewAnalyzer(cfg.LLM, completer, logger),
		app.NewWriter(lx, logger),
		ledger,
	)
	batch := pipeline.NewBatch(proc, pipeline.BatchOptions{
		InputRoot:      *input,
		OutputRoot:     cfg.Output.Dir,
		SkipExisting:   cfg.Output.SkipExisting,
		SkipHidden:     *skipHidden,
		Annotate:       cfg.Output.Annotate,
		ValidationMode: cfg.ValidationMode,
		Coordinates:    cfg.LLM.Coordinates,
		Workers:        cfg.Batch.Workers,
		QueueSize:      cfg.Batch.QueueSize,
		DocTimeout:     cfg.Batch.DocTimeout,
		WatchSettle:    cfg.Batch.WatchSettle,
	}, logger)

	logger.Info("pdf-extract starting",
		"input", *input,
		"output", cfg.Output.Dir,
		"model", cfg.LLM.Model,
		"strategy", cfg.LLM.Strategy,
		"document_type", tmpl.DocumentType,
		"fields", len(tmpl.Fields),
		"validation", cfg.ValidationMode,
		"watch", cfg.Batch.Watch,
	)

	var stats pipeline.Stats
	if cfg.Batch.Watch {
		stats, err = batch.Watch(ctx)
	} else {
		stats, err = batch.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "error", err)
		return app.ExitFailure
	}

	fmt.Printf("Extraction complete!\n")
	fmt.Printf("- Documents: %d\n", stats.Total)
	fmt.Printf("- Processed: %d\n", stats.Processed)
	fmt.Printf("- Skipped:   %d\n", stats.Skipped)
	fmt.Printf("- Failed:    %d\n", stats.Failed)
	fmt.Printf("- Output:    %s\n", cfg.Output.Dir)
	for _, f := range batch.Failures() {
		printError("  %s: %v\n", f.Path, f.Err)
	}
	if stats.Failed > 0 {
		return app.ExitFailure
	}
	return app.ExitOK
}
