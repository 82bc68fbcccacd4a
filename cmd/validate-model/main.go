package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/app"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/export"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/pipeline"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/tablesync"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/validation"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("validate-model", pflag.ContinueOnError)
	common.RegisterFlags(fs)
	input := fs.String("input", "", "directory of PDFs with known answers (required)")
	truthDir := fs.String("truth", "", "directory of ground-truth result JSON (defaults to the workbook data rows)")
	report := fs.String("report", "", "metrics workbook path (defaults to <output>/validation_metrics.xlsx)")
	errorLimit := fs.Int("error-limit", validation.DefaultErrorLimit, "error examples kept in the report")

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
	cfg.ValidationMode = true
	cfg.LLM.Coordinates = false
	cfg.Output.Annotate = false
	if *report == "" {
		*report = filepath.Join(cfg.Output.Dir, "validation_metrics.xlsx")
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	truth, err := loadTruth(ctx, cfg, *truthDir, logger)
	if err != nil {
		logger.Error("failed to load ground truth", "error", err)
		return app.ExitCode(err)
	}
	logger.Info("ground truth loaded", "documents", len(truth))

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

	lx := app.NewLayout(cfg, logger)
	proc := pipeline.NewProcessor(logger, lx, tmpl, meta,
		app.NewAnalyzer(cfg.LLM, completer, logger),
		app.NewWriter(lx, logger),
		nil,
	)
	batch := pipeline.NewBatch(proc, pipeline.BatchOptions{
		InputRoot:      *input,
		OutputRoot:     cfg.Output.Dir,
		SkipHidden:     true,
		ValidationMode: true,
		Workers:        cfg.Batch.Workers,
		QueueSize:      cfg.Batch.QueueSize,
		DocTimeout:     cfg.Batch.DocTimeout,
	}, logger)
	stats, err := batch.Run(ctx)
	if err != nil {
		logger.Error("validation run failed", "error", err)
		return app.ExitFailure
	}
	for _, f := range batch.Failures() {
		printError("  %s: %v\n", f.Path, f.Err)
	}

	paths, err := tablesync.FindResults(cfg.Output.Dir)
	if err != nil {
		logger.Error("failed to list predictions", "error", err)
		return app.ExitFailure
	}
	predicted, err := validation.ValuesFromResults(paths)
	if err != nil {
		logger.Error("failed to read predictions", "error", err)
		return app.ExitFailure
	}

	metrics := validation.Evaluate(truth, predicted, *errorLimit)
	fmt.Print(metrics.String())

	info := export.ReportInfo{
		Model:     cfg.LLM.Model,
		Strategy:  string(cfg.LLM.Strategy),
		InputDir:  *input,
		Generated: time.Now(),
	}
	if err := export.WriteMetricsReport(*report, metrics, info, logger); err != nil {
		logger.Error("failed to write metrics report", "error", err)
		return app.ExitFailure
	}
	fmt.Printf("\nDocuments processed: %d, failed: %d\n", stats.Processed, stats.Failed)
	fmt.Printf("Report: %s\n", *report)
	if stats.Failed > 0 {
		return app.ExitFailure
	}
	return app.ExitOK
}

// loadTruth reads expected values from result JSON files when dir is set, otherwise from the data
// rows of the configured workbook.
func loadTruth(ctx context.Context, cfg *common.Config, dir string, logger *slog.Logger) (validation.Values, error) {
	if dir != "" {
		paths, err := tablesync.FindResults(dir)
		if err != nil {
			return nil, err
		}
		return validation.ValuesFromResults(paths)
	}
	src, err := app.TableSource(ctx, cfg.Schema, logger)
	if err != nil {
		return nil, err
	}
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return validation.TruthFromRows(rows)
}
