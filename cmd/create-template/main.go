package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/app"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
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
	fs := pflag.NewFlagSet("create-template", pflag.ContinueOnError)
	common.RegisterFlags(fs)
	out := fs.String("out", "", "template file to write (.json or .yaml, required)")

	cfg, err := common.LoadConfig(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return app.ExitOK
	}
	if err == nil && *out == "" {
		err = common.NewAppError(common.CodeConfig, "--out is required", common.ErrInvalidInput)
	}
	if err != nil {
		printError("Error: %v\n", err)
		return app.ExitCode(err)
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := app.TableSource(ctx, cfg.Schema, logger)
	if err != nil {
		printError("Error: %v\n", err)
		return app.ExitCode(err)
	}
	rows, err := src.Rows(ctx)
	if err != nil {
		logger.Error("failed to read workbook", "error", err)
		return app.ExitFailure
	}
	headers, err := schema.HeaderRowOf(rows)
	if err != nil {
		logger.Error("failed to find header row", "error", err)
		return app.ExitFailure
	}
	logger.Info("workbook headers read", "columns", len(headers))

	tmpl, err := schema.Generate(headers, cfg.Schema.DocumentType)
	if err != nil {
		logger.Error("failed to generate template", "error", err)
		return app.ExitFailure
	}
	if err := schema.WriteFile(*out, tmpl); err != nil {
		logger.Error("failed to write template", "path", *out, "error", err)
		return app.ExitFailure
	}

	fmt.Printf("Template created: %s\n", *out)
	fmt.Printf("- Document type: %s\n", tmpl.DocumentType)
	fmt.Printf("- Fields: %d\n", len(tmpl.Fields))
	return app.ExitOK
}
