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
	"github.com/joseph-ayodele/pdf-field-extractor/internal/tablesync"
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
	fs := pflag.NewFlagSet("sync-fields", pflag.ContinueOnError)
	common.RegisterFlags(fs)
	results := fs.String("results", "", "directory of extraction JSON results (defaults to --output)")

	cfg, err := common.LoadConfig(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return app.ExitOK
	}
	if err != nil {
		printError("Error: %v\n", err)
		return app.ExitCode(err)
	}
	if *results == "" {
		*results = cfg.Output.Dir
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := app.TableSource(ctx, cfg.Schema, logger)
	if err != nil {
		printError("Error: %v\n", err)
		return app.ExitCode(err)
	}

	paths, err := tablesync.FindResults(*results)
	if err != nil {
		logger.Error("failed to list results", "dir", *results, "error", err)
		return app.ExitFailure
	}
	logger.Info("syncing results", "dir", *results, "files", len(paths))

	stats, err := tablesync.New(src, logger).Sync(ctx, paths)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return app.ExitFailure
	}

	fmt.Printf("Sync complete!\n")
	fmt.Printf("- Results:  %d\n", stats.Total)
	fmt.Printf("- Appended: %d\n", stats.Appended)
	fmt.Printf("- Skipped:  %d\n", stats.Skipped)
	fmt.Printf("- Failed:   %d\n", stats.Failed)
	if stats.Failed > 0 {
		return app.ExitFailure
	}
	return app.ExitOK
}
