package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/app"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	repo "github.com/joseph-ayodele/pdf-field-extractor/internal/repository"
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
	fs := pflag.NewFlagSet("ledger", pflag.ContinueOnError)
	common.RegisterFlags(fs)
	file := fs.String("file", "", "print the latest run recorded for this PDF path")

	cfg, err := common.LoadConfig(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return app.ExitOK
	}
	if err == nil && cfg.Ledger.DSN == "" {
		err = common.NewAppError(common.CodeConfig, "--ledger-dsn is required", common.ErrInvalidInput)
	}
	if err != nil {
		printError("Error: %v\n", err)
		return app.ExitCode(err)
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		Driver:      cfg.Ledger.Driver,
		DSN:         cfg.Ledger.DSN,
		MaxConns:    2,
		DialTimeout: 3 * time.Second,
	}, logger)
	if err != nil {
		printError("opening ledger: %v\n", err)
		if errors.Is(err, common.ErrInvalidInput) {
			return app.ExitConfig
		}
		return app.ExitFailure
	}
	defer repo.Close(db, logger)

	if err := repo.HealthCheck(ctx, db, time.Second, logger); err != nil {
		printError("ledger health: FAIL (%v)\n", err)
		return app.ExitFailure
	}
	fmt.Println("ledger health: OK")

	if *file == "" {
		return app.ExitOK
	}
	run, err := repo.NewRunLedger(db, logger).Latest(ctx, *file)
	if errors.Is(err, common.ErrNotFound) {
		fmt.Printf("no runs recorded for %s\n", *file)
		return app.ExitFailure
	}
	if err != nil {
		printError("reading runs: %v\n", err)
		return app.ExitFailure
	}

	fmt.Printf("run %s\n", run.ID)
	fmt.Printf("- file:     %s\n", run.FilePath)
	fmt.Printf("- status:   %s\n", run.Status)
	fmt.Printf("- model:    %s (%s)\n", run.Model, run.Strategy)
	fmt.Printf("- fields:   %d located of %d\n", run.FieldsLocated, run.FieldsTotal)
	fmt.Printf("- started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Printf("- finished: %s (%s)\n", run.FinishedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt))
	}
	if run.ErrorMessage != "" {
		fmt.Printf("- error:    %s\n", run.ErrorMessage)
	}
	return app.ExitOK
}
