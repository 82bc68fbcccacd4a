package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/app"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/coords"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run prints what the pipeline would see for one PDF: plain text, spans, or the coordinate-encoded
// text sent to the model.
func run(args []string) int {
	fs := pflag.NewFlagSet("inspect-pdf", pflag.ContinueOnError)
	common.RegisterFlags(fs)
	textOnly := fs.Bool("text-only", false, "skip span extraction, print plain text (validation-mode view)")
	spans := fs.Bool("spans", false, "print one line per span with its page and bbox")

	cfg, err := common.LoadConfig(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return app.ExitOK
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return app.ExitCode(err)
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	if fs.NArg() != 1 {
		logger.Error("usage", "cmd", "inspect-pdf [flags] <file.pdf>")
		return app.ExitConfig
	}
	path := fs.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	lx := app.NewLayout(cfg, logger)
	start := time.Now()

	if *textOnly {
		text, err := lx.ExtractText(ctx, path)
		if err != nil {
			logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
			return app.ExitFailure
		}
		fmt.Println(text)
		logger.Info("text extraction OK", "path", path, "bytes", len(text), "duration_ms", time.Since(start).Milliseconds())
		return app.ExitOK
	}

	doc, err := lx.Extract(ctx, path)
	if err != nil {
		logger.Error("layout extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return app.ExitFailure
	}
	if *spans {
		for _, s := range doc.Spans {
			fmt.Printf("p%d [%.1f %.1f %.1f %.1f] %.1fpt %q\n", s.Page+1, s.BBox[0], s.BBox[1], s.BBox[2], s.BBox[3], s.FontSize, s.Text)
		}
	} else {
		fmt.Println(coords.Encode(doc.Text, doc.Spans))
	}

	logger.Info("layout extraction OK",
		"path", path,
		"pages", len(doc.Pages),
		"spans", len(doc.Spans),
		"bytes", len(doc.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return app.ExitOK
}
