package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/async"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/ingest"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/output"
)

// DocumentProcessor is satisfied by *Processor.
type DocumentProcessor interface {
	ProcessPDF(ctx context.Context, path string, opts Options) (Outcome, error)
}

// BatchOptions apply to every document of a run.
type BatchOptions struct {
	InputRoot      string
	OutputRoot     string
	SkipExisting   bool
	SkipHidden     bool
	Annotate       bool
	ValidationMode bool
	Coordinates    bool
	Workers        int
	QueueSize      int
	DocTimeout     time.Duration
	WatchSettle    time.Duration
}

// Stats counts batch outcomes. Total = Processed + Skipped + Failed once a run returns.
type Stats struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

// Failure pairs a document with the error that stopped it.
type Failure struct {
	Path string
	Err  error
}

type Batch struct {
	proc DocumentProcessor
	opts BatchOptions
	log  *slog.Logger

	mu       sync.Mutex
	stats    Stats
	failures []Failure
}

func NewBatch(proc DocumentProcessor, opts BatchOptions, log *slog.Logger) *Batch {
	if log == nil {
		log = slog.Default()
	}
	return &Batch{proc: proc, opts: opts, log: log}
}

// Failures returns the documents that failed during the last run.
func (b *Batch) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Failure(nil), b.failures...)
}

// Run processes every PDF under the input root once. One document failing never stops the others.
func (b *Batch) Run(ctx context.Context) (Stats, error) {
	b.reset()
	start := time.Now()

	paths, _, err := ingest.ScanDirectory(ctx, b.opts.InputRoot, b.opts.SkipHidden, b.log)
	if err != nil {
		return Stats{}, err
	}
	b.log.Info("pipeline.batch.start", "input", b.opts.InputRoot, "documents", len(paths), "workers", b.workers())

	q := b.newQueue(ctx)
	for _, p := range paths {
		if err := b.submit(ctx, q, p); err != nil {
			b.log.Warn("pipeline.batch.aborted", "error", err)
			break
		}
	}
	q.Shutdown(context.WithoutCancel(ctx))

	stats := b.snapshot()
	b.log.Info("pipeline.batch.done",
		"total", stats.Total,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stats, ctx.Err()
}

// Watch processes existing PDFs, then every PDF that appears under the input root, until ctx ends.
func (b *Batch) Watch(ctx context.Context) (Stats, error) {
	b.reset()
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{b.opts.InputRoot},
		InitialScan: true,
		Debounce:    b.opts.WatchSettle,
		SkipHidden:  b.opts.SkipHidden,
	}, b.log)
	if err != nil {
		return Stats{}, err
	}

	q := b.newQueue(ctx)
	b.consume(ctx, q, events, errs)
	q.Shutdown(context.WithoutCancel(ctx))

	stats := b.snapshot()
	b.log.Info("pipeline.watch.stopped", "processed", stats.Processed, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func (b *Batch) consume(ctx context.Context, q async.Queue, events <-chan string, errs <-chan error) {
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return
			}
			if err := b.submit(ctx, q, p); err != nil {
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.log.Warn("pipeline.watch.error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Batch) newQueue(ctx context.Context) *async.WorkerQueue {
	return async.NewWorkerQueue(b.handle, b.log,
		async.WithWorkers(b.workers()),
		async.WithQueueSize(b.opts.QueueSize),
		async.WithProcessTimeout(b.opts.DocTimeout),
		async.WithBaseContext(ctx),
	)
}

func (b *Batch) workers() int {
	if b.opts.Workers <= 0 {
		return 1
	}
	return b.opts.Workers
}

// submit counts the document and either skips it or hands it to the queue.
func (b *Batch) submit(ctx context.Context, q async.Queue, path string) error {
	paths, err := b.pathsFor(path)
	if err != nil {
		b.record(path, err)
		return nil
	}
	if b.opts.SkipExisting && paths.Done(paths.Annotated != "") {
		b.log.Info("pipeline.document.skipped", "path", path, "json", paths.JSON)
		b.mu.Lock()
		b.stats.Total++
		b.stats.Skipped++
		b.mu.Unlock()
		return nil
	}
	if err := q.Enqueue(ctx, async.Job{Path: path}); err != nil {
		return err
	}
	return nil
}

// handle records every job exactly once, including jobs whose processor panics.
func (b *Batch) handle(ctx context.Context, job async.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("process %s: panic: %v", job.Path, r)
		}
		b.record(job.Path, err)
	}()
	paths, err := b.pathsFor(job.Path)
	if err != nil {
		return err
	}
	_, err = b.proc.ProcessPDF(ctx, job.Path, Options{
		Paths:          paths,
		ValidationMode: b.opts.ValidationMode,
		Coordinates:    b.opts.Coordinates,
	})
	return err
}

func (b *Batch) pathsFor(path string) (output.Paths, error) {
	paths, err := output.PathsFor(b.opts.InputRoot, b.opts.OutputRoot, path)
	if err != nil {
		return output.Paths{}, fmt.Errorf("output paths for %s: %w", path, err)
	}
	if !b.opts.Annotate || b.opts.ValidationMode {
		paths.Annotated = ""
	}
	return paths, nil
}

func (b *Batch) record(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Total++
	if err != nil {
		b.stats.Failed++
		b.failures = append(b.failures, Failure{Path: path, Err: err})
		return
	}
	b.stats.Processed++
}

func (b *Batch) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = Stats{}
	b.failures = nil
}

func (b *Batch) snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
