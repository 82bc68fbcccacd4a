package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/layout"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/output"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/reconcile"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/repository"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/schema"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeLayout struct {
	doc      layout.Document
	err      error
	mu       sync.Mutex
	full     int
	textOnly int
}

func (f *fakeLayout) Extract(context.Context, string) (layout.Document, error) {
	f.mu.Lock()
	f.full++
	f.mu.Unlock()
	return f.doc, f.err
}

func (f *fakeLayout) ExtractText(context.Context, string) (string, error) {
	f.mu.Lock()
	f.textOnly++
	f.mu.Unlock()
	return f.doc.Text, f.err
}

type fakeAnnotator struct {
	mu    sync.Mutex
	calls int
	panic bool
}

func (a *fakeAnnotator) Annotate(_ context.Context, _, dst, _ string, _ []reconcile.Field) error {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.panic {
		panic("importer: nil trailer")
	}
	return os.WriteFile(dst, []byte("%PDF-1.4 annotated"), 0o644)
}

type fakeLedger struct {
	mu       sync.Mutex
	started  []string
	finished map[string][2]int
	failed   map[string]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{finished: map[string][2]int{}, failed: map[string]string{}}
}

func (l *fakeLedger) Start(_ context.Context, filePath, _, _ string) (*repository.Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, filePath)
	return &repository.Run{ID: "run-" + filepath.Base(filePath), FilePath: filePath}, nil
}

func (l *fakeLedger) Finish(_ context.Context, runID string, total, located int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished[runID] = [2]int{total, located}
	return nil
}

func (l *fakeLedger) Fail(_ context.Context, runID, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[runID] = message
	return nil
}

func (l *fakeLedger) Latest(context.Context, string) (*repository.Run, error) {
	return nil, common.ErrNotFound
}

var invoiceTemplate = schema.Template{
	DocumentType: "Invoice",
	Fields: []schema.FieldTemplate{
		{Key: "File Name"},
		{Key: "Invoice Number"},
		{Key: "Total"},
	},
}

var invoiceDoc = layout.Document{
	Text: "Invoice No: INV-001\nTotal $5.00",
	Spans: []layout.Span{
		{Page: 0, BBox: layout.BBox{10, 20, 100, 32}, Text: "Invoice No: INV-001", FontSize: 12},
		{Page: 0, BBox: layout.BBox{10, 40, 60, 52}, Text: "Total $5.00", FontSize: 12},
	},
}

type harness struct {
	proc      *Processor
	layout    *fakeLayout
	annotator *fakeAnnotator
	ledger    *fakeLedger
	mu        sync.Mutex
	requests  []llm.CompletionRequest
}

func newHarness(t *testing.T, reply string, completionErr error) *harness {
	t.Helper()
	h := &harness{
		layout:    &fakeLayout{doc: invoiceDoc},
		annotator: &fakeAnnotator{},
		ledger:    newFakeLedger(),
	}
	completer := llm.CompleterFunc(func(_ context.Context, req llm.CompletionRequest) (string, error) {
		h.mu.Lock()
		h.requests = append(h.requests, req)
		h.mu.Unlock()
		return reply, completionErr
	})
	analyzer := llm.NewAnalyzer(llm.ClientConfig{
		Model:     "gpt-4o-mini",
		Strategy:  constants.StrategyBase,
		MaxTokens: 512,
	}, completer, nil, quietLogger())
	h.proc = NewProcessor(quietLogger(), h.layout, invoiceTemplate, schema.Metadata{}, analyzer,
		output.NewWriter(h.annotator, quietLogger()), h.ledger)
	return h
}

const invoiceReply = `{"fields":[
	{"key":"Invoice Number","value":"INV-001"},
	{"key":"Total","value":"[$5.00]<@0:10.0,40.0,60.0,52.0>"}
]}`

func testPaths(t *testing.T, name string) output.Paths {
	t.Helper()
	out := t.TempDir()
	return output.Paths{
		Dir:       out,
		JSON:      filepath.Join(out, name+constants.ResultSuffix),
		Annotated: filepath.Join(out, name+constants.AnnotatedSuffix),
	}
}

func TestProcessPDF(t *testing.T) {
	h := newHarness(t, invoiceReply, nil)
	paths := testPaths(t, "march_invoice")

	got, err := h.proc.ProcessPDF(context.Background(), "in/march_invoice.pdf", Options{Paths: paths, Coordinates: true})
	require.NoError(t, err)

	fields := got.Result.Fields
	require.Len(t, fields, 3)

	assert.Equal(t, "File Name", fields[0].Key)
	assert.Equal(t, "march_invoice", fields[0].Value)
	assert.Nil(t, fields[0].Page)
	assert.Nil(t, fields[0].BBox)

	assert.Equal(t, "INV-001", fields[1].Value)
	require.NotNil(t, fields[1].Page)
	assert.Equal(t, 0, *fields[1].Page)
	assert.Equal(t, layout.BBox{10, 20, 100, 32}, *fields[1].BBox)

	assert.Equal(t, "$5.00", fields[2].Value)
	assert.Equal(t, reconcile.SourceMarker, fields[2].Source)

	assert.Equal(t, 3, got.Stats.Total)
	assert.Equal(t, 2, got.Stats.Located())
	assert.Equal(t, "run-march_invoice.pdf", got.RunID)

	// filename fields never reach the model; markers were requested
	require.Len(t, h.requests, 1)
	prompt := h.requests[0].Messages[0].Content
	assert.NotContains(t, prompt, "File Name")
	var all string
	for _, m := range h.requests[0].Messages {
		all += m.Content
	}
	assert.Contains(t, all, "=== DOCUMENT WITH COORDINATE MARKERS ===")

	written, err := output.ReadJSON(paths.JSON)
	require.NoError(t, err)
	assert.Equal(t, "Invoice", written.DocumentType)
	assert.Len(t, written.Fields, 3)
	assert.Equal(t, 1, h.annotator.calls)
	assert.Equal(t, [2]int{3, 2}, h.ledger.finished["run-march_invoice.pdf"])
	assert.Equal(t, 1, h.layout.full)
}

func TestProcessPDF_ValidationMode(t *testing.T) {
	h := newHarness(t, invoiceReply, nil)
	paths := testPaths(t, "v")

	got, err := h.proc.ProcessPDF(context.Background(), "v.pdf", Options{Paths: paths, ValidationMode: true, Coordinates: true})
	require.NoError(t, err)

	for _, f := range got.Result.Fields {
		assert.Nil(t, f.Page, f.Key)
		assert.Nil(t, f.BBox, f.Key)
	}
	// no position is derived from a marker the model echoes anyway
	assert.Equal(t, "[$5.00]<@0:10.0,40.0,60.0,52.0>", got.Result.Fields[2].Value)
	assert.Equal(t, 0, h.layout.full)
	assert.Equal(t, 1, h.layout.textOnly)
	assert.Equal(t, 0, h.annotator.calls)
	assert.NoFileExists(t, paths.Annotated)
	assert.FileExists(t, paths.JSON)

	for _, m := range h.requests[0].Messages {
		assert.NotContains(t, m.Content, "COORDINATE MARKERS")
	}
}

func TestProcessPDF_MalformedCompletionStillWritesResult(t *testing.T) {
	h := newHarness(t, "I could not find anything useful, sorry.", nil)
	paths := testPaths(t, "d")

	got, err := h.proc.ProcessPDF(context.Background(), "d.pdf", Options{Paths: paths})
	require.NoError(t, err)

	require.Len(t, got.Result.Fields, 1)
	assert.Equal(t, "File Name", got.Result.Fields[0].Key)
	assert.FileExists(t, paths.JSON)
}

func TestProcessPDF_CompletionErrorFailsRunWithoutOutput(t *testing.T) {
	h := newHarness(t, "", errors.New("429 too many requests"))
	paths := testPaths(t, "e")

	_, err := h.proc.ProcessPDF(context.Background(), "e.pdf", Options{Paths: paths})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExternal)

	assert.NoFileExists(t, paths.JSON)
	assert.Contains(t, h.ledger.failed["run-e.pdf"], "429")
}

func TestProcessPDF_LayoutError(t *testing.T) {
	h := newHarness(t, invoiceReply, nil)
	h.layout.err = errors.New("xref table broken")

	_, err := h.proc.ProcessPDF(context.Background(), "x.pdf", Options{Paths: testPaths(t, "x")})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeLayout, appErr.Code)
	assert.Empty(t, h.requests)
}

func TestProcessPDF_AnnotatorPanicFailsRun(t *testing.T) {
	h := newHarness(t, invoiceReply, nil)
	h.annotator.panic = true

	var err error
	assert.NotPanics(t, func() {
		_, err = h.proc.ProcessPDF(context.Background(), "p.pdf", Options{Paths: testPaths(t, "p"), Coordinates: true})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Contains(t, h.ledger.failed["run-p.pdf"], "panic")
	assert.NotContains(t, h.ledger.finished, "run-p.pdf")
}

type scriptedProcessor struct {
	mu     sync.Mutex
	seen   []string
	fail   map[string]bool
	panics map[string]bool
	write  bool
}

func (s *scriptedProcessor) ProcessPDF(_ context.Context, path string, opts Options) (Outcome, error) {
	s.mu.Lock()
	s.seen = append(s.seen, path)
	s.mu.Unlock()
	if s.panics[filepath.Base(path)] {
		panic("nil pointer dereference")
	}
	if s.fail[filepath.Base(path)] {
		return Outcome{}, errors.New("boom")
	}
	if s.write {
		if err := output.WriteJSON(opts.Paths.JSON, output.Result{DocumentType: "x"}); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{}, nil
}

func writePDF(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))
}

func TestBatchRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writePDF(t, filepath.Join(in, "a.pdf"))
	writePDF(t, filepath.Join(in, "b.pdf"))
	writePDF(t, filepath.Join(in, "q1", "c.pdf"))
	writePDF(t, filepath.Join(in, "done.pdf"))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0o644))

	// done.pdf already has its JSON result
	require.NoError(t, output.WriteJSON(filepath.Join(out, "done.json"), output.Result{DocumentType: "x"}))

	proc := &scriptedProcessor{fail: map[string]bool{"b.pdf": true}, write: true}
	b := NewBatch(proc, BatchOptions{
		InputRoot:    in,
		OutputRoot:   out,
		SkipExisting: true,
		Workers:      2,
	}, quietLogger())

	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Processed: 2, Skipped: 1, Failed: 1}, stats)
	assert.Len(t, proc.seen, 3)
	assert.FileExists(t, filepath.Join(out, "q1", "c.json"))

	require.Len(t, b.Failures(), 1)
	assert.Equal(t, filepath.Join(in, "b.pdf"), b.Failures()[0].Path)

	// second run skips everything that succeeded
	proc.seen = nil
	stats, err = b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Processed: 0, Skipped: 3, Failed: 1}, stats)
}

func TestBatchRun_AnnotatedOutputRequiredForSkip(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writePDF(t, filepath.Join(in, "a.pdf"))
	require.NoError(t, output.WriteJSON(filepath.Join(out, "a.json"), output.Result{DocumentType: "x"}))

	proc := &scriptedProcessor{}
	stats, err := NewBatch(proc, BatchOptions{
		InputRoot:    in,
		OutputRoot:   out,
		SkipExisting: true,
		Annotate:     true,
	}, quietLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Skipped)
}

func TestBatchRun_MissingInput(t *testing.T) {
	_, err := NewBatch(&scriptedProcessor{}, BatchOptions{
		InputRoot:  filepath.Join(t.TempDir(), "missing"),
		OutputRoot: t.TempDir(),
	}, quietLogger()).Run(context.Background())
	assert.Error(t, err)
}

func TestBatchRun_PanickingDocumentIsCounted(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writePDF(t, filepath.Join(in, "ok.pdf"))
	writePDF(t, filepath.Join(in, "bad.pdf"))

	b := NewBatch(&scriptedProcessor{panics: map[string]bool{"bad.pdf": true}}, BatchOptions{
		InputRoot:  in,
		OutputRoot: out,
		Workers:    2,
	}, quietLogger())
	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Processed: 1, Failed: 1}, stats)

	require.Len(t, b.Failures(), 1)
	assert.Equal(t, filepath.Join(in, "bad.pdf"), b.Failures()[0].Path)
	assert.Contains(t, b.Failures()[0].Err.Error(), "panic")
}
