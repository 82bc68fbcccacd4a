package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.PDF"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.pdf"))
	touch(t, filepath.Join(root, "sub", "c_annotated.pdf"))
	touch(t, filepath.Join(root, ".cache", "d.pdf"))

	paths, stats, err := ScanDirectory(context.Background(), root, true, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.PDF"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "c.pdf"),
	}, paths)
	assert.Equal(t, uint32(3), stats.Matched)

	paths, _, err = ScanDirectory(context.Background(), root, false, nil)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}

func TestScanDirectory_MissingRoot(t *testing.T) {
	_, _, err := ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), false, nil)
	assert.Error(t, err)

	_, _, err = ScanDirectory(context.Background(), "  ", false, nil)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.True(t, AllowedExt("x/y/Report.Pdf"))
	assert.False(t, AllowedExt("scan.png"))
	assert.True(t, IsHidden("/tmp/.x.pdf"))
	assert.False(t, IsHidden("."))
	assert.True(t, IsAnnotatedOutput("out/q1_annotated.pdf"))
	assert.False(t, IsAnnotatedOutput("out/q1.pdf"))
}

func TestStartWatcher_InitialScanAndCreate(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}

	assert.Equal(t, filepath.Join(root, "existing.pdf"), next())

	created := filepath.Join(root, "new.pdf")
	touch(t, created)
	touch(t, filepath.Join(root, "ignored.txt"))
	assert.Equal(t, created, next())

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
