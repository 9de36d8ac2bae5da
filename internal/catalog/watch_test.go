package catalog

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingScanner struct {
	calls atomic.Int32
}

func (c *countingScanner) Scan(ctx context.Context) (ScanResult, error) {
	c.calls.Add(1)
	return ScanResult{}, nil
}

func TestWatcherRescansAfterChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	scanner := &countingScanner{}
	w := NewWatcher(root, scanner, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)

	write(t, filepath.Join(root, "Lost", "tvshow.nfo"), "<tvshow><title>Lost</title></tvshow>")
	require.Eventually(t, func() bool { return scanner.calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	// Files in a directory created after start are watched too.
	before := scanner.calls.Load()
	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(root, "Lost", "poster.jpg"), "jpeg")
	require.Eventually(t, func() bool { return scanner.calls.Load() > before }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherMissingRoot(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), &countingScanner{}, 0, nil)
	assert.Equal(t, defaultDebounce, w.debounce)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// WalkDir reports the missing root to the callback, which skips it, so
	// Run simply idles until the context ends.
	assert.NoError(t, w.Run(ctx))
}
