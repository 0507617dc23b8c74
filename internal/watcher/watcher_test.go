package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	w, err := New(path, logger, Options{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)
	return w
}

func TestWatcher_ReportsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexes.yaml")
	w := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("indexes: []\n"), 0o600))

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported for the watched file")
	}
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexes.yaml")
	w := startWatcher(t, path)

	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte("indexes: []\n"), 0o600))
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported for the watched file")
	}
	select {
	case <-w.Changes():
		t.Fatal("a burst of writes reported more than once")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, filepath.Join(dir, "indexes.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))

	select {
	case <-w.Changes():
		t.Fatal("change reported for an unwatched file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "gone", "indexes.yaml"), nil, Options{})
	assert.Error(t, err)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "indexes.yaml"), nil, Options{})
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestOptions_Defaults(t *testing.T) {
	var o Options
	o.setDefaults()
	assert.Equal(t, 200*time.Millisecond, o.SettleDelay)
}
