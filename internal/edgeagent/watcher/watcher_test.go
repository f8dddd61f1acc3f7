package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	var fired atomic.Int64
	w := New(path, func(context.Context) { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()

	// Give the watcher a moment to register before touching the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	// Changes to sibling files never fire.
	before := fired.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b\n"), 0o644))
	time.Sleep(2 * debounce)
	assert.Equal(t, before, fired.Load())

	cancel()
	<-done
}
