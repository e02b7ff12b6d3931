package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/patcher"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/ignore"
	"github.com/CairBin/sc2replay-autofix/internal/watchers/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func brokenReplay() []byte {
	data := make([]byte, 256)
	copy(data[16:], patcher.Signature[:])
	return data
}

func fastOptions() Options {
	return Options{
		PollInterval: 20 * time.Millisecond,
		Debounce:     10 * time.Millisecond,
	}
}

// runWatcher runs w until the test ends
func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		w.Wait()
	})
}

func newTestWatcher(t *testing.T, dir string, opts Options, reg *registry.Registry) *Watcher {
	t.Helper()
	if reg == nil {
		reg = registry.New(zap.NewNop())
	}
	w, err := NewWatcher(dir, opts, reg, patcher.New(zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	return w
}

func TestWatcher_DirectoryCreatedLater(t *testing.T) {
	for _, mode := range []string{ModePoll, ModeNotify} {
		t.Run(mode, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "Replays", "Multiplayer")
			opts := fastOptions()
			opts.Mode = mode

			w := newTestWatcher(t, dir, opts, nil)
			runWatcher(t, w)

			time.Sleep(50 * time.Millisecond)
			require.NoError(t, os.MkdirAll(dir, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "first.SC2Replay"), brokenReplay(), 0644))

			assert.Eventually(t, func() bool {
				_, err := os.Stat(filepath.Join(dir, "first-FIXED.SC2Replay"))
				return err == nil
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestNewWatcher_UnlistablePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.SC2Replay")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	w, err := NewWatcher(file, Options{Mode: ModeNotify}, registry.New(zap.NewNop()), patcher.New(zap.NewNop()), nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, file, w.Dir())
	assert.False(t, w.readable)
	assert.False(t, w.subscribed)
	assert.Empty(t, w.snapshot)
}

func TestWatcher_FixesNewReplay(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir, fastOptions(), nil)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.SC2Replay"), brokenReplay(), 0644))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "new-FIXED.SC2Replay"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresPreexistingAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.SC2Replay"), brokenReplay(), 0644))

	w := newTestWatcher(t, dir, fastOptions(), nil)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), brokenReplay(), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.SC2Replay"), 0755))

	time.Sleep(200 * time.Millisecond)

	assert.NoFileExists(t, filepath.Join(dir, "old-FIXED.SC2Replay"))
	assert.NoFileExists(t, filepath.Join(dir, "notes-FIXED.txt"))
}

func TestWatcher_IgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	opts := fastOptions()
	opts.Ignore = ignore.New("*vs AI*")

	reg := registry.New(zap.NewNop())
	w := newTestWatcher(t, dir, opts, reg)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Practice vs AI.SC2Replay"), brokenReplay(), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Ladder.SC2Replay"), brokenReplay(), 0644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "Ladder-FIXED.SC2Replay"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.NoFileExists(t, filepath.Join(dir, "Practice vs AI-FIXED.SC2Replay"))
}

func TestWatcher_SkipsClaimedPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "busy.SC2Replay")

	reg := registry.New(zap.NewNop())
	_, ok := reg.TryClaim(path)
	require.True(t, ok)

	w := newTestWatcher(t, dir, fastOptions(), reg)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(path, brokenReplay(), 0644))
	time.Sleep(200 * time.Millisecond)

	assert.NoFileExists(t, filepath.Join(dir, "busy-FIXED.SC2Replay"))
	assert.Equal(t, 1, reg.Len())
}

func TestWatcher_ReleasesClaimsWhenTasksEnd(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New(zap.NewNop())
	w := newTestWatcher(t, dir, fastOptions(), reg)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.SC2Replay"), brokenReplay(), 0644))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "a-FIXED.SC2Replay"))
		return err == nil && reg.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_NotifyMode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping notification test in short mode")
	}

	dir := t.TempDir()
	opts := fastOptions()
	opts.Mode = ModeNotify
	// polling alone would never fire within the test
	opts.PollInterval = time.Hour

	w := newTestWatcher(t, dir, opts, nil)
	runWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "live.SC2Replay"), brokenReplay(), 0644))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "live-FIXED.SC2Replay"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
