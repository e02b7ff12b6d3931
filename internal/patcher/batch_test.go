package patcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestFixDirectory(t *testing.T) {
	dir := t.TempDir()
	writeReplay(t, dir, "a.SC2Replay", replayBytes(200, 10))
	writeReplay(t, dir, "b.SC2Replay", replayBytes(200, 40))
	writeReplay(t, dir, "healthy.SC2Replay", replayBytes(200, -1))
	writeReplay(t, dir, "done-FIXED.SC2Replay", replayBytes(200, 10))
	writeReplay(t, dir, "readme.txt", replayBytes(200, 10))

	// nested replays are out of scope
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0755))
	writeReplay(t, nested, "c.SC2Replay", replayBytes(200, 10))

	err := New(zap.NewNop()).FixDirectory(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "a-FIXED.SC2Replay"))
	assert.FileExists(t, filepath.Join(dir, "b-FIXED.SC2Replay"))
	assert.NoFileExists(t, filepath.Join(dir, "healthy-FIXED.SC2Replay"))
	assert.NoFileExists(t, filepath.Join(dir, "done-FIXED-FIXED.SC2Replay"))
	assert.NoFileExists(t, filepath.Join(dir, "readme-FIXED.txt"))
	assert.NoFileExists(t, filepath.Join(nested, "c-FIXED.SC2Replay"))
}

func TestFixDirectory_ContinuesPastFailures(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	dir := t.TempDir()
	locked := writeReplay(t, dir, "locked.SC2Replay", replayBytes(200, 10))
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })
	writeReplay(t, dir, "ok.SC2Replay", replayBytes(200, 10))

	err := New(zap.NewNop()).FixDirectory(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.FileExists(t, filepath.Join(dir, "ok-FIXED.SC2Replay"))
}

func TestFixDirectory_Missing(t *testing.T) {
	err := New(zap.NewNop()).FixDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFixDirectories(t *testing.T) {
	root := t.TempDir()

	healthy := filepath.Join(root, "healthy")
	broken := filepath.Join(root, "broken")
	require.NoError(t, os.Mkdir(healthy, 0755))
	require.NoError(t, os.Mkdir(broken, 0755))
	writeReplay(t, healthy, "x.SC2Replay", replayBytes(100, 3))
	writeReplay(t, healthy, "y.SC2Replay", replayBytes(100, -1))
	writeReplay(t, broken, "z.SC2Replay", replayBytes(100, 3))
	missing := filepath.Join(root, "missing")

	t.Run("all healthy", func(t *testing.T) {
		err := New(zap.NewNop()).FixDirectories([]string{healthy, broken})
		assert.NoError(t, err)
	})

	t.Run("missing directory is skipped", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(broken, "z-FIXED.SC2Replay")))

		err := New(zap.NewNop()).FixDirectories([]string{missing, broken})
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(broken, "z-FIXED.SC2Replay"))
	})

	t.Run("unreadable directory", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(broken, "z-FIXED.SC2Replay")))
		notDir := filepath.Join(healthy, "y.SC2Replay")

		err := New(zap.NewNop()).FixDirectories([]string{notDir, broken})
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 1)
		assert.Contains(t, err.Error(), notDir)

		// the directory after the failing one was still processed
		assert.FileExists(t, filepath.Join(broken, "z-FIXED.SC2Replay"))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.NoError(t, New(zap.NewNop()).FixDirectories(nil))
	})
}

type setClaimer struct {
	mu      sync.Mutex
	held    map[string]bool
	claimed []string
}

func newSetClaimer(held ...string) *setClaimer {
	c := &setClaimer{held: map[string]bool{}}
	for _, path := range held {
		c.held[path] = true
	}
	return c
}

func (c *setClaimer) Claim(path string) (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[path] {
		return nil, false
	}
	c.held[path] = true
	c.claimed = append(c.claimed, path)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.held, path)
	}, true
}

func TestFixDirectory_SkipsClaimedReplays(t *testing.T) {
	dir := t.TempDir()
	busy := writeReplay(t, dir, "busy.SC2Replay", replayBytes(200, 10))
	free := writeReplay(t, dir, "free.SC2Replay", replayBytes(200, 10))

	claimer := newSetClaimer(busy)
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything).Return(nil)
	p := New(zap.NewNop(), WithClaimer(claimer), WithRecorder(rec))

	require.NoError(t, p.FixDirectory(dir))

	assert.NoFileExists(t, OutputPath(busy))
	assert.FileExists(t, OutputPath(free))
	assert.Equal(t, []string{free}, claimer.claimed)
	rec.AssertNumberOfCalls(t, "Record", 1)

	// claims taken by the pass are released, the foreign one stays
	assert.Equal(t, map[string]bool{busy: true}, claimer.held)
}

func TestFixDirectory_SkipExisting(t *testing.T) {
	dir := t.TempDir()
	replay := writeReplay(t, dir, "game.SC2Replay", replayBytes(200, 10))

	rec := new(mockRecorder)
	rec.On("Record", mock.Anything).Return(nil)
	p := New(zap.NewNop(), WithSkipExisting(), WithRecorder(rec))

	require.NoError(t, p.FixDirectory(dir))
	first, err := os.Stat(OutputPath(replay))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.FixDirectory(dir))
	require.NoError(t, p.FixDirectory(dir))

	second, err := os.Stat(OutputPath(replay))
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime())
	rec.AssertNumberOfCalls(t, "Record", 1)

	// without the option every pass rewrites the output
	out, err := New(zap.NewNop()).Fix(replay)
	require.NoError(t, err)
	assert.Equal(t, OutputPath(replay), out)
}
