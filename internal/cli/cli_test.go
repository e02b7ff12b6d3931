package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CairBin/sc2replay-autofix/internal/config"
	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFunc func(*models.FixRecord) error

func (f recorderFunc) Record(rec *models.FixRecord) error { return f(rec) }

func TestTally(t *testing.T) {
	var forwarded int
	tl := newTally(recorderFunc(func(*models.FixRecord) error {
		forwarded++
		return nil
	}))

	require.NoError(t, tl.Record(models.NewFixRecord(models.SourceBatch, "/a", models.OutcomeFixed)))
	require.NoError(t, tl.Record(models.NewFixRecord(models.SourceBatch, "/b", models.OutcomeFixed)))
	require.NoError(t, tl.Record(models.NewFixRecord(models.SourceBatch, "/c", models.OutcomeIOFailure).WithError(errors.New("denied"))))
	require.NoError(t, tl.Record(models.NewFixRecord(models.SourceBatch, "/d", models.OutcomePatternNotFound)))

	assert.Equal(t, 2, tl.counts[models.OutcomeFixed])
	assert.Equal(t, 1, tl.counts[models.OutcomePatternNotFound])
	require.Len(t, tl.failed, 1)
	assert.Equal(t, "/c", tl.failed[0].Path)
	assert.Equal(t, 4, forwarded)

	assert.NoError(t, newTally(nil).Record(models.NewFixRecord(models.SourceBatch, "/e", models.OutcomeFixed)))
}

func TestTailLines(t *testing.T) {
	input := strings.Join([]string{"one", "two", "three", "four", "five"}, "\n")

	lines, err := tailLines(strings.NewReader(input), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"four", "five"}, lines)

	lines, err = tailLines(strings.NewReader(input), 10, func(l string) bool { return strings.Contains(l, "o") })
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "four"}, lines)

	lines, err = tailLines(strings.NewReader(input), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestLogFilter(t *testing.T) {
	console := "2026-03-01T12:00:00.000Z\tINFO\tpatcher/patcher.go:228\tReplay fixed\t{\"component\": \"patcher\", \"outcome\": \"success\"}"
	jsonLine := `{"level":"ERROR","msg":"Replay fix failed","outcome":"io_failure"}`

	assert.True(t, logFilter("", "")(console))
	assert.True(t, logFilter("info", "")(console))
	assert.False(t, logFilter("error", "")(console))
	assert.True(t, logFilter("", "success")(console))
	assert.True(t, logFilter("error", "io_failure")(jsonLine))
	assert.False(t, logFilter("", "success")(jsonLine))
}

func TestResolveDirs(t *testing.T) {
	base := t.TempDir()
	discovered := filepath.Join(base, "Accounts", "1", "2-S2-1-3", "Replays", "Multiplayer")
	require.NoError(t, os.MkdirAll(discovered, 0755))

	cfg := config.Default()
	cfg.SC2.BaseDir = base

	dirs, err := resolveDirs(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{discovered}, dirs)

	cfg.Watch.Dirs = []string{"/configured"}
	dirs, err = resolveDirs(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/configured"}, dirs)

	dirs, err = resolveDirs(cfg, []string{"/explicit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/explicit"}, dirs)
}

func TestCountReplays(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.SC2Replay", "b.SC2Replay", "a-FIXED.SC2Replay", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	replays, fixed := countReplays(dir)
	assert.Equal(t, 2, replays)
	assert.Equal(t, 1, fixed)
}
