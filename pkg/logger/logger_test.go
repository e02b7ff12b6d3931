package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sc2fix.log")

	log, err := New(&LogConfig{
		Level:      "debug",
		OutputPath: path,
		MaxSize:    1,
		EnableJSON: true,
	})
	require.NoError(t, err)

	log.Info("replay fixed", OutcomeField(OutcomeSuccess))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"replay fixed"`)
	assert.Contains(t, string(data), `"outcome":"success"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sc2fix.log")

	log, err := New(&LogConfig{Level: "loud", OutputPath: path})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
