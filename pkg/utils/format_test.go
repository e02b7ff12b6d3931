package utils

import (
	"testing"
	"time"

	"github.com/CairBin/sc2replay-autofix/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("30d")
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, d)

	d, err = ParseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = ParseDuration("xd")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{time.Hour + 5*time.Second, "1h 5s"},
		{26*time.Hour + 3*time.Minute, "1d 2h 3m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestTruncateLeft(t *testing.T) {
	assert.Equal(t, "short", TruncateLeft("short", 10))
	assert.Equal(t, "...game.SC2Replay", TruncateLeft("/very/long/path/to/game.SC2Replay", 17))
	assert.Equal(t, "lay", TruncateLeft("replay", 3))
}

func TestOutcomeIcon(t *testing.T) {
	assert.Equal(t, "✅", OutcomeIcon(models.OutcomeFixed))
	assert.Equal(t, "❌", OutcomeIcon(models.OutcomeIOFailure))
	assert.Equal(t, "❓", OutcomeIcon(models.Outcome("other")))
}
