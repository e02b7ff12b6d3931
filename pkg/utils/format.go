// Package utils provides formatting helpers for the sc2fix CLI
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CairBin/sc2replay-autofix/pkg/models"
)

// ParseDuration parses a duration string, additionally accepting a day
// suffix such as "30d"
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q: %w", s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// FormatDuration formats a duration in human-readable format
func FormatDuration(d time.Duration) string {
	days := d / (24 * time.Hour)
	d = d % (24 * time.Hour)
	hours := d / time.Hour
	d = d % time.Hour
	minutes := d / time.Minute
	d = d % time.Minute
	seconds := d / time.Second

	parts := []string{}

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	return strings.Join(parts, " ")
}

// TruncateLeft shortens s to maxLen by dropping its head, which keeps the
// file name of a long path visible
func TruncateLeft(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-(maxLen-3):]
}

// OutcomeIcon returns an icon for the given outcome
func OutcomeIcon(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeFixed:
		return "✅"
	case models.OutcomeAlreadyFixed:
		return "⏭️"
	case models.OutcomePatternNotFound:
		return "💚"
	case models.OutcomeInvalidFormat:
		return "⚠️"
	case models.OutcomeIOFailure:
		return "❌"
	case models.OutcomeCancelled:
		return "⏹️"
	default:
		return "❓"
	}
}
