package sys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", FormatDuration(0))
	assert.Equal(t, "0:00", FormatDuration(-time.Second))
	assert.Equal(t, "3:05", FormatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "1:02:03", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestParseTimestamp(t *testing.T) {
	valid := map[string]time.Duration{
		"90":       90 * time.Second,
		"1:30":     90 * time.Second,
		"01:02:03": time.Hour + 2*time.Minute + 3*time.Second,
		" 0:05 ":   5 * time.Second,
	}
	for in, want := range valid {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "1:60", "1:2:3:4", "-5", "1::2"} {
		_, err := ParseTimestamp(in)
		assert.ErrorIs(t, err, ErrBadTimestamp, in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "é", Truncate("éèê", 1))
}
