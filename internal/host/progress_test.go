package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgressLine(t *testing.T) {
	p, ok := ParseProgressLine("[download]  45.0% of 123.45MiB at 1.23MiB/s ETA 00:12")
	require.True(t, ok)
	assert.Equal(t, 45.0, p.Percent)
	speed := 1.23 * 1024 * 1024
	assert.Equal(t, int64(speed), p.BytesPerSecond)
}

func TestParseProgressLineWithoutSpeed(t *testing.T) {
	p, ok := ParseProgressLine("[download] 100% of 10.00MiB")
	require.True(t, ok)
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, int64(0), p.BytesPerSecond)
}

func TestParseProgressLineIgnoresOtherLines(t *testing.T) {
	for _, line := range []string{
		"[info] Downloading video info",
		"[download] Destination: video.mp4",
		"",
	} {
		_, ok := ParseProgressLine(line)
		assert.False(t, ok, "line %q", line)
	}
}
