package clipboard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"pbpaste", []string{"pbpaste"}},
		{"xclip -selection clipboard -o", []string{"xclip", "-selection", "clipboard", "-o"}},
		{`sh -c "wl-paste --no-newline"`, []string{"sh", "-c", "wl-paste --no-newline"}},
		{"cmd 'quoted arg'", []string{"cmd", "quoted arg"}},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCommand(tt.in), "input %q", tt.in)
	}
}

func TestReadCommandPrefersConfigured(t *testing.T) {
	s := NewService("my-clip --read", testLogger())

	cmd, err := s.readCommand(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cmd.Path, "my-clip")
	assert.Equal(t, []string{"my-clip", "--read"}, cmd.Args)
}

func TestReadCommandRejectsBlankConfigured(t *testing.T) {
	s := NewService("   ", testLogger())
	_, err := s.readCommand(context.Background())
	assert.Error(t, err)
}
