// Package clipboard reads the system clipboard and watches it for
// downloadable URLs. Reading prefers the native binding and degrades to
// platform tools, so headless and Wayland sessions still work.
package clipboard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// Service reads clipboard text. A custom read command, when configured,
// takes precedence over the platform defaults.
type Service struct {
	logger  *slog.Logger
	command string
}

// NewService creates a clipboard service. command may be empty.
func NewService(command string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger.With("component", "clipboard"),
		command: command,
	}
}

// ReadText returns the trimmed clipboard text. The native binding is
// tried first; on failure the configured command or a platform tool
// takes over.
func (s *Service) ReadText(ctx context.Context) (string, error) {
	if text, err := clipboard.ReadAll(); err == nil {
		return strings.TrimSpace(text), nil
	} else {
		s.logger.Debug("native clipboard read failed, using fallback", "error", err)
	}

	cmd, err := s.readCommand(ctx)
	if err != nil {
		return "", err
	}
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("clipboard command failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *Service) readCommand(ctx context.Context) (*exec.Cmd, error) {
	if s.command != "" {
		parts := parseCommand(s.command)
		if len(parts) == 0 {
			return nil, fmt.Errorf("invalid clipboard command: %s", s.command)
		}
		return exec.CommandContext(ctx, parts[0], parts[1:]...), nil
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "pbpaste"), nil
	case "linux":
		if isWSL() {
			return exec.CommandContext(ctx, "powershell.exe", "-command", "Get-Clipboard"), nil
		}
		for _, tool := range [][]string{
			{"wl-paste", "--no-newline"},
			{"xclip", "-selection", "clipboard", "-o"},
			{"xsel", "--clipboard", "--output"},
		} {
			if _, err := exec.LookPath(tool[0]); err == nil {
				return exec.CommandContext(ctx, tool[0], tool[1:]...), nil
			}
		}
		return nil, fmt.Errorf("no clipboard tool found (install wl-clipboard, xclip, or xsel)")
	case "windows":
		return exec.CommandContext(ctx, "powershell.exe", "-command", "Get-Clipboard"), nil
	}
	return nil, fmt.Errorf("clipboard reading not supported on %s", runtime.GOOS)
}

// parseCommand splits a command string into argv, respecting single and
// double quotes.
func parseCommand(command string) []string {
	var parts []string
	var current strings.Builder
	var inQuotes bool
	var quoteChar rune

	for _, ch := range command {
		switch {
		case ch == '\'' || ch == '"':
			switch {
			case !inQuotes:
				inQuotes = true
				quoteChar = ch
			case ch == quoteChar:
				inQuotes = false
			default:
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isWSL() bool {
	version, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := strings.ToLower(string(version))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}
