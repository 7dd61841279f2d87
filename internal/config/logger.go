package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// levelVar backs the active logger so the config watcher can change the
// level without rebuilding handlers.
var levelVar = new(slog.LevelVar)

// InitLogger builds the application logger from cfg, installs it as the
// slog default, and returns it. An empty file routes to the rotating
// default under the state directory; "-" logs to stderr.
func InitLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	levelVar.Set(ParseLogLevel(cfg.Level))

	file := cfg.File
	if file == "" {
		file = filepath.Join(StateDir(), "remedia.log")
	}

	var writer io.Writer
	toConsole := file == "-"
	if toConsole {
		writer = os.Stderr
	} else {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		writer = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}

	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		if cfg.Color && toConsole {
			handler = newColorHandler(writer, opts)
		} else {
			handler = slog.NewTextHandler(writer, opts)
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// SetLogLevel re-applies the level on the running logger.
func SetLogLevel(level string) {
	levelVar.Set(ParseLogLevel(level))
}

// ParseLogLevel maps a config string to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// colorHandler tints the level token of text-format console output.
type colorHandler struct {
	inner  slog.Handler
	writer io.Writer
	opts   *slog.HandlerOptions
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) *colorHandler {
	return &colorHandler{
		inner:  slog.NewTextHandler(w, opts),
		writer: w,
		opts:   opts,
	}
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf strings.Builder
	if err := slog.NewTextHandler(&buf, h.opts).Handle(ctx, r); err != nil {
		return err
	}
	_, err := h.writer.Write([]byte(colorize(buf.String(), r.Level)))
	return err
}

func colorize(line string, level slog.Level) string {
	var code string
	switch {
	case level >= slog.LevelError:
		code = "31" // red
	case level >= slog.LevelWarn:
		code = "33" // yellow
	case level >= slog.LevelInfo:
		code = "32" // green
	default:
		code = "90" // gray
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 2 {
		return fmt.Sprintf("\033[%sm%s\033[0m %s", code, parts[0], parts[1])
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, line)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{inner: h.inner.WithAttrs(attrs), writer: h.writer, opts: h.opts}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{inner: h.inner.WithGroup(name), writer: h.writer, opts: h.opts}
}

func (h *colorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}
