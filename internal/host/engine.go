package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/remedia-app/remedia/internal/events"
	"github.com/remedia-app/remedia/internal/thumbnail"
)

// Emitter receives the engine's named events. The application wires it to
// the event bridge (and fans out to remote clients).
type Emitter interface {
	Emit(name string, payload any)
}

// ClipboardReader abstracts the desktop clipboard for the engine's
// read_clipboard_text command.
type ClipboardReader interface {
	ReadText(ctx context.Context) (string, error)
}

// Engine runs yt-dlp subprocesses under a concurrency-limited queue and
// reports every state change through the emitter. It implements Host.
type Engine struct {
	binary  string
	queue   *Queue
	emitter Emitter
	logger  *slog.Logger

	clipboard ClipboardReader
	redgifs   *thumbnail.RedGifsClient

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithBinary overrides the yt-dlp binary path.
func WithBinary(path string) EngineOption {
	return func(e *Engine) { e.binary = path }
}

// WithClipboard installs the clipboard reader used by ReadClipboardText.
func WithClipboard(r ClipboardReader) EngineOption {
	return func(e *Engine) { e.clipboard = r }
}

// NewEngine creates an engine emitting into emitter with maxConcurrent
// download slots.
func NewEngine(emitter Emitter, maxConcurrent int, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		binary:  "yt-dlp",
		queue:   NewQueue(maxConcurrent),
		emitter: emitter,
		logger:  logger.With("component", "engine"),
		redgifs: thumbnail.NewRedGifsClient(),
		cancels: make(map[int]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Host = (*Engine)(nil)

// GetMediaInfo spawns a metadata fetch; the result is emitted as an
// update-media-info event once available.
func (e *Engine) GetMediaInfo(ctx context.Context, index int, url string) error {
	if url == "" {
		return fmt.Errorf("url cannot be empty")
	}

	go func() {
		raw, err := e.run(ctx, "-J", "--no-playlist", url)
		if err != nil {
			e.logger.Error("media info fetch failed", "index", index, "url", url, "error", err)
			e.emitter.Emit(events.DownloadError, events.IndexPayload{Index: index})
			return
		}

		info, err := ExtractMediaInfo(raw, url)
		if err != nil {
			e.logger.Error("media info parse failed", "index", index, "error", err)
			e.emitter.Emit(events.DownloadError, events.IndexPayload{Index: index})
			return
		}

		// RedGifs exposes an official poster through its API that beats
		// whatever yt-dlp reports; override on success, keep the fallback
		// otherwise.
		if info.Extractor == "RedGifs" && info.SourceID != "" {
			poster, err := e.redgifs.FetchPoster(ctx, info.SourceID)
			switch {
			case err != nil:
				e.logger.Warn("redgifs poster fetch failed", "id", info.SourceID, "error", err)
			case poster != "":
				info.Thumbnail = poster
			}
		}

		e.emitter.Emit(events.UpdateMediaInfo, events.MediaInfoPayload{
			Index:      index,
			URL:        url,
			Title:      info.Title,
			Thumbnail:  info.Thumbnail,
			PreviewURL: info.PreviewURL,
			Uploader:   info.Uploader,
		})
	}()
	return nil
}

// ExpandPlaylist runs a flat-playlist probe and parses the expansion.
func (e *Engine) ExpandPlaylist(ctx context.Context, url string) (PlaylistExpansion, error) {
	if url == "" {
		return PlaylistExpansion{}, fmt.Errorf("url cannot be empty")
	}

	raw, err := e.run(ctx, "-J", "--flat-playlist", url)
	if err != nil {
		return PlaylistExpansion{}, fmt.Errorf("playlist expansion failed: %w", err)
	}
	return ParsePlaylistExpansion(raw)
}

// DownloadMedia validates and queues one download, then pumps the queue.
// Everything after the ack arrives as events.
func (e *Engine) DownloadMedia(ctx context.Context, req DownloadRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := e.queue.Enqueue(req); err != nil {
		return err
	}

	e.emitter.Emit(events.DownloadQueued, events.IndexPayload{Index: req.Index})
	e.pump()
	return nil
}

// pump starts queued downloads while slots are free.
func (e *Engine) pump() {
	for {
		req, ok := e.queue.NextToStart()
		if !ok {
			return
		}

		runCtx, cancel := context.WithCancel(context.Background())
		e.mu.Lock()
		e.cancels[req.Index] = cancel
		e.mu.Unlock()

		e.emitter.Emit(events.DownloadStarted, events.IndexPayload{Index: req.Index})

		go func(req DownloadRequest) {
			defer func() {
				e.mu.Lock()
				delete(e.cancels, req.Index)
				e.mu.Unlock()
				e.pump()
			}()

			err := e.download(runCtx, req)
			switch {
			case runCtx.Err() != nil:
				e.queue.Fail(req.Index)
				e.emitter.Emit(events.DownloadCancelled, events.IndexPayload{Index: req.Index})
			case err != nil:
				e.queue.Fail(req.Index)
				e.logger.Error("download failed", "index", req.Index, "url", req.URL, "error", err)
				e.emitter.Emit(events.DownloadError, events.IndexPayload{Index: req.Index})
			default:
				e.queue.Complete(req.Index)
				e.emitter.Emit(events.DownloadComplete, events.IndexPayload{Index: req.Index})
			}
		}(req)
	}
}

// download runs one yt-dlp process to completion, streaming progress and
// stderr lines out as events.
func (e *Engine) download(ctx context.Context, req DownloadRequest) error {
	args := req.BuildArgs()
	e.logger.Debug("invoking yt-dlp", "index", req.Index, "args", args)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting yt-dlp: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.emitter.Emit(events.YtdlpStderr, events.StderrPayload{
				Index: req.Index,
				Line:  scanner.Text(),
			})
		}
	}()

	go func() {
		defer wg.Done()
		e.streamProgress(stdout, req.Index)
	}()

	cmdErr := cmd.Wait()
	wg.Wait()

	if cmdErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp failed: %w", cmdErr)
	}
	return nil
}

// streamProgress emits rate-limited progress events from yt-dlp stdout.
func (e *Engine) streamProgress(r io.Reader, index int) {
	scanner := bufio.NewScanner(r)
	lastEmit := time.Time{}
	const emitInterval = 250 * time.Millisecond

	for scanner.Scan() {
		p, ok := ParseProgressLine(scanner.Text())
		if !ok {
			continue
		}
		if time.Since(lastEmit) < emitInterval && p.Percent < 100 {
			continue
		}
		lastEmit = time.Now()

		if p.BytesPerSecond > 0 {
			e.logger.Debug("download progress",
				"index", index,
				"percent", p.Percent,
				"speed", humanize.Bytes(uint64(p.BytesPerSecond))+"/s")
		}
		e.emitter.Emit(events.DownloadProgress, events.ProgressPayload{
			Index:    index,
			Progress: p.Percent,
		})
	}
}

// CancelAllDownloads stops active processes and drains the queue. Each
// affected entry is confirmed with a download-cancelled event; entries
// that never started are confirmed here since no process will report
// them.
func (e *Engine) CancelAllDownloads(ctx context.Context) error {
	e.mu.Lock()
	running := make(map[int]context.CancelFunc, len(e.cancels))
	for idx, cancel := range e.cancels {
		running[idx] = cancel
	}
	e.mu.Unlock()

	cancelled := e.queue.CancelAll()
	for _, idx := range cancelled {
		if cancel, ok := running[idx]; ok {
			cancel()
			continue
		}
		e.emitter.Emit(events.DownloadCancelled, events.IndexPayload{Index: idx})
	}

	e.logger.Info("cancelled all downloads", "count", len(cancelled))
	return nil
}

// SetMaxConcurrentDownloads adjusts the slot count and pumps in case the
// limit grew.
func (e *Engine) SetMaxConcurrentDownloads(ctx context.Context, n int) error {
	if n < 1 || n > 10 {
		return fmt.Errorf("invalid max concurrent downloads %d, must be 1-10", n)
	}
	e.queue.SetMaxConcurrent(n)
	e.pump()
	return nil
}

// GetQueueStatus reports the current queue counters.
func (e *Engine) GetQueueStatus(ctx context.Context) (QueueStats, error) {
	return e.queue.Stats(), nil
}

// GetDownloadDir reports the default output directory (~/Downloads,
// created on demand).
func (e *Engine) GetDownloadDir(ctx context.Context) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, "Downloads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	return dir, nil
}

// ReadClipboardText reads the desktop clipboard.
func (e *Engine) ReadClipboardText(ctx context.Context) (string, error) {
	if e.clipboard == nil {
		return "", fmt.Errorf("clipboard not available")
	}
	return e.clipboard.ReadText(ctx)
}

// run executes yt-dlp with args and returns stdout.
func (e *Engine) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}
	return out, nil
}
