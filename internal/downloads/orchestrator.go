// Package downloads contains the synchronization layer between the
// UI-visible download list and the asynchronous engine: the orchestrator,
// the queue-status monitor, the remote-command controller, and the event
// reducers. The list and the engine are not transactionally consistent;
// everything here exists to absorb the races between them.
package downloads

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remedia-app/remedia/internal/errlog"
	"github.com/remedia-app/remedia/internal/host"
	"github.com/remedia-app/remedia/internal/media"
)

// RetryPolicy bounds the pending-item resolution loop. List population
// can race the start trigger (a playlist expansion lands entries
// asynchronously), so an empty pending set is re-checked a few times
// before giving up.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy matches the observed worst case for playlist
// expansion latency.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, Delay: 400 * time.Millisecond}

// OutputDirStore reads and persists the configured output directory.
type OutputDirStore interface {
	OutputDir() string
	SetOutputDir(dir string)
}

// SettingsSource supplies the settings snapshot for a batch.
type SettingsSource func() host.DownloadSettings

// Orchestrator turns a start trigger into a batch of concurrent download
// commands. It never mutates record status itself; transitions arrive
// later as engine events.
type Orchestrator struct {
	list     *media.List
	engine   host.Host
	settings SettingsSource
	dirs     OutputDirStore
	reporter *errlog.Reporter
	logger   *slog.Logger

	retry RetryPolicy
	// sleep is injectable so retry timing is testable without waiting.
	sleep func(ctx context.Context, d time.Duration) error

	downloading chan struct{} // size-1 token guarding re-entrancy
}

// NewOrchestrator wires an orchestrator. Nil reporter and logger fall
// back to defaults.
func NewOrchestrator(list *media.List, engine host.Host, settings SettingsSource, dirs OutputDirStore, reporter *errlog.Reporter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = errlog.NewReporter(logger, nil)
	}
	o := &Orchestrator{
		list:        list,
		engine:      engine,
		settings:    settings,
		dirs:        dirs,
		reporter:    reporter,
		logger:      logger.With("component", "orchestrator"),
		retry:       DefaultRetryPolicy,
		sleep:       sleepCtx,
		downloading: make(chan struct{}, 1),
	}
	return o
}

// SetRetryPolicy overrides the pending-item retry policy.
func (o *Orchestrator) SetRetryPolicy(p RetryPolicy) { o.retry = p }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Downloading reports whether a batch run is in flight.
func (o *Orchestrator) Downloading() bool {
	return len(o.downloading) > 0
}

// StartDownload resolves the output directory, snapshots settings, waits
// for the pending set to materialize, and dispatches one download command
// per pending item concurrently. A call overlapping a running batch is a
// silent no-op. The first dispatch rejection aborts the batch and is
// surfaced to the user; everything else the user sees arrives via events.
func (o *Orchestrator) StartDownload(ctx context.Context) error {
	select {
	case o.downloading <- struct{}{}:
	default:
		o.logger.Debug("start ignored, batch already running")
		return nil
	}
	defer func() { <-o.downloading }()

	outputDir, err := o.resolveOutputDir(ctx)
	if err != nil {
		o.reporter.Report("could not resolve download directory", err, nil, nil)
		return nil
	}

	// One snapshot per batch; concurrent settings edits do not tear a
	// running run.
	settings := o.settings()

	pending, ok := o.awaitPending(ctx)
	if !ok {
		o.logger.Warn("no pending items after retries, aborting start",
			"attempts", o.retry.Attempts, "delay", o.retry.Delay)
		return nil
	}

	o.logger.Info("dispatching download batch", "items", len(pending), "output_dir", outputDir)

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range pending {
		req := host.DownloadRequest{
			Index:          item.index,
			URL:            item.record.URL,
			OutputLocation: outputDir,
			Subfolder:      item.record.Subfolder,
			Settings:       settings,
		}
		g.Go(func() error {
			if err := o.engine.DownloadMedia(gctx, req); err != nil {
				return fmt.Errorf("download dispatch for %s: %w", req.URL, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		retry := func() { go func() { _ = o.StartDownload(context.Background()) }() }
		o.reporter.Report("failed to start downloads", err, map[string]any{
			"items": len(pending),
		}, retry)
		return err
	}
	return nil
}

// resolveOutputDir returns the configured directory, falling back to the
// engine default and persisting it for subsequent runs.
func (o *Orchestrator) resolveOutputDir(ctx context.Context) (string, error) {
	if dir := o.dirs.OutputDir(); dir != "" {
		return dir, nil
	}
	dir, err := o.engine.GetDownloadDir(ctx)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", fmt.Errorf("engine returned empty download directory")
	}
	o.dirs.SetOutputDir(dir)
	return dir, nil
}

type pendingItem struct {
	index  int
	record media.MediaRecord
}

// pendingItems reads a fresh list snapshot and keeps everything not yet
// done, paired with its index. Snapshotting at dispatch time (rather
// than capturing list state earlier) is what keeps a concurrent playlist
// expansion visible.
func (o *Orchestrator) pendingItems() []pendingItem {
	var out []pendingItem
	for i, r := range o.list.Snapshot() {
		if r.Status != media.StatusDone {
			out = append(out, pendingItem{index: i, record: r})
		}
	}
	return out
}

// awaitPending re-checks the pending set on a fixed cadence while the
// retry budget lasts.
func (o *Orchestrator) awaitPending(ctx context.Context) ([]pendingItem, bool) {
	for attempt := 0; ; attempt++ {
		if pending := o.pendingItems(); len(pending) > 0 {
			return pending, true
		}
		if attempt >= o.retry.Attempts {
			return nil, false
		}
		if err := o.sleep(ctx, o.retry.Delay); err != nil {
			return nil, false
		}
	}
}

// CancelAll forwards cancellation to the engine. It is fire-and-forget:
// status transitions arrive per item as cancellation events.
func (o *Orchestrator) CancelAll(ctx context.Context) {
	go func() {
		if err := o.engine.CancelAllDownloads(ctx); err != nil {
			o.logger.Error("cancel all failed", "error", err)
		}
	}()
}
