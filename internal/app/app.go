// Package app assembles the download manager: the event bridge, the
// list store, the engine, the synchronization layer, and the optional
// clipboard, history, and remote-control surfaces.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/remedia-app/remedia/internal/clipboard"
	"github.com/remedia-app/remedia/internal/config"
	"github.com/remedia-app/remedia/internal/downloads"
	"github.com/remedia-app/remedia/internal/errlog"
	"github.com/remedia-app/remedia/internal/events"
	"github.com/remedia-app/remedia/internal/history"
	"github.com/remedia-app/remedia/internal/host"
	"github.com/remedia-app/remedia/internal/media"
	"github.com/remedia-app/remedia/internal/remote"
)

const shutdownTimeout = 5 * time.Second

// eventFan delivers engine events to the in-process bridge and mirrors
// them to remote clients when any are connected.
type eventFan struct {
	bridge *events.Bridge
	remote *remote.Server
}

func (f *eventFan) Emit(name string, payload any) {
	f.bridge.Deliver(name, payload)
	if f.remote != nil && f.remote.ClientCount() > 0 {
		f.remote.Broadcast(name, payload)
	}
}

// App owns the wired component graph for one process.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	bridge     *events.Bridge
	list       *media.List
	engine     host.Host
	orch       *downloads.Orchestrator
	monitor    *downloads.Monitor
	controller *downloads.Controller
	reducers   *downloads.Reducers
	watcher    *clipboard.Watcher
	remote     *remote.Server
	store      *history.Store
	dirs       *config.DirStore
	reporter   *errlog.Reporter

	reducerID string
}

// New wires an application from the loaded configuration. v carries the
// viper handle so runtime changes (the resolved output directory) can be
// persisted.
func New(cfg *config.Config, v *viper.Viper, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		bridge:    events.NewBridge(logger),
		list:      media.NewList(),
		dirs:      config.NewDirStore(v, cfg.Downloads.OutputDir),
		reporter:  errlog.NewReporter(logger, nil),
		reducerID: uuid.NewString(),
	}

	fan := &eventFan{bridge: a.bridge}
	if cfg.Remote.Enabled {
		a.remote = remote.NewServer(a, logger)
		fan.remote = a.remote
	}

	clipSvc := clipboard.NewService(cfg.Clipboard.ReadCommand, logger)
	a.engine = host.NewEngine(fan, cfg.Downloads.MaxConcurrent, logger,
		host.WithBinary(cfg.Downloads.Binary),
		host.WithClipboard(clipSvc),
	)

	settings := func() host.DownloadSettings { return cfg.Downloads.Settings }
	a.orch = downloads.NewOrchestrator(a.list, a.engine, settings, a.dirs, a.reporter, logger)
	a.monitor = downloads.NewMonitor(a.engine, a.publishQueueStats, logger)
	a.controller = downloads.NewController(a.list, a.ImportURL, a.orch.StartDownload, a.orch.CancelAll, a.dirs, logger)
	a.list.SetOnChange(a.controller.ListChanged)

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.store = store
	}
	a.reducers = downloads.NewReducers(a.list, a.monitor, a.recordCompletion, logger)

	a.watcher = clipboard.NewWatcher(
		clipSvc.ReadText,
		a.ImportURL,
		func() bool { return cfg.Clipboard.WatchEnabled },
		logger,
	)

	return a, nil
}

// Run registers the event reducers and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.bridge.Register(a.reducerID, a.reducers.Handlers())
	defer a.bridge.Unregister(a.reducerID)
	defer a.monitor.Close()

	if a.store != nil {
		defer func() { _ = a.store.Close() }()
	}

	if a.remote != nil {
		addr := a.cfg.Remote.Addr
		go func() {
			if err := a.remote.ListenAndServe(addr); err != nil {
				a.reporter.Report("remote control server failed", err, map[string]any{"addr": addr}, nil)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = a.remote.Shutdown(shutdownCtx)
		}()
	}

	a.logger.Info("remedia running",
		"remote", a.cfg.Remote.Enabled,
		"history", a.cfg.History.Enabled,
		"max_concurrent", a.cfg.Downloads.MaxConcurrent)

	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}

// ImportURL inserts a URL into the list and resolves its metadata in the
// background. Playlist and channel URLs expand into one entry per item.
func (a *App) ImportURL(url string) error {
	idx, err := a.list.Add(url)
	if err != nil {
		return err
	}
	go a.resolveEntry(idx, url)
	return nil
}

// resolveEntry expands a possibly-multi-entry URL and requests metadata
// for every resulting list row.
func (a *App) resolveEntry(idx int, url string) {
	ctx := context.Background()

	exp, err := a.engine.ExpandPlaylist(ctx, url)
	if err != nil {
		a.logger.Debug("playlist expansion failed, treating as single item", "url", url, "error", err)
	}

	if err != nil || len(exp.Entries) == 0 {
		if err := a.engine.GetMediaInfo(ctx, idx, url); err != nil {
			a.reporter.Report("could not fetch media info", err, map[string]any{"url": url}, nil)
		}
		return
	}

	// The seed row becomes the first entry not already listed; remaining
	// entries append behind it. Entries whose URL the list already holds
	// are skipped so expansion cannot introduce duplicates.
	type placedEntry struct {
		index int
		entry host.PlaylistItem
	}
	var rows []placedEntry
	seedFilled := false
	for _, entry := range exp.Entries {
		if existing := a.list.IndexByURL(entry.URL); existing >= 0 && existing != idx {
			a.logger.Debug("playlist entry already listed, skipping", "url", entry.URL)
			continue
		}
		if !seedFilled {
			a.applyEntry(idx, exp, entry)
			rows = append(rows, placedEntry{index: idx, entry: entry})
			seedFilled = true
			continue
		}
		i, err := a.list.Add(entry.URL)
		if err != nil {
			continue
		}
		a.applyEntry(i, exp, entry)
		rows = append(rows, placedEntry{index: i, entry: entry})
	}

	if !seedFilled {
		// Every entry was already listed; the seed row keeps its URL.
		if err := a.engine.GetMediaInfo(ctx, idx, url); err != nil {
			a.logger.Warn("media info fetch failed", "url", url, "error", err)
		}
		return
	}

	a.logger.Info("playlist expanded", "url", url, "entries", len(rows), "collection", exp.CollectionID)

	for _, r := range rows {
		if err := a.engine.GetMediaInfo(ctx, r.index, r.entry.URL); err != nil {
			a.logger.Warn("media info fetch failed", "url", r.entry.URL, "error", err)
		}
	}
}

func (a *App) applyEntry(idx int, exp host.PlaylistExpansion, entry host.PlaylistItem) {
	a.list.Update(idx, func(r *media.MediaRecord) {
		r.URL = entry.URL
		if entry.Title != "" {
			r.Title = entry.Title
		}
		if exp.CollectionID != "" {
			r.CollectionType = media.CollectionKind(exp.CollectionKind)
			r.CollectionName = exp.CollectionName
			r.CollectionID = exp.CollectionID
			r.FolderSlug = exp.FolderSlug
			r.Subfolder = exp.FolderSlug
		}
	})
}

func (a *App) publishQueueStats(stats host.QueueStats) {
	a.logger.Debug("queue status",
		"queued", stats.Queued, "active", stats.Active, "max", stats.MaxConcurrent)
	if a.remote != nil {
		a.remote.Broadcast("queue-status", stats)
	}
}

func (a *App) recordCompletion(rec media.MediaRecord) {
	if a.store == nil {
		return
	}
	if err := a.store.AddCompleted(rec, a.dirs.OutputDir()); err != nil {
		a.logger.Warn("history write failed", "url", rec.URL, "error", err)
	}
}

// AddURL handles a remote add: the URL is imported and a download start
// is armed for once metadata resolution populates the list.
func (a *App) AddURL(url string) error { return a.controller.HandleAddURL(url) }

// List exposes the list store.
func (a *App) List() *media.List { return a.list }

// Watcher exposes the clipboard watcher for focus hooks.
func (a *App) Watcher() *clipboard.Watcher { return a.watcher }

// History exposes the completed-download store, nil when disabled.
func (a *App) History() *history.Store { return a.store }

// StartDownloads dispatches a batch for everything pending.
func (a *App) StartDownloads() { a.controller.HandleStart() }

// CancelDownloads aborts all queued and running downloads.
func (a *App) CancelDownloads(ctx context.Context) { a.controller.HandleCancel(ctx) }

// ClearList empties the list and disarms any pending remote start.
func (a *App) ClearList() { a.controller.HandleClear() }

// SetDownloadDir persists the output directory.
func (a *App) SetDownloadDir(path string) error { return a.controller.HandleSetDirectory(path) }

// QueueStatus queries the engine queue.
func (a *App) QueueStatus(ctx context.Context) (host.QueueStats, error) {
	return a.engine.GetQueueStatus(ctx)
}
