package downloads

import (
	"fmt"
	"log/slog"

	"github.com/remedia-app/remedia/internal/events"
	"github.com/remedia-app/remedia/internal/media"
)

// CompletionHook observes a record that just finished downloading,
// after its terminal status was applied.
type CompletionHook func(media.MediaRecord)

// Reducers fold engine events into the list store. They are the only
// writers of record status; nothing else in the application transitions
// a record, which keeps the list a pure projection of the event stream.
type Reducers struct {
	list        *media.List
	monitor     *Monitor
	logger      *slog.Logger
	onCompleted CompletionHook
}

// NewReducers wires the reducer set. monitor and onCompleted may be nil.
func NewReducers(list *media.List, monitor *Monitor, onCompleted CompletionHook, logger *slog.Logger) *Reducers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducers{
		list:        list,
		monitor:     monitor,
		logger:      logger.With("component", "reducers"),
		onCompleted: onCompleted,
	}
}

// Handlers returns the bridge handler set, one handler per engine event.
func (r *Reducers) Handlers() map[string]events.Handler {
	return map[string]events.Handler{
		events.UpdateMediaInfo:   r.onMediaInfo,
		events.DownloadProgress:  r.onProgress,
		events.DownloadComplete:  r.onComplete,
		events.DownloadError:     r.onError,
		events.DownloadCancelled: r.onCancelled,
		events.DownloadStarted:   r.onStarted,
		events.DownloadQueued:    r.onQueued,
		events.YtdlpStderr:       r.onStderr,
	}
}

func (r *Reducers) onMediaInfo(payload any) {
	ev, ok := payload.(events.MediaInfoPayload)
	if !ok {
		r.logger.Warn("unexpected media info payload", "type", fmt.Sprintf("%T", payload))
		return
	}
	patch := media.MapMediaInfo(ev)
	r.list.Update(ev.Index, func(rec *media.MediaRecord) {
		patch.Apply(rec)
	})
}

func (r *Reducers) onProgress(payload any) {
	ev, ok := payload.(events.ProgressPayload)
	if !ok {
		return
	}
	r.list.Update(ev.Index, func(rec *media.MediaRecord) {
		// Progress lines can straggle in after a terminal event; a done,
		// errored, or cancelled row must not move.
		if rec.Status.IsTerminal() {
			return
		}
		rec.Progress = ev.Progress
	})
}

func (r *Reducers) onComplete(payload any) {
	ev, ok := payload.(events.IndexPayload)
	if !ok {
		return
	}
	r.list.SetStatus(ev.Index, media.StatusDone)
	r.trigger()
	if r.onCompleted != nil {
		if rec, ok := r.list.Get(ev.Index); ok {
			r.onCompleted(rec)
		}
	}
}

func (r *Reducers) onError(payload any) {
	ev, ok := payload.(events.IndexPayload)
	if !ok {
		return
	}
	r.list.SetStatus(ev.Index, media.StatusError)
	r.trigger()
}

func (r *Reducers) onCancelled(payload any) {
	ev, ok := payload.(events.IndexPayload)
	if !ok {
		return
	}
	r.list.SetStatus(ev.Index, media.StatusCancelled)
	r.trigger()
}

func (r *Reducers) onStarted(payload any) {
	ev, ok := payload.(events.IndexPayload)
	if !ok {
		return
	}
	r.list.SetStatus(ev.Index, media.StatusDownloading)
	r.trigger()
}

func (r *Reducers) onQueued(payload any) {
	if _, ok := payload.(events.IndexPayload); !ok {
		return
	}
	r.trigger()
}

func (r *Reducers) onStderr(payload any) {
	ev, ok := payload.(events.StderrPayload)
	if !ok {
		return
	}
	r.logger.Debug("engine stderr", "index", ev.Index, "line", ev.Line)
}

func (r *Reducers) trigger() {
	if r.monitor != nil {
		r.monitor.Trigger()
	}
}
