// Package events defines the named events exchanged between the download
// engine and the rest of the application, and the bridge that routes them.
//
// Event names are stable strings shared with remote-control clients; keep
// them in sync with any external tooling that subscribes over WebSocket.
package events

// Engine-emitted events.
const (
	UpdateMediaInfo   = "update-media-info"
	DownloadProgress  = "download-progress"
	DownloadComplete  = "download-complete"
	DownloadError     = "download-error"
	DownloadCancelled = "download-cancelled"
	DownloadStarted   = "download-started"
	DownloadQueued    = "download-queued"
	YtdlpStderr       = "yt-dlp-stderr"
)

// Remote-control events, emitted on behalf of an external controller.
const (
	RemoteAddURL         = "remote-add-url"
	RemoteStart          = "remote-start-downloads"
	RemoteCancel         = "remote-cancel-downloads"
	RemoteClearList      = "remote-clear-list"
	RemoteSetDownloadDir = "remote-set-download-dir"
)

// MediaInfoPayload carries metadata extracted for a single list entry.
// Collection fields are populated only when the source URL expanded to a
// playlist or channel; single videos never carry them.
type MediaInfoPayload struct {
	Index          int    `json:"index"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	Thumbnail      string `json:"thumbnail,omitempty"`
	PreviewURL     string `json:"previewUrl,omitempty"`
	Uploader       string `json:"uploader,omitempty"`
	CollectionID   string `json:"collectionId,omitempty"`
	CollectionKind string `json:"collectionKind,omitempty"`
	CollectionName string `json:"collectionName,omitempty"`
	FolderSlug     string `json:"folderSlug,omitempty"`
}

// ProgressPayload reports download progress for a list entry. The engine
// forwards whatever yt-dlp printed; consumers must clamp to [0,100].
type ProgressPayload struct {
	Index    int     `json:"index"`
	Progress float64 `json:"progress"`
}

// IndexPayload addresses a single list entry, used by the terminal and
// queue-trigger events.
type IndexPayload struct {
	Index int `json:"index"`
}

// StderrPayload carries one raw yt-dlp stderr line for the debug log.
type StderrPayload struct {
	Index int    `json:"index"`
	Line  string `json:"line"`
}
