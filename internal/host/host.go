// Package host drives the external download engine. The rest of the
// application talks to it through the Host interface; results and state
// changes flow back asynchronously as named events, never as return
// values.
package host

import "context"

// QueueStats is a point-in-time view of the engine queue. It is derived,
// never authoritative: every value is superseded by the next query.
type QueueStats struct {
	Queued        int `json:"queued"`
	Active        int `json:"active"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// DownloadRequest is one dispatched download command.
type DownloadRequest struct {
	Index          int
	URL            string
	OutputLocation string
	Subfolder      string
	Settings       DownloadSettings
}

// PlaylistItem is a single entry discovered during playlist expansion.
type PlaylistItem struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// PlaylistExpansion is the result of expanding a possibly-multi-entry
// URL. Entries is empty for single videos; collection metadata is set
// only when the URL expanded to a playlist or channel.
type PlaylistExpansion struct {
	PlaylistName   string         `json:"playlistName,omitempty"`
	Uploader       string         `json:"uploader,omitempty"`
	Entries        []PlaylistItem `json:"entries"`
	CollectionID   string         `json:"collectionId,omitempty"`
	CollectionKind string         `json:"collectionKind,omitempty"`
	CollectionName string         `json:"collectionName,omitempty"`
	FolderSlug     string         `json:"folderSlug,omitempty"`
}

// Host is the command surface of the download engine. Commands either
// complete quickly or acknowledge and report progress through events.
type Host interface {
	// GetMediaInfo fetches metadata for one entry; the result arrives as
	// an update-media-info event, not a return value.
	GetMediaInfo(ctx context.Context, index int, url string) error

	// ExpandPlaylist resolves a URL into its playlist/channel entries.
	ExpandPlaylist(ctx context.Context, url string) (PlaylistExpansion, error)

	// DownloadMedia queues one download. Status transitions arrive as
	// events (download-queued, download-started, then a terminal event).
	DownloadMedia(ctx context.Context, req DownloadRequest) error

	// CancelAllDownloads cancels everything queued and active.
	// Confirmation arrives as download-cancelled events per entry.
	CancelAllDownloads(ctx context.Context) error

	SetMaxConcurrentDownloads(ctx context.Context, n int) error
	GetQueueStatus(ctx context.Context) (QueueStats, error)

	// GetDownloadDir reports the engine's default output directory.
	GetDownloadDir(ctx context.Context) (string, error)

	// ReadClipboardText reads the system clipboard through the engine
	// process, which owns the desktop session.
	ReadClipboardText(ctx context.Context) (string, error)
}
