// Package media holds the download-list data model: records, collections,
// the list store, and the metadata mapper.
package media

// Status is the lifecycle state of a media record. Transitions out of
// StatusPending and into terminal states are driven exclusively by engine
// events, never set optimistically by the UI side.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusDone        Status = "done"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// IsTerminal reports whether the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// CollectionKind classifies how a record was grouped when its source URL
// expanded to multiple entries.
type CollectionKind string

const (
	CollectionPlaylist CollectionKind = "playlist"
	CollectionChannel  CollectionKind = "channel"
	CollectionSingle   CollectionKind = "single"
)

// Collection is a playlist or channel grouping shared by many records,
// deduplicated by ID.
type Collection struct {
	ID   string
	Kind CollectionKind
	Name string
	Slug string
}

// MediaRecord is one entry in the download list. ID defaults to the URL
// and both are unique (case-sensitive) within the active list. Progress is
// always clamped to [0,100].
type MediaRecord struct {
	ID         string
	URL        string
	Title      string
	Thumbnail  string
	PreviewURL string
	Progress   float64
	Status     Status
	AudioOnly  bool

	// Collection metadata, set only for playlist/channel members.
	CollectionType CollectionKind
	CollectionName string
	CollectionID   string
	FolderSlug     string
	Subfolder      string
}

// ClampProgress clamps a reported progress value into [0,100]. Engine
// progress lines occasionally arrive outside the range.
func ClampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
