package media

import "github.com/remedia-app/remedia/internal/events"

// RecordPatch is the fragment of a MediaRecord produced from one metadata
// event. Empty string fields mean "leave unset" so downstream rendering
// can fall back to placeholders.
type RecordPatch struct {
	Title      string
	Thumbnail  string
	PreviewURL string

	// HasCollection gates all collection fields; it is true only for
	// playlist and channel expansions.
	HasCollection  bool
	CollectionType CollectionKind
	CollectionName string
	CollectionID   string
	FolderSlug     string
	Subfolder      string
}

// MapMediaInfo transforms an update-media-info payload into a record
// patch. Collection metadata is populated only when the engine reported a
// playlist or channel kind; a single video is never grouped into a
// folder, even when an uploader name was reported.
func MapMediaInfo(ev events.MediaInfoPayload) RecordPatch {
	p := RecordPatch{
		Title:      ev.Title,
		Thumbnail:  ev.Thumbnail,
		PreviewURL: ev.PreviewURL,
	}

	kind := CollectionKind(ev.CollectionKind)
	if kind != CollectionPlaylist && kind != CollectionChannel {
		return p
	}

	name := ev.CollectionName
	if name == "" {
		name = ev.Uploader
	}
	if name == "" {
		return p
	}

	slug := ev.FolderSlug
	if slug == "" {
		slug = SanitizeFolderName(name)
	}

	p.HasCollection = true
	p.CollectionType = kind
	p.CollectionName = name
	// The collection id is only adopted when the engine supplied one;
	// synthesizing an id needs visibility of the whole list and belongs to
	// the caller.
	p.CollectionID = ev.CollectionID
	p.FolderSlug = slug
	p.Subfolder = slug
	return p
}

// Apply writes the patch onto a record, skipping unset fields.
func (p RecordPatch) Apply(r *MediaRecord) {
	if p.Title != "" {
		r.Title = p.Title
	}
	if p.Thumbnail != "" {
		r.Thumbnail = p.Thumbnail
	}
	if p.PreviewURL != "" {
		r.PreviewURL = p.PreviewURL
	}
	if p.HasCollection {
		r.CollectionType = p.CollectionType
		r.CollectionName = p.CollectionName
		r.CollectionID = p.CollectionID
		r.FolderSlug = p.FolderSlug
		r.Subfolder = p.Subfolder
	}
}
