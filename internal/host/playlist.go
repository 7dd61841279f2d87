package host

import (
	"encoding/json"
	"fmt"

	"github.com/remedia-app/remedia/internal/media"
)

// MaxPlaylistItems caps expansion so one pasted channel URL cannot grow
// the queue without bound.
const MaxPlaylistItems = 500

// ParsePlaylistExpansion parses `yt-dlp -J --flat-playlist` output into an
// expansion. Non-playlist JSON yields zero entries and no collection
// metadata.
func ParsePlaylistExpansion(raw []byte) (PlaylistExpansion, error) {
	var v map[string]json.RawMessage
	if err := json.Unmarshal(raw, &v); err != nil {
		return PlaylistExpansion{}, fmt.Errorf("parsing yt-dlp playlist JSON: %w", err)
	}

	exp := PlaylistExpansion{}
	if name := firstString(v, "title", "playlist_title"); name != "" {
		exp.PlaylistName = media.SanitizeFolderName(name)
	}
	if up := firstString(v, "uploader", "channel", "uploader_id"); up != "" {
		exp.Uploader = media.SanitizeFolderName(up)
	}

	entriesRaw, ok := v["entries"]
	if !ok {
		return exp, nil
	}
	var entries []map[string]any
	if err := json.Unmarshal(entriesRaw, &entries); err != nil {
		return exp, nil
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		item, ok := normalizeEntry(entry)
		if !ok || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		exp.Entries = append(exp.Entries, item)
		if len(exp.Entries) >= MaxPlaylistItems {
			break
		}
	}

	// Folder naming prefers the playlist title; a bare channel page falls
	// back to the uploader.
	switch {
	case exp.PlaylistName != "":
		exp.CollectionKind = string(media.CollectionPlaylist)
		exp.CollectionName = exp.PlaylistName
	case exp.Uploader != "":
		exp.CollectionKind = string(media.CollectionChannel)
		exp.CollectionName = exp.Uploader
	default:
		return exp, nil
	}
	exp.FolderSlug = exp.CollectionName
	exp.CollectionID = exp.CollectionKind + ":" + exp.CollectionName
	return exp, nil
}

func firstString(v map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := v[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func entryString(entry map[string]any, key string) string {
	s, _ := entry[key].(string)
	return s
}

// normalizeEntry turns one flat-playlist entry into a usable item. The
// watch-page URL is preferred over direct media URLs since it carries
// better metadata; known extractors get their watch URL reconstructed
// from the id when neither is present.
func normalizeEntry(entry map[string]any) (PlaylistItem, bool) {
	url := entryString(entry, "webpage_url")
	if !isHTTP(url) {
		url = entryString(entry, "url")
	}
	if !isHTTP(url) {
		id := entryString(entry, "id")
		if id != "" {
			switch entryString(entry, "extractor") {
			case "Youtube", "YouTube", "YoutubeTab", "YoutubeSearchURL", "YoutubePlaylist":
				url = "https://www.youtube.com/watch?v=" + id
			case "RedGifs", "RedGifsUser":
				url = "https://www.redgifs.com/watch/" + id
			}
		}
	}
	if !isHTTP(url) {
		return PlaylistItem{}, false
	}

	return PlaylistItem{URL: url, Title: entryString(entry, "title")}, true
}

func isHTTP(url string) bool {
	return len(url) > 4 && url[:4] == "http"
}
