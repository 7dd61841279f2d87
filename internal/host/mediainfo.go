package host

import (
	"encoding/json"
	"fmt"

	"github.com/remedia-app/remedia/internal/media"
	"github.com/remedia-app/remedia/internal/thumbnail"
)

// MediaInfo is the metadata extracted for one entry from `yt-dlp -J`.
// Collection fields stay empty here: single videos are never grouped, and
// playlist/channel grouping is decided during expansion, not per entry.
type MediaInfo struct {
	Title      string
	Thumbnail  string
	PreviewURL string
	Uploader   string

	// Extractor and SourceID identify the provider entry for
	// provider-specific overrides (RedGifs poster lookup).
	Extractor string
	SourceID  string
}

// ExtractMediaInfo parses yt-dlp single-entry JSON. The title falls back
// to the source URL; the uploader is extracted for display only.
func ExtractMediaInfo(raw []byte, sourceURL string) (MediaInfo, error) {
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return MediaInfo{}, fmt.Errorf("parsing yt-dlp media JSON: %w", err)
	}

	info := MediaInfo{
		Title:      sourceURL,
		Thumbnail:  thumbnail.Resolve(v),
		PreviewURL: extractPreviewURL(v),
	}
	if title, _ := v["title"].(string); title != "" {
		info.Title = title
	}
	for _, key := range []string{"uploader", "channel", "uploader_id"} {
		if up, _ := v[key].(string); up != "" {
			info.Uploader = media.SanitizeFolderName(up)
			break
		}
	}
	info.Extractor, _ = v["extractor"].(string)
	if id, _ := v["id"].(string); id != "" {
		info.SourceID = id
	} else {
		info.SourceID, _ = v["display_id"].(string)
	}
	return info, nil
}

// extractPreviewURL picks the best direct media URL for inline preview.
// mp4 is strongly preferred; height and filesize break ties.
func extractPreviewURL(v map[string]any) string {
	if url, _ := v["url"].(string); url != "" {
		return url
	}

	formats, ok := v["formats"].([]any)
	if !ok {
		return ""
	}

	best := ""
	bestScore := int64(-1)
	for _, f := range formats {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		url, _ := fm["url"].(string)
		if url == "" {
			continue
		}

		var score int64
		if ext, _ := fm["ext"].(string); ext == "mp4" {
			score += 1000
		}
		if height, ok := fm["height"].(float64); ok {
			score += int64(height)
		}
		if size, ok := fm["filesize"].(float64); ok {
			score += int64(size) / 1_000_000
		}

		if score > bestScore {
			bestScore = score
			best = url
		}
	}
	return best
}
