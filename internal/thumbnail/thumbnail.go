// Package thumbnail resolves preview thumbnails for list entries from
// yt-dlp metadata, with provider-specific fallbacks (currently RedGifs).
package thumbnail

import (
	"strings"
)

// Resolve picks a thumbnail URL out of parsed yt-dlp JSON. Direct fields
// win; the thumbnails array is consulted last-entry-first (yt-dlp sorts
// ascending by quality); RedGifs entries get a thumbs-host URL derived
// from the gif id when nothing else is present.
func Resolve(v map[string]any) string {
	if s := stringField(v, "thumbnail"); s != "" {
		return httpOnly(s)
	}

	if thumbs, ok := v["thumbnails"].([]any); ok && len(thumbs) > 0 {
		if last, ok := thumbs[len(thumbs)-1].(map[string]any); ok {
			if s := stringField(last, "url"); s != "" {
				return httpOnly(s)
			}
		}
	}

	if s := stringField(v, "thumbnail_url"); s != "" {
		return httpOnly(s)
	}

	if stringField(v, "extractor") == "RedGifs" {
		if id := redgifsID(v); id != "" {
			return "https://thumbs2.redgifs.com/" + id + "-mobile.jpg"
		}
	}

	return ""
}

// redgifsID recovers the gif id, preferring the media filename in the
// formats array over the metadata id fields.
func redgifsID(v map[string]any) string {
	if formats, ok := v["formats"].([]any); ok {
		for _, f := range formats {
			fm, ok := f.(map[string]any)
			if !ok {
				continue
			}
			url := stringField(fm, "url")
			if !strings.Contains(url, "redgifs.com") || !strings.HasSuffix(url, ".mp4") {
				continue
			}
			parts := strings.Split(url, "/")
			name := parts[len(parts)-1]
			name = strings.TrimSuffix(name, ".mp4")
			name = strings.TrimSuffix(name, "-mobile")
			if name != "" {
				return name
			}
		}
	}
	if id := stringField(v, "id"); id != "" {
		return id
	}
	return stringField(v, "display_id")
}

func stringField(v map[string]any, key string) string {
	s, _ := v[key].(string)
	return strings.TrimSpace(s)
}

func httpOnly(s string) string {
	if strings.HasPrefix(s, "http") {
		return s
	}
	return ""
}
