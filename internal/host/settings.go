package host

import (
	"fmt"
	"hash/fnv"
	"slices"
)

// Limits guarding against malformed or abusive inputs.
const (
	MaxURLLength        = 4096
	MaxOutputPathLength = 1024
)

// DownloadSettings is the immutable per-batch configuration snapshot. The
// orchestrator captures it once per run; it is never re-read mid-batch.
type DownloadSettings struct {
	DownloadMode      string `json:"downloadMode" mapstructure:"download_mode"`           // "video" | "audio"
	VideoQuality      string `json:"videoQuality" mapstructure:"video_quality"`           // "best" | "high" | "medium" | "low"
	MaxResolution     string `json:"maxResolution" mapstructure:"max_resolution"`         // "2160p".."480p" | "no-limit"
	VideoFormat       string `json:"videoFormat" mapstructure:"video_format"`             // "mp4" | "mkv" | "webm" | "best"
	AudioFormat       string `json:"audioFormat" mapstructure:"audio_format"`             // "mp3" | "m4a" | "opus" | "best"
	AudioQuality      string `json:"audioQuality" mapstructure:"audio_quality"`           // yt-dlp -q scale: "0" | "2" | "5" | "9"
	DownloadRateLimit string `json:"downloadRateLimit" mapstructure:"download_rate_limit"` // e.g. "1M", "unlimited"
	MaxFileSize       string `json:"maxFileSize" mapstructure:"max_file_size"`            // e.g. "500M", "unlimited"
	AppendUniqueID    bool   `json:"appendUniqueId" mapstructure:"append_unique_id"`
	UniqueIDType      string `json:"uniqueIdType" mapstructure:"unique_id_type"` // "native" | "hash"
}

// DefaultSettings are the settings used when nothing was configured,
// matching what the remote-control surface assumes.
func DefaultSettings() DownloadSettings {
	return DownloadSettings{
		DownloadMode:      "video",
		VideoQuality:      "best",
		MaxResolution:     "no-limit",
		VideoFormat:       "best",
		AudioFormat:       "best",
		AudioQuality:      "0",
		DownloadRateLimit: "unlimited",
		MaxFileSize:       "unlimited",
		AppendUniqueID:    true,
		UniqueIDType:      "native",
	}
}

// Validate checks every enumerated field.
func (s DownloadSettings) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"download_mode", s.DownloadMode, []string{"video", "audio"}},
		{"video_quality", s.VideoQuality, []string{"best", "high", "medium", "low"}},
		{"max_resolution", s.MaxResolution, []string{"2160p", "1440p", "1080p", "720p", "480p", "no-limit"}},
		{"video_format", s.VideoFormat, []string{"mp4", "mkv", "webm", "best"}},
		{"audio_format", s.AudioFormat, []string{"mp3", "m4a", "opus", "best"}},
		{"audio_quality", s.AudioQuality, []string{"0", "2", "5", "9"}},
		{"unique_id_type", s.UniqueIDType, []string{"native", "hash"}},
	}
	for _, c := range checks {
		if !slices.Contains(c.allowed, c.value) {
			return fmt.Errorf("invalid %s: %q", c.field, c.value)
		}
	}
	return nil
}

// Validate checks a request before it is queued.
func (r DownloadRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if len(r.URL) > MaxURLLength {
		return fmt.Errorf("url exceeds %d characters", MaxURLLength)
	}
	if r.OutputLocation == "" {
		return fmt.Errorf("output location cannot be empty")
	}
	if len(r.OutputLocation) > MaxOutputPathLength {
		return fmt.Errorf("output location exceeds %d characters", MaxOutputPathLength)
	}
	if r.Index < 0 {
		return fmt.Errorf("invalid media index %d", r.Index)
	}
	return r.Settings.Validate()
}

// formatSelector builds the yt-dlp -f expression for the settings.
func (s DownloadSettings) formatSelector() string {
	if s.DownloadMode == "audio" {
		return "bestaudio/best"
	}

	height := ""
	switch s.MaxResolution {
	case "2160p":
		height = "2160"
	case "1440p":
		height = "1440"
	case "1080p":
		height = "1080"
	case "720p":
		height = "720"
	case "480p":
		height = "480"
	}

	quality := ""
	switch s.VideoQuality {
	case "high":
		quality = "[height<=1080]"
	case "medium":
		quality = "[height<=720]"
	case "low":
		quality = "[height<=480]"
	}

	video := "bestvideo"
	if height != "" {
		video += "[height<=" + height + "]"
	}
	video += quality
	return video + "+bestaudio/best"
}

// BuildArgs assembles the yt-dlp argument list for one download request.
// The output template routes the file into the optional collection
// subfolder under the configured location.
func (r DownloadRequest) BuildArgs() []string {
	s := r.Settings

	args := []string{
		"--newline",
		"--no-playlist",
		"-f", s.formatSelector(),
	}

	if s.DownloadMode == "audio" {
		args = append(args, "-x")
		if s.AudioFormat != "best" {
			args = append(args, "--audio-format", s.AudioFormat)
		}
		args = append(args, "--audio-quality", s.AudioQuality)
	} else if s.VideoFormat != "best" {
		args = append(args, "--merge-output-format", s.VideoFormat)
	}

	if s.DownloadRateLimit != "" && s.DownloadRateLimit != "unlimited" {
		args = append(args, "--limit-rate", s.DownloadRateLimit)
	}
	if s.MaxFileSize != "" && s.MaxFileSize != "unlimited" {
		args = append(args, "--max-filesize", s.MaxFileSize)
	}

	name := "%(title)s"
	if s.AppendUniqueID {
		if s.UniqueIDType == "hash" {
			h := fnv.New32a()
			h.Write([]byte(r.URL))
			name += fmt.Sprintf(" [%08x]", h.Sum32())
		} else {
			name += " [%(id)s]"
		}
	}
	template := r.OutputLocation
	if r.Subfolder != "" {
		template += "/" + r.Subfolder
	}
	template += "/" + name + ".%(ext)s"
	args = append(args, "-o", template)

	args = append(args, r.URL)
	return args
}
