package host

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DownloadSettings)
	}{
		{"mode", func(s *DownloadSettings) { s.DownloadMode = "stream" }},
		{"quality", func(s *DownloadSettings) { s.VideoQuality = "ultra" }},
		{"resolution", func(s *DownloadSettings) { s.MaxResolution = "8K" }},
		{"video format", func(s *DownloadSettings) { s.VideoFormat = "avi" }},
		{"audio format", func(s *DownloadSettings) { s.AudioFormat = "flac" }},
		{"audio quality", func(s *DownloadSettings) { s.AudioQuality = "11" }},
		{"unique id", func(s *DownloadSettings) { s.UniqueIDType = "uuid" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestRequestValidate(t *testing.T) {
	req := testRequest(0)
	assert.NoError(t, req.Validate())

	bad := req
	bad.URL = ""
	assert.Error(t, bad.Validate())

	bad = req
	bad.URL = "https://example.com/" + strings.Repeat("x", MaxURLLength)
	assert.Error(t, bad.Validate())

	bad = req
	bad.OutputLocation = ""
	assert.Error(t, bad.Validate())

	bad = req
	bad.Index = -1
	assert.Error(t, bad.Validate())
}

func TestBuildArgsVideoDefaults(t *testing.T) {
	req := testRequest(0)
	args := req.BuildArgs()

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--newline")
	assert.Contains(t, joined, "--no-playlist")
	assert.Contains(t, joined, "bestvideo+bestaudio/best")
	assert.Contains(t, joined, "%(title)s [%(id)s].%(ext)s")
	assert.Equal(t, req.URL, args[len(args)-1])
	// Unlimited rate/size must not produce flags.
	assert.NotContains(t, joined, "--limit-rate")
	assert.NotContains(t, joined, "--max-filesize")
}

func TestBuildArgsResolutionCapAndLimits(t *testing.T) {
	req := testRequest(0)
	req.Settings.MaxResolution = "1080p"
	req.Settings.DownloadRateLimit = "1M"
	req.Settings.MaxFileSize = "500M"
	req.Settings.VideoFormat = "mp4"

	joined := strings.Join(req.BuildArgs(), " ")
	assert.Contains(t, joined, "bestvideo[height<=1080]+bestaudio/best")
	assert.Contains(t, joined, "--limit-rate 1M")
	assert.Contains(t, joined, "--max-filesize 500M")
	assert.Contains(t, joined, "--merge-output-format mp4")
}

func TestBuildArgsAudioMode(t *testing.T) {
	req := testRequest(0)
	req.Settings.DownloadMode = "audio"
	req.Settings.AudioFormat = "mp3"
	req.Settings.AudioQuality = "2"

	joined := strings.Join(req.BuildArgs(), " ")
	assert.Contains(t, joined, "-x")
	assert.Contains(t, joined, "--audio-format mp3")
	assert.Contains(t, joined, "--audio-quality 2")
	assert.Contains(t, joined, "bestaudio/best")
}

func TestBuildArgsSubfolderRouting(t *testing.T) {
	req := testRequest(0)
	req.OutputLocation = "/downloads"
	req.Subfolder = "My_Playlist"

	joined := strings.Join(req.BuildArgs(), " ")
	assert.Contains(t, joined, "/downloads/My_Playlist/%(title)s")
}

func TestBuildArgsHashUniqueID(t *testing.T) {
	req := testRequest(0)
	req.Settings.UniqueIDType = "hash"

	args := req.BuildArgs()
	joined := strings.Join(args, " ")
	assert.NotContains(t, joined, "%(id)s")

	// Same URL hashes identically.
	require.Equal(t, joined, strings.Join(req.BuildArgs(), " "))
}
