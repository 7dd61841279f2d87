package host

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlaylistExpansionConstructsURLs(t *testing.T) {
	raw := []byte(`{
		"_type":"playlist",
		"title":"My Playlist",
		"uploader":"TestChannel",
		"entries":[
			{"id":"abc123","extractor":"Youtube","title":"First"},
			{"id":"unrulygleamingalaskanmalamute","extractor":"RedGifs","title":"Second"}
		]
	}`)

	exp, err := ParsePlaylistExpansion(raw)
	require.NoError(t, err)

	assert.Equal(t, "My_Playlist", exp.PlaylistName)
	assert.Equal(t, "TestChannel", exp.Uploader)
	require.Len(t, exp.Entries, 2)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", exp.Entries[0].URL)
	assert.Equal(t, "First", exp.Entries[0].Title)
	assert.Equal(t, "https://www.redgifs.com/watch/unrulygleamingalaskanmalamute", exp.Entries[1].URL)
}

func TestParsePlaylistExpansionCollectionFromTitle(t *testing.T) {
	raw := []byte(`{
		"_type":"playlist",
		"title":"My Playlist",
		"uploader":"TestChannel",
		"entries":[{"id":"abc123","extractor":"Youtube"}]
	}`)

	exp, err := ParsePlaylistExpansion(raw)
	require.NoError(t, err)

	assert.Equal(t, "playlist", exp.CollectionKind)
	assert.Equal(t, "My_Playlist", exp.CollectionName)
	assert.Equal(t, "My_Playlist", exp.FolderSlug)
	assert.Equal(t, "playlist:My_Playlist", exp.CollectionID)
}

func TestParsePlaylistExpansionCollectionFromUploader(t *testing.T) {
	raw := []byte(`{
		"_type":"playlist",
		"uploader":"TestChannel",
		"entries":[{"id":"abc123","extractor":"Youtube"}]
	}`)

	exp, err := ParsePlaylistExpansion(raw)
	require.NoError(t, err)

	assert.Empty(t, exp.PlaylistName)
	assert.Equal(t, "channel", exp.CollectionKind)
	assert.Equal(t, "TestChannel", exp.CollectionName)
	assert.Equal(t, "channel:TestChannel", exp.CollectionID)
}

func TestParsePlaylistExpansionDeduplicates(t *testing.T) {
	raw := []byte(`{
		"_type":"playlist",
		"entries":[
			{"id":"dup","webpage_url":"https://example.com/video"},
			{"id":"dup","webpage_url":"https://example.com/video"}
		]
	}`)

	exp, err := ParsePlaylistExpansion(raw)
	require.NoError(t, err)
	require.Len(t, exp.Entries, 1)
	assert.Equal(t, "https://example.com/video", exp.Entries[0].URL)
}

func TestParsePlaylistExpansionRespectsCap(t *testing.T) {
	var entries []string
	for i := 0; i < MaxPlaylistItems+10; i++ {
		entries = append(entries, fmt.Sprintf(`{"id":"id%d","webpage_url":"https://example.com/%d"}`, i, i))
	}
	raw := []byte(`{"_type":"playlist","entries":[` + strings.Join(entries, ",") + `]}`)

	exp, err := ParsePlaylistExpansion(raw)
	require.NoError(t, err)
	assert.Len(t, exp.Entries, MaxPlaylistItems)
}

func TestParsePlaylistExpansionSingleVideoHasNoCollection(t *testing.T) {
	raw := []byte(`{"title":"Single Video","uploader":"UploaderName"}`)

	exp, err := ParsePlaylistExpansion(raw)
	require.NoError(t, err)

	assert.Empty(t, exp.Entries)
	assert.Empty(t, exp.CollectionKind)
	assert.Empty(t, exp.CollectionName)
	assert.Empty(t, exp.FolderSlug)
	assert.Empty(t, exp.CollectionID)
}

func TestParsePlaylistExpansionRejectsInvalidJSON(t *testing.T) {
	_, err := ParsePlaylistExpansion([]byte("not json"))
	assert.Error(t, err)
}
