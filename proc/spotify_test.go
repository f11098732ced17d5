package proc

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/leeineian/jukebox/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func TestParseSpotifyPath(t *testing.T) {
	kind, id, ok := parseSpotifyPath("/track/4uLU6hMCjMI75M1A2tKUQC")
	require.True(t, ok)
	assert.Equal(t, "track", kind)
	assert.Equal(t, spotify.ID("4uLU6hMCjMI75M1A2tKUQC"), id)

	kind, id, ok = parseSpotifyPath("/intl-fr/album/1DFixLWuPkv3KT3TnV35m3/")
	require.True(t, ok)
	assert.Equal(t, "album", kind)
	assert.Equal(t, spotify.ID("1DFixLWuPkv3KT3TnV35m3"), id)

	_, _, ok = parseSpotifyPath("/artist/0OdUWJ0sBjDrqHygGUXeCF")
	assert.False(t, ok)
	_, _, ok = parseSpotifyPath("/playlist/")
	assert.False(t, ok)
}

func TestSpotifySongNeedsResolution(t *testing.T) {
	s := spotifySong(spotify.SimpleTrack{
		Name:     "Song",
		Artists:  []spotify.SimpleArtist{{Name: "First"}, {Name: "Second"}},
		Duration: 185000,
	}, "https://i.scdn.co/image/x")

	assert.True(t, s.NeedsResolution)
	assert.Equal(t, music.ProviderSpotify, s.Provider)
	assert.Equal(t, "First", s.Uploader)
	assert.Equal(t, 185*time.Second, s.Duration)
	assert.Equal(t, "First - Song", s.SearchQuery())
	assert.Nil(t, s.Opener)
}

func TestSpotifyWithoutCredentials(t *testing.T) {
	sp := NewSpotify(context.Background(), "", "", 50)
	u, _ := url.Parse("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	require.True(t, sp.Match(u))

	_, err := sp.Resolve(context.Background(), u, music.KindVideo)
	assert.ErrorIs(t, err, ErrSpotifyDisabled)
}

func TestCapSongs(t *testing.T) {
	songs := []*music.Song{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	assert.Len(t, capSongs(songs, 2), 2)
	assert.Len(t, capSongs(songs, 5), 3)
	assert.Len(t, capSongs(songs, 0), 3)
}

func TestAlbumImageUsesFirst(t *testing.T) {
	assert.Empty(t, albumImage(nil))
	assert.Equal(t, "big", albumImage([]spotify.Image{{URL: "big", Height: 640}, {URL: "small", Height: 64}}))
}
