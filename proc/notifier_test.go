package proc

import (
	"testing"
	"time"

	"github.com/leeineian/jukebox/music"
	"github.com/stretchr/testify/assert"
)

func TestNowPlayingReply(t *testing.T) {
	s := &music.Song{
		Title:     "Song",
		Uploader:  "Band",
		URL:       "https://www.youtube.com/watch?v=abc",
		Thumbnail: "https://i.ytimg.com/vi/abc/hqdefault.jpg",
		Duration:  3*time.Minute + 5*time.Second,
		Provider:  music.ProviderYouTube,
		AddedBy:   music.Requester{ID: 1, Name: "alice"},
	}

	r := NowPlayingReply("en", s, 0)
	assert.Equal(t, "Now playing", r.Title)
	assert.Contains(t, r.Content, "**[Song](https://www.youtube.com/watch?v=abc)**")
	assert.Contains(t, r.Content, "`3:05`")
	assert.Equal(t, s.Thumbnail, r.Thumbnail)
	assert.Equal(t, 0xFF0000, r.Accent)
	assert.Equal(t, "Requested by alice · youtube", r.Footer)

	assert.Contains(t, NowPlayingReply("en", s, time.Minute).Content, "`1:00 / 3:05`")

	// the song's own seek field is owned by the queue and not read here
	s.Seek = 2 * time.Minute
	assert.Contains(t, NowPlayingReply("en", s, 0).Content, "`3:05`")
	assert.NotContains(t, NowPlayingReply("en", s, 0).Content, "2:00")

	s.Duration = 0
	fr := NowPlayingReply("fr", s, time.Minute)
	assert.Equal(t, "En cours de lecture", fr.Title)
	assert.Contains(t, fr.Content, "`EN DIRECT`")
}

func TestSearchingReply(t *testing.T) {
	r := searchingReply("en", &music.Song{Title: "Song", Uploader: "Band", Provider: music.ProviderSpotify})
	assert.Equal(t, "Searching YouTube for **Band - Song**...", r.Content)
	assert.Equal(t, 0x1DB954, r.Accent)
}
