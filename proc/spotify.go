package proc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifyPageSize is the largest page the Web API serves for playlist items.
const spotifyPageSize = 100

// ErrSpotifyDisabled is returned for Spotify links when no credentials are set.
var ErrSpotifyDisabled = errors.New("spotify is not configured")

// Spotify expands track, album and playlist links into songs that need a
// YouTube match before they can play.
type Spotify struct {
	client        *spotify.Client
	playlistLimit int
}

// NewSpotify builds a client that authenticates with the client credentials
// flow. Without credentials every Resolve fails with ErrSpotifyDisabled.
func NewSpotify(ctx context.Context, clientID, clientSecret string, playlistLimit int) *Spotify {
	s := &Spotify{playlistLimit: playlistLimit}
	if clientID == "" || clientSecret == "" {
		sys.LogMusic(sys.MsgSpotifyDisabled)
		return s
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	s.client = spotify.New(cfg.Client(ctx))
	return s
}

func (s *Spotify) Kind() music.ProviderKind {
	return music.ProviderSpotify
}

func (s *Spotify) Match(u *url.URL) bool {
	return music.HostIs(u, "open.spotify.com", "play.spotify.com")
}

func (s *Spotify) Resolve(ctx context.Context, u *url.URL, _ music.SearchKind) ([]*music.Song, error) {
	if s.client == nil {
		return nil, ErrSpotifyDisabled
	}
	kind, id, ok := parseSpotifyPath(u.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", music.ErrUnsupportedURL, u)
	}

	switch kind {
	case "track":
		t, err := s.client.GetTrack(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*music.Song{spotifySong(t.SimpleTrack, albumImage(t.Album.Images))}, nil
	case "album":
		return s.album(ctx, id)
	case "playlist":
		return s.playlist(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", music.ErrUnsupportedURL, u)
}

func (s *Spotify) album(ctx context.Context, id spotify.ID) ([]*music.Song, error) {
	album, err := s.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	thumb := albumImage(album.Images)

	var songs []*music.Song
	for offset := 0; len(songs) < s.playlistLimit; {
		page, err := s.client.GetAlbumTracks(ctx, id, spotify.Limit(50), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("album tracks at offset %d: %w", offset, err)
		}
		for _, t := range page.Tracks {
			songs = append(songs, spotifySong(t, thumb))
		}
		offset += len(page.Tracks)
		if len(page.Tracks) == 0 || offset >= int(page.Total) {
			break
		}
	}
	return capSongs(songs, s.playlistLimit), nil
}

func (s *Spotify) playlist(ctx context.Context, id spotify.ID) ([]*music.Song, error) {
	var songs []*music.Song
	for offset := 0; len(songs) < s.playlistLimit; {
		page, err := s.client.GetPlaylistItems(ctx, id, spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("playlist items at offset %d: %w", offset, err)
		}
		for i, item := range page.Items {
			// episodes and removed tracks have no track object
			if item.Track.Track == nil {
				sys.LogDebug(sys.MsgSpotifySkipped, offset+i)
				continue
			}
			t := item.Track.Track
			songs = append(songs, spotifySong(t.SimpleTrack, albumImage(t.Album.Images)))
		}
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= int(page.Total) {
			break
		}
	}
	return capSongs(songs, s.playlistLimit), nil
}

func spotifySong(t spotify.SimpleTrack, thumb string) *music.Song {
	var uploader string
	if len(t.Artists) > 0 {
		uploader = t.Artists[0].Name
	}
	return &music.Song{
		Title:           t.Name,
		Uploader:        uploader,
		Thumbnail:       thumb,
		Duration:        time.Duration(t.Duration) * time.Millisecond,
		Provider:        music.ProviderSpotify,
		NeedsResolution: true,
	}
}

func albumImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// parseSpotifyPath accepts /track/<id> and the localised /intl-xx/track/<id>.
func parseSpotifyPath(p string) (string, spotify.ID, bool) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", false
	}
	switch parts[0] {
	case "track", "album", "playlist":
		return parts[0], spotify.ID(parts[1]), true
	}
	return "", "", false
}

func capSongs(songs []*music.Song, limit int) []*music.Song {
	if limit > 0 && len(songs) > limit {
		return songs[:limit]
	}
	return songs
}
