package proc

import (
	"context"
	"net/url"
	"strings"

	"github.com/leeineian/jukebox/music"
)

// SoundCloud resolves soundcloud.com tracks and sets through yt-dlp.
type SoundCloud struct {
	playlistLimit int
}

func NewSoundCloud(playlistLimit int) *SoundCloud {
	return &SoundCloud{playlistLimit: playlistLimit}
}

func (s *SoundCloud) Kind() music.ProviderKind {
	return music.ProviderSoundCloud
}

func (s *SoundCloud) Match(u *url.URL) bool {
	return music.HostIs(u, "soundcloud.com", "snd.sc")
}

func (s *SoundCloud) Resolve(ctx context.Context, u *url.URL, _ music.SearchKind) ([]*music.Song, error) {
	link := u.String()
	if strings.Contains(u.Path, "/sets/") {
		es, err := ytdlpPlaylist(ctx, link, s.playlistLimit)
		if err != nil {
			return nil, err
		}
		songs := make([]*music.Song, 0, len(es))
		for _, e := range es {
			if e.Title == "" {
				continue
			}
			songs = append(songs, s.song(e.URL, &mediaInfo{Title: e.Title, Uploader: e.Uploader, Duration: e.Duration}))
		}
		return songs, nil
	}

	info, err := ytdlpInfo(ctx, link)
	if err != nil {
		return nil, err
	}
	if info.URL != "" {
		link = info.URL
	}
	return []*music.Song{s.song(link, info)}, nil
}

// Search looks up tracks only; SoundCloud sets are not searchable through
// yt-dlp, so a playlist search returns the best matching track.
func (s *SoundCloud) Search(ctx context.Context, query string, _ music.SearchKind) ([]*music.Song, error) {
	es, err := ytdlpSearch(ctx, "scsearch", query, 1)
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		return nil, music.ErrNothingFound
	}
	u, err := url.Parse(es[0].URL)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, u, music.KindVideo)
}

func (s *SoundCloud) song(link string, info *mediaInfo) *music.Song {
	return &music.Song{
		Title:     info.Title,
		Uploader:  info.Uploader,
		Thumbnail: info.Thumbnail,
		URL:       link,
		Duration:  info.Duration,
		Provider:  music.ProviderSoundCloud,
		Opener:    openWithYtdlp,
	}
}
