package proc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/samber/lo"
)

// searchCandidates is how many search hits are checked for embeddability.
const searchCandidates = 5

// YouTube resolves youtube.com and youtu.be links and searches YouTube for
// free text. It is also the Finder used for Spotify tracks.
type YouTube struct {
	search        *ytsearch.Client
	playlistLimit int
}

func NewYouTube(playlistLimit int) *YouTube {
	return &YouTube{search: ytsearch.NewClient(nil), playlistLimit: playlistLimit}
}

func (y *YouTube) Kind() music.ProviderKind {
	return music.ProviderYouTube
}

func (y *YouTube) Match(u *url.URL) bool {
	return music.HostIs(u, "youtube.com", "youtu.be", "youtube-nocookie.com")
}

func (y *YouTube) Resolve(ctx context.Context, u *url.URL, kind music.SearchKind) ([]*music.Song, error) {
	list := u.Query().Get("list")
	id := extractVideoID(u)
	if list != "" && (kind == music.KindPlaylist || id == "") {
		return y.playlist(ctx, "https://www.youtube.com/playlist?list="+url.QueryEscape(list))
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s", music.ErrUnsupportedURL, u)
	}

	info, err := ytdlpInfo(ctx, watchURL(id))
	if err != nil {
		return nil, err
	}
	return []*music.Song{y.song(id, info)}, nil
}

func (y *YouTube) Search(ctx context.Context, query string, kind music.SearchKind) ([]*music.Song, error) {
	if kind == music.KindPlaylist {
		return y.searchPlaylist(ctx, query)
	}
	s, err := y.FindVideo(ctx, query)
	if err != nil {
		return nil, err
	}
	return []*music.Song{s}, nil
}

// FindVideo returns the first embeddable video for query.
func (y *YouTube) FindVideo(ctx context.Context, query string) (*music.Song, error) {
	ids, err := y.candidates(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		info, err := ytdlpInfo(ctx, watchURL(id))
		if err != nil {
			sys.LogDebug("Skipping search hit %s: %v", id, err)
			continue
		}
		if !info.Embeddable {
			continue
		}
		return y.song(id, info), nil
	}
	return nil, music.ErrNoMatch
}

// candidates searches YouTube, then YouTube Music when that fails.
func (y *YouTube) candidates(ctx context.Context, query string) ([]string, error) {
	res, err := y.search.Search(ctx, query)
	if err == nil {
		var ids []string
		for _, v := range res.Results {
			if v.VideoID != "" {
				ids = append(ids, v.VideoID)
			}
		}
		if len(ids) > 0 {
			return lo.Slice(lo.Uniq(ids), 0, searchCandidates), nil
		}
	}
	if err == nil {
		err = music.ErrNothingFound
	}
	sys.LogMusic(sys.MsgSearchFallback, query, err)

	r, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, t := range r.Tracks {
		if t.VideoID != "" {
			ids = append(ids, t.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, music.ErrNothingFound
	}
	return lo.Slice(lo.Uniq(ids), 0, searchCandidates), nil
}

func (y *YouTube) searchPlaylist(ctx context.Context, query string) ([]*music.Song, error) {
	// sp=EgIQAw== restricts results to playlists
	results := "https://www.youtube.com/results?sp=EgIQAw%3D%3D&search_query=" + url.QueryEscape(query)
	es, err := ytdlpPlaylist(ctx, results, 1)
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		return nil, music.ErrNothingFound
	}
	return y.playlist(ctx, es[0].URL)
}

func (y *YouTube) playlist(ctx context.Context, u string) ([]*music.Song, error) {
	es, err := ytdlpPlaylist(ctx, u, y.playlistLimit)
	if err != nil {
		return nil, err
	}
	songs := make([]*music.Song, 0, len(es))
	for _, e := range es {
		pu, err := url.Parse(e.URL)
		if err != nil {
			continue
		}
		id := extractVideoID(pu)
		// deleted and private entries have no usable metadata
		if id == "" || e.Title == "" || strings.HasPrefix(e.Title, "[Private") || strings.HasPrefix(e.Title, "[Deleted") {
			continue
		}
		songs = append(songs, y.song(id, &mediaInfo{
			Title:    e.Title,
			Uploader: e.Uploader,
			Duration: e.Duration,
		}))
	}
	return songs, nil
}

func (y *YouTube) song(id string, info *mediaInfo) *music.Song {
	thumb := info.Thumbnail
	if thumb == "" {
		thumb = fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
	}
	d := info.Duration
	if info.Live {
		d = 0
	}
	return &music.Song{
		Title:     info.Title,
		Uploader:  strings.TrimSuffix(info.Uploader, " - Topic"),
		Thumbnail: thumb,
		URL:       watchURL(id),
		Duration:  d,
		Provider:  music.ProviderYouTube,
		Opener:    openWithYtdlp,
	}
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// extractVideoID understands watch, short, shorts, live and embed links.
func extractVideoID(u *url.URL) string {
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if music.HostIs(u, "youtu.be") && len(parts) > 0 {
		return parts[0]
	}
	if len(parts) >= 2 {
		switch parts[0] {
		case "shorts", "live", "embed", "v":
			return parts[1]
		}
	}
	return ""
}

// openWithYtdlp resolves a fresh media URL for s. Media URLs expire within
// hours, so this runs right before playback.
func openWithYtdlp(ctx context.Context, s *music.Song, opts music.OpenOptions) (*music.Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	media, err := ytdlpStreamURL(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("resolve stream for %s: %w", s.URL, err)
	}
	return &music.Stream{Input: media, Offset: opts.Offset}, nil
}
