package music

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// ProviderKind is the closed set of media sources a song can come from.
type ProviderKind int

const (
	ProviderYouTube ProviderKind = iota
	ProviderSoundCloud
	ProviderSpotify
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderYouTube:
		return "youtube"
	case ProviderSoundCloud:
		return "soundcloud"
	case ProviderSpotify:
		return "spotify"
	}
	return "unknown"
}

// Color is the accent used for now playing output.
func (k ProviderKind) Color() int {
	switch k {
	case ProviderYouTube:
		return 0xFF0000
	case ProviderSoundCloud:
		return 0xFF5500
	case ProviderSpotify:
		return 0x1DB954
	}
	return 0x5865F2
}

// ParseProviderKind accepts the names returned by String plus a few short aliases.
func ParseProviderKind(s string) (ProviderKind, bool) {
	switch s {
	case "youtube", "yt", "":
		return ProviderYouTube, true
	case "soundcloud", "sc":
		return ProviderSoundCloud, true
	case "spotify", "sp":
		return ProviderSpotify, true
	}
	return 0, false
}

type Requester struct {
	ID   snowflake.ID
	Name string
}

// Stream is what a StreamOpener hands to the voice layer. Input is a URL or
// path the decoder can open. Offset is where the decoder must seek before
// producing audio.
type Stream struct {
	Input  string
	Offset time.Duration
	Live   bool
}

type OpenOptions struct {
	Offset time.Duration
}

type StreamOpener func(ctx context.Context, s *Song, opts OpenOptions) (*Stream, error)

var ErrNotPlayable = errors.New("song has no stream opener")

// Song describes one track. Seek is the only field mutated after
// construction and is guarded by the owning queue.
type Song struct {
	Title     string
	Uploader  string
	Thumbnail string
	URL       string
	// Duration of zero means unknown or live.
	Duration        time.Duration
	Provider        ProviderKind
	NeedsResolution bool
	AddedBy         Requester
	Seek            time.Duration

	Opener StreamOpener
}

func (s *Song) Live() bool {
	return s.Duration <= 0
}

// Open calls the song's opener.
func (s *Song) Open(ctx context.Context, opts OpenOptions) (*Stream, error) {
	if s.Opener == nil {
		return nil, ErrNotPlayable
	}
	st, err := s.Opener(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	st.Live = st.Live || s.Live()
	return st, nil
}

// SearchQuery is the text used to locate a song on YouTube.
func (s *Song) SearchQuery() string {
	if s.Uploader == "" {
		return s.Title
	}
	return s.Uploader + " - " + s.Title
}
