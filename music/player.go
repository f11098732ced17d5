package music

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// StopReason says why a resource finished.
type StopReason int

const (
	NaturalEnd StopReason = iota
	SeekRequested
	SkipRequested
	StopRequested
	Errored
)

func (r StopReason) String() string {
	switch r {
	case NaturalEnd:
		return "natural end"
	case SeekRequested:
		return "seek"
	case SkipRequested:
		return "skip"
	case StopRequested:
		return "stop"
	case Errored:
		return "error"
	}
	return "unknown"
}

// Completion is delivered exactly once per Resource.
type Completion struct {
	Reason StopReason
	Err    error
}

// Resource is one song being played on a voice connection.
type Resource interface {
	SetGain(g float64)
	// Pause and Resume report whether the state changed.
	Pause() bool
	Resume() bool
	Stop(reason StopReason)
	Done() <-chan Completion
}

// Voice is a live connection to one voice channel.
type Voice interface {
	ChannelID() snowflake.ID
	Play(ctx context.Context, st *Stream, gain float64) (Resource, error)
	Close(ctx context.Context)
}

type Connector interface {
	Connect(ctx context.Context, guildID, channelID snowflake.ID) (Voice, error)
}

// Notifier posts the controller's status messages. Returned ids are queued
// for deletion on the next cycle. NowPlaying gets the offset the song was
// started from.
type Notifier interface {
	Searching(ctx context.Context, guildID, channelID snowflake.ID, s *Song) (snowflake.ID, error)
	NowPlaying(ctx context.Context, guildID, channelID snowflake.ID, s *Song, offset time.Duration) (snowflake.ID, error)
	PlaybackFailed(ctx context.Context, guildID, channelID snowflake.ID, s *Song, err error)
	Delete(ctx context.Context, channelID, messageID snowflake.ID) error
}

// Finder locates a playable, embeddable video for free text.
type Finder interface {
	FindVideo(ctx context.Context, query string) (*Song, error)
}
