package home

import (
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// Permissions shared by the music commands.
var (
	botText  = sys.Requirements{Text: discord.PermissionViewChannel | discord.PermissionSendMessages}
	botVoice = sys.Requirements{
		Text:  discord.PermissionViewChannel | discord.PermissionSendMessages,
		Voice: discord.PermissionViewChannel | discord.PermissionConnect | discord.PermissionSpeak,
	}
)

var errNotReady = errors.New("jukebox is not ready")

// currentJukebox is replaced in tests.
var currentJukebox = proc.GetJukebox

func getJukebox() (*proc.Jukebox, error) {
	j := currentJukebox()
	if j == nil {
		return nil, errNotReady
	}
	return j, nil
}

// activeQueue returns the guild's queue or a "nothing playing" reply.
func activeQueue(ctx *sys.Context) (*music.ServerQueue, error) {
	j, err := getJukebox()
	if err != nil {
		return nil, err
	}
	q := j.Controller.Queue(ctx.GuildID)
	if q == nil || q.Destroyed() {
		return nil, ctx.Fail("music.nothing_playing", nil)
	}
	return q, nil
}

// musicError turns the playback core's sentinel errors into replies. Anything
// else is returned as is and reported by the router.
func musicError(ctx *sys.Context, err error) error {
	switch {
	case errors.Is(err, music.ErrNothingPlaying), errors.Is(err, music.ErrQueueClosed):
		return ctx.Fail("music.nothing_playing", nil)
	case errors.Is(err, music.ErrLoading):
		return ctx.Fail("music.loading", nil)
	case errors.Is(err, music.ErrNotSeekable):
		return ctx.Fail("music.not_seekable", nil)
	case errors.Is(err, music.ErrAlreadyPaused):
		return ctx.Fail("music.already_paused", nil)
	case errors.Is(err, music.ErrNotPaused):
		return ctx.Fail("music.not_paused", nil)
	case errors.Is(err, music.ErrUnsupportedURL):
		return ctx.Fail("music.unsupported", nil)
	case errors.Is(err, proc.ErrSpotifyDisabled):
		return ctx.Fail("music.spotify_disabled", nil)
	}
	return err
}
