package home

import (
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "stop",
		Description: "Stop playback and clear the queue",
		Bot:         botText,
		Voice:       sys.VoiceSame,
		Handler:     handleStop,
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "leave",
		Description: "Leave the voice channel",
		Aliases:     []string{"disconnect", "dc"},
		Bot:         botText,
		Voice:       sys.VoiceSame,
		Handler:     handleLeave,
	})
}

func handleStop(ctx *sys.Context) (*sys.Reply, error) {
	j, err := getJukebox()
	if err != nil {
		return nil, err
	}
	if !j.Controller.Stop(ctx, ctx.GuildID) {
		return nil, ctx.Fail("music.nothing_playing", nil)
	}
	return ctx.Reply("music.stopped", nil), nil
}

func handleLeave(ctx *sys.Context) (*sys.Reply, error) {
	j, err := getJukebox()
	if err != nil {
		return nil, err
	}
	stopped := j.Controller.Stop(ctx, ctx.GuildID)
	// a connection can outlive its queue while the controller is tearing down
	if disconnected := j.Voice.Disconnect(ctx, ctx.GuildID); !stopped && !disconnected {
		return nil, ctx.Fail("music.not_connected", nil)
	}
	return ctx.Reply("music.left", nil), nil
}
