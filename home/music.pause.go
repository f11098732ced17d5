package home

import (
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "pause",
		Description: "Pause playback",
		Bot:         botText,
		Voice:       sys.VoiceSame,
		Handler: func(ctx *sys.Context) (*sys.Reply, error) {
			q, err := activeQueue(ctx)
			if err != nil {
				return nil, err
			}
			if err := q.Pause(); err != nil {
				return nil, musicError(ctx, err)
			}
			return ctx.Reply("music.paused", nil), nil
		},
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "resume",
		Description: "Resume paused playback",
		Aliases:     []string{"unpause"},
		Bot:         botText,
		Voice:       sys.VoiceSame,
		Handler: func(ctx *sys.Context) (*sys.Reply, error) {
			q, err := activeQueue(ctx)
			if err != nil {
				return nil, err
			}
			if err := q.Resume(); err != nil {
				return nil, musicError(ctx, err)
			}
			return ctx.Reply("music.resumed", nil), nil
		},
	})
}
