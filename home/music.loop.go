package home

import (
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "loop",
		Description: "Toggle repeating the current song",
		Aliases:     []string{"repeat"},
		Bot:         botText,
		Voice:       sys.VoiceSame,
		Handler: func(ctx *sys.Context) (*sys.Reply, error) {
			q, err := activeQueue(ctx)
			if err != nil {
				return nil, err
			}
			if q.ToggleLoop() {
				return ctx.Reply("music.loop_on", nil), nil
			}
			return ctx.Reply("music.loop_off", nil), nil
		},
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "shuffle",
		Description: "Toggle picking the next song at random",
		Bot:         botText,
		Voice:       sys.VoiceSame,
		Handler: func(ctx *sys.Context) (*sys.Reply, error) {
			q, err := activeQueue(ctx)
			if err != nil {
				return nil, err
			}
			if q.ToggleShuffle() {
				return ctx.Reply("music.shuffle_on", nil), nil
			}
			return ctx.Reply("music.shuffle_off", nil), nil
		},
	})
}
