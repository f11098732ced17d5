package home

import (
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "skip",
		Description: "Skip the current song, or several",
		Aliases:     []string{"s", "next"},
		Options: []sys.Option{
			{Name: "count", Description: "How many songs to skip (default: 1)", Kind: sys.OptionInt, Min: sys.IntPtr(1)},
		},
		Bot:     botText,
		Voice:   sys.VoiceSame,
		Handler: handleSkip,
	})
}

func handleSkip(ctx *sys.Context) (*sys.Reply, error) {
	q, err := activeQueue(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := ctx.Args.Int("count")
	if !ok {
		n = 1
	}
	skipped, err := q.Skip(n)
	if err != nil {
		return nil, musicError(ctx, err)
	}
	return ctx.Reply("music.skipped", sys.P{"count": skipped}), nil
}
