package home

import (
	"errors"

	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "remove",
		Description: "Remove a song from the queue",
		Aliases:     []string{"rm"},
		Options: []sys.Option{
			{Name: "index", Description: "Position shown by /queue", Kind: sys.OptionInt, Required: true, Min: sys.IntPtr(1)},
		},
		Bot:     botText,
		Voice:   sys.VoiceSame,
		Handler: handleRemove,
	})
}

func handleRemove(ctx *sys.Context) (*sys.Reply, error) {
	q, err := activeQueue(ctx)
	if err != nil {
		return nil, err
	}
	index, _ := ctx.Args.Int("index")

	s, err := q.RemoveAt(index - 1)
	switch {
	case errors.Is(err, music.ErrRemoveCurrent):
		// the playing song can only leave through a skip
		return handleSkip(ctx)
	case errors.Is(err, music.ErrIndexRange):
		return nil, ctx.Fail("music.index_range", sys.P{"index": index})
	case err != nil:
		return nil, musicError(ctx, err)
	}
	return ctx.Reply("music.removed", sys.P{"title": s.Title}), nil
}
