package home

import (
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "seek",
		Description: "Jump to a time in the current song",
		Options: []sys.Option{
			{Name: "time", Description: "Seconds, mm:ss or hh:mm:ss", Kind: sys.OptionString, Required: true},
		},
		Bot:     botText,
		Voice:   sys.VoiceSame,
		Handler: handleSeek,
	})
}

func handleSeek(ctx *sys.Context) (*sys.Reply, error) {
	raw, _ := ctx.Args.String("time")
	d, err := sys.ParseTimestamp(raw)
	if err != nil {
		return nil, ctx.Fail("music.bad_time", sys.P{"value": raw})
	}
	q, err := activeQueue(ctx)
	if err != nil {
		return nil, err
	}
	at, err := q.SeekTo(d)
	if err != nil {
		return nil, musicError(ctx, err)
	}
	return ctx.Reply("music.seeked", sys.P{"time": sys.FormatDuration(at)}), nil
}
