package home

import (
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "volume",
		Description: "Show or change the playback volume",
		Aliases:     []string{"vol", "v"},
		Options: []sys.Option{
			{Name: "level", Description: "Volume from 0 to 100", Kind: sys.OptionInt, Min: sys.IntPtr(music.MinVolume), Max: sys.IntPtr(music.MaxVolume)},
		},
		Bot:     botText,
		Voice:   sys.VoiceSame,
		Handler: handleVolume,
	})
}

func handleVolume(ctx *sys.Context) (*sys.Reply, error) {
	q, err := activeQueue(ctx)
	if err != nil {
		return nil, err
	}
	level, ok := ctx.Args.Int("level")
	if !ok {
		return ctx.Reply("music.volume_current", sys.P{"volume": q.Volume()}), nil
	}
	return ctx.Reply("music.volume", sys.P{"volume": q.SetVolume(level)}), nil
}
