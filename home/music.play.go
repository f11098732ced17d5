package home

import (
	"errors"

	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "play",
		Description: "Play a song or playlist from a link or a search",
		Aliases:     []string{"p"},
		Options: []sys.Option{
			{Name: "query", Description: "A link or what to search for", Kind: sys.OptionString, Required: true, Rest: true},
			{Name: "source", Description: "Where to search (default: youtube)", Kind: sys.OptionString, Choices: []sys.Choice{
				{Name: "YouTube", Value: "youtube"},
				{Name: "SoundCloud", Value: "soundcloud"},
			}},
			{Name: "kind", Description: "Search for a video or a playlist (default: video)", Kind: sys.OptionString, Choices: []sys.Choice{
				{Name: "Video", Value: "video"},
				{Name: "Playlist", Value: "playlist"},
			}},
		},
		Bot:     botVoice,
		Voice:   sys.VoiceJoin,
		Handler: handlePlay,
	})
}

func handlePlay(ctx *sys.Context) (*sys.Reply, error) {
	j, err := getJukebox()
	if err != nil {
		return nil, err
	}

	query, _ := ctx.Args.String("query")
	source := music.ProviderYouTube
	if s, ok := ctx.Args.String("source"); ok {
		if kind, ok := music.ParseProviderKind(s); ok {
			source = kind
		}
	}
	kind, _ := ctx.Args.String("kind")

	songs, err := j.Resolver.Resolve(ctx, music.ResolveRequest{
		Input:   query,
		Kind:    music.ParseSearchKind(kind),
		Source:  source,
		AddedBy: music.Requester{ID: ctx.UserID, Name: ctx.UserName},
	})
	if errors.Is(err, music.ErrNothingFound) || errors.Is(err, music.ErrNoMatch) {
		return nil, ctx.Fail("music.nothing_found", sys.P{"query": sys.Truncate(query, 100)})
	}
	if err != nil {
		return nil, musicError(ctx, err)
	}

	res, err := j.Controller.Enqueue(ctx, music.EnqueueRequest{
		GuildID:        ctx.GuildID,
		TextChannelID:  ctx.ChannelID,
		VoiceChannelID: *ctx.Voice.UserChannel,
		Songs:          songs,
	})
	if err != nil {
		return nil, musicError(ctx, err)
	}
	sys.LogMusic("%s queued %d song(s) in guild %s", ctx.UserName, len(songs), ctx.GuildID)

	if len(songs) > 1 {
		return ctx.Reply("music.added_many", sys.P{"count": len(songs)}), nil
	}
	r := ctx.Reply("music.added", sys.P{"title": songs[0].Title, "position": res.Index + 1})
	r.Thumbnail = songs[0].Thumbnail
	r.Accent = songs[0].Provider.Color()
	return r, nil
}
