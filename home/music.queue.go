package home

import (
	"fmt"
	"strings"

	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

const queuePageSize = 10

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "queue",
		Description: "Show the queue",
		Aliases:     []string{"q"},
		Options: []sys.Option{
			{Name: "page", Description: "Page to show (default: 1)", Kind: sys.OptionInt, Min: sys.IntPtr(1)},
		},
		Bot: botText,
		Handler: func(ctx *sys.Context) (*sys.Reply, error) {
			q, err := activeQueue(ctx)
			if err != nil {
				return nil, err
			}
			page, ok := ctx.Args.Int("page")
			if !ok {
				page = 1
			}
			return queueReply(ctx.Lang(), q.State(), page), nil
		},
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "nowplaying",
		Description: "Show the current song",
		Aliases:     []string{"np"},
		Bot:         botText,
		Handler: func(ctx *sys.Context) (*sys.Reply, error) {
			q, err := activeQueue(ctx)
			if err != nil {
				return nil, err
			}
			s, offset, ok := q.NowPlaying()
			if !ok {
				return nil, ctx.Fail("music.nothing_playing", nil)
			}
			return proc.NowPlayingReply(ctx.Lang(), s, offset), nil
		},
	})
}

// queueReply renders one page of st. Out of range pages clamp to the last.
func queueReply(lang string, st music.QueueState, page int) *sys.Reply {
	if len(st.Songs) == 0 {
		return &sys.Reply{Content: sys.T(lang, "music.queue_empty", nil)}
	}

	type entry struct {
		index int
		song  *music.Song
	}
	entries := make([]entry, len(st.Songs))
	for i, s := range st.Songs {
		entries[i] = entry{i, s}
	}
	pages := lo.Chunk(entries, queuePageSize)
	page = max(1, min(page, len(pages)))

	lines := lo.Map(pages[page-1], func(e entry, _ int) string {
		marker := fmt.Sprintf("`%d.`", e.index+1)
		if e.index == st.Position {
			marker = "▶"
		}
		length := sys.T(lang, "music.live", nil)
		if !e.song.Live() {
			length = sys.FormatDuration(e.song.Duration)
		}
		title := sys.Truncate(e.song.Title, 60)
		if e.song.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, e.song.URL)
		}
		return fmt.Sprintf("%s %s · `%s`", marker, title, length)
	})

	return &sys.Reply{
		Title:   sys.T(lang, "music.queue_title", nil) + " · " + sys.T(lang, "music.queue_page", sys.P{"page": page, "pages": len(pages)}),
		Content: strings.Join(lines, "\n"),
		Footer: sys.T(lang, "music.queue_footer", sys.P{
			"count":   len(st.Songs),
			"loop":    sys.T(lang, onOffKey(st.Loop), nil),
			"shuffle": sys.T(lang, onOffKey(st.Shuffle), nil),
			"volume":  st.Volume,
		}),
	}
}

func onOffKey(v bool) string {
	if v {
		return "music.on"
	}
	return "music.off"
}
