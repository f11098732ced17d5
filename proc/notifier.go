package proc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
)

// Notifier posts the playback controller's status messages to the queue's
// text channel in the guild's language.
type Notifier struct {
	client *bot.Client
}

func NewNotifier(client *bot.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Searching(ctx context.Context, guildID, channelID snowflake.ID, s *music.Song) (snowflake.ID, error) {
	return n.send(ctx, channelID, searchingReply(guildLang(guildID), s))
}

func (n *Notifier) NowPlaying(ctx context.Context, guildID, channelID snowflake.ID, s *music.Song, offset time.Duration) (snowflake.ID, error) {
	return n.send(ctx, channelID, NowPlayingReply(guildLang(guildID), s, offset))
}

func (n *Notifier) PlaybackFailed(ctx context.Context, guildID, channelID snowflake.ID, s *music.Song, err error) {
	r := &sys.Reply{Content: sys.T(guildLang(guildID), "music.failed", sys.P{
		"title": s.Title,
		"error": sys.Truncate(err.Error(), 200),
	})}
	if _, serr := n.send(ctx, channelID, r); serr != nil {
		sys.LogMusic("Failed to report playback error in %s: %v", channelID, serr)
	}
}

func (n *Notifier) Delete(ctx context.Context, channelID, messageID snowflake.ID) error {
	return n.client.Rest.DeleteMessage(channelID, messageID, rest.WithCtx(ctx))
}

func (n *Notifier) send(ctx context.Context, channelID snowflake.ID, r *sys.Reply) (snowflake.ID, error) {
	msg, err := n.client.Rest.CreateMessage(channelID, sys.RenderCreate(r), rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("send to %s: %w", channelID, err)
	}
	return msg.ID, nil
}

func guildLang(guildID snowflake.ID) string {
	if sys.ServerConfigs == nil {
		return sys.GetConfig().DefaultLang
	}
	return sys.ServerConfigs.Get(guildID).Lang
}

func searchingReply(lang string, s *music.Song) *sys.Reply {
	return &sys.Reply{
		Content: sys.T(lang, "music.searching", sys.P{"query": s.SearchQuery()}),
		Accent:  s.Provider.Color(),
	}
}

// NowPlayingReply describes s started at offset with its provider's accent
// colour.
func NowPlayingReply(lang string, s *music.Song, offset time.Duration) *sys.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "**[%s](%s)**", s.Title, s.URL)
	if s.Uploader != "" {
		fmt.Fprintf(&b, "\n%s", s.Uploader)
	}
	if s.Live() {
		fmt.Fprintf(&b, "\n`%s`", sys.T(lang, "music.live", nil))
	} else if offset > 0 {
		fmt.Fprintf(&b, "\n`%s / %s`", sys.FormatDuration(offset), sys.FormatDuration(s.Duration))
	} else {
		fmt.Fprintf(&b, "\n`%s`", sys.FormatDuration(s.Duration))
	}

	r := &sys.Reply{
		Title:     sys.T(lang, "music.now_playing", nil),
		Content:   b.String(),
		Thumbnail: s.Thumbnail,
		Accent:    s.Provider.Color(),
	}
	if s.AddedBy.Name != "" {
		r.Footer = sys.T(lang, "music.requested_by", sys.P{"user": s.AddedBy.Name}) + " · " + s.Provider.String()
	}
	return r
}
