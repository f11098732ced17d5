package proc

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

const configKeyPresence = "presence_visible"

var (
	presenceMu   sync.Mutex
	lastPresence string
)

func presenceInterval() time.Duration {
	return time.Duration(30+rand.Intn(31)) * time.Second
}

// StartPresenceRotator cycles the bot's listening activity between a few
// live figures about playback.
func StartPresenceRotator(ctx context.Context, client *bot.Client, queues *music.Registry) (bool, func(), func()) {
	return true, func() {
			for {
				next := presenceInterval()
				updatePresence(ctx, client, queues, next)
				select {
				case <-time.After(next):
				case <-ctx.Done():
					return
				}
			}
		}, func() {
			sys.LogPresence("Shutting down presence rotator...")
		}
}

func updatePresence(ctx context.Context, client *bot.Client, queues *music.Registry, next time.Duration) {
	if v, err := sys.GetBotConfig(ctx, configKeyPresence); err == nil && v == "false" {
		return
	}

	text := pickPresence(presenceCandidates(queues.All(), client.Caches.GuildsLen(), time.Since(sys.StartupTime)), lastPresenceText(), rand.Intn)

	presenceMu.Lock()
	lastPresence = text
	presenceMu.Unlock()

	if err := client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithListeningActivity(text),
	); err != nil {
		sys.LogPresence(sys.MsgPresenceFail, err)
		return
	}
	sys.LogDebug(sys.MsgPresenceRotated, text, next)
}

func lastPresenceText() string {
	presenceMu.Lock()
	defer presenceMu.Unlock()
	return lastPresence
}

func presenceCandidates(queues []*music.ServerQueue, guilds int, uptime time.Duration) []string {
	out := []string{"/play"}
	playing := lo.CountBy(queues, func(q *music.ServerQueue) bool { return q.Playing() })
	if playing > 0 {
		out = append(out, fmt.Sprintf("music in %d servers", playing))
	}
	if songs := lo.SumBy(queues, func(q *music.ServerQueue) int { return q.Len() }); songs > 0 {
		out = append(out, fmt.Sprintf("%d queued songs", songs))
	}
	if guilds > 0 {
		out = append(out, fmt.Sprintf("/play in %d servers", guilds))
	}
	out = append(out, "for "+sys.FormatDuration(uptime.Truncate(time.Minute)))
	return out
}

// pickPresence picks a random candidate other than last when possible.
func pickPresence(candidates []string, last string, intn func(int) int) string {
	choices := lo.Without(candidates, last)
	if len(choices) == 0 {
		return candidates[0]
	}
	return choices[intn(len(choices))]
}
