package proc

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
)

// Jukebox bundles the playback controller with the adapters it runs on.
type Jukebox struct {
	Controller *music.Controller
	Resolver   *music.Resolver
	Voice      *VoiceSystem
}

var (
	jukebox   *Jukebox
	jukeboxMu sync.RWMutex
)

// GetJukebox returns the running jukebox, or nil before the client is ready.
func GetJukebox() *Jukebox {
	jukeboxMu.RLock()
	defer jukeboxMu.RUnlock()
	return jukebox
}

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		// Ready fires again after a fresh session; keep the running jukebox.
		if GetJukebox() != nil {
			return
		}
		j := NewJukebox(ctx, client, sys.GetConfig())
		jukeboxMu.Lock()
		jukebox = j
		jukeboxMu.Unlock()

		sys.RegisterDaemon(sys.LogMusic, func(ctx context.Context) (bool, func(), func()) {
			return true, func() {}, func() {
				sys.LogMusic("Shutting down playback...")
				sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				j.Controller.Shutdown(sctx)
				j.Voice.Shutdown(sctx)
			}
		})
		sys.RegisterDaemon(sys.LogMusic, func(ctx context.Context) (bool, func(), func()) {
			return StartPresenceRotator(ctx, client, j.Controller.Queues())
		})
	})

	sys.RegisterVoiceStateUpdateHandler(func(event *events.GuildVoiceStateUpdate) {
		if j := GetJukebox(); j != nil {
			j.Voice.OnVoiceStateUpdate(event)
		}
	})
}

// NewJukebox wires the providers, the voice system and the controller.
func NewJukebox(ctx context.Context, client *bot.Client, cfg *sys.Config) *Jukebox {
	yt := NewYouTube(cfg.PlaylistLimit)
	providers := []music.Provider{
		yt,
		NewSoundCloud(cfg.PlaylistLimit),
		NewSpotify(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.PlaylistLimit),
	}

	vs := NewVoiceSystem(client)
	controller := music.NewController(music.NewRegistry(), vs, NewNotifier(client), yt,
		music.WithDefaultVolume(func(guildID snowflake.ID) int {
			if sys.ServerConfigs == nil {
				return sys.GetConfig().DefaultVolume
			}
			return sys.ServerConfigs.Get(guildID).Volume
		}),
	)
	vs.Release = func(ctx context.Context, guildID snowflake.ID) {
		controller.Stop(ctx, guildID)
	}

	return &Jukebox{
		Controller: controller,
		Resolver:   music.NewResolver(providers...),
		Voice:      vs,
	}
}
