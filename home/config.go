package home

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "prefix",
		Description: "Show or change the prefix for text commands",
		Options: []sys.Option{
			{Name: "prefix", Description: "The new prefix, 1 to 5 characters", Kind: sys.OptionString},
		},
		Admin:     true,
		Ephemeral: true,
		Handler:   handlePrefix,
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "language",
		Description: "Change the language the bot answers in",
		Aliases:     []string{"lang"},
		Options: []sys.Option{
			{Name: "language", Description: "The language to use", Kind: sys.OptionString, Required: true, Choices: languageChoices()},
		},
		Admin:   true,
		Handler: handleLanguage,
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "defaultvolume",
		Description: "Change the volume new queues start at",
		Options: []sys.Option{
			{Name: "volume", Description: "Volume in percent", Kind: sys.OptionInt, Required: true, Min: sys.IntPtr(music.MinVolume), Max: sys.IntPtr(music.MaxVolume)},
		},
		Admin:   true,
		Handler: handleDefaultVolume,
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "telemetry",
		Description: "Choose how much error detail is reported to the developers",
		Options: []sys.Option{
			{Name: "level", Description: "0 off, 1 basic, 2 full", Kind: sys.OptionInt, Required: true, Min: sys.IntPtr(sys.TelemetryOff), Max: sys.IntPtr(sys.TelemetryFull)},
		},
		Admin:     true,
		Ephemeral: true,
		Handler:   handleTelemetry,
	})
}

func languageChoices() []sys.Choice {
	return lo.Map(sys.Languages, func(code string, _ int) sys.Choice {
		return sys.Choice{Name: sys.T(code, "lang.name", nil), Value: code}
	})
}

// validPrefix accepts 1 to 5 characters without whitespace.
func validPrefix(p string) bool {
	n := len([]rune(p))
	if n < 1 || n > 5 {
		return false
	}
	return !strings.ContainsFunc(p, unicode.IsSpace)
}

func handlePrefix(ctx *sys.Context) (*sys.Reply, error) {
	p, ok := ctx.Args.String("prefix")
	if !ok {
		return ctx.Reply("config.prefix_current", sys.P{"prefix": ctx.Server.Prefix}), nil
	}
	if !validPrefix(p) {
		return nil, ctx.Fail("config.prefix_invalid", nil)
	}
	if _, err := sys.ServerConfigs.Update(ctx, ctx.GuildID, func(c *sys.ServerConfig) {
		c.Prefix = p
	}); err != nil {
		return nil, err
	}
	sys.LogCommand("Prefix of guild %s set to %q", ctx.GuildID, p)
	return ctx.Reply("config.prefix", sys.P{"prefix": p}), nil
}

func handleLanguage(ctx *sys.Context) (*sys.Reply, error) {
	raw, _ := ctx.Args.String("language")
	code := strings.ToLower(strings.TrimSpace(raw))
	if !sys.IsLanguage(code) {
		return nil, ctx.Fail("config.language_invalid", sys.P{"languages": strings.Join(sys.Languages, ", ")})
	}
	if _, err := sys.ServerConfigs.Update(ctx, ctx.GuildID, func(c *sys.ServerConfig) {
		c.Lang = code
	}); err != nil {
		return nil, err
	}
	// Confirm in the new language.
	return &sys.Reply{Content: sys.T(code, "config.language", sys.P{"name": sys.T(code, "lang.name", nil)})}, nil
}

func handleDefaultVolume(ctx *sys.Context) (*sys.Reply, error) {
	v, _ := ctx.Args.Int("volume")
	v = max(music.MinVolume, min(music.MaxVolume, v))
	if _, err := sys.ServerConfigs.Update(ctx, ctx.GuildID, func(c *sys.ServerConfig) {
		c.Volume = v
	}); err != nil {
		return nil, err
	}
	return ctx.Reply("config.defaultvolume", sys.P{"volume": v}), nil
}

func handleTelemetry(ctx *sys.Context) (*sys.Reply, error) {
	level, _ := ctx.Args.Int("level")
	if level < sys.TelemetryOff || level > sys.TelemetryFull {
		return nil, &sys.OptionError{Option: "level", Value: strconv.Itoa(level)}
	}
	if _, err := sys.ServerConfigs.Update(ctx, ctx.GuildID, func(c *sys.ServerConfig) {
		c.TelemetryLevel = level
	}); err != nil {
		return nil, err
	}
	return ctx.Reply("config.telemetry", sys.P{"level": level}), nil
}
