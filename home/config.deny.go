package home

import (
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

func init() {
	options := []sys.Option{
		{Name: "command", Description: "Command name, or * for every command", Kind: sys.OptionString, Required: true},
		{Name: "channel", Description: "Channel mention or id (default: this channel)", Kind: sys.OptionString},
	}

	sys.RegisterCommand(&sys.Command{
		Name:        "deny",
		Description: "Disable a command in a channel",
		Options:     options,
		Admin:       true,
		Handler:     handleDeny,
	})

	sys.RegisterCommand(&sys.Command{
		Name:        "allow",
		Description: "Enable a disabled command in a channel",
		Options:     options,
		Admin:       true,
		Handler:     handleAllow,
	})
}

// resolveCommandName maps a name or alias to the registered command name.
// Admin commands cannot be denied and resolve to nothing.
func resolveCommandName(cmds []*sys.Command, raw string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == sys.DenyAll {
		return name, true
	}
	cmd, ok := lo.Find(cmds, func(c *sys.Command) bool {
		return c.Name == name || lo.Contains(c.Aliases, name)
	})
	if !ok || cmd.Admin {
		return "", false
	}
	return cmd.Name, true
}

// parseChannel accepts <#id> mentions and bare ids.
func parseChannel(raw string) (snowflake.ID, bool) {
	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "<#"), ">")
	id, err := snowflake.Parse(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func denyTarget(ctx *sys.Context) (string, snowflake.ID, error) {
	raw, _ := ctx.Args.String("command")
	name, ok := resolveCommandName(sys.Commands(), raw)
	if !ok {
		return "", 0, ctx.Fail("config.unknown_command", sys.P{"command": sys.Truncate(raw, 32)})
	}
	channel := ctx.ChannelID
	if s, ok := ctx.Args.String("channel"); ok {
		if channel, ok = parseChannel(s); !ok {
			return "", 0, &sys.OptionError{Option: "channel", Value: s}
		}
	}
	return name, channel, nil
}

func handleDeny(ctx *sys.Context) (*sys.Reply, error) {
	name, channel, err := denyTarget(ctx)
	if err != nil {
		return nil, err
	}
	added, err := sys.ServerConfigs.Deny(ctx, ctx.GuildID, channel, name)
	if err != nil {
		return nil, err
	}
	p := sys.P{"command": name, "channel": channel}
	if !added {
		return nil, ctx.Fail("config.already_denied", p)
	}
	return ctx.Reply("config.denied", p), nil
}

func handleAllow(ctx *sys.Context) (*sys.Reply, error) {
	name, channel, err := denyTarget(ctx)
	if err != nil {
		return nil, err
	}
	removed, err := sys.ServerConfigs.Allow(ctx, ctx.GuildID, channel, name)
	if err != nil {
		return nil, err
	}
	p := sys.P{"command": name, "channel": channel}
	if !removed {
		return nil, ctx.Fail("config.not_denied", p)
	}
	return ctx.Reply("config.allowed", p), nil
}
