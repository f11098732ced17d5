package sys

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testContext(cmd *Command) *Context {
	return &Context{
		Context:   context.Background(),
		Command:   cmd,
		GuildID:   permGuild,
		ChannelID: 42,
		UserID:    permUser,
		Config:    &Config{OwnerIDs: []string{"1"}},
		Server:    ServerConfig{Lang: "en", TelemetryLevel: TelemetryFull},
		Args:      Args{},
	}
}

func okCommand(name string) *Command {
	return &Command{Name: name, Handler: func(ctx *Context) (*Reply, error) {
		return ctx.Reply("music.paused", nil), nil
	}}
}

func TestRouterLookupAliases(t *testing.T) {
	cmd := okCommand("nowplaying")
	cmd.Aliases = []string{"np"}
	r := NewRouter([]*Command{cmd}, RouterOptions{})

	got, ok := r.Lookup("NP")
	require.True(t, ok)
	assert.Same(t, cmd, got)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestDispatchSuccessRecordsUsage(t *testing.T) {
	var used []string
	cmd := okCommand("pause")
	r := NewRouter([]*Command{cmd}, RouterOptions{Used: func(_ context.Context, name string) error {
		used = append(used, name)
		return nil
	}})

	reply := r.Dispatch(testContext(cmd))
	assert.Equal(t, T("en", "music.paused", nil), reply.Content)
	assert.False(t, reply.Ephemeral)
	assert.Equal(t, []string{"pause"}, used)
}

func TestDispatchNilReplyAndEphemeral(t *testing.T) {
	cmd := &Command{Name: "x", Ephemeral: true, Handler: func(*Context) (*Reply, error) { return nil, nil }}
	reply := NewRouter([]*Command{cmd}, RouterOptions{}).Dispatch(testContext(cmd))
	assert.Equal(t, "👌", reply.Content)
	assert.True(t, reply.Ephemeral)
}

func TestDispatchGuards(t *testing.T) {
	cmd := okCommand("play")
	cmd.Bot = Requirements{Voice: discord.PermissionConnect}
	r := NewRouter([]*Command{cmd}, RouterOptions{})

	ctx := testContext(cmd)
	ctx.GuildID = 0
	assert.Equal(t, T("en", "error.guild", nil), r.Dispatch(ctx).Content)

	ctx = testContext(cmd)
	reply := r.Dispatch(ctx)
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, T("en", "error.permission.bot", P{"permission": "Connect", "scope": T("en", "scope.voice", nil)}), reply.Content)

	ctx.BotPerms.Voice = discord.PermissionConnect
	cmd.Voice = VoiceSame
	assert.Equal(t, T("en", "error.voice.none", nil), r.Dispatch(ctx).Content)
}

func TestDispatchOwnerOnly(t *testing.T) {
	cmd := okCommand("restart")
	cmd.Owner = true
	r := NewRouter([]*Command{cmd}, RouterOptions{})

	ctx := testContext(cmd)
	assert.Equal(t, T("en", "error.owner", nil), r.Dispatch(ctx).Content)

	ctx.UserID = permOwner
	assert.Equal(t, T("en", "music.paused", nil), r.Dispatch(ctx).Content)
}

func TestDispatchDeniedSkipsAdmin(t *testing.T) {
	denied := func(snowflake.ID, snowflake.ID, string) bool { return true }
	cmd := okCommand("play")
	admin := okCommand("allow")
	admin.Admin = true
	admin.User.Server = discord.PermissionManageGuild
	r := NewRouter([]*Command{cmd, admin}, RouterOptions{Denied: denied})

	assert.Equal(t, T("en", "error.denied", P{"command": "play"}), r.Dispatch(testContext(cmd)).Content)

	ctx := testContext(admin)
	ctx.UserPerms.Server = discord.PermissionManageGuild
	assert.Equal(t, T("en", "music.paused", nil), r.Dispatch(ctx).Content)
}

func TestDispatchRateLimit(t *testing.T) {
	cmd := okCommand("pause")
	r := NewRouter([]*Command{cmd}, RouterOptions{Rate: rate.Limit(0.001), Burst: 2})

	for range 2 {
		assert.Equal(t, T("en", "music.paused", nil), r.Dispatch(testContext(cmd)).Content)
	}
	reply := r.Dispatch(testContext(cmd))
	assert.True(t, reply.Ephemeral)
	assert.Contains(t, reply.Content, "Slow down")

	other := testContext(cmd)
	other.UserID = 99
	assert.Equal(t, T("en", "music.paused", nil), r.Dispatch(other).Content)
}

func TestDispatchCommandError(t *testing.T) {
	cmd := &Command{Name: "skip", Handler: func(ctx *Context) (*Reply, error) {
		return nil, ctx.Fail("music.nothing_playing", nil)
	}}
	var used int
	r := NewRouter([]*Command{cmd}, RouterOptions{Used: func(context.Context, string) error {
		used++
		return nil
	}})

	reply := r.Dispatch(testContext(cmd))
	assert.Equal(t, T("en", "music.nothing_playing", nil), reply.Content)
	assert.True(t, reply.Ephemeral)
	assert.Zero(t, used)
}

func TestDispatchUnhandledErrorIsReported(t *testing.T) {
	boom := errors.New("boom")
	cmd := &Command{Name: "play", Handler: func(*Context) (*Reply, error) { return nil, boom }}

	var reported []string
	r := NewRouter([]*Command{cmd}, RouterOptions{Report: func(_ *Context, id string, err error) {
		assert.ErrorIs(t, err, boom)
		reported = append(reported, id)
	}})

	reply := r.Dispatch(testContext(cmd))
	require.Len(t, reported, 1)
	assert.Equal(t, T("en", "error.generic", P{"id": reported[0]}), reply.Content)

	ctx := testContext(cmd)
	ctx.Server.TelemetryLevel = TelemetryBasic
	r.Dispatch(ctx)
	assert.Len(t, reported, 1)

	ctx = testContext(cmd)
	ctx.Config.GuildID = "123456789012345678"
	r.Dispatch(ctx)
	assert.Len(t, reported, 1)
}

func TestDispatchRecoversPanics(t *testing.T) {
	cmd := &Command{Name: "queue", Handler: func(*Context) (*Reply, error) { panic("index out of range") }}
	reply := NewRouter([]*Command{cmd}, RouterOptions{}).Dispatch(testContext(cmd))
	assert.True(t, reply.Ephemeral)
	assert.Contains(t, reply.Content, "Error id")
}
