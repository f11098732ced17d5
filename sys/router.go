package sys

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var registered []*Command

// RegisterCommand adds a command to the set the loader syncs and routes.
func RegisterCommand(cmd *Command) {
	if cmd.Admin {
		cmd.User.Server |= discord.PermissionManageGuild
	}
	registered = append(registered, cmd)
}

func Commands() []*Command {
	return registered
}

// RouterOptions wires the router to the rest of the process.
type RouterOptions struct {
	Rate  rate.Limit
	Burst int
	// Denied reports channel deny lists.
	Denied func(guildID, channelID snowflake.ID, command string) bool
	// Used is called after every successful invocation.
	Used func(ctx context.Context, command string) error
	// Report receives unhandled errors with their id.
	Report func(ctx *Context, id string, err error)
}

// Router finds commands, runs guards and maps failures to replies. It is
// the single recovery point of a command invocation.
type Router struct {
	commands map[string]*Command
	opts     RouterOptions

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

func NewRouter(cmds []*Command, opts RouterOptions) *Router {
	r := &Router{
		commands: make(map[string]*Command, len(cmds)),
		opts:     opts,
		limiters: make(map[snowflake.ID]*rate.Limiter),
	}
	for _, c := range cmds {
		r.commands[c.Name] = c
		for _, a := range c.Aliases {
			r.commands[a] = c
		}
	}
	return r
}

// Lookup finds a command by name or alias.
func (r *Router) Lookup(name string) (*Command, bool) {
	c, ok := r.commands[strings.ToLower(name)]
	return c, ok
}

// Dispatch runs ctx.Command and always produces a reply.
func (r *Router) Dispatch(ctx *Context) *Reply {
	cmd := ctx.Command
	reply, err := r.run(ctx)
	if err != nil {
		return r.failure(ctx, err)
	}

	if r.opts.Used != nil {
		if err := r.opts.Used(ctx, cmd.Name); err != nil {
			LogWarn(MsgCommandStatFail, cmd.Name, err)
		}
	}
	if reply == nil {
		reply = &Reply{Content: "👌"}
	}
	if cmd.Ephemeral {
		reply.Ephemeral = true
	}
	return reply
}

func (r *Router) run(ctx *Context) (reply *Reply, err error) {
	cmd := ctx.Command
	if err := r.guard(ctx); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return cmd.Handler(ctx)
}

func (r *Router) guard(ctx *Context) error {
	cmd := ctx.Command
	if ctx.GuildID == 0 {
		return ErrGuildOnly
	}
	if cmd.Owner && (ctx.Config == nil || !ctx.Config.IsOwner(ctx.UserID.String())) {
		return ErrOwnerOnly
	}
	if !cmd.Admin && r.opts.Denied != nil && r.opts.Denied(ctx.GuildID, ctx.ChannelID, cmd.Name) {
		return ErrDenied
	}
	if err := r.limit(ctx.UserID); err != nil {
		return err
	}
	if err := CheckPermissions(cmd.Bot, ctx.BotPerms, true); err != nil {
		return err
	}
	if err := CheckPermissions(cmd.User, ctx.UserPerms, false); err != nil {
		return err
	}
	return CheckVoice(cmd.Voice, ctx.Voice)
}

// RateLimitError carries the wait before the next allowed command.
type RateLimitError struct {
	Seconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: retry in %ds", ErrRateLimited, e.Seconds)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

func (r *Router) limit(userID snowflake.ID) error {
	if r.opts.Rate <= 0 {
		return nil
	}
	r.mu.Lock()
	lim, ok := r.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(r.opts.Rate, max(1, r.opts.Burst))
		r.limiters[userID] = lim
	}
	r.mu.Unlock()

	res := lim.Reserve()
	if d := res.Delay(); d > 0 {
		res.Cancel()
		LogDebug(MsgCommandRateLimited, userID)
		return &RateLimitError{Seconds: int(math.Ceil(d.Seconds()))}
	}
	return nil
}

func (r *Router) failure(ctx *Context, err error) *Reply {
	var (
		permErr  *PermissionError
		voiceErr *VoiceError
		cmdErr   *CommandError
		optErr   *OptionError
		rateErr  *RateLimitError
	)
	reply := &Reply{Ephemeral: true}
	switch {
	case errors.As(err, &cmdErr):
		if cmdErr.Reply != nil {
			return cmdErr.Reply
		}
		reply.Content = ctx.T("error.generic", P{"id": "-"})
	case errors.As(err, &permErr):
		key := "error.permission.user"
		if permErr.Bot {
			key = "error.permission.bot"
		}
		reply.Content = ctx.T(key, P{
			"permission": permErr.Permission,
			"scope":      ctx.T("scope."+permErr.Scope.String(), nil),
		})
	case errors.As(err, &voiceErr):
		switch voiceErr.Kind {
		case VoiceDifferentChannel:
			reply.Content = ctx.T("error.voice.different", P{"channel": voiceErr.Channel})
		case VoiceChannelFull:
			reply.Content = ctx.T("error.voice.full", nil)
		default:
			reply.Content = ctx.T("error.voice.none", nil)
		}
	case errors.As(err, &optErr):
		if optErr.Value == "" {
			reply.Content = ctx.T("error.option.missing", P{"option": optErr.Option})
		} else {
			reply.Content = ctx.T("error.option.invalid", P{"option": optErr.Option, "value": optErr.Value})
		}
	case errors.As(err, &rateErr):
		reply.Content = ctx.T("error.ratelimited", P{"seconds": rateErr.Seconds})
	case errors.Is(err, ErrGuildOnly):
		reply.Content = ctx.T("error.guild", nil)
	case errors.Is(err, ErrOwnerOnly):
		reply.Content = ctx.T("error.owner", nil)
	case errors.Is(err, ErrDenied):
		reply.Content = ctx.T("error.denied", P{"command": ctx.Command.Name})
	default:
		id := uuid.NewString()
		LogCommand(MsgCommandFailed, ctx.Command.Name, id, err)
		if r.opts.Report != nil && ctx.Config != nil && ctx.Config.IsProduction() && ctx.Server.TelemetryLevel >= TelemetryFull {
			r.opts.Report(ctx, id, err)
		}
		reply.Content = ctx.T("error.generic", P{"id": id})
	}
	return reply
}
