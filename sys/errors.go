package sys

import (
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrGuildOnly   = errors.New("command requires a guild")
	ErrOwnerOnly   = errors.New("command is restricted to owners")
	ErrDenied      = errors.New("command is denied in this channel")
	ErrRateLimited = errors.New("rate limited")
)

// PermissionScope is where a permission is checked.
type PermissionScope int

const (
	ScopeServer PermissionScope = iota
	ScopeText
	ScopeVoice
)

func (s PermissionScope) String() string {
	switch s {
	case ScopeText:
		return "text"
	case ScopeVoice:
		return "voice"
	}
	return "server"
}

// PermissionError names the first permission the bot or the invoking member lacks.
type PermissionError struct {
	Permission string
	Bot        bool
	Scope      PermissionScope
}

func (e *PermissionError) Error() string {
	who := "user"
	if e.Bot {
		who = "bot"
	}
	return fmt.Sprintf("%s lacks %s permission (%s)", who, e.Permission, e.Scope)
}

type VoiceErrorKind int

const (
	VoiceNoChannel VoiceErrorKind = iota
	VoiceDifferentChannel
	VoiceChannelFull
)

// VoiceError is a failed voice membership check. Channel is the bot's
// channel for VoiceDifferentChannel.
type VoiceError struct {
	Kind    VoiceErrorKind
	Channel snowflake.ID
}

func (e *VoiceError) Error() string {
	switch e.Kind {
	case VoiceDifferentChannel:
		return "bot is in another voice channel"
	case VoiceChannelFull:
		return "voice channel is full"
	}
	return "user is not in a voice channel"
}

// CommandError is an expected failure whose reply is sent as is.
type CommandError struct {
	Reply *Reply
}

func NewCommandError(r *Reply) *CommandError {
	return &CommandError{Reply: r}
}

func (e *CommandError) Error() string {
	if e.Reply == nil {
		return "command error"
	}
	return e.Reply.Content
}

// OptionError reports a missing or malformed command option.
type OptionError struct {
	Option string
	Value  string
}

func (e *OptionError) Error() string {
	if e.Value == "" {
		return "missing option " + e.Option
	}
	return fmt.Sprintf("invalid value %q for option %s", e.Value, e.Option)
}
