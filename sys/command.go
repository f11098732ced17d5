package sys

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
)

// --- Command Definition ---

type OptionKind int

const (
	OptionString OptionKind = iota
	OptionInt
	OptionBool
)

type Choice struct {
	Name  string
	Value string
}

type Option struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
	// Rest makes a prefix invocation bind every remaining word to this option.
	Rest    bool
	Min     *int
	Max     *int
	Choices []Choice
}

// Command is one slash command, also reachable with the guild prefix.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Options     []Option
	// Admin commands need Manage Server and ignore channel denies.
	Admin     bool
	Owner     bool
	Ephemeral bool
	Bot       Requirements
	User      Requirements
	Voice     VoiceRequirement
	Handler   func(*Context) (*Reply, error)
}

func IntPtr(i int) *int {
	return &i
}

// --- Arguments ---

type Args map[string]any

func (a Args) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

func (a Args) Int(name string) (int, bool) {
	i, ok := a[name].(int)
	return i, ok
}

func (a Args) Bool(name string) (bool, bool) {
	b, ok := a[name].(bool)
	return b, ok
}

// ParsePrefix splits a prefixed message into a lower case command name and
// its words.
func ParsePrefix(content, prefix string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// BindPositional binds prefix words to options. A word of the form
// name:value binds by name; the rest bind in declaration order.
func BindPositional(opts []Option, words []string) (Args, error) {
	args := Args{}
	var positional []string
	for _, w := range words {
		if name, value, ok := strings.Cut(w, ":"); ok && value != "" {
			if opt, found := findOption(opts, name); found {
				v, err := parseOption(opt, value)
				if err != nil {
					return nil, err
				}
				args[opt.Name] = v
				continue
			}
		}
		positional = append(positional, w)
	}

	for _, opt := range opts {
		if len(positional) == 0 {
			break
		}
		if _, bound := args[opt.Name]; bound {
			continue
		}
		raw := positional[0]
		positional = positional[1:]
		if opt.Rest && opt.Kind == OptionString {
			raw = strings.Join(append([]string{raw}, positional...), " ")
			positional = nil
		}
		v, err := parseOption(opt, raw)
		if err != nil {
			return nil, err
		}
		args[opt.Name] = v
	}

	for _, opt := range opts {
		if _, bound := args[opt.Name]; opt.Required && !bound {
			return nil, &OptionError{Option: opt.Name}
		}
	}
	return args, nil
}

func findOption(opts []Option, name string) (Option, bool) {
	for _, o := range opts {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return Option{}, false
}

func parseOption(opt Option, raw string) (any, error) {
	invalid := &OptionError{Option: opt.Name, Value: raw}
	switch opt.Kind {
	case OptionInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalid
		}
		if (opt.Min != nil && i < *opt.Min) || (opt.Max != nil && i > *opt.Max) {
			return nil, invalid
		}
		return i, nil
	case OptionBool:
		switch strings.ToLower(raw) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return nil, invalid
	}
	if len(opt.Choices) > 0 {
		for _, c := range opt.Choices {
			if strings.EqualFold(c.Value, raw) || strings.EqualFold(c.Name, raw) {
				return c.Value, nil
			}
		}
		return nil, invalid
	}
	return raw, nil
}

// --- Invocation ---

// Reply is rendered as a single components container.
type Reply struct {
	Title     string
	Content   string
	Footer    string
	Thumbnail string
	Accent    int
	Ephemeral bool
}

// Context is everything a handler sees about one invocation.
type Context struct {
	context.Context
	Client    *bot.Client
	Command   *Command
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	UserName  string
	Args      Args
	Server    ServerConfig
	Config    *Config
	Voice     VoiceState
	BotPerms  PermissionSet
	UserPerms PermissionSet
	Prefixed  bool
	Created   time.Time
}

func (c *Context) Lang() string {
	return c.Server.Lang
}

func (c *Context) T(key string, p P) string {
	return T(c.Lang(), key, p)
}

// Reply builds a translated reply.
func (c *Context) Reply(key string, p P) *Reply {
	return &Reply{Content: c.T(key, p)}
}

// Fail builds a CommandError carrying a translated reply.
func (c *Context) Fail(key string, p P) error {
	return NewCommandError(&Reply{Content: c.T(key, p), Ephemeral: true})
}
