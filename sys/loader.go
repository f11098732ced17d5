package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/godave/golibdave"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

// safeGo runs a function in a new goroutine with panic recovery
func safeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Printf("%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// --- Global State & Setup ---

var AppContext = context.Background()
var RestartRequested atomic.Bool
var daemonsOnce sync.Once
var StartupTime = time.Now()

var router *Router
var voiceStateUpdateHandlers []func(event *events.GuildVoiceStateUpdate)
var onClientReadyCallbacks []func(ctx context.Context, client *bot.Client)

func SetAppContext(ctx context.Context) {
	AppContext = ctx
}

// RequestRestart makes main re-exec itself after a graceful shutdown.
func RequestRestart() {
	RestartRequested.Store(true)
	_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
}

// --- Bot Initialization ---

// CreateClient creates and configures a disgo client
func CreateClient(ctx context.Context, cfg *Config) (*bot.Client, error) {
	router = NewRouter(Commands(), RouterOptions{
		Rate:  rate.Limit(cfg.CommandRate),
		Burst: cfg.CommandBurst,
		Denied: func(guildID, channelID snowflake.ID, command string) bool {
			return ServerConfigs != nil && ServerConfigs.IsDenied(guildID, channelID, command)
		},
		Used: func(ctx context.Context, command string) error {
			return IncrementCommandStat(ctx, DB, command)
		},
		Report: reportError,
	})

	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMembers,
				gateway.IntentMessageContent,
				gateway.IntentGuildVoiceStates,
			),
			gateway.WithPresenceOpts(
				gateway.WithListeningActivity("/play"),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagRoles, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithVoiceManagerConfigOpts(
			voice.WithDaveSessionCreateFunc(golibdave.NewSession),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onMessageCreate),
		bot.WithEventListenerFunc(onVoiceStateUpdate),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 50,
					IdleConnTimeout:     90 * time.Second,
				},
			}),
		),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// --- Handler Registration ---

func RegisterVoiceStateUpdateHandler(handler func(event *events.GuildVoiceStateUpdate)) {
	voiceStateUpdateHandlers = append(voiceStateUpdateHandlers, handler)
}

func OnClientReady(cb func(ctx context.Context, client *bot.Client)) {
	onClientReadyCallbacks = append(onClientReadyCallbacks, cb)
}

// --- Command Syncing Logic ---

// SlashCommand converts c to its registration payload.
func (c *Command) SlashCommand() discord.SlashCommandCreate {
	sc := discord.SlashCommandCreate{
		Name:        c.Name,
		Description: c.Description,
		Contexts:    []discord.InteractionContextType{discord.InteractionContextTypeGuild},
	}
	if c.Admin {
		perm := discord.PermissionManageGuild
		sc.DefaultMemberPermissions = omit.New(&perm)
	}
	for _, o := range c.Options {
		sc.Options = append(sc.Options, o.slashOption())
	}
	return sc
}

func (o Option) slashOption() discord.ApplicationCommandOption {
	switch o.Kind {
	case OptionInt:
		return discord.ApplicationCommandOptionInt{
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
			MinValue:    o.Min,
			MaxValue:    o.Max,
		}
	case OptionBool:
		return discord.ApplicationCommandOptionBool{
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		}
	}
	opt := discord.ApplicationCommandOptionString{
		Name:        o.Name,
		Description: o.Description,
		Required:    o.Required,
	}
	for _, ch := range o.Choices {
		opt.Choices = append(opt.Choices, discord.ApplicationCommandOptionChoiceString{Name: ch.Name, Value: ch.Value})
	}
	return opt
}

func slashCommands() []discord.ApplicationCommandCreate {
	cmds := make([]discord.ApplicationCommandCreate, 0, len(registered))
	for _, c := range registered {
		cmds = append(cmds, c.SlashCommand())
	}
	return cmds
}

// calculateCommandHash generates a SHA256 hash of the commands slice
func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RegisterCommands syncs slash commands when their hash or the target
// (global or dev guild) changed since the last run.
func RegisterCommands(ctx context.Context, client *bot.Client, guildIDStr string, force bool) error {
	commands := slashCommands()
	isProduction := guildIDStr == ""
	currentMode := "guild"
	if isProduction {
		currentMode = "global"
	}

	currentHash := calculateCommandHash(commands)
	lastHash, _ := GetBotConfig(ctx, "last_cmd_hash")
	lastMode, _ := GetBotConfig(ctx, "last_reg_mode")
	lastGuildID, _ := GetBotConfig(ctx, "last_guild_id")

	if !force && currentHash != "" && currentHash == lastHash && currentMode == lastMode && lastGuildID == guildIDStr {
		LogLoader(MsgLoaderSyncSkipped)
		return nil
	}
	LogLoader(MsgLoaderSyncCommands, strings.ToUpper(currentMode))
	if lastMode != "" && lastMode != currentMode {
		LogLoader(MsgLoaderTransition, lastMode, currentMode)
	}

	if isProduction {
		LogLoader(MsgLoaderProdStarting, len(commands))
		if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, commands, rest.WithCtx(ctx)); err != nil {
			return fmt.Errorf(MsgLoaderProdFail, err)
		}
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", err)
		}
		LogLoader(MsgLoaderDevStarting, len(commands), guildIDStr)
		if _, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, commands, rest.WithCtx(ctx)); err != nil {
			return fmt.Errorf(MsgLoaderDevFail, err)
		}
		if lastMode == "global" {
			if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx)); err != nil {
				LogWarn(MsgLoaderDevGlobalClear, err)
			}
		}
	}

	if lastGuildID != "" && lastGuildID != guildIDStr {
		if oldID, err := snowflake.Parse(lastGuildID); err == nil {
			LogLoader(MsgLoaderCleanup, lastGuildID)
			_, _ = client.Rest.SetGuildCommands(client.ApplicationID, oldID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx))
		}
	}

	_ = SetBotConfig(ctx, "last_reg_mode", currentMode)
	_ = SetBotConfig(ctx, "last_guild_id", guildIDStr)
	if currentHash != "" {
		_ = SetBotConfig(ctx, "last_cmd_hash", currentHash)
	}
	return nil
}

// --- Event Handlers ---

func onReady(event *events.Ready) {
	client := event.Client()
	botUser := event.User

	duration := time.Since(StartupTime)
	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), duration.Milliseconds())

	TriggerClientReady(AppContext, client)
	StartDaemons(AppContext)
}

func TriggerClientReady(ctx context.Context, client *bot.Client) {
	for _, cb := range onClientReadyCallbacks {
		cb(ctx, client)
	}
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data, ok := event.Data.(discord.SlashCommandInteractionData)
	if !ok || router == nil {
		return
	}
	cmd, ok := router.Lookup(data.CommandName())
	if !ok {
		return
	}

	safeGo(func() {
		client := event.Client()
		if err := event.DeferCreateMessage(cmd.Ephemeral); err != nil {
			LogWarn(MsgCommandReplyFail, cmd.Name, err)
			return
		}

		var guildID snowflake.ID
		if g := event.GuildID(); g != nil {
			guildID = *g
		}
		var roleIDs []snowflake.ID
		if m := event.Member(); m != nil {
			roleIDs = m.RoleIDs
		}
		ctx := buildContext(client, cmd, guildID, event.Channel().ID(), event.User(), roleIDs, event.ID().Time())
		ctx.Args = slashArgs(cmd.Options, data)
		LogDebug(MsgCommandInvoked, cmd.Name, event.User().Username, guildID)

		reply := router.Dispatch(ctx)
		rc := client.Rest
		if reply.Ephemeral && !cmd.Ephemeral {
			_ = rc.DeleteInteractionResponse(event.ApplicationID(), event.Token())
			_, err := rc.CreateFollowupMessage(event.ApplicationID(), event.Token(), RenderCreate(reply))
			if err != nil {
				LogWarn(MsgCommandReplyFail, cmd.Name, err)
			}
			return
		}
		if _, err := rc.UpdateInteractionResponse(event.ApplicationID(), event.Token(), RenderUpdate(reply)); err != nil {
			LogWarn(MsgCommandReplyFail, cmd.Name, err)
		}
	})
}

func onMessageCreate(event *events.MessageCreate) {
	msg := event.Message
	if msg.Author.Bot || event.GuildID == nil || router == nil || ServerConfigs == nil {
		return
	}
	guildID := *event.GuildID
	server := ServerConfigs.Get(guildID)
	name, words, ok := ParsePrefix(msg.Content, server.Prefix)
	if !ok {
		return
	}
	cmd, ok := router.Lookup(name)
	if !ok {
		return
	}

	safeGo(func() {
		client := event.Client()
		var roleIDs []snowflake.ID
		if msg.Member != nil {
			roleIDs = msg.Member.RoleIDs
		} else if m, ok := client.Caches.Member(guildID, msg.Author.ID); ok {
			roleIDs = m.RoleIDs
		}
		ctx := buildContext(client, cmd, guildID, event.ChannelID, msg.Author, roleIDs, msg.CreatedAt)
		ctx.Prefixed = true
		LogDebug(MsgCommandInvoked, cmd.Name, msg.Author.Username, guildID)

		var reply *Reply
		if args, err := BindPositional(cmd.Options, words); err != nil {
			reply = router.failure(ctx, err)
		} else {
			ctx.Args = args
			reply = router.Dispatch(ctx)
		}

		create := RenderCreate(reply)
		create.MessageReference = &discord.MessageReference{MessageID: &msg.ID, ChannelID: &event.ChannelID}
		if _, err := client.Rest.CreateMessage(event.ChannelID, create); err != nil {
			LogWarn(MsgCommandReplyFail, cmd.Name, err)
		}
	})
}

func onVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	for _, h := range voiceStateUpdateHandlers {
		safeGo(func() { h(event) })
	}
}

// --- Invocation Context ---

func slashArgs(opts []Option, data discord.SlashCommandInteractionData) Args {
	args := Args{}
	for _, o := range opts {
		switch o.Kind {
		case OptionString:
			if v, ok := data.OptString(o.Name); ok {
				args[o.Name] = v
			}
		case OptionInt:
			if v, ok := data.OptInt(o.Name); ok {
				args[o.Name] = v
			}
		case OptionBool:
			if v, ok := data.OptBool(o.Name); ok {
				args[o.Name] = v
			}
		}
	}
	return args
}

func buildContext(client *bot.Client, cmd *Command, guildID, channelID snowflake.ID, user discord.User, roleIDs []snowflake.ID, created time.Time) *Context {
	ctx := &Context{
		Context:   AppContext,
		Client:    client,
		Command:   cmd,
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    user.ID,
		UserName:  user.Username,
		Config:    GetConfig(),
		Created:   created,
	}
	if guildID == 0 || ServerConfigs == nil {
		ctx.Server = DefaultServerConfig(ctx.Config)
		ctx.Server.GuildID = guildID
	} else {
		ctx.Server = ServerConfigs.Get(guildID)
	}
	if guildID == 0 {
		return ctx
	}

	userVoice := voiceChannelOf(client, guildID, user.ID)
	botVoice := voiceChannelOf(client, guildID, client.ID())
	ctx.Voice = VoiceState{UserChannel: userVoice, BotChannel: botVoice}

	var botRoles []snowflake.ID
	if self, ok := client.Caches.Member(guildID, client.ID()); ok {
		botRoles = self.RoleIDs
	}
	ctx.UserPerms = permissionsFor(client, guildID, user.ID, roleIDs, channelID, userVoice)
	ctx.BotPerms = permissionsFor(client, guildID, client.ID(), botRoles, channelID, userVoice)

	if userVoice != nil {
		if ch, ok := client.Caches.Channel(*userVoice); ok {
			if vc, ok := ch.(discord.GuildVoiceChannel); ok {
				ctx.Voice.UserLimit = vc.UserLimit
			}
		}
		for vs := range client.Caches.VoiceStates(guildID) {
			if vs.ChannelID != nil && *vs.ChannelID == *userVoice {
				ctx.Voice.Users++
			}
		}
		ctx.Voice.CanOverride = ctx.BotPerms.Voice.Has(discord.PermissionMoveMembers)
	}
	return ctx
}

func voiceChannelOf(client *bot.Client, guildID, userID snowflake.ID) *snowflake.ID {
	if vs, ok := client.Caches.VoiceState(guildID, userID); ok && vs.ChannelID != nil {
		id := *vs.ChannelID
		return &id
	}
	return nil
}

func permissionsFor(client *bot.Client, guildID, userID snowflake.ID, roleIDs []snowflake.ID, textID snowflake.ID, voiceID *snowflake.ID) PermissionSet {
	guild, ok := client.Caches.Guild(guildID)
	if !ok {
		return PermissionSet{}
	}
	m := Member{
		GuildID:   guildID,
		OwnerID:   guild.OwnerID,
		UserID:    userID,
		RoleIDs:   roleIDs,
		RolePerms: make(map[snowflake.ID]discord.Permissions, len(roleIDs)+1),
	}
	for _, id := range append([]snowflake.ID{guildID}, roleIDs...) {
		if role, ok := client.Caches.Role(guildID, id); ok {
			m.RolePerms[id] = role.Permissions
		}
	}

	set := PermissionSet{
		Server: BasePermissions(m),
		Text:   ChannelPermissions(m, channelOverwrites(client, textID)),
	}
	if voiceID != nil {
		set.Voice = ChannelPermissions(m, channelOverwrites(client, *voiceID))
	}
	return set
}

func channelOverwrites(client *bot.Client, channelID snowflake.ID) []Overwrite {
	ch, ok := client.Caches.Channel(channelID)
	if !ok {
		return nil
	}
	var out []Overwrite
	for _, o := range ch.PermissionOverwrites() {
		switch ov := o.(type) {
		case discord.RolePermissionOverwrite:
			out = append(out, Overwrite{ID: ov.RoleID, Role: true, Allow: ov.Allow, Deny: ov.Deny})
		case discord.MemberPermissionOverwrite:
			out = append(out, Overwrite{ID: ov.UserID, Allow: ov.Allow, Deny: ov.Deny})
		}
	}
	return out
}

// --- Rendering ---

// RenderContainer lays a reply out as a components container.
func RenderContainer(r *Reply) discord.ContainerComponent {
	text := r.Content
	if r.Title != "" {
		text = "### " + r.Title + "\n" + text
	}

	var parts []discord.ContainerSubComponent
	if r.Thumbnail != "" {
		parts = append(parts, discord.NewSection(discord.NewTextDisplay(text)).WithAccessory(discord.NewThumbnail(r.Thumbnail)))
	} else {
		parts = append(parts, discord.NewTextDisplay(text))
	}
	if r.Footer != "" {
		parts = append(parts,
			discord.NewSeparator(discord.SeparatorSpacingSizeSmall).WithDivider(true),
			discord.NewTextDisplay("-# "+r.Footer),
		)
	}

	c := discord.NewContainer(parts...)
	if r.Accent != 0 {
		c = c.WithAccentColor(r.Accent)
	}
	return c
}

func RenderCreate(r *Reply) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		SetEphemeral(r.Ephemeral).
		AddComponents(RenderContainer(r)).
		Build()
}

func RenderUpdate(r *Reply) discord.MessageUpdate {
	return discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		AddComponents(RenderContainer(r)).
		Build()
}

// reportError sends an unhandled error to every owner by DM.
func reportError(ctx *Context, id string, err error) {
	if ctx.Client == nil {
		return
	}
	content := fmt.Sprintf("**/%s** failed in guild `%s` for <@%s>\nError id: `%s`\n```\n%v\n```",
		ctx.Command.Name, ctx.GuildID, ctx.UserID, id, err)
	for _, owner := range ctx.Config.OwnerIDs {
		ownerID, perr := snowflake.Parse(owner)
		if perr != nil {
			continue
		}
		dm, derr := ctx.Client.Rest.CreateDMChannel(ownerID, rest.WithCtx(ctx))
		if derr != nil {
			LogWarn(MsgCommandReportFail, id, owner, derr)
			continue
		}
		if _, serr := ctx.Client.Rest.CreateMessage(dm.ID(), RenderCreate(&Reply{Content: content}), rest.WithCtx(ctx)); serr != nil {
			LogWarn(MsgCommandReportFail, id, owner, serr)
		}
	}
}

// --- Daemon System ---

type daemonEntry struct {
	starter func(ctx context.Context) (bool, func(), func())
	logger  func(format string, v ...any)
}

var registeredDaemons []daemonEntry
var activeShutdownHooks []func()
var activeShutdownMu sync.Mutex

// RegisterDaemon registers a background daemon with a logger and start function
func RegisterDaemon(logger func(format string, v ...any), starter func(ctx context.Context) (bool, func(), func())) {
	registeredDaemons = append(registeredDaemons, daemonEntry{starter: starter, logger: logger})
}

// StartDaemons starts all registered daemons with their individual colored logging
func StartDaemons(ctx context.Context) {
	daemonsOnce.Do(func() {
		type activeDaemon struct {
			entry daemonEntry
			run   func()
		}
		var active []activeDaemon

		for _, daemon := range registeredDaemons {
			if ok, run, shutdown := daemon.starter(ctx); ok && run != nil {
				if shutdown != nil {
					activeShutdownMu.Lock()
					activeShutdownHooks = append(activeShutdownHooks, shutdown)
					activeShutdownMu.Unlock()
				}
				active = append(active, activeDaemon{daemon, run})
			}
		}

		for _, ad := range active {
			ad.entry.logger(MsgDaemonStarting)
		}

		for _, ad := range active {
			safeGo(ad.run)
		}
	})
}

// ShutdownDaemons gracefully stops all active daemons
func ShutdownDaemons(ctx context.Context) {
	activeShutdownMu.Lock()
	defer activeShutdownMu.Unlock()

	var wg sync.WaitGroup
	for _, shutdown := range activeShutdownHooks {
		if shutdown != nil {
			wg.Add(1)
			go func(s func()) {
				defer wg.Done()
				s()
			}(shutdown)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
