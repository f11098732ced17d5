package sys

import (
	"fmt"
	"math/bits"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Requirements lists the permissions a command needs per scope.
type Requirements struct {
	Server discord.Permissions
	Text   discord.Permissions
	Voice  discord.Permissions
}

func (r Requirements) IsZero() bool {
	return r.Server == 0 && r.Text == 0 && r.Voice == 0
}

// PermissionSet is what a member actually holds per scope.
type PermissionSet struct {
	Server discord.Permissions
	Text   discord.Permissions
	Voice  discord.Permissions
}

var permissionNames = []struct {
	perm discord.Permissions
	name string
}{
	{discord.PermissionAdministrator, "Administrator"},
	{discord.PermissionManageGuild, "Manage Server"},
	{discord.PermissionManageChannels, "Manage Channels"},
	{discord.PermissionViewChannel, "View Channel"},
	{discord.PermissionSendMessages, "Send Messages"},
	{discord.PermissionEmbedLinks, "Embed Links"},
	{discord.PermissionAttachFiles, "Attach Files"},
	{discord.PermissionReadMessageHistory, "Read Message History"},
	{discord.PermissionAddReactions, "Add Reactions"},
	{discord.PermissionManageMessages, "Manage Messages"},
	{discord.PermissionConnect, "Connect"},
	{discord.PermissionSpeak, "Speak"},
	{discord.PermissionMoveMembers, "Move Members"},
}

// PermissionName names the first missing permission in table order.
func PermissionName(missing discord.Permissions) string {
	for _, p := range permissionNames {
		if missing.Has(p.perm) {
			return p.name
		}
	}
	if missing == 0 {
		return ""
	}
	return fmt.Sprintf("Permission %d", bits.TrailingZeros64(uint64(missing)))
}

// CheckPermissions fails with a PermissionError on the first scope that
// misses a required permission.
func CheckPermissions(req Requirements, granted PermissionSet, bot bool) error {
	scopes := []struct {
		scope PermissionScope
		need  discord.Permissions
		have  discord.Permissions
	}{
		{ScopeServer, req.Server, granted.Server},
		{ScopeText, req.Text, granted.Text},
		{ScopeVoice, req.Voice, granted.Voice},
	}
	for _, s := range scopes {
		if s.have.Has(discord.PermissionAdministrator) {
			continue
		}
		if missing := s.need &^ s.have; missing != 0 {
			return &PermissionError{Permission: PermissionName(missing), Bot: bot, Scope: s.scope}
		}
	}
	return nil
}

// --- Permission Math ---

// Overwrite is a channel permission overwrite for a role or a member.
type Overwrite struct {
	ID    snowflake.ID
	Role  bool
	Allow discord.Permissions
	Deny  discord.Permissions
}

// Member is the input to the permission calculation. RolePerms holds every
// guild role, the @everyone role keyed by the guild id.
type Member struct {
	GuildID   snowflake.ID
	OwnerID   snowflake.ID
	UserID    snowflake.ID
	RoleIDs   []snowflake.ID
	RolePerms map[snowflake.ID]discord.Permissions
}

// BasePermissions is the guild wide permission set of m.
func BasePermissions(m Member) discord.Permissions {
	if m.OwnerID == m.UserID {
		return discord.PermissionsAll
	}
	perms := m.RolePerms[m.GuildID]
	for _, id := range m.RoleIDs {
		perms |= m.RolePerms[id]
	}
	if perms.Has(discord.PermissionAdministrator) {
		return discord.PermissionsAll
	}
	return perms
}

// ChannelPermissions applies overwrites in order: @everyone, roles, member.
func ChannelPermissions(m Member, overwrites []Overwrite) discord.Permissions {
	perms := BasePermissions(m)
	if perms == discord.PermissionsAll {
		return perms
	}

	for _, o := range overwrites {
		if o.Role && o.ID == m.GuildID {
			perms &^= o.Deny
			perms |= o.Allow
			break
		}
	}

	var roleAllow, roleDeny discord.Permissions
	for _, o := range overwrites {
		if !o.Role || o.ID == m.GuildID {
			continue
		}
		for _, id := range m.RoleIDs {
			if o.ID == id {
				roleDeny |= o.Deny
				roleAllow |= o.Allow
				break
			}
		}
	}
	perms &^= roleDeny
	perms |= roleAllow

	for _, o := range overwrites {
		if !o.Role && o.ID == m.UserID {
			perms &^= o.Deny
			perms |= o.Allow
			break
		}
	}
	return perms
}

// --- Voice Guard ---

type VoiceRequirement int

const (
	VoiceAny VoiceRequirement = iota
	// VoiceJoin: the user is in a channel the bot can join or already shares.
	VoiceJoin
	// VoiceSame: the user shares the bot's channel, if any.
	VoiceSame
)

// VoiceState is the voice situation of one invocation.
type VoiceState struct {
	UserChannel *snowflake.ID
	BotChannel  *snowflake.ID
	UserLimit   int
	Users       int
	CanOverride bool
}

func CheckVoice(req VoiceRequirement, st VoiceState) error {
	if req == VoiceAny {
		return nil
	}
	if st.UserChannel == nil {
		return &VoiceError{Kind: VoiceNoChannel}
	}
	if st.BotChannel != nil && *st.BotChannel != *st.UserChannel {
		return &VoiceError{Kind: VoiceDifferentChannel, Channel: *st.BotChannel}
	}
	if req == VoiceJoin && st.BotChannel == nil && st.UserLimit > 0 && st.Users >= st.UserLimit && !st.CanOverride {
		return &VoiceError{Kind: VoiceChannelFull, Channel: *st.UserChannel}
	}
	return nil
}
