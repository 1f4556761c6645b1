package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/diamondburned/arikawa/v3/discord"
)

// capabilities maps the permission names accepted in policies onto Discord
// permission bits. Renamed permissions are accepted under both names.
var capabilities = map[string]discord.Permissions{
	"CREATE_INSTANT_INVITE":               discord.PermissionCreateInstantInvite,
	"KICK_MEMBERS":                        discord.PermissionKickMembers,
	"BAN_MEMBERS":                         discord.PermissionBanMembers,
	"ADMINISTRATOR":                       discord.PermissionAdministrator,
	"MANAGE_CHANNELS":                     discord.PermissionManageChannels,
	"MANAGE_GUILD":                        discord.PermissionManageGuild,
	"ADD_REACTIONS":                       discord.PermissionAddReactions,
	"VIEW_AUDIT_LOG":                      discord.PermissionViewAuditLog,
	"PRIORITY_SPEAKER":                    discord.PermissionPrioritySpeaker,
	"STREAM":                              discord.PermissionStream,
	"VIEW_CHANNEL":                        discord.PermissionViewChannel,
	"SEND_MESSAGES":                       discord.PermissionSendMessages,
	"SEND_TTS_MESSAGES":                   discord.PermissionSendTTSMessages,
	"MANAGE_MESSAGES":                     discord.PermissionManageMessages,
	"EMBED_LINKS":                         discord.PermissionEmbedLinks,
	"ATTACH_FILES":                        discord.PermissionAttachFiles,
	"READ_MESSAGE_HISTORY":                discord.PermissionReadMessageHistory,
	"MENTION_EVERYONE":                    discord.PermissionMentionEveryone,
	"USE_EXTERNAL_EMOJIS":                 discord.PermissionUseExternalEmojis,
	"VIEW_GUILD_INSIGHTS":                 discord.PermissionViewGuildInsights,
	"CONNECT":                             discord.PermissionConnect,
	"SPEAK":                               discord.PermissionSpeak,
	"MUTE_MEMBERS":                        discord.PermissionMuteMembers,
	"DEAFEN_MEMBERS":                      discord.PermissionDeafenMembers,
	"MOVE_MEMBERS":                        discord.PermissionMoveMembers,
	"USE_VAD":                             discord.PermissionUseVAD,
	"CHANGE_NICKNAME":                     discord.PermissionChangeNickname,
	"MANAGE_NICKNAMES":                    discord.PermissionManageNicknames,
	"MANAGE_ROLES":                        discord.PermissionManageRoles,
	"MANAGE_WEBHOOKS":                     discord.PermissionManageWebhooks,
	"MANAGE_EMOJIS_AND_STICKERS":          discord.PermissionManageEmojisAndStickers,
	"MANAGE_GUILD_EXPRESSIONS":            discord.PermissionManageEmojisAndStickers,
	"USE_APPLICATION_COMMANDS":            discord.PermissionUseSlashCommands,
	"USE_SLASH_COMMANDS":                  discord.PermissionUseSlashCommands,
	"REQUEST_TO_SPEAK":                    discord.PermissionRequestToSpeak,
	"MANAGE_EVENTS":                       discord.PermissionManageEvents,
	"MANAGE_THREADS":                      discord.PermissionManageThreads,
	"CREATE_PUBLIC_THREADS":               discord.PermissionCreatePublicThreads,
	"CREATE_PRIVATE_THREADS":              discord.PermissionCreatePrivateThreads,
	"USE_EXTERNAL_STICKERS":               discord.PermissionUseExternalStickers,
	"SEND_MESSAGES_IN_THREADS":            discord.PermissionSendMessagesInThreads,
	"USE_EMBEDDED_ACTIVITIES":             discord.PermissionStartEmbeddedActivities,
	"START_EMBEDDED_ACTIVITIES":           discord.PermissionStartEmbeddedActivities,
	"MODERATE_MEMBERS":                    discord.PermissionModerateMembers,
	"VIEW_CREATOR_MONETIZATION_ANALYTICS": discord.PermissionViewCreatorMonetizationAnalytics,
	"USE_SOUNDBOARD":                      discord.PermissionUseSoundboard,
	"USE_EXTERNAL_SOUNDS":                 discord.PermissionUseExternalSounds,
	"SEND_VOICE_MESSAGES":                 discord.PermissionSendVoiceMessages,
}

// Capability resolves a permission name such as "MANAGE_GUILD".
// Lookups are case-insensitive.
func Capability(name string) (discord.Permissions, bool) {
	p, ok := capabilities[strings.ToUpper(strings.TrimSpace(name))]

	return p, ok
}

// CapabilityNames lists every permission name a policy may use, sorted.
func CapabilityNames() []string {
	names := make([]string, 0, len(capabilities))
	for name := range capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Policy restricts who may invoke a command.
//
// With Strict set the invoking member must hold every listed role and every
// listed capability. Otherwise holding any one listed role or any one listed
// capability is enough. A policy listing neither allows everyone.
type Policy struct {
	Roles        []string `yaml:"roles,omitempty" toml:"roles"`
	Capabilities []string `yaml:"capabilities,omitempty" toml:"capabilities"`
	Strict       bool     `yaml:"strict" toml:"strict"`
}

// Principal is what the dispatcher knows about the invoking member.
type Principal struct {
	RoleIDs     []discord.RoleID
	RoleNames   []string
	Permissions discord.Permissions
}

// PrincipalResolver describes the member behind an interaction.
type PrincipalResolver interface {
	Principal(e *discord.InteractionEvent) (Principal, error)
}

// Validate rejects capability names Discord does not define.
func (p *Policy) Validate() error {
	if p == nil {
		return nil
	}
	for _, name := range p.Capabilities {
		if _, ok := Capability(name); !ok {
			return fmt.Errorf("%w %q", ErrUnknownCapability, name)
		}
	}

	return nil
}

// IsOpen reports whether the policy lets everyone through.
func (p *Policy) IsOpen() bool {
	return p == nil || (len(p.Roles) == 0 && len(p.Capabilities) == 0)
}

// Allows evaluates the policy against a member.
func (p *Policy) Allows(who Principal) bool {
	if p.IsOpen() {
		return true
	}

	if p.Strict {
		for _, role := range p.Roles {
			if !who.hasRole(role) {
				return false
			}
		}
		for _, name := range p.Capabilities {
			if !who.hasCapability(name) {
				return false
			}
		}

		return true
	}

	for _, role := range p.Roles {
		if who.hasRole(role) {
			return true
		}
	}
	for _, name := range p.Capabilities {
		if who.hasCapability(name) {
			return true
		}
	}

	return false
}

// hasRole matches a policy entry against role IDs, then role names.
func (who Principal) hasRole(role string) bool {
	for _, id := range who.RoleIDs {
		if id.String() == role {
			return true
		}
	}
	for _, name := range who.RoleNames {
		if strings.EqualFold(name, role) {
			return true
		}
	}

	return false
}

func (who Principal) hasCapability(name string) bool {
	perm, ok := Capability(name)
	if !ok {
		return false
	}

	return who.Permissions&perm == perm
}
