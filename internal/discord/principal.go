package discord

import (
	"errors"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/state"

	"github.com/Raikerian/disbot/internal/commands"
)

// ErrNotInGuild is returned for interactions that carry no guild member,
// such as direct messages.
var ErrNotInGuild = errors.New("interaction was not sent by a guild member")

// guildCache is the part of *state.State used to resolve members.
type guildCache interface {
	Permissions(channelID discord.ChannelID, userID discord.UserID) (discord.Permissions, error)
	Role(guildID discord.GuildID, roleID discord.RoleID) (*discord.Role, error)
}

// StatePrincipals resolves invoking members from the state cache.
type StatePrincipals struct {
	cache guildCache
}

// NewPrincipalResolver creates a resolver backed by the gateway state.
func NewPrincipalResolver(st *state.State) *StatePrincipals {
	return &StatePrincipals{cache: st}
}

// Principal returns the roles and channel permissions of the member who
// triggered the interaction. Roles missing from the cache keep their ID but
// contribute no name.
func (r *StatePrincipals) Principal(e *discord.InteractionEvent) (commands.Principal, error) {
	if e.Member == nil || !e.GuildID.IsValid() {
		return commands.Principal{}, ErrNotInGuild
	}

	perms, err := r.cache.Permissions(e.ChannelID, e.Member.User.ID)
	if err != nil {
		return commands.Principal{}, fmt.Errorf("compute permissions: %w", err)
	}

	names := make([]string, 0, len(e.Member.RoleIDs))
	for _, id := range e.Member.RoleIDs {
		role, err := r.cache.Role(e.GuildID, id)
		if err != nil || role == nil {
			continue
		}
		names = append(names, role.Name)
	}

	return commands.Principal{
		RoleIDs:     e.Member.RoleIDs,
		RoleNames:   names,
		Permissions: perms,
	}, nil
}
