package commands

import (
	"context"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
)

// WhoisCommand shows the ID and account age of a user.
type WhoisCommand struct {
	Definition
}

// NewWhoisCommand creates a new WhoisCommand instance.
func NewWhoisCommand() Command {
	return &WhoisCommand{Definition: NewDefinition("whois", "Shows who a user is.",
		UserArg("user", "The user to look up"),
	)}
}

// Execute runs the command.
func (c *WhoisCommand) Execute(ctx context.Context, inv *Invocation) error {
	opt, ok := inv.Option("user")
	if !ok {
		return inv.ReplyEphemeral("Pick a user to look up.")
	}
	sf, err := opt.SnowflakeValue()
	if err != nil {
		return fmt.Errorf("read user option: %w", err)
	}

	userID := discord.UserID(sf)

	return inv.ReplyEphemeral(fmt.Sprintf("%s has ID `%s` and joined Discord <t:%d:R>.",
		userID.Mention(), userID, userID.Time().Unix()))
}

// NewWhoisFactory registers the whois command.
func NewWhoisFactory() Factory {
	return Factory{ID: "whois", New: func() (Command, error) { return NewWhoisCommand(), nil }}
}
