package commands

import (
	"context"
	"fmt"
	"time"
)

const reloadTimeout = 2500 * time.Millisecond

// ReloadCommand reloads the command registry and registers it again for the
// guild it is invoked in.
type ReloadCommand struct {
	Definition
}

// NewReloadCommand creates a new ReloadCommand instance. By default only
// administrators and members who can manage the guild may run it.
func NewReloadCommand() Command {
	return &ReloadCommand{Definition: NewDefinition("reload", "Reloads bot commands.").
		WithPermission(&Policy{Capabilities: []string{"ADMINISTRATOR", "MANAGE_GUILD"}})}
}

// Execute runs the command.
func (c *ReloadCommand) Execute(ctx context.Context, inv *Invocation) error {
	if inv.Controller == nil {
		return inv.ReplyEphemeral("Reloading is not available.")
	}

	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	report, err := inv.Controller.Reload(ctx, inv.GuildID())
	if report == nil {
		return inv.ReplyEphemeral("Reload failed, the previous commands are still active.")
	}

	msg := fmt.Sprintf("Reloaded %d commands.", len(report.Loaded))
	if n := len(report.Failed); n > 0 {
		msg += fmt.Sprintf(" %d failed to load.", n)
	}
	if err != nil {
		msg += " Registering them with Discord failed, see the bot logs."
	}

	return inv.ReplyEphemeral(msg)
}

// NewReloadFactory registers the reload command.
func NewReloadFactory() Factory {
	return Factory{ID: "reload", New: func() (Command, error) { return NewReloadCommand(), nil }}
}
