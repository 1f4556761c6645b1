package commands

import (
	"context"
)

// AppVersion is the version of the application, should be set during build time.
var AppVersion = "dev"

// VersionCommand is a command that responds with the application version.
type VersionCommand struct {
	Definition
	version string
}

// NewVersionCommand creates a new VersionCommand instance.
func NewVersionCommand() Command {
	return &VersionCommand{
		Definition: NewDefinition("version", "Displays the current version of the bot."),
		version:    AppVersion,
	}
}

// Execute runs the command.
func (c *VersionCommand) Execute(ctx context.Context, inv *Invocation) error {
	return inv.Reply("Version: " + c.version)
}

// NewVersionFactory registers the version command.
func NewVersionFactory() Factory {
	return Factory{ID: "version", New: func() (Command, error) { return NewVersionCommand(), nil }}
}
