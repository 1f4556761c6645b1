package commands

import (
	"context"
)

// PingCommand is a simple command that responds with "Pong!".
type PingCommand struct {
	Definition
}

// NewPingCommand creates a new PingCommand instance.
func NewPingCommand() Command {
	return &PingCommand{Definition: NewDefinition("ping", "Responds with Pong!")}
}

// Execute runs the command.
func (c *PingCommand) Execute(ctx context.Context, inv *Invocation) error {
	return inv.Reply("Pong!")
}

// NewPingFactory registers the ping command.
func NewPingFactory() Factory {
	return Factory{ID: "ping", New: func() (Command, error) { return NewPingCommand(), nil }}
}
