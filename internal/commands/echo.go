package commands

import (
	"context"
	"strings"
)

// EchoCommand repeats a message back, optionally restyled.
type EchoCommand struct {
	Definition
}

// NewEchoCommand creates a new EchoCommand instance.
func NewEchoCommand() Command {
	return &EchoCommand{Definition: NewDefinition("echo", "Repeats your message.",
		StringArg("message", "Text to repeat"),
		StringArg("style", "How to restyle the text").AsOptional().WithChoices(
			Choice{Name: "As typed", Value: "plain"},
			Choice{Name: "Upper case", Value: "upper"},
			Choice{Name: "Lower case", Value: "lower"},
		),
		BooleanArg("private", "Only show the reply to you").AsOptional(),
	)}
}

// Execute runs the command.
func (c *EchoCommand) Execute(ctx context.Context, inv *Invocation) error {
	var message string
	if opt, ok := inv.Option("message"); ok {
		message = opt.String()
	}
	if message == "" {
		return inv.ReplyEphemeral("Nothing to repeat.")
	}

	if opt, ok := inv.Option("style"); ok {
		switch opt.String() {
		case "upper":
			message = strings.ToUpper(message)
		case "lower":
			message = strings.ToLower(message)
		}
	}

	if opt, ok := inv.Option("private"); ok {
		if private, err := opt.BoolValue(); err == nil && private {
			return inv.ReplyEphemeral(message)
		}
	}

	return inv.Reply(message)
}

// NewEchoFactory registers the echo command.
func NewEchoFactory() Factory {
	return Factory{ID: "echo", New: func() (Command, error) { return NewEchoCommand(), nil }}
}
