package commands

import (
	"context"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/utils/json/option"
	"go.uber.org/zap"
)

// Command defines the interface for slash commands.
//
// Definition provides everything except Execute, so a type only becomes a
// Command once it supplies behavior.
type Command interface {
	Name() string
	Description() string
	Arguments() []Argument
	Permission() *Policy
	Execute(ctx context.Context, inv *Invocation) error
}

// Definition holds the static part of a command.
type Definition struct {
	name        string
	description string
	arguments   []Argument
	policy      *Policy
}

// NewDefinition creates a definition with the given arguments in option order.
func NewDefinition(name, description string, args ...Argument) Definition {
	return Definition{name: name, description: description, arguments: args}
}

// WithPermission returns a copy of the definition guarded by the policy.
func (d Definition) WithPermission(p *Policy) Definition {
	d.policy = p

	return d
}

// Name returns the name of the command.
func (d Definition) Name() string { return d.name }

// Description returns the description of the command.
func (d Definition) Description() string { return d.description }

// Arguments returns the command arguments.
func (d Definition) Arguments() []Argument { return d.arguments }

// Permission returns the policy guarding the command, or nil.
func (d Definition) Permission() *Policy { return d.policy }

// HandlerFunc is the behavior of a command built with Func.
type HandlerFunc func(ctx context.Context, inv *Invocation) error

type funcCommand struct {
	Definition
	handler HandlerFunc
}

// Func builds a command from a definition and its handler.
func Func(def Definition, handler HandlerFunc) Command {
	return &funcCommand{Definition: def, handler: handler}
}

func (c *funcCommand) Execute(ctx context.Context, inv *Invocation) error {
	if c.handler == nil {
		inv.logger().Warn("Command has no handler", zap.String("commandName", c.Name()))

		return ErrNotImplemented
	}

	return c.handler(ctx, inv)
}

// Responder sends interaction responses. *session.Session satisfies it.
type Responder interface {
	RespondInteraction(id discord.InteractionID, token string, resp api.InteractionResponse) error
}

// Controller exposes bot-level operations to commands.
type Controller interface {
	// Reload rebuilds the registry and re-registers commands. A valid guild ID
	// limits registration to that guild.
	Reload(ctx context.Context, guildID discord.GuildID) (*LoadReport, error)
}

// Invocation is a single execution of a command.
type Invocation struct {
	Event      *gateway.InteractionCreateEvent
	Data       *discord.CommandInteraction
	Responder  Responder
	Controller Controller
	Logger     *zap.Logger
}

func (inv *Invocation) logger() *zap.Logger {
	if inv == nil || inv.Logger == nil {
		return zap.NewNop()
	}

	return inv.Logger
}

// GuildID returns the guild the interaction happened in.
func (inv *Invocation) GuildID() discord.GuildID {
	return inv.Event.GuildID
}

// Option looks up an argument value by name.
func (inv *Invocation) Option(name string) (discord.CommandInteractionOption, bool) {
	if inv.Data == nil {
		return discord.CommandInteractionOption{}, false
	}
	for _, opt := range inv.Data.Options {
		if opt.Name == name {
			return opt, true
		}
	}

	return discord.CommandInteractionOption{}, false
}

// Reply responds to the interaction with a plain message.
func (inv *Invocation) Reply(content string) error {
	return Respond(inv.Responder, inv.Event, content, false)
}

// ReplyEphemeral responds with a message only the invoking user can see.
func (inv *Invocation) ReplyEphemeral(content string) error {
	return Respond(inv.Responder, inv.Event, content, true)
}

// Respond sends a message response to an interaction.
func Respond(r Responder, e *gateway.InteractionCreateEvent, content string, ephemeral bool) error {
	data := &api.InteractionResponseData{
		Content: option.NewNullableString(content),
	}
	if ephemeral {
		data.Flags = discord.EphemeralMessage
	}

	return r.RespondInteraction(e.ID, e.Token, api.InteractionResponse{
		Type: api.MessageInteractionWithSource,
		Data: data,
	})
}
