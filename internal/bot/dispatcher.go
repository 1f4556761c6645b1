package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/commands"
)

// Outcome is the final state of one dispatched interaction.
type Outcome int

const (
	// OutcomeIgnored means the interaction was not a slash command.
	OutcomeIgnored Outcome = iota
	// OutcomeUnknown means no command with that name is registered.
	OutcomeUnknown
	// OutcomeDenied means the member failed the command policy.
	OutcomeDenied
	// OutcomeExecuted means the command ran without error.
	OutcomeExecuted
	// OutcomeFaulted means the command returned an error or panicked.
	OutcomeFaulted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeDenied:
		return "denied"
	case OutcomeExecuted:
		return "executed"
	case OutcomeFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

const (
	replyUnknown = "Unknown command."
	replyDenied  = "You are not allowed to use this command."
	replyFault   = "An error occurred while executing the command."

	defaultDispatchTimeout = 15 * time.Second
)

// DispatcherConfig holds the collaborators of a Dispatcher.
type DispatcherConfig struct {
	Store      *commands.Store
	Responder  commands.Responder
	Principals commands.PrincipalResolver
	Controller commands.Controller
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Dispatcher routes command interactions to the current registry.
type Dispatcher struct {
	store      *commands.Store
	responder  commands.Responder
	principals commands.PrincipalResolver
	controller commands.Controller
	timeout    time.Duration
	logger     *zap.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(c DispatcherConfig) *Dispatcher {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}

	return &Dispatcher{
		store:      c.Store,
		responder:  c.Responder,
		principals: c.Principals,
		controller: c.Controller,
		timeout:    timeout,
		logger:     logger.Named("dispatcher"),
	}
}

// Dispatch handles one interaction. It never panics and replies to every
// command interaction it cannot run successfully.
func (d *Dispatcher) Dispatch(ctx context.Context, e *gateway.InteractionCreateEvent) Outcome {
	data, ok := e.Data.(*discord.CommandInteraction)
	if !ok {
		d.logger.Debug("Received unhandled interaction type", zap.String("type", fmt.Sprintf("%T", e.Data)))

		return OutcomeIgnored
	}

	logger := d.logger.With(
		zap.String("commandName", data.Name),
		zap.Stringer("guildID", e.GuildID),
		zap.Stringer("userID", e.SenderID()))
	logger.Info("Received slash command")

	cmd, ok := d.store.Load().Get(data.Name)
	if !ok {
		logger.Warn("Unknown command", zap.Error(commands.ErrUnknownCommand))
		d.reply(logger, e, replyUnknown)

		return OutcomeUnknown
	}

	if err := d.authorize(&e.InteractionEvent, cmd.Permission()); err != nil {
		logger.Warn("Command denied", zap.Error(err))
		d.reply(logger, e, replyDenied)

		return OutcomeDenied
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	inv := &commands.Invocation{
		Event:      e,
		Data:       data,
		Responder:  d.responder,
		Controller: d.controller,
		Logger:     logger,
	}
	if err := execute(ctx, cmd, inv); err != nil {
		logger.Error("Error executing command", zap.Error(err))
		d.reply(logger, e, replyFault)

		return OutcomeFaulted
	}

	logger.Info("Command executed successfully")

	return OutcomeExecuted
}

func (d *Dispatcher) authorize(e *discord.InteractionEvent, policy *commands.Policy) error {
	if policy.IsOpen() {
		return nil
	}
	if d.principals == nil {
		return fmt.Errorf("%w: member permissions are unavailable", commands.ErrUnauthorized)
	}

	who, err := d.principals.Principal(e)
	if err != nil {
		return fmt.Errorf("%w: %w", commands.ErrUnauthorized, err)
	}
	if !policy.Allows(who) {
		return commands.ErrUnauthorized
	}

	return nil
}

// execute runs the command and converts errors and panics into an
// ExecutionFault.
func execute(ctx context.Context, cmd commands.Command, inv *commands.Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &commands.ExecutionFault{Command: cmd.Name(), Panic: r}
		}
	}()

	if err := cmd.Execute(ctx, inv); err != nil {
		return &commands.ExecutionFault{Command: cmd.Name(), Err: err}
	}

	return nil
}

func (d *Dispatcher) reply(logger *zap.Logger, e *gateway.InteractionCreateEvent, content string) {
	if d.responder == nil {
		logger.Error("No responder configured, dropping reply", zap.String("content", content))

		return
	}
	if err := commands.Respond(d.responder, e, content, true); err != nil {
		logger.Error("Failed to respond to interaction", zap.Error(err))
	}
}
