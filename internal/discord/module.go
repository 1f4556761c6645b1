// Package discord provides Discord-related infrastructure and Fx modules.
package discord

import (
	"context"

	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/arikawa/v3/state/store/defaultstore"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
)

// Module provides the gateway session, the state cache and the
// interaction-facing adapters built on them.
var Module = fx.Module("discord",
	fx.Provide(
		NewSession,
		NewState,
		NewResponder,
		fx.Annotate(NewPrincipalResolver, fx.As(new(commands.PrincipalResolver))),
	),
)

// RegistrarModule provides the REST registrar. It needs no gateway
// connection and is used by one-shot CLI commands as well.
var RegistrarModule = fx.Module("registrar",
	fx.Provide(
		fx.Annotate(NewRESTRegistrar, fx.As(new(commands.Registrar))),
	),
)

// Slash commands only need guild create events and interactions. Member
// roles arrive with each interaction.
const intents = gateway.IntentGuilds | gateway.IntentGuildIntegrations

// SessionParams holds dependencies for NewSession.
type SessionParams struct {
	fx.In
	Cfg    *config.Config
	LC     fx.Lifecycle
	Logger *zap.Logger
}

// NewSession creates the gateway session and ties it to the application
// lifecycle. Both the bot token and the application ID must be configured.
func NewSession(params SessionParams) (*session.Session, error) {
	creds, err := params.Cfg.RegistrarCredentials()
	if err != nil {
		return nil, err
	}

	logger := params.Logger.Named("gateway").With(zap.Stringer("applicationID", creds.ApplicationID))
	s := session.New("Bot " + creds.BotToken)
	s.AddIntents(intents)

	params.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Opening Discord session")

			return s.Open(ctx)
		},
		OnStop: func(context.Context) error {
			logger.Info("Closing Discord session")

			return s.Close()
		},
	})

	return s, nil
}

// NewState wraps the session with an in-memory cache of guilds, channels and
// roles, which is what permission checks read from.
func NewState(s *session.Session, logger *zap.Logger) *state.State {
	st := state.NewFromSession(s, defaultstore.New())
	logger.Debug("Discord state cache attached to session")

	return st
}

// NewResponder exposes the session as the interaction responder.
func NewResponder(s *session.Session) commands.Responder {
	return s
}
