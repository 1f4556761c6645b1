package discord

import (
	"context"
	"sync"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/config"
)

// RESTRegistrar registers guild commands through the Discord REST API.
type RESTRegistrar struct {
	logger *zap.Logger

	mu     sync.Mutex
	token  string
	client *api.Client
}

// NewRESTRegistrar creates a new RESTRegistrar.
func NewRESTRegistrar(logger *zap.Logger) *RESTRegistrar {
	return &RESTRegistrar{logger: logger.Named("registrar")}
}

// ReplaceCommands overwrites every command of the guild with cmds.
func (r *RESTRegistrar) ReplaceCommands(ctx context.Context, creds config.Credentials, guildID discord.GuildID, cmds []api.CreateCommandData) error {
	registered, err := r.clientFor(creds.BotToken).WithContext(ctx).
		BulkOverwriteGuildCommands(creds.ApplicationID, guildID, cmds)
	if err != nil {
		return err
	}

	r.logger.Debug("Discord accepted guild commands",
		zap.Stringer("guildID", guildID),
		zap.Int("count", len(registered)))

	return nil
}

// clientFor reuses one API client per bot token.
func (r *RESTRegistrar) clientFor(token string) *api.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil || r.token != token {
		r.client = api.NewClient("Bot " + token)
		r.token = token
	}

	return r.client
}
