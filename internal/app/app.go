// Package app assembles the long-running bot process from Fx modules.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/bot"
)

// Application is the fx application serving slash commands.
type Application struct {
	app *fx.App
}

// New builds the application from the given modules. The bot is started
// after every module that was appended before it, so the gateway session is
// already open when commands are loaded.
func New(modules ...fx.Option) *Application {
	opts := make([]fx.Option, 0, len(modules)+1)
	opts = append(opts, modules...)
	opts = append(opts, fx.Invoke(runBot))

	return &Application{app: fx.New(opts...)}
}

// Start runs every OnStart hook and returns without blocking.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Err returns the error fx reported while building the application, if any.
func (a *Application) Err() error {
	return a.app.Err()
}

// Stop runs every OnStop hook in reverse order.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

func runBot(lc fx.Lifecycle, b *bot.Bot, logger *zap.Logger) {
	logger = logger.Named("app")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := b.Start(ctx); err != nil {
				logger.Error("Failed to start bot", zap.Error(err))

				return err
			}
			logger.Info("Bot started", zap.Int("guilds", len(b.Guilds())))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := b.Stop(ctx)
			if err != nil {
				logger.Error("Bot did not stop cleanly", zap.Error(err))
			} else {
				logger.Info("Bot stopped")
			}

			return err
		},
	})
}
