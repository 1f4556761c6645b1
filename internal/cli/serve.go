package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raikerian/disbot/internal/app"
	"github.com/Raikerian/disbot/internal/bot"
	"github.com/Raikerian/disbot/internal/discord"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord, register commands and handle interactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := app.New(
				baseModules(opts.configPath),
				discord.Module,
				discord.RegistrarModule,
				bot.Module,
			)
			if err := application.Err(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := application.Start(ctx); err != nil {
				return fmt.Errorf("start: %w", err)
			}

			<-ctx.Done()
			fmt.Fprintln(cmd.ErrOrStderr(), "Shutdown signal received, stopping.")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := application.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}

			return nil
		},
	}
}
