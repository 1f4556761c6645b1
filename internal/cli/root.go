// Package cli implements the disbot command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
	"github.com/Raikerian/disbot/internal/infrastructure"
)

const defaultConfigPath = "config.yaml"

// options are shared by every subcommand.
type options struct {
	configPath string
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", defaultConfigPath, "Path to the YAML configuration file")
}

// NewRootCmd creates the disbot command tree. Running it without a
// subcommand serves the bot.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	serve := newServeCmd(opts)
	root := &cobra.Command{
		Use:           "disbot",
		Short:         "Discord slash command bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	opts.addFlags(root.PersistentFlags())

	root.AddCommand(serve)
	root.AddCommand(newSchemaCmd(opts))
	root.AddCommand(newSyncCmd(opts))

	return root
}

// Execute runs the command line and exits on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// baseModules are needed by every subcommand.
func baseModules(configPath string) fx.Option {
	return fx.Options(
		config.Module,
		infrastructure.LoggerModule,
		commands.Module,
		fx.Supply(configPath),
		fx.WithLogger(infrastructure.NewFxLoggerAdapter),
	)
}
