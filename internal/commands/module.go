// Package commands provides the command model, the schema compiler, loading
// and registration of slash commands, and their Fx modules.
package commands

import (
	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/config"
)

// Module provides command-related dependencies.
var Module = fx.Module("commands",
	fx.Provide(
		NewStore,
		NewLoader,
		NewSyncer,
		fx.Annotate(
			NewSource,
			fx.ParamTags(``, `group:"command_factories"`),
		),
	),
	Builtins,
)

// Builtins contributes the bundled commands to the registration table.
var Builtins = fx.Provide(
	asFactory(NewPingFactory),
	asFactory(NewVersionFactory),
	asFactory(NewEchoFactory),
	asFactory(NewRollFactory),
	asFactory(NewWhoisFactory),
	asFactory(NewReloadFactory),
)

func asFactory(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"command_factories"`))
}

// NewSource picks the command source from the configuration: manifests from
// commands.dir when set, otherwise every registered factory.
func NewSource(cfg *config.Config, factories []Factory, logger *zap.Logger) Source {
	if cfg.Commands.Dir == "" {
		logger.Info("No commands directory configured, loading every registered command",
			zap.Int("factories", len(factories)))

		return NewFactorySource(factories)
	}

	logger.Info("Loading command manifests", zap.String("dir", cfg.Commands.Dir))

	return NewManifestSource(afero.NewOsFs(), factories)
}
