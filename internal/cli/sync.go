package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
	idiscord "github.com/Raikerian/disbot/internal/discord"
)

// GuildLister lists the guilds the bot is a member of. *api.Client
// satisfies it.
type GuildLister interface {
	Guilds(limit uint) ([]discord.Guild, error)
}

// newGuildLister is replaced in tests.
var newGuildLister = func(creds config.Credentials) GuildLister {
	return api.NewClient("Bot " + creds.BotToken)
}

func newSyncCmd(opts *options) *cobra.Command {
	var (
		guilds []string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Register the commands with Discord once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				cfg    *config.Config
				loader *commands.Loader
				syncer *commands.Syncer
			)
			app := fx.New(
				baseModules(opts.configPath),
				idiscord.RegistrarModule,
				fx.Populate(&cfg, &loader, &syncer),
			)
			if err := app.Err(); err != nil {
				return err
			}

			creds, err := cfg.RegistrarCredentials()
			if err != nil {
				return err
			}

			targets, err := resolveGuilds(guilds, cfg, creds)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return errors.New("no guilds to register commands with")
			}

			reg, report, err := loader.Load(cmd.Context(), loader.Dir())
			if err != nil {
				return err
			}
			for _, failed := range report.Failed {
				fmt.Fprintln(cmd.ErrOrStderr(), failed)
			}

			results := syncer.SyncAll(cmd.Context(), reg, targets, force)

			return printResults(cmd, results)
		},
	}

	cmd.Flags().StringSliceVarP(&guilds, "guild", "g", nil, "Guild ID to register with (repeatable); defaults to configured or joined guilds")
	cmd.Flags().BoolVar(&force, "force", false, "Submit even if the commands did not change")

	return cmd
}

// resolveGuilds prefers explicit flags, then configured guilds, then every
// guild the bot has joined.
func resolveGuilds(flags []string, cfg *config.Config, creds config.Credentials) ([]discord.GuildID, error) {
	if len(flags) > 0 {
		ids := make([]discord.GuildID, 0, len(flags))
		for _, raw := range flags {
			sf, err := discord.ParseSnowflake(raw)
			if err != nil || !sf.IsValid() {
				return nil, fmt.Errorf("invalid guild ID %q", raw)
			}
			ids = append(ids, discord.GuildID(sf))
		}

		return ids, nil
	}

	if ids, _ := cfg.ConfiguredGuildIDs(); len(ids) > 0 {
		return ids, nil
	}

	joined, err := newGuildLister(creds).Guilds(0)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	ids := make([]discord.GuildID, 0, len(joined))
	for _, g := range joined {
		ids = append(ids, g.ID)
	}

	return ids, nil
}

func printResults(cmd *cobra.Command, results map[discord.GuildID]error) error {
	ids := make([]discord.GuildID, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		if err := results[id]; err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tfailed: %v\n", id, err)
			errs = append(errs, err)

			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", id)
	}

	return errors.Join(errs...)
}
