package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Raikerian/disbot/internal/commands"
)

func newSchemaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the compiled command schema as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var loader *commands.Loader
			app := fx.New(baseModules(opts.configPath), fx.Populate(&loader))
			if err := app.Err(); err != nil {
				return err
			}

			reg, report, err := loader.Load(cmd.Context(), loader.Dir())
			if err != nil {
				return err
			}
			for _, failed := range report.Failed {
				fmt.Fprintln(cmd.ErrOrStderr(), failed)
			}

			payload, err := commands.CompileAll(reg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(payload)
		},
	}
}
