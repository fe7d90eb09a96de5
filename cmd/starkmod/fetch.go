// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starkmod/starkmod/pkg/starkmod"
)

func newFetchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <name> [url]...",
		Short: "Fetch a module's sources without running them",
		Long: `Fetch every source of a module concurrently and print them in execution
order. Each source ends with a //# sourceURL comment naming its URL, exactly
as it would be executed by 'starkmod run'.`,
		Example: `  starkmod fetch libA https://cdn.example.com/lib-a/runtime.js https://cdn.example.com/lib-a/index.js`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			mod := starkmod.New(args[0], args[1:]...)
			if err := validateModule(mod); err != nil {
				return reportError(app.stderr, err, opts, ExitUsage)
			}

			sources, err := app.Modules.Fetch(cmd.Context(), FetchRequest{
				Module:     mod,
				ConfigPath: opts.configPath,
				Verbose:    opts.verbose,
			})
			if err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			for _, source := range sources {
				fmt.Fprintln(app.stdout, source)
			}
			return nil
		},
	}
}
