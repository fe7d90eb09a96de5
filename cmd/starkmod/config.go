// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/starkmod/starkmod/internal/config"
)

// newConfigCommand creates the `starkmod config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage starkmod configuration",
		Long: `Manage starkmod configuration.

Configuration is stored in:
  - Linux: ~/.config/starkmod/config.cue
  - macOS: ~/Library/Application Support/starkmod/config.cue
  - Windows: %APPDATA%\starkmod\config.cue

A config.cue in the working directory is used when the user file is absent.
Every setting can be overridden with a STARKMOD_* environment variable, e.g.
STARKMOD_FETCH_TIMEOUT=1m.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			cfg, source, err := app.Config.LoadWithSource(cmd.Context(), config.LoadOptions{ConfigFilePath: opts.configPath})
			if err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			showConfig(app, cfg, source)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			if err := initConfig(app, force); err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file with the defaults")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.ConfigFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			opts := requestOptionsFromContext(cmd.Context())
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: opts.configPath})
			if err != nil {
				return reportError(app.stderr, err, opts, ExitFailure)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App, cfg *config.Config, source string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if source != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("fetch"))
	fmt.Fprintf(w, "  timeout: %s\n", valueStyle.Render(cfg.Fetch.Timeout.String()))
	fmt.Fprintf(w, "  user_agent: %s\n", valueStyle.Render(cfg.Fetch.UserAgent))
	fmt.Fprintf(w, "  max_source_bytes: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Fetch.MaxSourceBytes)))
	if len(cfg.Fetch.Headers) == 0 {
		fmt.Fprintf(w, "  headers: %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Fprintln(w, "  headers:")
		for _, name := range slices.Sorted(maps.Keys(cfg.Fetch.Headers)) {
			fmt.Fprintf(w, "    %s: %s\n", name, valueStyle.Render(cfg.Fetch.Headers[name]))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("sandbox"))
	fmt.Fprintf(w, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Sandbox.Enabled)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
}

func initConfig(app *App, force bool) error {
	cfgPath, err := config.ConfigFilePath()
	if err != nil {
		return err
	}

	if force {
		if err := config.Save(config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s Wrote default configuration to %s\n", SuccessStyle.Render("✓"), cfgPath)
		return nil
	}

	created, err := config.CreateDefaultConfig()
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(app.stdout, "Config file already exists at: %s\n", cfgPath)
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("Use --force to replace it with the defaults"))
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default config at: %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}
