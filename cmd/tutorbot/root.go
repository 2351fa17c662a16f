package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/tutorbot/core/buildinfo"
	corecmd "github.com/m3rciful/tutorbot/core/cmd"
	coreconfig "github.com/m3rciful/tutorbot/core/config"
	"github.com/m3rciful/tutorbot/core/logger"
	"github.com/m3rciful/tutorbot/internal/app"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tutorbot",
		Short:         "Telegram tutor for Ukrainian",
		Long:          "tutorbot runs a Telegram bot that teaches Ukrainian to Russian speakers with lessons, dialog practice, translation drills and voice.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(runOptions(cmd))
		},
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to config.yaml (overrides CONFIG_PATH)")

	root.AddCommand(versionCmd(), checkCmd(), migrateCmd())
	return root
}

func runOptions(cmd *cobra.Command) corecmd.Options {
	path, _ := cmd.Flags().GetString("config")
	return corecmd.Options{
		ConfigPath:        path,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}
}

// loadConfig resolves and loads the configuration the way the bot would.
func loadConfig(cmd *cobra.Command) (*coreconfig.Config, error) {
	path, err := runOptions(cmd).ResolveConfigPath()
	if err != nil {
		return nil, err
	}
	c, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return c.CoreConfig(), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tutorbot", buildinfo.Summary())
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and lesson content without starting the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := app.Check(cfg, cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the answer journal migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
