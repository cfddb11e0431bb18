// Command adaptermap runs the Telegram bot that collects adapter owners'
// locations for the public map.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/adaptermap/core/buildinfo"
	corecmd "github.com/m3rciful/adaptermap/core/cmd"
	coredatabase "github.com/m3rciful/adaptermap/core/database"
	"github.com/m3rciful/adaptermap/core/logger"
	"github.com/m3rciful/adaptermap/internal/adaptermap/app"
	"github.com/m3rciful/adaptermap/internal/adaptermap/config"
)

const defaultConfigPath = "config.yaml"

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adaptermap",
		Short:         "Telegram intake bot for the adapter map",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig(path string) (corecmd.ConfigCarrier, error) {
	return config.Load(path)
}

func newServeCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the session reaper and the HTTP publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        configPath,
				DefaultConfigPath: defaultConfigPath,
				LoadConfig:        loadConfig,
				Bootstrap:         app.Runner(skipMigrations),
			})
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply database migrations on startup")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := corecmd.ResolveConfigPath(corecmd.Options{
				ConfigPath:        configPath,
				DefaultConfigPath: defaultConfigPath,
			})
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := logger.InitLogger(&cfg.Config); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			return coredatabase.RunMigrations(cfg.Database)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("adaptermap %s\n", buildinfo.String())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
