package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"RateCast/internal/di"
	"RateCast/pkg/config"
	"RateCast/pkg/server"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "ratecast",
		Short:        "RateCast - policy rate decision forecasting",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (defaults and RATECAST_* env when empty)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API and the Kafka run-trigger consumer",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(configPath, func(app *server.App) error {
					return app.Serve(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Execute one model run and print it as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(configPath, func(app *server.App) error {
					run, err := app.Runs().Run(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(run)
				})
			},
		},
		&cobra.Command{
			Use:   "latest",
			Short: "Print the most recent persisted run as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(configPath, func(app *server.App) error {
					run, err := app.Runs().Latest(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(run)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println("ratecast", version)
			},
		},
	)
	return rootCmd
}

// withApp loads config, wires dependencies, runs fn and releases everything afterwards.
func withApp(configPath string, fn func(app *server.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()
	return fn(app)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
