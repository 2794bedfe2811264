// Package main is the entry point for the Real Estate AI API.
//
// The binary has two commands:
//
//	server [serve]   run the HTTP API (default)
//	server migrate   create/upgrade the database schema and exit
//
// Configuration comes from the environment, optionally overlaid by a YAML
// file given with --config or CONFIG_FILE. All real work lives in
// internal/server; main only parses flags and builds the logger.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/real-estate-ai/internal/config"
	"github.com/sakif/real-estate-ai/internal/server"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "server",
		Short:         "Real Estate AI property analysis API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"),
		"YAML config file overlaid on environment settings (env CONFIG_FILE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or upgrade the database schema and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context(), configPath)
			},
		},
	)

	return root
}

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, server.NewLogger(cfg.Log), nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.InsecureJWTSecret() {
		logger.Warn("JWT_SECRET is the shipped default; set a random secret before deploying")
	}

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Start blocks until SIGINT/SIGTERM and closes the database on return.
	return srv.Start(ctx)
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	return server.Migrate(ctx, cfg.DatabaseURL, logger)
}
