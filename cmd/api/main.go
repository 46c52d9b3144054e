package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:          "clinic-api",
		Short:        "Clinic appointment API server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")

	load := func() (*config.Config, *logger.Logger, error) {
		var paths []string
		if configDir != "" {
			paths = append(paths, configDir)
		}
		cfg, err := config.LoadConfig(paths...)
		if err != nil {
			return nil, nil, err
		}
		l := newLogger(cfg.Log)
		return cfg, l, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(bootstrapCmd(load))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type loader func() (*config.Config, *logger.Logger, error)

func serveCmd(load loader) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, l, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := load()
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			l.Info("Migrations applied", "count", len(applied), "names", applied)
			return nil
		},
	}
}

func bootstrapCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the configured admin and manager accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := load()
			if err != nil {
				return err
			}
			app, err := newApp(cfg, l)
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return app.seed(ctx)
		},
	}
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
	// request and panic middleware log through the global logger
	log.Logger = *l.Zerolog()
	return l
}
