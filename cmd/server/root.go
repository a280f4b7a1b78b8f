package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perfcycle/internal/app/server"
	"perfcycle/internal/platform/config"
	"perfcycle/internal/platform/db"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:           "perfcycle",
		Short:         "360 feedback cycles and reporting-line administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.AddCommand(serve, newMigrateCmd(), newSeedCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg config.Config, deps dbDeps) error {
				return db.Migrate(ctx, deps.pool, deps.log)
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert default competencies and the bootstrap admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg config.Config, deps dbDeps) error {
				if email != "" {
					cfg.SeedAdminEmail = email
				}
				if password != "" {
					cfg.SeedAdminPassword = password
				}
				if err := db.Seed(ctx, deps.pool, cfg); err != nil {
					return err
				}
				deps.log.Info("seed complete", zap.String("admin_email", cfg.SeedAdminEmail))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "admin-email", "", "override SEED_ADMIN_EMAIL")
	cmd.Flags().StringVar(&password, "admin-password", "", "override SEED_ADMIN_PASSWORD")
	return cmd
}
