package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-review/internal/platform/migrate"
	"github.com/phrazzld/vocab-review/internal/service/auth"
	"github.com/spf13/cobra"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, err := initializeApp(*configFile)
			if err != nil {
				return err
			}

			db, err := openDatabase(ctx, cfg.Database, log)
			if err != nil {
				return err
			}

			src, err := migrationsFor(cfg.Database.Driver)
			if err != nil {
				_ = db.Close()
				return err
			}
			if err := migrate.Up(ctx, db, src, log); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			app, err := newApplication(cfg, log, db)
			if err != nil {
				_ = db.Close()
				return err
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(migrate.Commands, "|") + ">",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrate.Commands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := initializeApp(*configFile)
			if err != nil {
				return err
			}

			src, err := migrationsFor(cfg.Database.Driver)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return migrate.Run(cmd.Context(), db, src, args[0], log)
		},
	}
}

func newTokenCmd(configFile *string) *cobra.Command {
	var learner string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token for a learner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			learnerID, err := uuid.Parse(learner)
			if err != nil {
				return fmt.Errorf("invalid learner id %q: %w", learner, err)
			}

			cfg, _, err := initializeApp(*configFile)
			if err != nil {
				return err
			}

			jwtService, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return fmt.Errorf("failed to initialize JWT service: %w", err)
			}

			token, err := jwtService.GenerateToken(cmd.Context(), learnerID)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&learner, "learner", "", "learner UUID the token is issued for")
	_ = cmd.MarkFlagRequired("learner")
	return cmd
}
