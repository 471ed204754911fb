package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"request-service/internal/config"
	"request-service/internal/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations to DATABASE_URL.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return errors.New("migrate: DATABASE_URL is empty")
			}
			if err := migrations.Run(cmd.Context(), cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
