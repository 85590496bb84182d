package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/postgres"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending postgres schema migrations",
		Long: `Apply the embedded SQL migrations to the database named by db.dsn.

Examples:
  MINISHOP_DB_DSN=postgres://shop@localhost/shop?sslmode=disable minishop migrate
  minishop migrate --config minishop.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(*configPath)
			if err != nil {
				return err
			}
			defer rt.close()
			if rt.cfg.DB.DSN == "" {
				return errors.New("migrate: db.dsn is required")
			}

			db, err := postgres.Open(cmd.Context(), postgres.Config{
				DSN:             rt.cfg.DB.DSN,
				MaxOpenConns:    1,
				ConnMaxLifetime: rt.cfg.DB.ConnMaxLifetime,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	}
}

