package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zhima-Mochi/minishop-chapa/internal/config"
)

func createAdminCmd(configPath *string) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing user",
		Long: `Create an admin account in the configured backend. An existing account
with the same email is promoted to admin instead.

Examples:
  minishop create-admin --email owner@shop.et --name Owner --password 's3cret-pass'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(*configPath)
			if err != nil {
				return err
			}
			defer rt.close()
			if rt.cfg.Repository.Backend != config.BackendPostgres {
				return errors.New("create-admin: requires repository.backend=postgres; the memory backend does not outlive the process")
			}

			repos, err := openRepositories(cmd.Context(), rt, false)
			if err != nil {
				return err
			}
			defer func() { _ = repos.close() }()

			u, err := newAuthService(rt, repos).CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("create-admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s <%s> ready (id %s)\n", u.Name, u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
