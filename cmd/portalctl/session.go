package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for subsequent commands",
		Long:  "Saves the token issued by the portal (for local servers: 'api -token <userId>') to the session file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			u, err := e.session.Save(strings.TrimSpace(token))
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s, id %d)\n", displayName(u.Name), u.Role, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (required)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			if err := e.session.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			u, ok := e.session.CurrentUser()
			if !ok {
				return fmt.Errorf("not logged in")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, id %d)\n", displayName(u.Name), u.Role, u.ID)
			return nil
		},
	}
}
