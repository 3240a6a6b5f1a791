package main

import (
	"fmt"
	"time"

	"github.com/academyportal/internal/conversation"
	"github.com/academyportal/internal/model"
	"github.com/spf13/cobra"
)

func newConversationsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			in, err := e.openInbox(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer in.Close()
			dir, err := in.ReloadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			writeDirectory(cmd.OutOrStdout(), dir, time.Now())
			if n := conversation.TotalUnread(dir); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d unread\n", n)
			}
			return nil
		},
	}
}

func newRecipientsCmd(opts *globalOptions) *cobra.Command {
	var roles []string
	cmd := &cobra.Command{
		Use:   "recipients [query]",
		Short: "Find people to message",
		Long:  "Lists everyone you can start a conversation with. The optional query matches names case-insensitively.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseRoles(roles)
			if err != nil {
				return err
			}
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			in, err := e.openInbox(cmd.Context(), nil, filter...)
			if err != nil {
				return err
			}
			defer in.Close()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			list, err := in.SearchRecipients(cmd.Context(), query)
			if err != nil {
				return err
			}
			writeRecipients(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "only these roles (admin, manager, coach, parent)")
	return cmd
}

func parseRoles(in []string) ([]model.Role, error) {
	out := make([]model.Role, 0, len(in))
	for _, s := range in {
		r := model.Role(s)
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q (want admin, manager, coach or parent)", s)
		}
		out = append(out, r)
	}
	return out, nil
}
