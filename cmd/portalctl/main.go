package main

import (
	"fmt"
	"os"

	"github.com/academyportal/internal/logger"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	var opts globalOptions
	cmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Academy portal messaging from the terminal",
		Long:          "portalctl lists conversations, opens threads and sends messages through the academy portal API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "portal API base URL (default from PORTAL_API_URL or config)")
	cmd.PersistentFlags().StringVar(&opts.sessionPath, "session", "", "session file path (default from PORTAL_SESSION or config)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd(&opts))
	cmd.AddCommand(newLogoutCmd(&opts))
	cmd.AddCommand(newWhoamiCmd(&opts))
	cmd.AddCommand(newConversationsCmd(&opts))
	cmd.AddCommand(newRecipientsCmd(&opts))
	cmd.AddCommand(newThreadCmd(&opts))
	cmd.AddCommand(newSendCmd(&opts))
	cmd.AddCommand(newChatCmd(&opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portalctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

func execute(cmd *cobra.Command) int {
	defer logger.Flush()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	logger.SetPrefix("portalctl")
	os.Exit(execute(newRootCmd()))
}
