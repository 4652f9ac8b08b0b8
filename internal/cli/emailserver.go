package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/aide-sh/aide/internal/mcpserver"
	"github.com/spf13/cobra"
)

var emailServerAuthOnly bool

var emailServerCmd = &cobra.Command{
	Use:   "email-server",
	Short: "Start the email MCP server on stdio",
	Long: `Start the email action server on stdio transport, for use from an MCP
client configuration.

The server exposes search_email, draft_email, send_email and reply_email.
Sending and replying require a matching approval file in Approved/ and
count against the outbound rate limit; drafts and searches do not.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailServerAuthOnly {
			return runAuthOnly()
		}
		if GmailClient == nil {
			return fmt.Errorf("gmail client not initialized")
		}

		srv := mcpserver.NewServer(GmailClient, Store, Limiter, Cfg.DevMode, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running email server: %w", err)
		}
		return nil
	},
}

func init() {
	emailServerCmd.Flags().BoolVar(&emailServerAuthOnly, "auth-only", false, "validate and refresh the Gmail token, then exit")
	rootCmd.AddCommand(emailServerCmd)
}
