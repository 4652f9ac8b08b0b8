package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/aide-sh/aide/internal/gmail"
	"github.com/spf13/cobra"
)

var (
	gmailOnce     bool
	gmailDryRun   bool
	gmailAuthOnly bool
)

var gmailCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Watch the Gmail inbox for actionable email",
	Long: `Poll Gmail for unread messages matching the configured query, classify
them by keyword, and file each new match as a work item under Needs_Action/.

Already-processed messages are remembered in the dedup ledger, so restarting
the watcher never duplicates items. Requires a token file created by the
OAuth flow (see config/gmail_token.json).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if gmailAuthOnly {
			return runAuthOnly()
		}
		if GmailClient == nil {
			return fmt.Errorf("gmail client not initialized")
		}

		dryRun := Cfg.DryRun || gmailDryRun
		w := gmail.NewWatcher(GmailClient, Store, Cfg.Gmail, dryRun)
		return runWatcher(w, Cfg.Gmail.PollInterval, gmailOnce)
	},
}

// runAuthOnly validates the stored Gmail token, refreshing it when
// expired, and exits without starting the watcher or server.
func runAuthOnly() error {
	if Auth == nil {
		return fmt.Errorf("gmail authenticator not initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := Auth.AccessToken(ctx); err != nil {
		return fmt.Errorf("gmail authorization: %w", err)
	}
	fmt.Println("Gmail token is valid. The watcher and email server can run now.")
	return nil
}

func init() {
	gmailCmd.Flags().BoolVar(&gmailOnce, "once", false, "run a single poll cycle and exit")
	gmailCmd.Flags().BoolVar(&gmailDryRun, "dry-run", false, "log detections without writing action files")
	gmailCmd.Flags().BoolVar(&gmailAuthOnly, "auth-only", false, "validate and refresh the Gmail token, then exit")
	rootCmd.AddCommand(gmailCmd)
}
