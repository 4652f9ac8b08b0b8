package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aide-sh/aide/internal/whatsapp"
	"github.com/spf13/cobra"
)

var (
	whatsappOnce   bool
	whatsappSetup  bool
	whatsappDryRun bool
)

var whatsappCmd = &cobra.Command{
	Use:   "whatsapp",
	Short: "Watch WhatsApp Web for unread messages",
	Long: `Poll WhatsApp Web through a persistent browser session, opening unread
chats and scanning the latest messages for keyword matches. Each new match
becomes a work item under Needs_Action/ with a few messages of context.

Pairing survives restarts via the browser profile. When the session drops,
run with --setup and scan the QR code from your phone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if whatsappSetup {
			return browserSetup(func(ctx context.Context) error {
				page, err := Pages(ctx)
				if err != nil {
					return err
				}
				fmt.Println("A browser window is open. Scan the QR code with your phone; aide will detect it.")
				return whatsapp.Setup(ctx, page, 5*time.Second, setupSettle)
			})
		}

		dryRun := Cfg.DryRun || whatsappDryRun
		w := whatsapp.NewWatcher(
			Pages, Store, Cfg.WhatsApp,
			Cfg.WhatsApp.HighKeywords, Cfg.WhatsApp.MediumKeywords,
			dryRun, Cfg.DevMode,
		)
		return runWatcher(w, Cfg.WhatsApp.PollInterval, whatsappOnce)
	},
}

func init() {
	whatsappCmd.Flags().BoolVar(&whatsappOnce, "once", false, "run a single poll cycle and exit")
	whatsappCmd.Flags().BoolVar(&whatsappSetup, "setup", false, "open the browser to pair via QR code")
	whatsappCmd.Flags().BoolVar(&whatsappDryRun, "dry-run", false, "log detections without writing action files")
	rootCmd.AddCommand(whatsappCmd)
}
