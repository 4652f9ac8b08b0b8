package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/aide-sh/aide/internal/linkedin"
	"github.com/aide-sh/aide/internal/watch"
	"github.com/spf13/cobra"
)

var (
	postOnce   bool
	postDryRun bool
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish approved LinkedIn posts",
	Long: `Watch Approved/ for linkedin_post work items and publish each one
through the browser composer, moving the file to Done/ on success.

New approvals wake the actor immediately via a filesystem watch; polling
continues as the fallback. Dev mode simulates the publish without touching
the browser.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun := Cfg.DryRun || postDryRun
		p := linkedin.NewPoster(
			Pages, Store, Cfg.LinkedIn,
			Cfg.Browser.AuthElementThreshold,
			dryRun, Cfg.DevMode,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if postOnce {
			n, err := p.ProcessApproved(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("published %d post(s)\n", n)
			return nil
		}

		trigger, err := watch.NewTrigger(Store.ApprovedDir(), 2*time.Second)
		if err != nil {
			// Polling alone still works; the approval just waits a cycle.
			log.Printf("approval trigger unavailable, polling only: %v", err)
		} else {
			defer trigger.Close()
			go trigger.Run(ctx)
		}

		var wake <-chan struct{}
		if trigger != nil {
			wake = trigger.Wake()
		}
		if err := p.Run(ctx, Cfg.LinkedIn.PollInterval, wake); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	postCmd.Flags().BoolVar(&postOnce, "once", false, "process currently approved posts and exit")
	postCmd.Flags().BoolVar(&postDryRun, "dry-run", false, "log what would be posted without publishing")
	rootCmd.AddCommand(postCmd)
}
