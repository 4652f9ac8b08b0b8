package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/aide-sh/aide/internal/linkedin"
	"github.com/spf13/cobra"
)

var (
	linkedinOnce   bool
	linkedinSetup  bool
	linkedinDryRun bool
)

// setupSettle is how long a fresh login stays open before the browser
// closes, giving the profile directory time to persist the session.
const setupSettle = 10 * time.Second

var linkedinCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Watch LinkedIn notifications and messages",
	Long: `Poll LinkedIn through a persistent browser session, scanning the
notifications page and the messaging inbox for keyword matches. Each new
match becomes a work item under Needs_Action/.

The browser profile keeps you logged in between runs. When the session
expires, run with --setup to log in interactively; the watcher waits until
the feed is reachable again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if linkedinSetup {
			return browserSetup(func(ctx context.Context) error {
				page, err := Pages(ctx)
				if err != nil {
					return err
				}
				fmt.Println("A browser window is open. Log in to LinkedIn; aide will detect it.")
				return linkedin.Setup(ctx, page, Cfg.Browser.AuthElementThreshold, 5*time.Second, setupSettle)
			})
		}

		dryRun := Cfg.DryRun || linkedinDryRun
		w := linkedin.NewWatcher(
			Pages, Store, Cfg.LinkedIn,
			Cfg.LinkedIn.HighKeywords, Cfg.LinkedIn.MediumKeywords,
			Cfg.Browser.AuthElementThreshold,
			dryRun, Cfg.DevMode,
		)
		return runWatcher(w, Cfg.LinkedIn.PollInterval, linkedinOnce)
	},
}

// browserSetup runs an interactive login flow under an interrupt context.
// The operator has to see the page to act on it, so the browser launches
// headed for the duration regardless of the configured mode.
func browserSetup(fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	headless := Cfg.Browser.Headless
	Cfg.Browser.Headless = false
	defer func() { Cfg.Browser.Headless = headless }()

	if err := fn(ctx); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	fmt.Println("Session established. The watcher can run now.")
	return nil
}

func init() {
	linkedinCmd.Flags().BoolVar(&linkedinOnce, "once", false, "run a single poll cycle and exit")
	linkedinCmd.Flags().BoolVar(&linkedinSetup, "setup", false, "open the browser to log in interactively")
	linkedinCmd.Flags().BoolVar(&linkedinDryRun, "dry-run", false, "log detections without writing action files")
	rootCmd.AddCommand(linkedinCmd)
}
