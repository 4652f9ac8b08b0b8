package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/aide-sh/aide/internal/watch"
)

// runWatcher drives one watcher until interrupted, or for a single cycle
// when once is set.
func runWatcher(w watch.Watcher, interval time.Duration, once bool) error {
	d := &watch.Driver{
		Watcher:  w,
		Interval: interval,
		Errors:   Store.Errors(),
		Notifier: Notifier,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if once {
		n, err := d.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: created %d action file(s)\n", w.Source(), n)
		return nil
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
