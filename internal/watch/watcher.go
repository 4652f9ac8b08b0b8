// Package watch holds the shared watcher machinery: the poll loop driver,
// priority classification, dedup fingerprints and the approval-directory
// trigger. Source-specific scanning lives in the per-source packages.
package watch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aide-sh/aide/pkg/models"
)

// Item is one detected event from an external surface, ready to become a
// work-item file.
type Item struct {
	Type     models.ItemType
	Sender   string
	Preview  string
	Time     string
	Priority models.Priority
	Keyword  string
	// Fingerprint is the dedup key; items whose fingerprint is already
	// in the source's ledger are dropped before reaching the vault.
	Fingerprint string
	// Fields carries source-specific frontmatter (subject, thread_id,
	// labels) through to the action file.
	Fields map[string]string
	Body   string
}

// Watcher polls one external surface for new items.
type Watcher interface {
	Source() string
	// CheckForUpdates returns the new, keyword-matched, not-yet-processed
	// items since the last call. A surface that is temporarily unusable
	// (expired session, captcha) returns an error.
	CheckForUpdates(ctx context.Context) ([]Item, error)
	// CreateActionFile writes the item into the workspace and marks it
	// processed. Returns the created path, or "" in dry-run mode.
	CreateActionFile(ctx context.Context, item Item) (string, error)
}

// Notifier pushes out-of-band alerts when a watcher needs a human (expired
// session, captcha). Implementations must not block the poll loop.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ErrorLog receives cycle failures for the workspace error trail.
type ErrorLog interface {
	Append(entry models.AuditEntry) error
}

// Driver runs a Watcher on a poll cadence. Each cycle is guarded: a
// failing cycle is logged and the loop continues on schedule.
type Driver struct {
	Watcher  Watcher
	Interval time.Duration
	Errors   ErrorLog
	Notifier Notifier
	// Wake, when non-nil, makes Run start a cycle early (the fsnotify
	// trigger feeds it). Polling remains the correctness mechanism.
	Wake <-chan struct{}
}

// RunOnce performs a single guarded cycle and returns the number of action
// files created.
func (d *Driver) RunOnce(ctx context.Context) (int, error) {
	items, err := d.Watcher.CheckForUpdates(ctx)
	if err != nil {
		d.reportFailure(ctx, fmt.Errorf("checking %s for updates: %w", d.Watcher.Source(), err))
		return 0, err
	}

	created := 0
	for _, item := range items {
		path, err := d.Watcher.CreateActionFile(ctx, item)
		if err != nil {
			d.reportFailure(ctx, fmt.Errorf("creating action file for %s: %w", d.Watcher.Source(), err))
			continue
		}
		if path != "" {
			created++
		}
	}
	return created, nil
}

// Run polls until the context is cancelled. Cycle errors never stop the
// loop.
func (d *Driver) Run(ctx context.Context) error {
	log.Printf("%s watcher started (interval %s)", d.Watcher.Source(), d.Interval)
	for {
		if n, err := d.RunOnce(ctx); err == nil && n > 0 {
			log.Printf("%s: created %d action file(s)", d.Watcher.Source(), n)
		}

		select {
		case <-ctx.Done():
			log.Printf("%s watcher stopped", d.Watcher.Source())
			return ctx.Err()
		case <-time.After(d.Interval):
		case <-d.Wake:
			log.Printf("%s: woken early", d.Watcher.Source())
		}
	}
}

func (d *Driver) reportFailure(ctx context.Context, err error) {
	log.Printf("%s: %v", d.Watcher.Source(), err)
	if d.Errors != nil {
		_ = d.Errors.Append(models.AuditEntry{
			Actor:      d.Watcher.Source() + "_watcher",
			ActionType: "poll",
			Target:     d.Watcher.Source(),
			Result:     "error",
			Error:      err.Error(),
		})
	}
	if d.Notifier != nil {
		_ = d.Notifier.Notify(ctx, fmt.Sprintf("%s watcher: %v", d.Watcher.Source(), err))
	}
}
