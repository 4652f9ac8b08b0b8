// Package linkedin scans LinkedIn notifications and messages through a
// browser session and publishes approved posts back to the feed.
package linkedin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aide-sh/aide/internal/browser"
	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/internal/watch"
	"github.com/aide-sh/aide/pkg/models"
)

// PageFunc supplies the LinkedIn page on demand, so no browser launches
// until a scan actually runs.
type PageFunc func(ctx context.Context) (browser.Page, error)

// Watcher scans the notifications and messaging pages for keyword-matched
// items. LinkedIn has no scrape API, so identity comes from a content
// fingerprint rather than a message ID.
type Watcher struct {
	pages      PageFunc
	vault      *vault.Vault
	cfg        models.LinkedInConfig
	probe      *browser.StateProbe
	classifier *watch.Classifier
	dryRun     bool
	devMode    bool

	ledger *vault.Ledger
}

// NewWatcher creates the LinkedIn watcher. authElementThreshold feeds the
// session probe's density heuristic; 0 disables it.
func NewWatcher(pages PageFunc, v *vault.Vault, cfg models.LinkedInConfig, high, medium []string, authElementThreshold int, dryRun, devMode bool) *Watcher {
	return &Watcher{
		pages:      pages,
		vault:      v,
		cfg:        cfg,
		probe:      browser.LinkedInProbe(authElementThreshold),
		classifier: watch.NewClassifier(cfg.Keywords, high, medium),
		dryRun:     dryRun,
		devMode:    devMode,
	}
}

func (w *Watcher) Source() string { return "linkedin" }

// CheckForUpdates scans both surfaces. A session that is not ready is an
// error: the operator has to re-login before anything can be scanned.
func (w *Watcher) CheckForUpdates(ctx context.Context) ([]watch.Item, error) {
	w.ledger = w.vault.OpenLedger(w.Source())
	if err := w.ledger.Cleanup(w.cfg.RetentionDays); err != nil {
		return nil, fmt.Errorf("cleaning linkedin ledger: %w", err)
	}

	page, err := w.pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening linkedin page: %w", err)
	}

	notifications, err := w.scanNotifications(ctx, page)
	if err != nil {
		return nil, err
	}
	messages, err := w.scanMessages(ctx, page)
	if err != nil {
		return nil, err
	}

	log.Printf("linkedin: %d notification(s) + %d message(s) matched keywords",
		len(notifications), len(messages))
	return append(notifications, messages...), nil
}

func (w *Watcher) checkSession(ctx context.Context, page browser.Page, url, label string) error {
	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigating to %s: %w", label, err)
	}
	state := w.probe.Detect(page)
	switch state {
	case models.StateReady, models.StateUnknown:
		// Unknown is tolerated: the scan just finds nothing.
		return nil
	default:
		_ = page.Screenshot(w.vault.DebugScreenshotPath(label + "_auth_fail"))
		return fmt.Errorf("linkedin session %s on %s: run `aide linkedin --setup` to re-login", state, label)
	}
}

func (w *Watcher) scanNotifications(ctx context.Context, page browser.Page) ([]watch.Item, error) {
	if err := w.checkSession(ctx, page, notificationsURL, "notifications"); err != nil {
		return nil, err
	}

	cards, used := browser.Apply(page, notificationStrategies)
	if len(cards) == 0 {
		return nil, nil
	}
	log.Printf("linkedin: %d notification element(s) via %q", len(cards), used)

	max := w.cfg.MaxNotifications
	if max > 0 && len(cards) > max {
		cards = cards[:max]
	}

	var items []watch.Item
	for _, card := range cards {
		text := strings.TrimSpace(card.Text())
		if len(text) < 10 {
			continue
		}

		timeStr := ""
		if el, ok := card.Query("time"); ok {
			timeStr = strings.TrimSpace(el.Text())
		}
		actor := strings.TrimSpace(browser.FirstTextMax(card, 100, actorSelectors...))

		priority, keyword := w.classifier.Classify(text)
		if keyword == "" {
			continue
		}

		fingerprintActor := actor
		if fingerprintActor == "" {
			fingerprintActor = "linkedin"
		}
		fp := watch.Fingerprint(fingerprintActor, text, timeStr)
		if w.ledger.IsProcessed(fp) {
			continue
		}

		sender := actor
		if sender == "" {
			sender = "LinkedIn"
		}
		items = append(items, watch.Item{
			Type:        models.TypeLinkedIn,
			Sender:      sender,
			Preview:     truncate(text, 500),
			Time:        timeStr,
			Priority:    priority,
			Keyword:     keyword,
			Fingerprint: fp,
			Fields:      map[string]string{"item_type": "notification"},
		})
	}
	return items, nil
}

func (w *Watcher) scanMessages(ctx context.Context, page browser.Page) ([]watch.Item, error) {
	if err := w.checkSession(ctx, page, messagingURL, "messaging"); err != nil {
		return nil, err
	}

	threads, used := browser.Apply(page, threadStrategies)
	if len(threads) == 0 {
		return nil, nil
	}
	log.Printf("linkedin: %d message thread(s) via %q", len(threads), used)

	max := w.cfg.MaxThreads
	if max > 0 && len(threads) > max {
		threads = threads[:max]
	}

	var items []watch.Item
	for _, thread := range threads {
		fullText := strings.TrimSpace(thread.Text())
		if len(fullText) < 5 {
			continue
		}
		lines := nonEmptyLines(fullText)

		sender := strings.TrimSpace(browser.FirstTextMax(thread, 80, senderSelectors...))
		if sender == "" && len(lines) > 0 {
			sender = truncate(lines[0], 60)
		}

		preview := strings.TrimSpace(browser.FirstText(thread, previewSelectors...))
		if preview == "" {
			if len(lines) > 1 {
				preview = strings.Join(lines[1:], " ")
			} else {
				preview = fullText
			}
		}

		timeStr := ""
		if el, ok := thread.Query("time"); ok {
			timeStr = strings.TrimSpace(el.Text())
		}
		if timeStr == "" {
			timeStr = timeLikeLine(lines)
		}

		priority, keyword := w.classifier.Classify(sender + " " + preview)
		if keyword == "" {
			continue
		}

		fp := watch.Fingerprint(sender, preview, timeStr)
		if w.ledger.IsProcessed(fp) {
			continue
		}

		if sender == "" {
			sender = "Unknown"
		}
		items = append(items, watch.Item{
			Type:        models.TypeLinkedIn,
			Sender:      sender,
			Preview:     truncate(preview, 500),
			Time:        timeStr,
			Priority:    priority,
			Keyword:     keyword,
			Fingerprint: fp,
			Fields:      map[string]string{"item_type": "message"},
		})
	}
	return items, nil
}

// CreateActionFile writes the detected item into Needs_Action and records
// its fingerprint. In dry-run mode it only writes the audit entry.
func (w *Watcher) CreateActionFile(ctx context.Context, item watch.Item) (string, error) {
	cid := vault.CorrelationID()
	itemType := item.Fields["item_type"]

	params := map[string]any{
		"item_type":       itemType,
		"sender":          item.Sender,
		"priority":        string(item.Priority),
		"matched_keyword": item.Keyword,
		"dry_run":         w.dryRun,
		"dev_mode":        w.devMode,
	}

	if w.dryRun {
		err := w.vault.Actions().Append(models.AuditEntry{
			CorrelationID: cid,
			Actor:         "linkedin_watcher",
			ActionType:    "linkedin_detected",
			Target:        item.Sender,
			Result:        "dry_run",
			Parameters:    params,
		})
		return "", err
	}

	work := &models.WorkItem{
		Type:     models.TypeLinkedIn,
		Source:   w.Source(),
		Status:   models.StatusPending,
		Priority: item.Priority,
		Body:     linkedinBody(item, itemType),
	}
	work.SetField("sender", item.Sender)
	work.SetField("item_type", itemType)
	work.SetField("preview", truncate(item.Preview, 200))
	work.SetField("received", models.NowISO(time.Now()))

	path, err := w.vault.CreateActionFile(work, item.Sender)
	if err != nil {
		return "", err
	}
	if err := w.ledger.MarkProcessed(item.Fingerprint); err != nil {
		return "", err
	}

	err = w.vault.Actions().Append(models.AuditEntry{
		CorrelationID: cid,
		Actor:         "linkedin_watcher",
		ActionType:    "linkedin_processed",
		Target:        path,
		Result:        "success",
		Parameters:    params,
	})
	return path, err
}

func linkedinBody(item watch.Item, itemType string) string {
	timeStr := item.Time
	if timeStr == "" {
		timeStr = "unknown"
	}
	return fmt.Sprintf(`## LinkedIn %s

**From:** %s
**Type:** %s
**Time:** %s
**Priority:** %s (keyword: %s)

## Content

%s

## Suggested Actions

- [ ] Review on LinkedIn
- [ ] Reply if needed
- [ ] Mark as processed
`, titleCase(itemType), item.Sender, itemType, timeStr, item.Priority, item.Keyword, item.Preview)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// timeLikeLine scans the card lines bottom-up for something that reads
// like a relative or clock timestamp.
func timeLikeLine(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		lower := strings.ToLower(lines[i])
		for _, marker := range []string{"am", "pm", "ago", "min", "hr", "day"} {
			if strings.Contains(lower, marker) {
				return lines[i]
			}
		}
	}
	return ""
}
