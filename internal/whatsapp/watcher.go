// Package whatsapp scans WhatsApp Web for unread messages matching
// configured keywords and files them as pending work items.
package whatsapp

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

const defaultContextMessages = 3

// PageFunc supplies the WhatsApp Web page on demand.
type PageFunc func(ctx context.Context) (browser.Page, error)

// message is one extracted chat message.
type message struct {
	Sender string
	Text   string
	Time   string
}

// Watcher polls WhatsApp Web through a linked-device browser session.
// Message content never leaves the machine; only keyword-matched items
// become local files.
type Watcher struct {
	pages      PageFunc
	vault      *vault.Vault
	cfg        models.WhatsAppConfig
	probe      *browser.StateProbe
	classifier *watch.Classifier
	dryRun     bool
	devMode    bool

	// settle pauses after opening a chat for messages to render; tests
	// set it to zero.
	settle time.Duration

	ledger *vault.Ledger
}

// NewWatcher creates the WhatsApp watcher.
func NewWatcher(pages PageFunc, v *vault.Vault, cfg models.WhatsAppConfig, high, medium []string, dryRun, devMode bool) *Watcher {
	return &Watcher{
		pages:      pages,
		vault:      v,
		cfg:        cfg,
		probe:      browser.WhatsAppProbe(),
		classifier: watch.NewClassifier(cfg.Keywords, high, medium),
		dryRun:     dryRun,
		devMode:    devMode,
		settle:     2 * time.Second,
	}
}

func (w *Watcher) Source() string { return "whatsapp" }

// CheckForUpdates scans unread chats for keyword matches. An expired
// session or a disconnected phone is an error the operator has to fix; a
// page still loading just yields nothing this cycle.
func (w *Watcher) CheckForUpdates(ctx context.Context) ([]watch.Item, error) {
	w.ledger = w.vault.OpenLedger(w.Source())
	if err := w.ledger.Cleanup(w.cfg.RetentionDays); err != nil {
		return nil, fmt.Errorf("cleaning whatsapp ledger: %w", err)
	}

	page, err := w.pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening whatsapp page: %w", err)
	}
	if !strings.Contains(page.URL(), "web.whatsapp.com") {
		if err := page.Navigate(ctx, whatsappURL); err != nil {
			return nil, fmt.Errorf("navigating to whatsapp web: %w", err)
		}
	}

	switch state := w.probe.Detect(page); state {
	case models.StateReady:
	case models.StateLoginRequired:
		_ = page.Screenshot(w.vault.DebugScreenshotPath("whatsapp_session"))
		return nil, fmt.Errorf("whatsapp session expired: run `aide whatsapp --setup` to re-link")
	case models.StatePhoneDisconnected:
		return nil, fmt.Errorf("whatsapp phone disconnected: reconnect the linked phone")
	default:
		log.Printf("whatsapp: page not ready (state %s), skipping cycle", state)
		return nil, nil
	}

	rows, used := browser.Apply(page, unreadStrategies)
	if len(rows) == 0 {
		return nil, nil
	}
	log.Printf("whatsapp: %d unread chat(s) via %q", len(rows), used)

	if max := w.cfg.MaxChats; max > 0 && len(rows) > max {
		rows = rows[:max]
	}

	var items []watch.Item
	for _, row := range rows {
		name := chatName(row)
		if name == "" {
			continue
		}
		item, ok := w.scanChat(ctx, page, row, name)
		if ok {
			items = append(items, item)
		}
		w.backToList(page)
	}
	return items, nil
}

// scanChat opens one unread chat, reads the recent messages for context
// and decides whether the latest message is actionable.
func (w *Watcher) scanChat(ctx context.Context, page browser.Page, row browser.Element, name string) (watch.Item, bool) {
	if err := row.Click(); err != nil {
		return watch.Item{}, false
	}
	w.wait(ctx)

	messages := w.extractMessages(page, name)
	if len(messages) == 0 {
		return watch.Item{}, false
	}
	latest := messages[len(messages)-1]

	var allText strings.Builder
	for i, msg := range messages {
		if i > 0 {
			allText.WriteString(" ")
		}
		allText.WriteString(msg.Text)
	}
	priority, keyword := w.classifier.Classify(allText.String())
	if keyword == "" {
		return watch.Item{}, false
	}

	fp := watch.Fingerprint(name, latest.Text, latest.Time)
	if w.ledger.IsProcessed(fp) {
		return watch.Item{}, false
	}

	return watch.Item{
		Type:        models.TypeWhatsApp,
		Sender:      name,
		Preview:     latest.Text,
		Time:        latest.Time,
		Priority:    priority,
		Keyword:     keyword,
		Fingerprint: fp,
		Fields:      map[string]string{"chat_name": name},
		Body:        whatsappBody(name, latest, priority, keyword, messages),
	}, true
}

func (w *Watcher) extractMessages(page browser.Page, name string) []message {
	containers, _ := browser.Apply(page, messageStrategies)
	if len(containers) == 0 {
		return w.extractFallback(page, name)
	}

	count := w.cfg.ContextMessages
	if count <= 0 {
		count = defaultContextMessages
	}
	if len(containers) > count {
		containers = containers[len(containers)-count:]
	}

	var messages []message
	for _, container := range containers {
		text := strings.TrimSpace(browser.FirstText(container, messageTextSelectors...))
		if text == "" {
			continue
		}
		timeStr := strings.TrimSpace(browser.FirstText(container, messageMetaSelectors...))
		sender := name
		if el, ok := container.Query(authorSelector); ok {
			if author := strings.TrimSpace(el.Text()); author != "" {
				sender = author
			}
		}
		messages = append(messages, message{Sender: sender, Text: text, Time: timeStr})
	}
	return messages
}

// extractFallback reads messages off the data-pre-plain-text attribute,
// which WhatsApp sets on message bubbles regardless of test IDs.
func (w *Watcher) extractFallback(page browser.Page, name string) []message {
	els := page.QueryAll(prePlainSelector)
	count := w.cfg.ContextMessages
	if count <= 0 {
		count = defaultContextMessages
	}
	if len(els) > count {
		els = els[len(els)-count:]
	}

	var messages []message
	for _, el := range els {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			continue
		}
		messages = append(messages, message{
			Sender: name,
			Text:   text,
			Time:   strings.Trim(el.Attr("data-pre-plain-text"), "[] "),
		})
	}
	return messages
}

func (w *Watcher) backToList(page browser.Page) {
	if el, ok := page.Query(backButtonSelector); ok {
		_ = el.Click()
	}
}

func (w *Watcher) wait(ctx context.Context) {
	if w.settle <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.settle):
	}
}

// chatName extracts the chat title from an unread row. The title
// attribute wins over visible text, which may be ellipsized; text longer
// than a plausible name means the selector matched the message preview.
func chatName(row browser.Element) string {
	for _, sel := range chatNameSelectors {
		el, ok := row.Query(sel)
		if !ok {
			continue
		}
		if title := strings.TrimSpace(el.Attr("title")); title != "" {
			return title
		}
		if text := strings.TrimSpace(el.Text()); text != "" && len(text) < 100 {
			return text
		}
	}
	return ""
}

// CreateActionFile writes the detected chat into Needs_Action and records
// its fingerprint. In dry-run mode it only writes the audit entry.
func (w *Watcher) CreateActionFile(ctx context.Context, item watch.Item) (string, error) {
	cid := vault.CorrelationID()
	name := item.Fields["chat_name"]

	params := map[string]any{
		"chat_name":       name,
		"message_preview": truncate(item.Preview, 100),
		"priority":        string(item.Priority),
		"matched_keyword": item.Keyword,
		"dry_run":         w.dryRun,
		"dev_mode":        w.devMode,
	}

	if w.dryRun {
		err := w.vault.Actions().Append(models.AuditEntry{
			CorrelationID: cid,
			Actor:         "whatsapp_watcher",
			ActionType:    "whatsapp_detected",
			Target:        name,
			Result:        "dry_run",
			Parameters:    params,
		})
		return "", err
	}

	work := &models.WorkItem{
		Type:     models.TypeWhatsApp,
		Source:   w.Source(),
		Status:   models.StatusPending,
		Priority: item.Priority,
		Body:     item.Body,
	}
	work.SetField("sender", name)
	work.SetField("chat_name", name)
	work.SetField("message_preview", truncate(item.Preview, 200))
	work.SetField("received", models.NowISO(time.Now()))

	path, err := w.vault.CreateActionFile(work, name)
	if err != nil {
		return "", err
	}
	if err := w.ledger.MarkProcessed(item.Fingerprint); err != nil {
		return "", err
	}

	err = w.vault.Actions().Append(models.AuditEntry{
		CorrelationID: cid,
		Actor:         "whatsapp_watcher",
		ActionType:    "whatsapp_processed",
		Target:        path,
		Result:        "success",
		Parameters:    params,
	})
	return path, err
}

func whatsappBody(name string, latest message, priority models.Priority, keyword string, messages []message) string {
	var context strings.Builder
	for _, msg := range messages {
		timeStr := msg.Time
		if timeStr == "" {
			timeStr = "??:??"
		}
		fmt.Fprintf(&context, "- [%s] %s: %s\n", timeStr, msg.Sender, msg.Text)
	}
	contextSection := strings.TrimRight(context.String(), "\n")
	if contextSection == "" {
		contextSection = "(no context available)"
	}

	timeStr := latest.Time
	if timeStr == "" {
		timeStr = "unknown"
	}
	return fmt.Sprintf(`## WhatsApp Message

**From:** %s
**Time:** %s
**Priority:** %s (keyword: %s)

## Recent Messages (Context)

%s

## Suggested Actions

- [ ] Reply to sender
- [ ] Forward info to relevant party
- [ ] Mark as processed
`, name, timeStr, priority, keyword, contextSection)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
