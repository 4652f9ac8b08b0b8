package gmail

import (
	"context"
	"fmt"
	"strings"

	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/internal/watch"
	"github.com/aide-sh/aide/pkg/models"
)

// Watcher polls the Gmail inbox and turns matching unread mail into
// pending work items. Gmail gives every message a stable ID, so dedup
// uses that instead of a content fingerprint.
type Watcher struct {
	client Client
	vault  *vault.Vault
	cfg    models.GmailConfig
	dryRun bool

	ledger *vault.Ledger
}

// NewWatcher creates the Gmail watcher.
func NewWatcher(client Client, v *vault.Vault, cfg models.GmailConfig, dryRun bool) *Watcher {
	return &Watcher{client: client, vault: v, cfg: cfg, dryRun: dryRun}
}

func (w *Watcher) Source() string { return "gmail" }

// CheckForUpdates searches the inbox and returns the new messages that
// pass the sender exclusions and are not yet in the dedup ledger.
func (w *Watcher) CheckForUpdates(ctx context.Context) ([]watch.Item, error) {
	w.ledger = w.vault.OpenLedger(w.Source())
	if err := w.ledger.Cleanup(w.cfg.RetentionDays); err != nil {
		return nil, fmt.Errorf("cleaning gmail ledger: %w", err)
	}

	messages, err := w.client.Search(ctx, w.cfg.Query, w.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("searching gmail: %w", err)
	}

	var items []watch.Item
	for _, msg := range messages {
		if w.excluded(msg.From) {
			continue
		}
		if w.ledger.IsProcessed(msg.ID) {
			continue
		}

		snippet := msg.Snippet
		if w.cfg.SnippetMaxLength > 0 && len(snippet) > w.cfg.SnippetMaxLength {
			snippet = snippet[:w.cfg.SnippetMaxLength]
		}
		priority := watch.ClassifyTiered(msg.Subject+" "+snippet, w.cfg.HighKeywords, w.cfg.MediumKeywords)

		items = append(items, watch.Item{
			Type:        models.TypeEmail,
			Sender:      msg.From,
			Preview:     snippet,
			Time:        msg.Date,
			Priority:    priority,
			Fingerprint: msg.ID,
			Fields: map[string]string{
				"from":       msg.From,
				"subject":    msg.Subject,
				"received":   msg.Date,
				"message_id": msg.ID,
				"thread_id":  msg.ThreadID,
				"labels":     strings.Join(msg.Labels, ", "),
			},
			Body: emailBody(msg.From, msg.Date, snippet, msg.Labels),
		})
	}
	return items, nil
}

// CreateActionFile writes the work item and marks the message processed.
// In dry-run mode it only writes the audit entry.
func (w *Watcher) CreateActionFile(ctx context.Context, item watch.Item) (string, error) {
	cid := vault.CorrelationID()
	subject := item.Fields["subject"]

	if w.dryRun {
		err := w.vault.Actions().Append(models.AuditEntry{
			CorrelationID: cid,
			Actor:         "gmail_watcher",
			ActionType:    "email_detected",
			Target:        subject,
			Result:        "dry_run",
			Parameters: map[string]any{
				"message_id": item.Fingerprint,
				"subject":    subject,
				"priority":   string(item.Priority),
			},
		})
		return "", err
	}

	work := &models.WorkItem{
		Type:     models.TypeEmail,
		Source:   w.Source(),
		Status:   models.StatusPending,
		Priority: item.Priority,
		Body:     item.Body,
	}
	for k, v := range item.Fields {
		if v != "" {
			work.SetField(k, v)
		}
	}

	path, err := w.vault.CreateActionFile(work, subject)
	if err != nil {
		return "", err
	}
	if err := w.ledger.MarkProcessed(item.Fingerprint); err != nil {
		return "", err
	}

	err = w.vault.Actions().Append(models.AuditEntry{
		CorrelationID: cid,
		Actor:         "gmail_watcher",
		ActionType:    "email_processed",
		Target:        path,
		Result:        "success",
		Parameters: map[string]any{
			"message_id": item.Fingerprint,
			"subject":    subject,
			"priority":   string(item.Priority),
		},
	})
	return path, err
}

func (w *Watcher) excluded(from string) bool {
	fromLower := strings.ToLower(from)
	for _, pattern := range w.cfg.ExcludeSenders {
		if strings.Contains(fromLower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func emailBody(from, date, snippet string, labels []string) string {
	if snippet == "" {
		snippet = "(no preview available)"
	}
	return fmt.Sprintf(`## Email Content

%s

## Metadata

- **From:** %s
- **Date:** %s
- **Labels:** %s

## Suggested Actions

- [ ] Reply to sender
- [ ] Forward to relevant party
- [ ] Mark as processed
- [ ] Archive after review
`, snippet, from, date, strings.Join(labels, ", "))
}
