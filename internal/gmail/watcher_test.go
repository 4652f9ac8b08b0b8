package gmail

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/pkg/models"
)

type fakeClient struct {
	messages []Message
	searches int
}

func (f *fakeClient) Search(ctx context.Context, query string, maxResults int) ([]Message, error) {
	f.searches++
	return f.messages, nil
}

func (f *fakeClient) GetHeaders(context.Context, string) (*Headers, error) { return &Headers{}, nil }
func (f *fakeClient) Send(context.Context, string, string, string) (*SendResult, error) {
	return &SendResult{}, nil
}
func (f *fakeClient) CreateDraft(context.Context, string, string, string) (*Draft, error) {
	return &Draft{}, nil
}
func (f *fakeClient) Reply(context.Context, string, string, string) (*SendResult, error) {
	return &SendResult{}, nil
}

func testWatcher(t *testing.T, client Client, cfg models.GmailConfig, dryRun bool) (*Watcher, *vault.Vault) {
	t.Helper()
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 10
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 30
	}
	return NewWatcher(client, v, cfg, dryRun), v
}

func TestCheckForUpdates_Classification(t *testing.T) {
	client := &fakeClient{messages: []Message{
		{ID: "m1", From: "alice@example.com", Subject: "Urgent invoice attached", Snippet: "please pay"},
		{ID: "m2", From: "bob@example.com", Subject: "Meeting notes", Snippet: "from yesterday"},
		{ID: "m3", From: "carol@example.com", Subject: "Newsletter", Snippet: "this week in tech"},
	}}
	w, _ := testWatcher(t, client, models.GmailConfig{
		HighKeywords:   []string{"urgent", "invoice"},
		MediumKeywords: []string{"meeting"},
	}, false)

	items, err := w.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	want := []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	for i, item := range items {
		if item.Priority != want[i] {
			t.Errorf("item %d: priority = %s, want %s", i, item.Priority, want[i])
		}
	}
	if items[0].Fields["thread_id"] == "" && client.messages[0].ThreadID != "" {
		t.Errorf("thread_id not carried into fields")
	}
}

func TestCheckForUpdates_ExcludesSenders(t *testing.T) {
	client := &fakeClient{messages: []Message{
		{ID: "m1", From: "Notifications <no-reply@example.com>", Subject: "hi"},
		{ID: "m2", From: "alice@example.com", Subject: "hi"},
	}}
	w, _ := testWatcher(t, client, models.GmailConfig{
		ExcludeSenders: []string{"NO-REPLY"},
	}, false)

	items, err := w.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Fingerprint != "m2" {
		t.Fatalf("expected only m2, got %+v", items)
	}
}

func TestCheckForUpdates_SnippetCapped(t *testing.T) {
	client := &fakeClient{messages: []Message{
		{ID: "m1", From: "a@example.com", Subject: "s", Snippet: strings.Repeat("x", 500)},
	}}
	w, _ := testWatcher(t, client, models.GmailConfig{SnippetMaxLength: 200}, false)

	items, err := w.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(items[0].Preview); got != 200 {
		t.Fatalf("preview length = %d, want 200", got)
	}
}

func TestProcessedMessageNotReemitted(t *testing.T) {
	client := &fakeClient{messages: []Message{
		{ID: "m1", From: "alice@example.com", Subject: "First"},
	}}
	w, _ := testWatcher(t, client, models.GmailConfig{}, false)

	ctx := context.Background()
	items, err := w.CheckForUpdates(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	path, err := w.CreateActionFile(ctx, items[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("action file missing: %v", err)
	}

	// The next cycle reloads the ledger and must skip the message.
	items, err = w.CheckForUpdates(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items on second cycle, got %d", len(items))
	}
}

func TestCreateActionFile_WritesFrontmatter(t *testing.T) {
	client := &fakeClient{messages: []Message{
		{ID: "m1", ThreadID: "t1", From: "alice@example.com", Subject: "Urgent invoice",
			Snippet: "please pay", Date: "Mon, 2 Feb 2026 10:00:00 +0000", Labels: []string{"UNREAD"}},
	}}
	w, _ := testWatcher(t, client, models.GmailConfig{
		HighKeywords: []string{"urgent"},
	}, false)

	ctx := context.Background()
	items, _ := w.CheckForUpdates(ctx)
	path, err := w.CreateActionFile(ctx, items[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item, err := vault.ParseItem(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Type != models.TypeEmail || item.Status != models.StatusPending {
		t.Errorf("type/status = %s/%s", item.Type, item.Status)
	}
	if item.Priority != models.PriorityHigh {
		t.Errorf("priority = %s, want high", item.Priority)
	}
	if item.Field("message_id") != "m1" || item.Field("thread_id") != "t1" {
		t.Errorf("threading fields missing: %v", item.Fields)
	}
	if !strings.Contains(item.Body, "## Email Content") || !strings.Contains(item.Body, "please pay") {
		t.Errorf("body missing email content:\n%s", item.Body)
	}
	if !strings.Contains(filepath.Base(path), "gmail_urgent-invoice_") {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}
}

func TestDryRunWritesNoFile(t *testing.T) {
	client := &fakeClient{messages: []Message{
		{ID: "m1", From: "alice@example.com", Subject: "Urgent"},
	}}
	w, v := testWatcher(t, client, models.GmailConfig{}, true)

	ctx := context.Background()
	items, _ := w.CheckForUpdates(ctx)
	path, err := w.CreateActionFile(ctx, items[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("dry run returned a path: %s", path)
	}

	pending, err := v.Pending()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("dry run created %d pending items", len(pending))
	}

	// Dry run must not mark the message processed.
	items, _ = w.CheckForUpdates(ctx)
	if len(items) != 1 {
		t.Fatalf("dry run consumed the message, got %d items", len(items))
	}

	entries := v.Actions().ReadRecent(5)
	if len(entries) != 1 || entries[0].Result != "dry_run" || entries[0].ActionType != "email_detected" {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}
