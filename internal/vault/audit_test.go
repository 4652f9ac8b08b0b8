package vault

import (
	"testing"
	"time"

	"github.com/aide-sh/aide/pkg/models"
)

func TestAuditLog_AppendAndReadRecent(t *testing.T) {
	v := newTestVault(t)
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	actions := v.Actions()
	for _, target := range []string{"a.md", "b.md"} {
		err := actions.Append(models.AuditEntry{
			CorrelationID: CorrelationID(),
			Actor:         "gmail_watcher",
			ActionType:    "create_action_file",
			Target:        target,
			Result:        "success",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Next day's entries land in a separate file.
	now = now.Add(24 * time.Hour)
	err := actions.Append(models.AuditEntry{
		CorrelationID: CorrelationID(),
		Actor:         "linkedin_poster",
		ActionType:    "publish_post",
		Target:        "c.md",
		Result:        "success",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := actions.ReadRecent(2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Target != "c.md" {
		t.Fatalf("expected newest entry first, got %s", entries[0].Target)
	}
	if entries[1].Target != "b.md" {
		t.Fatalf("expected cross-day read, got %s", entries[1].Target)
	}
	if entries[0].Timestamp == "" {
		t.Fatal("timestamp not filled in")
	}

	day1 := v.Actions().ReadDate("2026-02-03")
	if len(day1) != 2 {
		t.Fatalf("expected 2 entries on day one, got %d", len(day1))
	}
	if day1[0].Target != "a.md" {
		t.Fatalf("expected oldest first for date reads, got %s", day1[0].Target)
	}
}

func TestAuditLog_ErrorsSeparateFromActions(t *testing.T) {
	v := newTestVault(t)

	if err := v.Errors().Append(models.AuditEntry{
		Actor: "whatsapp_watcher", ActionType: "poll", Target: "whatsapp", Result: "error",
		Error: "session state: login_required",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := v.Actions().ReadRecent(10); len(got) != 0 {
		t.Fatalf("error entry leaked into actions log: %v", got)
	}
	got := v.Errors().ReadRecent(10)
	if len(got) != 1 || got[0].Error == "" {
		t.Fatalf("expected 1 error entry, got %v", got)
	}
}
