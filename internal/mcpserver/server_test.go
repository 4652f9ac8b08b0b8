package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aide-sh/aide/internal/gmail"
	"github.com/aide-sh/aide/internal/ratelimit"
	"github.com/aide-sh/aide/internal/vault"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// --- Fake Gmail client ---

type fakeGmail struct {
	searchResults []gmail.Message
	searchErr     error

	sent    []sentEmail
	replies []sentReply
	drafts  []sentEmail
	sendErr error
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type sentReply struct {
	ThreadID  string
	MessageID string
	Body      string
}

func (f *fakeGmail) Search(_ context.Context, _ string, _ int) ([]gmail.Message, error) {
	return f.searchResults, f.searchErr
}

func (f *fakeGmail) GetHeaders(_ context.Context, _ string) (*gmail.Headers, error) {
	return &gmail.Headers{}, nil
}

func (f *fakeGmail) Send(_ context.Context, to, subject, body string) (*gmail.SendResult, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: body})
	return &gmail.SendResult{MessageID: "msg-sent-1", ThreadID: "thread-sent-1"}, nil
}

func (f *fakeGmail) CreateDraft(_ context.Context, to, subject, body string) (*gmail.Draft, error) {
	f.drafts = append(f.drafts, sentEmail{To: to, Subject: subject, Body: body})
	return &gmail.Draft{DraftID: "draft-1", MessageID: "msg-draft-1"}, nil
}

func (f *fakeGmail) Reply(_ context.Context, threadID, messageID, body string) (*gmail.SendResult, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.replies = append(f.replies, sentReply{ThreadID: threadID, MessageID: messageID, Body: body})
	return &gmail.SendResult{MessageID: "msg-reply-1", ThreadID: threadID}, nil
}

// --- Test helpers ---

func testServer(t *testing.T, client *fakeGmail, devMode bool) (*Server, *vault.Vault, *ratelimit.Limiter) {
	t.Helper()
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	limiter := ratelimit.New(10, time.Hour)
	return NewServer(client, v, limiter, devMode, "test"), v, limiter
}

func seedApproval(t *testing.T, v *vault.Vault, name string, front map[string]any) string {
	t.Helper()
	path := filepath.Join(v.ApprovedDir(), name)
	if err := vault.CreateFile(path, front, "Approved by human."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

// callTool connects an in-memory client to the server and calls one tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}
	return result
}

// toolMessage unwraps the message string from a tool result.
func toolMessage(t *testing.T, result *gomcp.CallToolResult) string {
	t.Helper()

	var text string
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			text = tc.Text
			break
		}
	}

	var out toolOutput
	if err := json.Unmarshal([]byte(text), &out); err == nil && out.Message != "" {
		return out.Message
	}
	if result.StructuredContent != nil {
		data, _ := json.Marshal(result.StructuredContent)
		if err := json.Unmarshal(data, &out); err == nil && out.Message != "" {
			return out.Message
		}
	}
	return text
}

// --- Tests ---

func TestSearchEmail(t *testing.T) {
	client := &fakeGmail{searchResults: []gmail.Message{
		{ID: "m1", ThreadID: "t1", From: "alice@example.com", Subject: "Invoice", Snippet: "Please pay", Date: "2026-02-01"},
		{ID: "m2", ThreadID: "t2", From: "bob@example.com", Subject: "Lunch", Snippet: "Friday?", Date: "2026-02-02"},
	}}
	srv, _, _ := testServer(t, client, false)

	result := callTool(t, srv, "search_email", map[string]any{"query": "is:unread"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", toolMessage(t, result))
	}

	msg := toolMessage(t, result)
	if !strings.Contains(msg, "Found 2 email(s)") {
		t.Errorf("expected count header, got: %s", msg)
	}
	for _, want := range []string{"alice@example.com", "Invoice", "Message ID: m1", "Thread ID: t2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message, got: %s", want, msg)
		}
	}
}

func TestSearchEmail_NoResults(t *testing.T) {
	srv, _, _ := testServer(t, &fakeGmail{}, false)

	result := callTool(t, srv, "search_email", map[string]any{"query": "from:nobody@example.com"})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "No emails found matching") {
		t.Errorf("expected no-results message, got: %s", msg)
	}
}

func TestSearchEmail_ClientError(t *testing.T) {
	client := &fakeGmail{searchErr: errors.New("network down")}
	srv, v, _ := testServer(t, client, false)

	result := callTool(t, srv, "search_email", map[string]any{"query": "is:unread"})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "Error searching emails") {
		t.Errorf("expected error message, got: %s", msg)
	}

	entries := v.Actions().ReadRecent(5)
	if len(entries) != 1 || entries[0].Result != "error" {
		t.Fatalf("expected one error audit entry, got %+v", entries)
	}
}

func TestDraftEmail(t *testing.T) {
	client := &fakeGmail{}
	srv, v, _ := testServer(t, client, false)

	result := callTool(t, srv, "draft_email", map[string]any{
		"to":      "alice@example.com",
		"subject": "Quarterly report",
		"body":    "Draft attached.",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "Draft created successfully") || !strings.Contains(msg, "draft-1") {
		t.Errorf("expected draft confirmation, got: %s", msg)
	}
	if len(client.drafts) != 1 || client.drafts[0].To != "alice@example.com" {
		t.Fatalf("expected one draft to alice, got %+v", client.drafts)
	}

	entries := v.Actions().ReadRecent(5)
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	if entries[0].Actor != "email_mcp" || entries[0].ActionType != "draft_email" {
		t.Errorf("unexpected audit entry: %+v", entries[0])
	}
	// Recipient addresses never appear unredacted in the audit log.
	if entries[0].Target != "a***@example.com" {
		t.Errorf("expected redacted target, got %s", entries[0].Target)
	}
}

func TestDraftEmail_InvalidAddress(t *testing.T) {
	client := &fakeGmail{}
	srv, _, _ := testServer(t, client, false)

	result := callTool(t, srv, "draft_email", map[string]any{
		"to":      "not-an-address",
		"subject": "x",
		"body":    "y",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "invalid email address format") {
		t.Errorf("expected validation message, got: %s", msg)
	}
	if len(client.drafts) != 0 {
		t.Errorf("expected no draft created, got %+v", client.drafts)
	}
}

func TestSendEmail_NoApproval(t *testing.T) {
	client := &fakeGmail{}
	srv, _, _ := testServer(t, client, false)

	result := callTool(t, srv, "send_email", map[string]any{
		"to":      "alice@example.com",
		"subject": "Hello",
		"body":    "Hi there",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "no matching approval") {
		t.Errorf("expected approval rejection, got: %s", msg)
	}
	if len(client.sent) != 0 {
		t.Errorf("expected nothing sent, got %+v", client.sent)
	}
}

func TestSendEmail_WithApproval(t *testing.T) {
	client := &fakeGmail{}
	srv, v, limiter := testServer(t, client, false)

	path := seedApproval(t, v, "email_send_alice.md", map[string]any{
		"type":        "email_send",
		"id":          "a1",
		"status":      "approved",
		"to":          "alice@example.com",
		"approved_at": "2026-02-01T10:00:00Z",
	})

	result := callTool(t, srv, "send_email", map[string]any{
		"to":      "alice@example.com",
		"subject": "Hello",
		"body":    "Hi there",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "Email sent successfully") || !strings.Contains(msg, "msg-sent-1") {
		t.Errorf("expected send confirmation, got: %s", msg)
	}
	if len(client.sent) != 1 || client.sent[0].To != "alice@example.com" {
		t.Fatalf("expected one send to alice, got %+v", client.sent)
	}
	if limiter.Count() != 1 {
		t.Errorf("expected send recorded against rate limit, got count %d", limiter.Count())
	}

	// The approval is consumed: moved out of Approved/ so it cannot
	// authorize a second send.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected approval file consumed, stat err = %v", err)
	}
	done, err := v.List(v.DoneDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(done) != 1 {
		t.Errorf("expected consumed approval in Done/, got %d items", len(done))
	}
}

func TestSendEmail_RateLimited(t *testing.T) {
	client := &fakeGmail{}
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	limiter := ratelimit.New(1, time.Hour)
	limiter.RecordSend()
	srv := NewServer(client, v, limiter, false, "test")

	seedApproval(t, v, "email_send_alice.md", map[string]any{
		"type":        "email_send",
		"id":          "a1",
		"status":      "approved",
		"to":          "alice@example.com",
		"approved_at": "2026-02-01T10:00:00Z",
	})

	result := callTool(t, srv, "send_email", map[string]any{
		"to":      "alice@example.com",
		"subject": "Hello",
		"body":    "Hi there",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "rate limit exceeded (1 sends per window)") {
		t.Errorf("expected rate limit rejection, got: %s", msg)
	}
	if len(client.sent) != 0 {
		t.Errorf("expected nothing sent, got %+v", client.sent)
	}

	// The approval survives a rate-limited attempt.
	pending, err := v.List(v.ApprovedDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected approval still present, got %d items", len(pending))
	}
}

func TestSendEmail_DevMode(t *testing.T) {
	client := &fakeGmail{}
	srv, _, _ := testServer(t, client, true)

	result := callTool(t, srv, "send_email", map[string]any{
		"to":      "alice@example.com",
		"subject": "Hello",
		"body":    "Hi there",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "[DEV_MODE]") {
		t.Errorf("expected dev-mode marker, got: %s", msg)
	}
	if !strings.Contains(msg, "a***@example.com") {
		t.Errorf("expected redacted recipient, got: %s", msg)
	}
	if len(client.sent) != 0 {
		t.Errorf("expected no real send in dev mode, got %+v", client.sent)
	}
}

func TestReplyEmail_WithApproval(t *testing.T) {
	client := &fakeGmail{}
	srv, v, _ := testServer(t, client, false)

	seedApproval(t, v, "email_reply_t1.md", map[string]any{
		"type":        "email_reply",
		"id":          "r1",
		"status":      "approved",
		"thread_id":   "thread-1",
		"approved_at": "2026-02-01T10:00:00Z",
	})

	result := callTool(t, srv, "reply_email", map[string]any{
		"thread_id":  "thread-1",
		"message_id": "msg-9",
		"body":       "Thanks, will do.",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "Reply sent successfully") {
		t.Errorf("expected reply confirmation, got: %s", msg)
	}
	if len(client.replies) != 1 {
		t.Fatalf("expected one reply, got %+v", client.replies)
	}
	if client.replies[0].ThreadID != "thread-1" || client.replies[0].MessageID != "msg-9" {
		t.Errorf("reply threading wrong: %+v", client.replies[0])
	}

	done, err := v.List(v.DoneDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(done) != 1 {
		t.Errorf("expected consumed approval in Done/, got %d items", len(done))
	}
}

func TestReplyEmail_NoApproval(t *testing.T) {
	client := &fakeGmail{}
	srv, _, _ := testServer(t, client, false)

	result := callTool(t, srv, "reply_email", map[string]any{
		"thread_id":  "thread-1",
		"message_id": "msg-9",
		"body":       "Thanks.",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "no matching approval") {
		t.Errorf("expected approval rejection, got: %s", msg)
	}
	if len(client.replies) != 0 {
		t.Errorf("expected no reply, got %+v", client.replies)
	}
}

func TestReplyEmail_ThreadNotFound(t *testing.T) {
	client := &fakeGmail{sendErr: &gmail.StatusError{Code: 404, Op: "reply"}}
	srv, v, _ := testServer(t, client, false)

	seedApproval(t, v, "email_reply_gone.md", map[string]any{
		"type":        "email_reply",
		"id":          "r2",
		"status":      "approved",
		"thread_id":   "thread-gone",
		"approved_at": "2026-02-01T10:00:00Z",
	})

	result := callTool(t, srv, "reply_email", map[string]any{
		"thread_id":  "thread-gone",
		"message_id": "msg-1",
		"body":       "Hello?",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "not found or no longer accessible") {
		t.Errorf("expected thread-not-found message, got: %s", msg)
	}
}

func TestApprovalMatchIsCaseInsensitive(t *testing.T) {
	client := &fakeGmail{}
	srv, v, _ := testServer(t, client, false)

	seedApproval(t, v, "email_send_alice.md", map[string]any{
		"type":        "email_send",
		"id":          "a1",
		"status":      "approved",
		"to":          "Alice@Example.com",
		"approved_at": "2026-02-01T10:00:00Z",
	})

	result := callTool(t, srv, "send_email", map[string]any{
		"to":      "alice@example.com",
		"subject": "Hello",
		"body":    "Hi",
	})
	msg := toolMessage(t, result)
	if !strings.Contains(msg, "Email sent successfully") {
		t.Errorf("expected send despite address casing, got: %s", msg)
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john@example.com", "j***@example.com"},
		{"a@b.co", "a***@b.co"},
		{"no-at-sign", "***"},
		{"@example.com", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		if got := redactEmail(tt.in); got != tt.want {
			t.Errorf("redactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
