package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestToken(t *testing.T) *Authenticator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	tok := Token{
		AccessToken:  "test-access",
		RefreshToken: "test-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewAuthenticator(path)
}

func testClient(t *testing.T, handler http.Handler) *restClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(writeTestToken(t)).(*restClient)
	c.baseURL = srv.URL
	c.retry.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestSearch(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-access" {
			t.Errorf("missing bearer token, got %q", got)
		}
		switch {
		case r.URL.Path == "/users/me/messages":
			if r.URL.Query().Get("q") != "is:unread" {
				t.Errorf("unexpected query: %s", r.URL.Query().Get("q"))
			}
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "m1"}},
			})
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/"):
			json.NewEncoder(w).Encode(map[string]any{
				"id": "m1", "threadId": "t1", "snippet": "hello there",
				"labelIds": []string{"UNREAD", "IMPORTANT"},
				"payload": map[string]any{"headers": []map[string]string{
					{"name": "From", "value": "alice@example.com"},
					{"name": "Subject", "value": "Urgent invoice"},
					{"name": "Date", "value": "Mon, 2 Feb 2026 10:00:00 +0000"},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	msgs, err := c.Search(context.Background(), "is:unread", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.ID != "m1" || m.ThreadID != "t1" || m.From != "alice@example.com" ||
		m.Subject != "Urgent invoice" || m.Snippet != "hello there" || len(m.Labels) != 2 {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestSearch_EmptyInbox(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))

	msgs, err := c.Search(context.Background(), "is:unread", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestReply_ThreadsCorrectly(t *testing.T) {
	var sent struct {
		Raw      string `json:"raw"`
		ThreadID string `json:"threadId"`
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/send"):
			json.NewDecoder(r.Body).Decode(&sent)
			json.NewEncoder(w).Encode(map[string]string{"id": "sent1", "threadId": "t9"})
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/"):
			json.NewEncoder(w).Encode(map[string]any{
				"id": "orig", "payload": map[string]any{"headers": []map[string]string{
					{"name": "From", "value": "bob@example.com"},
					{"name": "Subject", "value": "Quarterly report"},
					{"name": "Message-ID", "value": "<orig@mail.example.com>"},
					{"name": "References", "value": "<root@mail.example.com>"},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	res, err := c.Reply(context.Background(), "t9", "orig", "Looks good.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MessageID != "sent1" || res.ThreadID != "t9" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if sent.ThreadID != "t9" {
		t.Fatalf("threadId not set on send: %+v", sent)
	}

	decoded, err := base64.URLEncoding.DecodeString(sent.Raw)
	if err != nil {
		t.Fatalf("raw message not base64url: %v", err)
	}
	mime := string(decoded)
	for _, want := range []string{
		"To: bob@example.com",
		"Subject: Re: Quarterly report",
		"In-Reply-To: <orig@mail.example.com>",
		"References: <root@mail.example.com> <orig@mail.example.com>",
		"Looks good.",
	} {
		if !strings.Contains(mime, want) {
			t.Errorf("reply missing %q in:\n%s", want, mime)
		}
	}
}

func TestReply_AlreadyRePrefixed(t *testing.T) {
	var raw string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/send"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			raw = body["raw"]
			json.NewEncoder(w).Encode(map[string]string{"id": "s", "threadId": "t"})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"id": "orig", "payload": map[string]any{"headers": []map[string]string{
					{"name": "From", "value": "bob@example.com"},
					{"name": "Subject", "value": "RE: Quarterly report"},
				}},
			})
		}
	}))

	if _, err := c.Reply(context.Background(), "t", "orig", "ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, _ := base64.URLEncoding.DecodeString(raw)
	if strings.Contains(string(decoded), "Re: RE:") {
		t.Fatalf("double Re: prefix in:\n%s", decoded)
	}
}

func TestDo_ErrorStatusBecomesStatusError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
	}))

	_, err := c.Send(context.Background(), "x@example.com", "s", "b")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 403 {
		t.Fatalf("expected 403 StatusError, got %v", err)
	}
}
