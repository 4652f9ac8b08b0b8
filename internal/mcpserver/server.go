// Package mcpserver exposes the email action tools over the Model
// Context Protocol. search_email is always available; draft_email needs
// no approval because drafts stay in the mailbox; send_email and
// reply_email only act when a matching human approval exists in
// Approved/, and both count against the send rate limit.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aide-sh/aide/internal/gmail"
	"github.com/aide-sh/aide/internal/ratelimit"
	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/pkg/models"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the email tools and their guardrails as an MCP server.
type Server struct {
	server  *gomcp.Server
	client  gmail.Client
	vault   *vault.Vault
	limiter *ratelimit.Limiter
	devMode bool
}

// NewServer creates the email MCP server.
func NewServer(client gmail.Client, v *vault.Vault, limiter *ratelimit.Limiter, devMode bool, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		client:  client,
		vault:   v,
		limiter: limiter,
		devMode: devMode,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "aide-email", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves MCP over stdio, blocking until the client disconnects or the
// context is cancelled. Nothing else may write to stdout while it runs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type searchEmailInput struct {
	Query      string `json:"query" jsonschema:"required,Gmail search query (e.g. 'from:user@example.com subject:invoice')"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results (1-50, default 5)"`
}

type draftEmailInput struct {
	To      string `json:"to" jsonschema:"required,recipient email address"`
	Subject string `json:"subject" jsonschema:"required,email subject line"`
	Body    string `json:"body" jsonschema:"required,plain text email body"`
}

type sendEmailInput struct {
	To      string `json:"to" jsonschema:"required,recipient email address"`
	Subject string `json:"subject" jsonschema:"required,email subject line"`
	Body    string `json:"body" jsonschema:"required,plain text email body"`
}

type replyEmailInput struct {
	ThreadID  string `json:"thread_id" jsonschema:"required,Gmail thread ID to reply to"`
	MessageID string `json:"message_id" jsonschema:"required,Gmail message ID the reply threads onto"`
	Body      string `json:"body" jsonschema:"required,plain text reply body"`
}

// toolOutput carries the human-readable result of every email tool.
// Rejections (missing approval, rate limit) are statuses, not protocol
// errors, so they travel in the message too.
type toolOutput struct {
	Message string `json:"message"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "search_email",
		Description: "Search Gmail for emails matching a query. Uses Gmail search syntax.",
	}, s.handleSearchEmail)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "draft_email",
		Description: "Create an email draft in Gmail (does not send). The draft appears in the Drafts folder for review.",
	}, s.handleDraftEmail)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "send_email",
		Description: "Send an email via Gmail. Requires an approval file in Approved/ with type: email_send and a matching 'to' field. Rate limited.",
	}, s.handleSendEmail)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reply_email",
		Description: "Reply to an existing Gmail thread with correct threading headers. Requires an approval file in Approved/ with type: email_reply and a matching thread_id.",
	}, s.handleReplyEmail)
}

// --- Tool handlers ---

func (s *Server) handleSearchEmail(ctx context.Context, _ *gomcp.CallToolRequest, input searchEmailInput) (*gomcp.CallToolResult, toolOutput, error) {
	cid := vault.CorrelationID()
	start := time.Now()

	maxResults := input.MaxResults
	if maxResults < 1 {
		maxResults = 5
	}
	if maxResults > 50 {
		maxResults = 50
	}

	target := "query=" + truncate(input.Query, 50)
	messages, err := s.client.Search(ctx, input.Query, maxResults)
	if err != nil {
		s.logTool("search_email", target, "error", cid, since(start), nil)
		return nil, toolOutput{Message: fmt.Sprintf("Error searching emails: %s", err)}, nil
	}

	s.logTool("search_email", target, "success", cid, since(start), map[string]any{
		"query":       truncate(input.Query, 50),
		"max_results": maxResults,
		"count":       len(messages),
	})

	if len(messages) == 0 {
		return nil, toolOutput{Message: "No emails found matching: " + input.Query}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d email(s) matching %q:\n\n", len(messages), input.Query)
	for i, msg := range messages {
		fmt.Fprintf(&b, "%d. From: %s | Subject: %s | Date: %s\n", i+1, msg.From, msg.Subject, msg.Date)
		fmt.Fprintf(&b, "   Snippet: %s\n", truncate(msg.Snippet, 200))
		fmt.Fprintf(&b, "   Message ID: %s | Thread ID: %s\n\n", msg.ID, msg.ThreadID)
	}
	return nil, toolOutput{Message: strings.TrimRight(b.String(), "\n")}, nil
}

func (s *Server) handleDraftEmail(ctx context.Context, _ *gomcp.CallToolRequest, input draftEmailInput) (*gomcp.CallToolResult, toolOutput, error) {
	cid := vault.CorrelationID()
	start := time.Now()
	redacted := redactEmail(input.To)

	if !strings.Contains(input.To, "@") {
		s.logTool("draft_email", redacted, "error", cid, 0, map[string]any{"error": "invalid_email"})
		return nil, toolOutput{Message: "Error: invalid email address format: " + input.To}, nil
	}

	if s.devMode {
		s.logTool("draft_email", redacted, "dev_mode", cid, 0, map[string]any{"subject": truncate(input.Subject, 50)})
		return nil, toolOutput{Message: fmt.Sprintf(
			"[DEV_MODE] Draft logged but not created. To: %s, Subject: %s", redacted, truncate(input.Subject, 50))}, nil
	}

	draft, err := s.client.CreateDraft(ctx, input.To, input.Subject, input.Body)
	if err != nil {
		s.logTool("draft_email", redacted, "error", cid, since(start), nil)
		return nil, toolOutput{Message: fmt.Sprintf("Error creating draft: %s", err)}, nil
	}

	s.logTool("draft_email", redacted, "success", cid, since(start), map[string]any{
		"subject":  truncate(input.Subject, 50),
		"draft_id": draft.DraftID,
	})
	return nil, toolOutput{Message: fmt.Sprintf(
		"Draft created successfully. Draft ID: %s. Review it in your Gmail drafts folder.", draft.DraftID)}, nil
}

func (s *Server) handleSendEmail(ctx context.Context, _ *gomcp.CallToolRequest, input sendEmailInput) (*gomcp.CallToolResult, toolOutput, error) {
	cid := vault.CorrelationID()
	start := time.Now()
	redacted := redactEmail(input.To)

	if !strings.Contains(input.To, "@") {
		s.logTool("send_email", redacted, "error", cid, 0, map[string]any{"error": "invalid_email"})
		return nil, toolOutput{Message: "Error: invalid email address format: " + input.To}, nil
	}

	if s.devMode {
		s.logTool("send_email", redacted, "dev_mode", cid, 0, map[string]any{"subject": truncate(input.Subject, 50)})
		return nil, toolOutput{Message: fmt.Sprintf(
			"[DEV_MODE] Send logged but not executed. To: %s, Subject: %s", redacted, truncate(input.Subject, 50))}, nil
	}

	approval, err := s.vault.FindApproval(models.TypeEmailSend, map[string]string{"to": input.To})
	if err != nil {
		s.logTool("send_email", redacted, "error", cid, 0, nil)
		return nil, toolOutput{Message: fmt.Sprintf("Error checking approvals: %s", err)}, nil
	}
	if approval == nil {
		s.logTool("send_email", redacted, "rejected", cid, 0, map[string]any{"reason": "no_approval"})
		return nil, toolOutput{Message: fmt.Sprintf(
			"Rejected: no matching approval found in Approved/ for sending to %s. "+
				"Create an approval file with type: email_send and move it to Approved/.", redacted)}, nil
	}

	if allowed, wait := s.limiter.Check(); !allowed {
		s.logTool("send_email", redacted, "rate_limited", cid, 0, map[string]any{"wait_seconds": wait})
		return nil, toolOutput{Message: fmt.Sprintf(
			"Rejected: rate limit exceeded (%d sends per window). Next send available in %d seconds.",
			s.limiter.Max(), wait)}, nil
	}

	result, err := s.client.Send(ctx, input.To, input.Subject, input.Body)
	if err != nil {
		s.logTool("send_email", redacted, "error", cid, since(start), nil)
		return nil, toolOutput{Message: fmt.Sprintf("Error sending email: %s", err)}, nil
	}

	s.limiter.RecordSend()
	if err := s.vault.ConsumeApproval(approval.Path); err != nil {
		s.logTool("send_email", redacted, "error", cid, since(start), map[string]any{"error": "consume_approval"})
		return nil, toolOutput{Message: fmt.Sprintf(
			"Email sent (Message ID: %s) but consuming the approval failed: %s", result.MessageID, err)}, nil
	}

	s.logTool("send_email", redacted, "success", cid, since(start), map[string]any{
		"subject":    truncate(input.Subject, 50),
		"message_id": result.MessageID,
		"thread_id":  result.ThreadID,
	})
	return nil, toolOutput{Message: fmt.Sprintf(
		"Email sent successfully. Message ID: %s Thread ID: %s", result.MessageID, result.ThreadID)}, nil
}

func (s *Server) handleReplyEmail(ctx context.Context, _ *gomcp.CallToolRequest, input replyEmailInput) (*gomcp.CallToolResult, toolOutput, error) {
	cid := vault.CorrelationID()
	start := time.Now()
	target := "thread=" + input.ThreadID

	if input.ThreadID == "" || input.MessageID == "" {
		s.logTool("reply_email", "unknown", "error", cid, 0, nil)
		return nil, toolOutput{Message: "Error: thread_id and message_id are required."}, nil
	}

	if s.devMode {
		s.logTool("reply_email", target, "dev_mode", cid, 0, map[string]any{"body_length": len(input.Body)})
		return nil, toolOutput{Message: fmt.Sprintf(
			"[DEV_MODE] Reply logged but not executed. Thread: %s, Body length: %d chars",
			input.ThreadID, len(input.Body))}, nil
	}

	approval, err := s.vault.FindApproval(models.TypeEmailReply, map[string]string{"thread_id": input.ThreadID})
	if err != nil {
		s.logTool("reply_email", target, "error", cid, 0, nil)
		return nil, toolOutput{Message: fmt.Sprintf("Error checking approvals: %s", err)}, nil
	}
	if approval == nil {
		s.logTool("reply_email", target, "rejected", cid, 0, map[string]any{"reason": "no_approval"})
		return nil, toolOutput{Message: fmt.Sprintf(
			"Rejected: no matching approval found in Approved/ for replying to thread %s. "+
				"Create an approval file with type: email_reply and move it to Approved/.", input.ThreadID)}, nil
	}

	if allowed, wait := s.limiter.Check(); !allowed {
		s.logTool("reply_email", target, "rate_limited", cid, 0, map[string]any{"wait_seconds": wait})
		return nil, toolOutput{Message: fmt.Sprintf(
			"Rejected: rate limit exceeded (%d sends per window). Next send available in %d seconds.",
			s.limiter.Max(), wait)}, nil
	}

	result, err := s.client.Reply(ctx, input.ThreadID, input.MessageID, input.Body)
	if err != nil {
		s.logTool("reply_email", target, "error", cid, since(start), nil)
		var se *gmail.StatusError
		if errors.As(err, &se) && se.Code == 404 {
			return nil, toolOutput{Message: fmt.Sprintf(
				"Error: thread ID %s not found or no longer accessible.", input.ThreadID)}, nil
		}
		return nil, toolOutput{Message: fmt.Sprintf("Error replying to thread: %s", err)}, nil
	}

	s.limiter.RecordSend()
	if err := s.vault.ConsumeApproval(approval.Path); err != nil {
		s.logTool("reply_email", target, "error", cid, since(start), map[string]any{"error": "consume_approval"})
		return nil, toolOutput{Message: fmt.Sprintf(
			"Reply sent (Message ID: %s) but consuming the approval failed: %s", result.MessageID, err)}, nil
	}

	s.logTool("reply_email", target, "success", cid, since(start), map[string]any{
		"message_id": result.MessageID,
		"thread_id":  result.ThreadID,
	})
	return nil, toolOutput{Message: fmt.Sprintf(
		"Reply sent successfully. Message ID: %s Thread ID: %s", result.MessageID, result.ThreadID)}, nil
}

// --- Helpers ---

func (s *Server) logTool(actionType, target, result, cid string, durationMs int64, params map[string]any) {
	_ = s.vault.Actions().Append(models.AuditEntry{
		CorrelationID: cid,
		Actor:         "email_mcp",
		ActionType:    actionType,
		Target:        target,
		Result:        result,
		DurationMs:    durationMs,
		Parameters:    params,
	})
}

// redactEmail hides the local part for logging: john@example.com becomes
// j***@example.com.
func redactEmail(address string) string {
	local, domain, ok := strings.Cut(address, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
