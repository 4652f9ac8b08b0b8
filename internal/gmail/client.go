package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Message is a Gmail message with the headers the watcher and tools need.
type Message struct {
	ID       string
	ThreadID string
	From     string
	To       string
	Subject  string
	Snippet  string
	Date     string
	Labels   []string
}

// Headers are the threading-relevant headers of one message.
type Headers struct {
	MessageID  string
	References string
	Subject    string
	From       string
	To         string
}

// SendResult identifies a sent message.
type SendResult struct {
	MessageID string
	ThreadID  string
}

// Draft identifies a created draft.
type Draft struct {
	DraftID   string
	MessageID string
}

// Client is the Gmail API surface the watcher and email tools consume.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Message, error)
	GetHeaders(ctx context.Context, messageID string) (*Headers, error)
	Send(ctx context.Context, to, subject, body string) (*SendResult, error)
	CreateDraft(ctx context.Context, to, subject, body string) (*Draft, error)
	Reply(ctx context.Context, threadID, messageID, body string) (*SendResult, error)
}

// restClient implements Client over the Gmail REST API with the shared
// retry policy.
type restClient struct {
	baseURL string
	http    *http.Client
	auth    *Authenticator
	retry   *Retryer
}

// NewClient creates a Client backed by the given token file.
func NewClient(auth *Authenticator) Client {
	c := &restClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		auth:    auth,
	}
	c.retry = NewRetryer(func(ctx context.Context) error {
		auth.Invalidate()
		_, err := auth.AccessToken(ctx)
		return err
	})
	return c
}

func (c *restClient) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &StatusError{Code: resp.StatusCode, Op: method + " " + path, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

type apiHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type apiMessage struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Snippet  string   `json:"snippet"`
	LabelIDs []string `json:"labelIds"`
	Payload  struct {
		Headers []apiHeader `json:"headers"`
	} `json:"payload"`
}

func header(headers []apiHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (c *restClient) Search(ctx context.Context, query string, maxResults int) ([]Message, error) {
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		q := url.Values{"q": {query}, "maxResults": {strconv.Itoa(maxResults)}}
		return c.do(ctx, http.MethodGet, "/users/me/messages", q, nil, &list)
	})
	if err != nil {
		return nil, err
	}

	var messages []Message
	for _, ref := range list.Messages {
		var msg apiMessage
		err := c.retry.Do(ctx, func(ctx context.Context) error {
			q := url.Values{
				"format":          {"metadata"},
				"metadataHeaders": {"From", "To", "Subject", "Date"},
			}
			return c.do(ctx, http.MethodGet, "/users/me/messages/"+ref.ID, q, nil, &msg)
		})
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{
			ID:       msg.ID,
			ThreadID: msg.ThreadID,
			From:     header(msg.Payload.Headers, "From"),
			To:       header(msg.Payload.Headers, "To"),
			Subject:  header(msg.Payload.Headers, "Subject"),
			Snippet:  msg.Snippet,
			Date:     header(msg.Payload.Headers, "Date"),
			Labels:   msg.LabelIDs,
		})
	}
	return messages, nil
}

func (c *restClient) GetHeaders(ctx context.Context, messageID string) (*Headers, error) {
	var msg apiMessage
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		q := url.Values{
			"format":          {"metadata"},
			"metadataHeaders": {"Message-ID", "References", "Subject", "From", "To"},
		}
		return c.do(ctx, http.MethodGet, "/users/me/messages/"+messageID, q, nil, &msg)
	})
	if err != nil {
		return nil, err
	}
	return &Headers{
		MessageID:  header(msg.Payload.Headers, "Message-ID"),
		References: header(msg.Payload.Headers, "References"),
		Subject:    header(msg.Payload.Headers, "Subject"),
		From:       header(msg.Payload.Headers, "From"),
		To:         header(msg.Payload.Headers, "To"),
	}, nil
}

// rfc2822 assembles a plain-text message for the raw send API.
func rfc2822(headers [][2]string, body string) string {
	var b strings.Builder
	for _, h := range headers {
		if h[1] != "" {
			b.WriteString(h[0] + ": " + h[1] + "\r\n")
		}
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

func encodeRaw(msg string) string {
	return base64.URLEncoding.EncodeToString([]byte(msg))
}

func (c *restClient) Send(ctx context.Context, to, subject, body string) (*SendResult, error) {
	raw := encodeRaw(rfc2822([][2]string{{"To", to}, {"Subject", subject}}, body))

	var resp apiMessage
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/users/me/messages/send", nil,
			map[string]string{"raw": raw}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &SendResult{MessageID: resp.ID, ThreadID: resp.ThreadID}, nil
}

func (c *restClient) CreateDraft(ctx context.Context, to, subject, body string) (*Draft, error) {
	raw := encodeRaw(rfc2822([][2]string{{"To", to}, {"Subject", subject}}, body))

	var resp struct {
		ID      string     `json:"id"`
		Message apiMessage `json:"message"`
	}
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/users/me/drafts", nil,
			map[string]any{"message": map[string]string{"raw": raw}}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &Draft{DraftID: resp.ID, MessageID: resp.Message.ID}, nil
}

func (c *restClient) Reply(ctx context.Context, threadID, messageID, body string) (*SendResult, error) {
	original, err := c.GetHeaders(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetching original headers for reply: %w", err)
	}

	subject := original.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	headers := [][2]string{
		{"To", original.From},
		{"Subject", subject},
	}
	if original.MessageID != "" {
		headers = append(headers,
			[2]string{"In-Reply-To", original.MessageID},
			[2]string{"References", strings.TrimSpace(original.References + " " + original.MessageID)},
		)
	}
	raw := encodeRaw(rfc2822(headers, body))

	var resp apiMessage
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/users/me/messages/send", nil,
			map[string]string{"raw": raw, "threadId": threadID}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &SendResult{MessageID: resp.ID, ThreadID: resp.ThreadID}, nil
}
