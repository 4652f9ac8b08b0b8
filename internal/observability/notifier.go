package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aide-sh/aide/internal/watch"
)

// slackNotifier pushes watcher alerts to a Slack incoming webhook. It
// satisfies watch.Notifier.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a notifier posting to the given Slack webhook URL.
func NewSlackNotifier(webhookURL string) watch.Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts one alert message. An empty message is a no-op.
func (s *slackNotifier) Notify(ctx context.Context, message string) error {
	if message == "" {
		return nil
	}

	msg := slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "aide needs attention"}},
		{Type: "section", Text: &slackText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%s\n_%s_", message, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
		}},
	}}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// logNotifier is the fallback when no webhook is configured: alerts go to
// the process log so they at least reach the terminal.
type logNotifier struct{}

// NewLogNotifier creates a notifier that writes alerts to the process log.
func NewLogNotifier() watch.Notifier {
	return &logNotifier{}
}

func (l *logNotifier) Notify(_ context.Context, message string) error {
	log.Printf("ALERT: %s", message)
	return nil
}
