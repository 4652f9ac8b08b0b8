package models

import (
	"fmt"
	"time"
)

// ItemType identifies the kind of work item a file represents. Watchers
// produce the perception types (email, linkedin, whatsapp); planners and
// humans produce the action types (linkedin_post, email_send, email_reply).
type ItemType string

const (
	TypeEmail        ItemType = "email"
	TypeLinkedIn     ItemType = "linkedin"
	TypeWhatsApp     ItemType = "whatsapp"
	TypeLinkedInPost ItemType = "linkedin_post"
	TypeEmailSend    ItemType = "email_send"
	TypeEmailReply   ItemType = "email_reply"
)

// ItemStatus is the lifecycle state of a work item. Transitions are
// monotonic: pending -> approved -> done, or pending -> rejected. The
// status always matches the directory the file lives in.
type ItemStatus string

const (
	StatusPending  ItemStatus = "pending"
	StatusApproved ItemStatus = "approved"
	StatusRejected ItemStatus = "rejected"
	StatusDone     ItemStatus = "done"
)

// Priority is the keyword-derived urgency of a detected item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SessionState classifies the reachability of an external surface at a
// point in time. login_required and captcha are terminal for a poll cycle.
type SessionState string

const (
	StateReady             SessionState = "ready"
	StateLoginRequired     SessionState = "login_required"
	StateCaptcha           SessionState = "captcha"
	StatePhoneDisconnected SessionState = "phone_disconnected"
	StateLoading           SessionState = "loading"
	StateUnknown           SessionState = "unknown"
)

// WorkItem is the frontmatter of an action file plus its free-text body.
// Fields is the full frontmatter map, preserving type-specific keys that
// have no dedicated struct field.
type WorkItem struct {
	Type     ItemType       `yaml:"type"`
	ID       string         `yaml:"id"`
	Source   string         `yaml:"source"`
	Status   ItemStatus     `yaml:"status"`
	Priority Priority       `yaml:"priority,omitempty"`
	Fields   map[string]any `yaml:",inline"`

	Body string `yaml:"-"`
	Path string `yaml:"-"`
}

// Field returns a type-specific frontmatter field as a string, or "" when
// absent or not a string.
func (w *WorkItem) Field(name string) string {
	if w.Fields == nil {
		return ""
	}
	s, _ := w.Fields[name].(string)
	return s
}

// SetField stores a type-specific frontmatter field.
func (w *WorkItem) SetField(name string, value any) {
	if w.Fields == nil {
		w.Fields = make(map[string]any)
	}
	w.Fields[name] = value
}

// requiredFields maps each item type to the type-specific frontmatter
// fields that must be present for the item to be actionable.
var requiredFields = map[ItemType][]string{
	TypeEmail:      {"from", "subject"},
	TypeLinkedIn:   {"sender"},
	TypeWhatsApp:   {"sender"},
	TypeEmailSend:  {"to"},
	TypeEmailReply: {"thread_id"},
}

// Validate checks the universal required fields and the conditional
// per-type fields. The returned error names the first missing field.
func (w *WorkItem) Validate() error {
	if w.Type == "" {
		return fmt.Errorf("work item missing required field: type")
	}
	if w.ID == "" {
		return fmt.Errorf("work item missing required field: id")
	}
	if w.Source == "" {
		return fmt.Errorf("work item missing required field: source")
	}
	if w.Status == "" {
		return fmt.Errorf("work item missing required field: status")
	}
	switch w.Status {
	case StatusPending, StatusApproved, StatusRejected, StatusDone:
	default:
		return fmt.Errorf("work item has invalid status %q", w.Status)
	}
	for _, field := range requiredFields[w.Type] {
		if w.Field(field) == "" {
			return fmt.Errorf("work item of type %s missing required field: %s", w.Type, field)
		}
	}
	return nil
}

// AuditEntry is one record in the daily audit log.
type AuditEntry struct {
	Timestamp     string         `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
	Actor         string         `json:"actor"`
	ActionType    string         `json:"action_type"`
	Target        string         `json:"target"`
	Result        string         `json:"result"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	DurationMs    int64          `json:"duration_ms,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Timestamps in frontmatter and logs use second-resolution UTC with a Z
// suffix, matching the workspace's existing files.
const (
	ISOFormat      = "2006-01-02T15:04:05Z"
	FilenameFormat = "20060102T150405"
	DateFormat     = "2006-01-02"
)

// NowISO formats t as a workspace timestamp.
func NowISO(t time.Time) string {
	return t.UTC().Format(ISOFormat)
}

// ParseISO parses a workspace timestamp, accepting both the Z suffix and
// numeric offsets.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISOFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
