package observability

import (
	"fmt"
	"time"

	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/pkg/models"
)

// Metrics is a point-in-time summary of the workspace, derived from the
// item directories and today's audit logs.
type Metrics struct {
	PendingItems  int `json:"pending_items"`
	ApprovedItems int `json:"approved_items"`
	DoneItems     int `json:"done_items"`

	ActionsToday  int            `json:"actions_today"`
	ErrorsToday   int            `json:"errors_today"`
	SendsToday    int            `json:"sends_today"`
	ByActor       map[string]int `json:"by_actor"`
	ByResult      map[string]int `json:"by_result"`
	LastActionAt  string         `json:"last_action_at,omitempty"`
	PendingByType map[string]int `json:"pending_by_type"`
}

// sendActions are the audit action types that consume the outbound rate
// limit. They count toward SendsToday only on success.
var sendActions = map[string]bool{
	"send_email":    true,
	"reply_email":   true,
	"linkedin_post": true,
}

// Calculator derives Metrics from a workspace.
type Calculator interface {
	Calculate() (*Metrics, error)
}

type calculator struct {
	vault *vault.Vault
	now   func() time.Time
}

// NewCalculator creates a Calculator over the given workspace.
func NewCalculator(v *vault.Vault) Calculator {
	return &calculator{vault: v, now: time.Now}
}

func (c *calculator) Calculate() (*Metrics, error) {
	m := &Metrics{
		ByActor:       make(map[string]int),
		ByResult:      make(map[string]int),
		PendingByType: make(map[string]int),
	}

	pending, err := c.vault.Pending()
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}
	m.PendingItems = len(pending)
	for _, item := range pending {
		m.PendingByType[string(item.Type)]++
	}

	approved, err := c.vault.List(c.vault.ApprovedDir())
	if err != nil {
		return nil, fmt.Errorf("listing approved items: %w", err)
	}
	m.ApprovedItems = len(approved)

	done, err := c.vault.List(c.vault.DoneDir())
	if err != nil {
		return nil, fmt.Errorf("listing done items: %w", err)
	}
	m.DoneItems = len(done)

	today := c.now().UTC().Format(models.DateFormat)
	actions := c.vault.Actions().ReadDate(today)
	m.ActionsToday = len(actions)
	for _, entry := range actions {
		m.ByActor[entry.Actor]++
		m.ByResult[entry.Result]++
		if entry.Result == "success" && sendActions[entry.ActionType] {
			m.SendsToday++
		}
		if entry.Timestamp > m.LastActionAt {
			m.LastActionAt = entry.Timestamp
		}
	}
	m.ErrorsToday = len(c.vault.Errors().ReadDate(today))

	return m, nil
}
