package observability

import (
	"fmt"
	"time"

	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/pkg/models"
)

// AlertSeverity is the urgency of a triggered condition.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert is one triggered condition, ready to show or push.
type Alert struct {
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when conditions fire.
type AlertThresholds struct {
	// StalePendingHours flags high-priority items that sat in
	// Needs_Action longer than this without a decision.
	StalePendingHours int `yaml:"stale_pending_hours"`
	// MaxErrorsPerDay flags a failing watcher before its backoff hides it.
	MaxErrorsPerDay int `yaml:"max_errors_per_day"`
	// MaxPendingItems flags an inbox the human has stopped draining.
	MaxPendingItems int `yaml:"max_pending_items"`
}

// DefaultAlertThresholds returns the thresholds used when aide.yaml does
// not override them.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		StalePendingHours: 24,
		MaxErrorsPerDay:   10,
		MaxPendingItems:   25,
	}
}

// AlertEngine evaluates conditions against the workspace.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	vault      *vault.Vault
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over the given workspace.
func NewAlertEngine(v *vault.Vault, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{vault: v, thresholds: thresholds, now: time.Now}
}

func (e *alertEngine) Evaluate() ([]Alert, error) {
	var alerts []Alert
	now := e.now().UTC()

	pending, err := e.vault.Pending()
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}

	stale := 0
	cutoff := now.Add(-time.Duration(e.thresholds.StalePendingHours) * time.Hour)
	for _, item := range pending {
		if item.Priority != models.PriorityHigh {
			continue
		}
		created, err := time.Parse(models.ISOFormat, item.Field("created"))
		if err != nil {
			continue
		}
		if created.Before(cutoff) {
			stale++
		}
	}
	if stale > 0 {
		alerts = append(alerts, Alert{
			Condition: "stale_pending",
			Severity:  SeverityHigh,
			Message: fmt.Sprintf("%d high-priority item(s) waiting in Needs_Action for over %dh",
				stale, e.thresholds.StalePendingHours),
			TriggeredAt: now,
		})
	}

	if len(pending) > e.thresholds.MaxPendingItems {
		alerts = append(alerts, Alert{
			Condition: "pending_backlog",
			Severity:  SeverityMedium,
			Message: fmt.Sprintf("%d items in Needs_Action (threshold %d)",
				len(pending), e.thresholds.MaxPendingItems),
			TriggeredAt: now,
		})
	}

	today := now.Format(models.DateFormat)
	errCount := len(e.vault.Errors().ReadDate(today))
	if errCount > e.thresholds.MaxErrorsPerDay {
		alerts = append(alerts, Alert{
			Condition: "error_burst",
			Severity:  SeverityHigh,
			Message: fmt.Sprintf("%d watcher/actor errors logged today (threshold %d); check Logs/errors",
				errCount, e.thresholds.MaxErrorsPerDay),
			TriggeredAt: now,
		})
	}

	return alerts, nil
}
