package cli

import (
	"context"

	"github.com/aide-sh/aide/internal/browser"
	"github.com/aide-sh/aide/internal/gmail"
	"github.com/aide-sh/aide/internal/observability"
	"github.com/aide-sh/aide/internal/ratelimit"
	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/internal/watch"
	"github.com/aide-sh/aide/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	Cfg   *models.Config
	Store *vault.Vault

	GmailClient gmail.Client
	// Auth manages the Gmail OAuth token, used by --auth-only.
	Auth    *gmail.Authenticator
	Limiter *ratelimit.Limiter

	// Pages lazily launches the shared browser and returns its page.
	// The browser only starts when a command actually needs it.
	Pages func(ctx context.Context) (browser.Page, error)

	MetricsCalc observability.Calculator
	AlertEngine observability.AlertEngine
	Notifier    watch.Notifier
)
