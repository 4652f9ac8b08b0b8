// Package internal provides the App struct that wires the aide services
// together and initializes the CLI layer.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/aide-sh/aide/internal/browser"
	"github.com/aide-sh/aide/internal/cli"
	"github.com/aide-sh/aide/internal/config"
	"github.com/aide-sh/aide/internal/gmail"
	"github.com/aide-sh/aide/internal/observability"
	"github.com/aide-sh/aide/internal/ratelimit"
	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/internal/watch"
	"github.com/aide-sh/aide/pkg/models"
)

// App holds the service dependencies for one aide process.
type App struct {
	Workspace string
	Cfg       *models.Config
	Vault     *vault.Vault
	Limiter   *ratelimit.Limiter

	GmailClient gmail.Client
	Auth        *gmail.Authenticator
	Notifier    watch.Notifier
	MetricsCalc observability.Calculator
	AlertEngine observability.AlertEngine

	// The browser launches on first use; watcher commands that never
	// touch a page (gmail, status, approve) must not pay for one.
	engineOnce sync.Once
	engine     *browser.Engine
	engineErr  error
}

// NewApp loads configuration, opens the workspace, and wires the CLI
// package-level variables.
func NewApp(workspaceDir string) (*App, error) {
	cfg, err := config.Load(workspaceDir)
	if err != nil {
		return nil, err
	}

	v, err := vault.New(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	app := &App{
		Workspace: cfg.Workspace,
		Cfg:       cfg,
		Vault:     v,
		Limiter:   ratelimit.New(cfg.RateLimit.MaxPerWindow, cfg.RateLimit.Window),
	}

	auth := gmail.NewAuthenticator(resolvePath(cfg.Workspace, cfg.Gmail.TokenPath))
	app.Auth = auth
	app.GmailClient = gmail.NewClient(auth)

	if cfg.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.SlackWebhookURL)
	} else {
		app.Notifier = observability.NewLogNotifier()
	}
	app.MetricsCalc = observability.NewCalculator(v)
	app.AlertEngine = observability.NewAlertEngine(v, observability.DefaultAlertThresholds())

	// --- Wire CLI package-level variables ---
	cli.Cfg = cfg
	cli.Store = v
	cli.GmailClient = app.GmailClient
	cli.Auth = app.Auth
	cli.Limiter = app.Limiter
	cli.Pages = app.pages
	cli.MetricsCalc = app.MetricsCalc
	cli.AlertEngine = app.AlertEngine
	cli.Notifier = app.Notifier

	return app, nil
}

func (a *App) pages(ctx context.Context) (browser.Page, error) {
	a.engineOnce.Do(func() {
		browserCfg := a.Cfg.Browser
		browserCfg.UserDataDir = resolvePath(a.Workspace, browserCfg.UserDataDir)
		a.engine, a.engineErr = browser.NewEngine(ctx, browserCfg)
	})
	if a.engineErr != nil {
		return nil, a.engineErr
	}
	return a.engine.Page()
}

// Close shuts down the browser if a command launched it.
func (a *App) Close() error {
	if a.engine != nil {
		return a.engine.Close()
	}
	return nil
}

func resolvePath(workspace, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

// ResolveWorkspace determines the workspace root: AIDE_WORKSPACE if set,
// otherwise the nearest ancestor directory containing aide.yaml, falling
// back to the current directory.
func ResolveWorkspace() string {
	if ws := os.Getenv("AIDE_WORKSPACE"); ws != "" {
		return ws
	}

	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for probe := dir; ; {
		if _, err := os.Stat(filepath.Join(probe, "aide.yaml")); err == nil {
			return probe
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}
	return dir
}
