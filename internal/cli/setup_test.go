package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/aide-sh/aide/pkg/models"
)

func TestBrowserSetup_ForcesHeadedBrowser(t *testing.T) {
	origCfg := Cfg
	defer func() { Cfg = origCfg }()
	Cfg = &models.Config{Browser: models.BrowserConfig{Headless: true}}

	var sawHeadless bool
	err := browserSetup(func(ctx context.Context) error {
		sawHeadless = Cfg.Browser.Headless
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawHeadless {
		t.Error("setup flow ran with a headless browser; the operator cannot log in")
	}
	if !Cfg.Browser.Headless {
		t.Error("configured headless mode not restored after setup")
	}
}

func TestBrowserSetup_RestoresHeadlessOnError(t *testing.T) {
	origCfg := Cfg
	defer func() { Cfg = origCfg }()
	Cfg = &models.Config{Browser: models.BrowserConfig{Headless: true}}

	boom := errors.New("login timed out")
	err := browserSetup(func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped setup error, got %v", err)
	}
	if !Cfg.Browser.Headless {
		t.Error("configured headless mode not restored after failed setup")
	}
}
