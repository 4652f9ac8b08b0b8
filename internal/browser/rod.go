package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aide-sh/aide/pkg/models"
)

// Engine owns a Chromium instance with a persistent profile, so logins
// survive restarts. One Engine serves one watcher process.
type Engine struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     models.BrowserConfig
}

// NewEngine launches the browser. The user-data dir keeps cookies and
// local storage between runs; the blink flag hides the automation banner
// some sites key off.
func NewEngine(ctx context.Context, cfg models.BrowserConfig) (*Engine, error) {
	if cfg.UserDataDir != "" {
		if err := os.MkdirAll(cfg.UserDataDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating browser profile dir: %w", err)
		}
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return &Engine{browser: b, cfg: cfg}, nil
}

// Page returns the engine's single page, creating it on first use.
func (e *Engine) Page() (Page, error) {
	if e.page == nil {
		p, err := e.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, fmt.Errorf("creating page: %w", err)
		}
		e.page = p
	}
	return &rodPage{page: e.page, settle: e.cfg.SettleDelay}, nil
}

// Close shuts down the browser.
func (e *Engine) Close() error {
	if e.browser == nil {
		return nil
	}
	if err := e.browser.Close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

type rodPage struct {
	page   *rod.Page
	settle time.Duration
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Title() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// Navigate loads a URL and waits for the page to settle. Single-page apps
// keep rendering after the load event, so a fixed settle delay follows.
func (p *rodPage) Navigate(ctx context.Context, url string) error {
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := p.page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("waiting for %s to load: %w", url, err)
	}
	if p.settle > 0 {
		select {
		case <-time.After(p.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *rodPage) Query(selector string) (el Element, ok bool) {
	// Engine panics on detached targets surface as not-found.
	defer func() {
		if recover() != nil {
			el, ok = nil, false
		}
	}()
	has, found, err := p.page.Has(selector)
	if err != nil || !has {
		return nil, false
	}
	return &rodElement{el: found}, true
}

func (p *rodPage) QueryAll(selector string) (els []Element) {
	defer func() {
		if recover() != nil {
			els = nil
		}
	}()
	found, err := p.page.Elements(selector)
	if err != nil {
		return nil
	}
	els = make([]Element, 0, len(found))
	for _, el := range found {
		els = append(els, &rodElement{el: el})
	}
	return els
}

func (p *rodPage) Screenshot(path string) error {
	data, err := p.page.Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("saving screenshot: %w", err)
	}
	return nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	t, err := e.el.Text()
	if err != nil {
		return ""
	}
	return t
}

func (e *rodElement) Attr(name string) (val string) {
	defer func() {
		if recover() != nil {
			val = ""
		}
	}()
	a, err := e.el.Attribute(name)
	if err != nil || a == nil {
		return ""
	}
	return *a
}

func (e *rodElement) Click() error {
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	return nil
}

func (e *rodElement) TypeText(text string) error {
	if err := e.el.Input(text); err != nil {
		return fmt.Errorf("typing into element: %w", err)
	}
	return nil
}

func (e *rodElement) Query(selector string) (el Element, ok bool) {
	defer func() {
		if recover() != nil {
			el, ok = nil, false
		}
	}()
	has, found, err := e.el.Has(selector)
	if err != nil || !has {
		return nil, false
	}
	return &rodElement{el: found}, true
}

func (e *rodElement) QueryAll(selector string) (els []Element) {
	defer func() {
		if recover() != nil {
			els = nil
		}
	}()
	found, err := e.el.Elements(selector)
	if err != nil {
		return nil
	}
	els = make([]Element, 0, len(found))
	for _, el := range found {
		els = append(els, &rodElement{el: el})
	}
	return els
}
