package linkedin

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aide-sh/aide/internal/browser"
	"github.com/aide-sh/aide/pkg/models"
)

// Setup runs the interactive login flow: the caller opens a headed
// browser, the operator logs in by hand, and Setup polls the session
// state until it reads ready or the context expires. The persistent
// profile directory keeps the session for later headless runs.
//
// After a fresh login the browser stays open for settle so the profile
// directory absorbs the new cookies before the engine shuts down.
func Setup(ctx context.Context, page browser.Page, authElementThreshold int, pollInterval, settle time.Duration) error {
	probe := browser.LinkedInProbe(authElementThreshold)

	if err := page.Navigate(ctx, feedURL); err != nil {
		return fmt.Errorf("navigating to feed: %w", err)
	}

	if state := probe.Detect(page); state == models.StateReady {
		log.Printf("linkedin: already logged in, session is valid")
		return nil
	}

	log.Printf("linkedin: log in with your credentials in the open browser window")
	log.Printf("linkedin: complete any 2FA or CAPTCHA challenge, then wait for your feed")

	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for linkedin login: %w", ctx.Err())
		case <-ticker.C:
		}

		switch state := probe.Detect(page); state {
		case models.StateReady:
			log.Printf("linkedin: login confirmed")
			return holdSession(ctx, settle)
		default:
			log.Printf("linkedin: session state %s, still waiting", state)
		}
	}
}

// holdSession keeps the browser alive after login so session state
// reaches disk. Closing immediately can lose the fresh cookies.
func holdSession(ctx context.Context, settle time.Duration) error {
	if settle <= 0 {
		return nil
	}
	log.Printf("linkedin: holding the session open for %s to save state", settle)
	select {
	case <-ctx.Done():
		return fmt.Errorf("saving linkedin session: %w", ctx.Err())
	case <-time.After(settle):
	}
	log.Printf("linkedin: session saved")
	return nil
}
