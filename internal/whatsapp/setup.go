package whatsapp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aide-sh/aide/internal/browser"
	"github.com/aide-sh/aide/pkg/models"
)

// Setup runs the interactive linking flow: the caller opens a headed
// browser, the operator scans the QR code with their phone, and Setup
// polls until the chat list renders or the context expires.
//
// After a fresh link the browser stays open for settle so the profile
// directory absorbs the new pairing before the engine shuts down.
func Setup(ctx context.Context, page browser.Page, pollInterval, settle time.Duration) error {
	probe := browser.WhatsAppProbe()

	if err := page.Navigate(ctx, whatsappURL); err != nil {
		return fmt.Errorf("navigating to whatsapp web: %w", err)
	}

	if state := probe.Detect(page); state == models.StateReady {
		log.Printf("whatsapp: already linked, session is valid")
		return nil
	}

	log.Printf("whatsapp: scan the QR code with your phone (WhatsApp > Linked devices)")

	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for whatsapp link: %w", ctx.Err())
		case <-ticker.C:
		}

		switch state := probe.Detect(page); state {
		case models.StateReady:
			log.Printf("whatsapp: linked")
			return holdSession(ctx, settle)
		case models.StatePhoneDisconnected:
			return fmt.Errorf("whatsapp linked but phone disconnected: reconnect and retry")
		default:
			log.Printf("whatsapp: session state %s, still waiting", state)
		}
	}
}

// holdSession keeps the browser alive after linking so session state
// reaches disk. Closing immediately can lose the fresh pairing.
func holdSession(ctx context.Context, settle time.Duration) error {
	if settle <= 0 {
		return nil
	}
	log.Printf("whatsapp: holding the session open for %s to save state", settle)
	select {
	case <-ctx.Done():
		return fmt.Errorf("saving whatsapp session: %w", ctx.Err())
	case <-time.After(settle):
	}
	log.Printf("whatsapp: session saved")
	return nil
}
