package browser

import (
	"strings"

	"github.com/aide-sh/aide/pkg/models"
)

// URLRule maps a URL fragment to a session state. Sites redirect
// unauthenticated traffic, so the URL is the most reliable signal and is
// checked first.
type URLRule struct {
	Fragment string
	State    models.SessionState
}

// StateProbe holds one surface's session-state detection configuration.
// Detect walks the cascade in a fixed order; every selector lookup that
// fails or errors counts as no-match and the cascade continues.
type StateProbe struct {
	// URLRules are checked in order against the current URL.
	URLRules []URLRule
	// CaptchaSelector must be narrow. Broad captcha wildcards match
	// unrelated embeds (ad iframes, reCAPTCHA scripts) and misclassify
	// working sessions.
	CaptchaSelector string
	// LoginSelectors mark an unauthenticated page: login forms, QR codes.
	LoginSelectors []string
	// AuthSelectors only ever appear for a logged-in user.
	AuthSelectors []string
	// AuthURLFragments gate the authenticated checks: when non-empty, the
	// URL must contain one of them before AuthSelectors or the element
	// count are consulted.
	AuthURLFragments []string
	// ElementThreshold enables the density heuristic: logged-in pages
	// carry many interactive elements, public shells are stripped down.
	// Zero disables the heuristic.
	ElementThreshold int
	// DisconnectedSelector, when present on an otherwise ready page,
	// reports phone_disconnected (WhatsApp's linked-phone overlay).
	DisconnectedSelector string
	// LoadingSelector marks a startup screen still rendering.
	LoadingSelector string
}

// Detect classifies the page's session state. It never returns an error:
// when no signal fires the state is unknown and the caller decides how to
// proceed.
func (p *StateProbe) Detect(page Page) models.SessionState {
	url := page.URL()

	for _, rule := range p.URLRules {
		if strings.Contains(url, rule.Fragment) {
			return rule.State
		}
	}

	if p.CaptchaSelector != "" {
		if _, ok := page.Query(p.CaptchaSelector); ok {
			return models.StateCaptcha
		}
	}

	for _, sel := range p.LoginSelectors {
		if _, ok := page.Query(sel); ok {
			return models.StateLoginRequired
		}
	}

	if p.authenticated(page, url) {
		if p.DisconnectedSelector != "" {
			if _, ok := page.Query(p.DisconnectedSelector); ok {
				return models.StatePhoneDisconnected
			}
		}
		return models.StateReady
	}

	if p.LoadingSelector != "" {
		if _, ok := page.Query(p.LoadingSelector); ok {
			return models.StateLoading
		}
	}

	return models.StateUnknown
}

func (p *StateProbe) authenticated(page Page, url string) bool {
	if len(p.AuthURLFragments) > 0 {
		onAuthURL := false
		for _, frag := range p.AuthURLFragments {
			if strings.Contains(url, frag) {
				onAuthURL = true
				break
			}
		}
		if !onAuthURL {
			return false
		}
	}

	for _, sel := range p.AuthSelectors {
		if _, ok := page.Query(sel); ok {
			return true
		}
	}

	if p.ElementThreshold > 0 {
		total := len(page.QueryAll("button")) + len(page.QueryAll("a")) + len(page.QueryAll("img"))
		if total > p.ElementThreshold {
			return true
		}
	}

	return false
}

// LinkedInProbe returns the session probe for linkedin.com. The element
// threshold comes from configuration; pass 0 to disable the heuristic.
func LinkedInProbe(elementThreshold int) *StateProbe {
	return &StateProbe{
		URLRules: []URLRule{
			{Fragment: "/checkpoint/challenge", State: models.StateCaptcha},
			{Fragment: "/login", State: models.StateLoginRequired},
			{Fragment: "/authwall", State: models.StateLoginRequired},
		},
		CaptchaSelector: "#captcha-internal",
		LoginSelectors: []string{
			"form.login__form",
			"#username",
			`input[name="session_key"]`,
			`form[action*="login"]`,
		},
		AuthSelectors: []string{
			"img.global-nav__me-photo",
			"img.feed-identity-module__member-photo",
			`button[aria-label*="me" i]`,
			"div.feed-identity-module",
			`div[data-control-name="identity_welcome_message"]`,
			"span.feed-identity-module__actor-name",
			`a[href*="/in/"][data-control-name="identity_profile_photo"]`,
			"div.share-box-feed-entry__trigger",
		},
		AuthURLFragments: []string{"/feed", "/messaging", "/notifications", "/mynetwork", "/in/"},
		ElementThreshold: elementThreshold,
	}
}

// WhatsAppProbe returns the session probe for web.whatsapp.com. A visible
// QR code means the session needs re-linking, reported as login_required.
func WhatsAppProbe() *StateProbe {
	return &StateProbe{
		LoginSelectors: []string{
			`canvas[aria-label*="Scan this QR code"]`,
			`div[data-testid="qrcode"]`,
			`div[role="img"][aria-label*="QR"]`,
		},
		AuthSelectors: []string{
			`div[data-testid="chat-list"]`,
			`div[aria-label="Chat list"]`,
			"#pane-side",
			`div[role="listitem"]`,
			`div[role="row"]`,
		},
		DisconnectedSelector: `div[data-testid="alert-phone"], div[data-testid="alert-banner"]`,
		LoadingSelector:      `div[data-testid="startup"]`,
	}
}
