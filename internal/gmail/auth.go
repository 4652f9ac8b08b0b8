// Package gmail talks to the Gmail REST API: OAuth token management,
// retrying transport, and the inbox watcher built on them.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// Token is the persisted OAuth state. The file is produced by an
// interactive authorization flow; the watcher only ever refreshes it.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	TokenURI     string    `json:"token_uri"`
}

func (t *Token) expired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	// A small skew avoids using a token that dies mid-request.
	return time.Now().After(t.Expiry.Add(-30 * time.Second))
}

// Authenticator loads the token file, refreshes the access token when it
// expires, and saves refreshed state back to disk.
type Authenticator struct {
	path   string
	client *http.Client

	mu    sync.Mutex
	token *Token
}

// NewAuthenticator creates an Authenticator for the token file at path.
func NewAuthenticator(path string) *Authenticator {
	return &Authenticator{path: path, client: &http.Client{Timeout: 30 * time.Second}}
}

// AccessToken returns a valid access token, refreshing first if needed.
// A missing token file is an actionable error telling the operator how to
// authorize.
func (a *Authenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		if err := a.load(); err != nil {
			return "", err
		}
	}
	if a.token.AccessToken == "" || a.token.expired() {
		if err := a.refresh(ctx); err != nil {
			return "", err
		}
	}
	return a.token.AccessToken, nil
}

// Invalidate discards the cached access token so the next call refreshes.
// The retry layer calls this on a 401.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != nil {
		a.token.AccessToken = ""
	}
}

func (a *Authenticator) load() error {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no Gmail token at %s: run with --auth-only to authorize", a.path)
		}
		return fmt.Errorf("reading Gmail token: %w", err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("parsing Gmail token %s: %w", a.path, err)
	}
	if t.RefreshToken == "" {
		return fmt.Errorf("Gmail token at %s has no refresh token: run with --auth-only to re-authorize", a.path)
	}
	a.token = &t
	return nil
}

func (a *Authenticator) refresh(ctx context.Context) error {
	tokenURI := a.token.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}

	form := url.Values{
		"client_id":     {a.token.ClientID},
		"client_secret": {a.token.ClientSecret},
		"refresh_token": {a.token.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("refreshing Gmail token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refreshing Gmail token: %w", &StatusError{Code: resp.StatusCode, Op: "token refresh"})
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("parsing token refresh response: %w", err)
	}

	a.token.AccessToken = body.AccessToken
	a.token.Expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return a.save()
}

func (a *Authenticator) save() error {
	raw, err := json.MarshalIndent(a.token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding Gmail token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0o750); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	if err := os.WriteFile(a.path, raw, 0o600); err != nil {
		return fmt.Errorf("saving Gmail token: %w", err)
	}
	return nil
}
