package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aide-sh/aide/internal/gmail"
)

func writeToken(t *testing.T, tok gmail.Token) string {
	t.Helper()
	raw, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "gmail_token.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestAuthOnlyFlagRegistered(t *testing.T) {
	for _, cmd := range []string{"gmail", "email-server"} {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == cmd && c.Flags().Lookup("auth-only") != nil {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q has no --auth-only flag", cmd)
		}
	}
}

func TestRunAuthOnly_ValidToken(t *testing.T) {
	origAuth := Auth
	defer func() { Auth = origAuth }()
	Auth = gmail.NewAuthenticator(writeToken(t, gmail.Token{
		AccessToken:  "atoken",
		RefreshToken: "rtoken",
		Expiry:       time.Now().Add(time.Hour),
	}))

	if err := runAuthOnly(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunAuthOnly_MissingToken(t *testing.T) {
	origAuth := Auth
	defer func() { Auth = origAuth }()
	Auth = gmail.NewAuthenticator(filepath.Join(t.TempDir(), "nope.json"))

	err := runAuthOnly()
	if err == nil {
		t.Fatal("expected error for missing token file")
	}
	if !strings.Contains(err.Error(), "no Gmail token") {
		t.Errorf("error should name the missing token, got %v", err)
	}
}

func TestRunAuthOnly_NotInitialized(t *testing.T) {
	origAuth := Auth
	defer func() { Auth = origAuth }()
	Auth = nil

	if err := runAuthOnly(); err == nil {
		t.Fatal("expected error when authenticator is not wired")
	}
}
