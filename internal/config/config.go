// Package config loads the workspace configuration from aide.yaml using
// Viper, with defaults for every field and AIDE_* environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/aide-sh/aide/pkg/models"
	"github.com/spf13/viper"
)

// DefaultGmailQuery selects the unread mail worth acting on.
const DefaultGmailQuery = "is:unread (is:important OR subject:(urgent OR invoice OR payment))"

// Default keyword lists per source. Order matters: the first keyword found
// in a text decides the match.
var (
	defaultLinkedInKeywords = []string{
		"opportunity", "invoice", "project", "meeting",
		"urgent", "proposal", "partnership", "job",
	}
	defaultWhatsAppKeywords = []string{
		"urgent", "asap", "help", "deadline",
		"invoice", "payment", "meeting", "important",
	}
	defaultGmailHigh   = []string{"urgent", "invoice", "payment"}
	defaultGmailMedium = []string{"meeting", "deadline", "important"}

	defaultLinkedInHigh   = []string{"urgent", "invoice"}
	defaultLinkedInMedium = []string{"opportunity", "proposal", "partnership", "job"}
	defaultWhatsAppHigh   = []string{"urgent", "asap", "payment"}
	defaultWhatsAppMedium = []string{"deadline", "invoice", "meeting", "important"}
)

func defaults() *models.Config {
	return &models.Config{
		Gmail: models.GmailConfig{
			TokenPath:        "config/gmail_token.json",
			Query:            DefaultGmailQuery,
			MaxResults:       10,
			SnippetMaxLength: 1000,
			HighKeywords:     defaultGmailHigh,
			MediumKeywords:   defaultGmailMedium,
			PollInterval:     60 * time.Second,
			RetentionDays:    30,
		},
		LinkedIn: models.LinkedInConfig{
			Keywords:         defaultLinkedInKeywords,
			HighKeywords:     defaultLinkedInHigh,
			MediumKeywords:   defaultLinkedInMedium,
			MaxNotifications: 20,
			MaxThreads:       15,
			MaxPostsPerRun:   5,
			PollInterval:     5 * time.Minute,
			RetentionDays:    7,
		},
		WhatsApp: models.WhatsAppConfig{
			Keywords:        defaultWhatsAppKeywords,
			HighKeywords:    defaultWhatsAppHigh,
			MediumKeywords:  defaultWhatsAppMedium,
			MaxChats:        10,
			ContextMessages: 3,
			PollInterval:    2 * time.Minute,
			RetentionDays:   7,
		},
		Browser: models.BrowserConfig{
			Headless:             true,
			UserDataDir:          "config/browser_profile",
			AuthElementThreshold: 40,
			SettleDelay:          3 * time.Second,
		},
		RateLimit: models.RateLimitConfig{
			MaxPerWindow: 10,
			Window:       time.Hour,
		},
	}
}

// Load reads aide.yaml from the workspace root. A missing file yields the
// defaults; a malformed file is an error. Environment variables prefixed
// AIDE_ override file values (AIDE_DRY_RUN, AIDE_GMAIL_QUERY, ...).
func Load(workspaceDir string) (*models.Config, error) {
	cfg := defaults()
	cfg.Workspace = workspaceDir

	v := viper.New()
	v.SetConfigName("aide")
	v.SetConfigType("yaml")
	v.AddConfigPath(workspaceDir)
	v.SetEnvPrefix("AIDE")
	v.AutomaticEnv()

	v.SetDefault("dry_run", cfg.DryRun)
	v.SetDefault("dev_mode", cfg.DevMode)
	v.SetDefault("slack_webhook_url", cfg.SlackWebhookURL)
	v.SetDefault("gmail.token_path", cfg.Gmail.TokenPath)
	v.SetDefault("gmail.query", cfg.Gmail.Query)
	v.SetDefault("gmail.max_results", cfg.Gmail.MaxResults)
	v.SetDefault("gmail.snippet_max_length", cfg.Gmail.SnippetMaxLength)
	v.SetDefault("gmail.exclude_senders", cfg.Gmail.ExcludeSenders)
	v.SetDefault("gmail.high_keywords", cfg.Gmail.HighKeywords)
	v.SetDefault("gmail.medium_keywords", cfg.Gmail.MediumKeywords)
	v.SetDefault("gmail.poll_interval", cfg.Gmail.PollInterval)
	v.SetDefault("gmail.retention_days", cfg.Gmail.RetentionDays)
	v.SetDefault("linkedin.keywords", cfg.LinkedIn.Keywords)
	v.SetDefault("linkedin.high_keywords", cfg.LinkedIn.HighKeywords)
	v.SetDefault("linkedin.medium_keywords", cfg.LinkedIn.MediumKeywords)
	v.SetDefault("linkedin.max_notifications", cfg.LinkedIn.MaxNotifications)
	v.SetDefault("linkedin.max_threads", cfg.LinkedIn.MaxThreads)
	v.SetDefault("linkedin.max_posts_per_run", cfg.LinkedIn.MaxPostsPerRun)
	v.SetDefault("linkedin.poll_interval", cfg.LinkedIn.PollInterval)
	v.SetDefault("linkedin.retention_days", cfg.LinkedIn.RetentionDays)
	v.SetDefault("whatsapp.keywords", cfg.WhatsApp.Keywords)
	v.SetDefault("whatsapp.high_keywords", cfg.WhatsApp.HighKeywords)
	v.SetDefault("whatsapp.medium_keywords", cfg.WhatsApp.MediumKeywords)
	v.SetDefault("whatsapp.max_chats", cfg.WhatsApp.MaxChats)
	v.SetDefault("whatsapp.context_messages", cfg.WhatsApp.ContextMessages)
	v.SetDefault("whatsapp.poll_interval", cfg.WhatsApp.PollInterval)
	v.SetDefault("whatsapp.retention_days", cfg.WhatsApp.RetentionDays)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)
	v.SetDefault("browser.auth_element_threshold", cfg.Browser.AuthElementThreshold)
	v.SetDefault("browser.settle_delay", cfg.Browser.SettleDelay)
	v.SetDefault("rate_limit.max_per_window", cfg.RateLimit.MaxPerWindow)
	v.SetDefault("rate_limit.window", cfg.RateLimit.Window)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading aide.yaml: %w", err)
		}
	}

	cfg.DryRun = v.GetBool("dry_run")
	cfg.DevMode = v.GetBool("dev_mode")
	cfg.SlackWebhookURL = v.GetString("slack_webhook_url")

	cfg.Gmail.TokenPath = v.GetString("gmail.token_path")
	cfg.Gmail.Query = v.GetString("gmail.query")
	cfg.Gmail.MaxResults = v.GetInt("gmail.max_results")
	cfg.Gmail.SnippetMaxLength = v.GetInt("gmail.snippet_max_length")
	cfg.Gmail.ExcludeSenders = v.GetStringSlice("gmail.exclude_senders")
	cfg.Gmail.HighKeywords = v.GetStringSlice("gmail.high_keywords")
	cfg.Gmail.MediumKeywords = v.GetStringSlice("gmail.medium_keywords")
	cfg.Gmail.PollInterval = v.GetDuration("gmail.poll_interval")
	cfg.Gmail.RetentionDays = v.GetInt("gmail.retention_days")

	cfg.LinkedIn.Keywords = v.GetStringSlice("linkedin.keywords")
	cfg.LinkedIn.HighKeywords = v.GetStringSlice("linkedin.high_keywords")
	cfg.LinkedIn.MediumKeywords = v.GetStringSlice("linkedin.medium_keywords")
	cfg.LinkedIn.MaxNotifications = v.GetInt("linkedin.max_notifications")
	cfg.LinkedIn.MaxThreads = v.GetInt("linkedin.max_threads")
	cfg.LinkedIn.MaxPostsPerRun = v.GetInt("linkedin.max_posts_per_run")
	cfg.LinkedIn.PollInterval = v.GetDuration("linkedin.poll_interval")
	cfg.LinkedIn.RetentionDays = v.GetInt("linkedin.retention_days")

	cfg.WhatsApp.Keywords = v.GetStringSlice("whatsapp.keywords")
	cfg.WhatsApp.HighKeywords = v.GetStringSlice("whatsapp.high_keywords")
	cfg.WhatsApp.MediumKeywords = v.GetStringSlice("whatsapp.medium_keywords")
	cfg.WhatsApp.MaxChats = v.GetInt("whatsapp.max_chats")
	cfg.WhatsApp.ContextMessages = v.GetInt("whatsapp.context_messages")
	cfg.WhatsApp.PollInterval = v.GetDuration("whatsapp.poll_interval")
	cfg.WhatsApp.RetentionDays = v.GetInt("whatsapp.retention_days")

	cfg.Browser.Headless = v.GetBool("browser.headless")
	cfg.Browser.UserDataDir = v.GetString("browser.user_data_dir")
	cfg.Browser.SettleDelay = v.GetDuration("browser.settle_delay")
	// Use IsSet so an explicit zero disables the density heuristic rather
	// than silently reverting to the default.
	if v.IsSet("browser.auth_element_threshold") {
		cfg.Browser.AuthElementThreshold = v.GetInt("browser.auth_element_threshold")
	}

	cfg.RateLimit.MaxPerWindow = v.GetInt("rate_limit.max_per_window")
	cfg.RateLimit.Window = v.GetDuration("rate_limit.window")

	return cfg, nil
}
