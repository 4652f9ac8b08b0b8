package models

import "time"

// Config is the full runtime configuration for the aide workspace, loaded
// from aide.yaml at the workspace root with defaults for every field.
type Config struct {
	// Workspace is the root directory holding Needs_Action, Approved,
	// Done and Logs.
	Workspace string `yaml:"workspace"`

	// DryRun logs what would be created without writing action files or
	// touching the dedup ledger.
	DryRun bool `yaml:"dry_run"`
	// DevMode simulates external sends (email, posts) without calling out.
	DevMode bool `yaml:"dev_mode"`

	SlackWebhookURL string `yaml:"slack_webhook_url"`

	Gmail     GmailConfig     `yaml:"gmail"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Browser   BrowserConfig   `yaml:"browser"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// GmailConfig controls the Gmail inbox watcher and email actions.
type GmailConfig struct {
	TokenPath        string        `yaml:"token_path"`
	Query            string        `yaml:"query"`
	MaxResults       int           `yaml:"max_results"`
	SnippetMaxLength int           `yaml:"snippet_max_length"`
	ExcludeSenders   []string      `yaml:"exclude_senders"`
	HighKeywords     []string      `yaml:"high_keywords"`
	MediumKeywords   []string      `yaml:"medium_keywords"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	RetentionDays    int           `yaml:"retention_days"`
}

// LinkedInConfig controls the LinkedIn watcher and poster.
type LinkedInConfig struct {
	Keywords []string `yaml:"keywords"`
	// HighKeywords and MediumKeywords name the priority tiers within
	// Keywords; a keyword in neither tier matches at low priority.
	HighKeywords     []string      `yaml:"high_keywords"`
	MediumKeywords   []string      `yaml:"medium_keywords"`
	MaxNotifications int           `yaml:"max_notifications"`
	MaxThreads       int           `yaml:"max_threads"`
	MaxPostsPerRun   int           `yaml:"max_posts_per_run"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	RetentionDays    int           `yaml:"retention_days"`
}

// WhatsAppConfig controls the WhatsApp Web watcher.
type WhatsAppConfig struct {
	Keywords        []string      `yaml:"keywords"`
	HighKeywords    []string      `yaml:"high_keywords"`
	MediumKeywords  []string      `yaml:"medium_keywords"`
	MaxChats        int           `yaml:"max_chats"`
	ContextMessages int           `yaml:"context_messages"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RetentionDays   int           `yaml:"retention_days"`
}

// BrowserConfig controls the shared browser engine.
type BrowserConfig struct {
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"`
	// AuthElementThreshold is the minimum element count on an
	// authenticated URL for the density heuristic to report ready.
	AuthElementThreshold int           `yaml:"auth_element_threshold"`
	SettleDelay          time.Duration `yaml:"settle_delay"`
}

// RateLimitConfig bounds outbound sends across actors.
type RateLimitConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"`
	Window       time.Duration `yaml:"window"`
}
