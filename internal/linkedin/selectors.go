package linkedin

import "github.com/aide-sh/aide/internal/browser"

const (
	feedURL          = "https://www.linkedin.com/feed/"
	notificationsURL = "https://www.linkedin.com/notifications/"
	messagingURL     = "https://www.linkedin.com/messaging/"
)

// notificationStrategies locates notification cards, most specific first.
// The class-based selectors break when LinkedIn ships a redesign; the
// broad rungs keep the watcher limping along until the specific ones are
// updated.
var notificationStrategies = []browser.Strategy{
	{Name: "unread-card", Selector: "div.nt-card--unread"},
	{Name: "card", Selector: "div.nt-card"},
	{Name: "artdeco-card", Selector: "div.artdeco-card"},
	{Name: "main-li", Selector: "main li"},
	{Name: "main-article", Selector: "main article"},
	{Name: "main-section", Selector: "main section"},
}

// threadStrategies locates conversation cards on the messaging page. Every
// rung caps at 50 matches: a selector hitting more than that has matched
// navigation list items, not conversations.
var threadStrategies = []browser.Strategy{
	{Name: "unread-thread", Selector: "div.msg-conversation-card--unread", Max: 50},
	{Name: "thread", Selector: "div.msg-conversation-card", Max: 50},
	{Name: "conversation-list-li", Selector: `[class*="conversation-list"] li`, Max: 50},
	{Name: "msg-conversation", Selector: `[class*="msg-conversation"]`, Max: 50},
	{Name: "conversation-card", Selector: `[class*="conversation-card"]`, Max: 50},
	{Name: "unread-li", Selector: `li[class*="unread"]`, Max: 50},
	{Name: "main-li", Selector: "main li", Max: 50},
	{Name: "aside-li", Selector: "aside li", Max: 50},
	{Name: "role-list-li", Selector: `[role="list"] li`, Max: 50},
	{Name: "role-listbox-li", Selector: `[role="listbox"] li`, Max: 50},
	{Name: "any-li", Selector: "ul li", Max: 50},
}

// actorSelectors find the notification's subject person inside a card.
var actorSelectors = []string{"a strong", "strong", "a span", "a"}

// senderSelectors find the conversation partner inside a thread card.
var senderSelectors = []string{"h3", "h4", "strong", "a span", "a"}

// previewSelectors find the last-message snippet inside a thread card.
var previewSelectors = []string{
	"p",
	`[class*="snippet"]`,
	`[class*="preview"]`,
	`[class*="message-snippet"]`,
}

// composerSelectors open the "Start a post" share box on the feed.
var composerSelectors = []string{
	"div.share-box-feed-entry__top-bar",
	"button.share-box-feed-entry__trigger",
	`button[class*="share-box"]`,
	`div[class*="share-box"] button`,
	`div[class*="share-box"]`,
	"div.artdeco-card button",
	`[role="button"][class*="share"]`,
	`[role="button"][aria-label*="post" i]`,
	`[role="button"][aria-label*="share" i]`,
	`[role="button"][aria-label*="create" i]`,
}

// editorSelectors find the post text editor once the composer is open.
var editorSelectors = []string{
	`div[role="textbox"][contenteditable="true"]`,
	"div.ql-editor[data-placeholder]",
	`div[aria-label*="Text editor"]`,
	`div[aria-label*="text editor"]`,
	`div[contenteditable="true"][class*="editor"]`,
	`div[contenteditable="true"]`,
}

// postButtonSelectors submit the composed post.
var postButtonSelectors = []string{
	"button.share-actions__primary-action",
	`button[aria-label="Post"]`,
	`button[aria-label="post"]`,
	`button[class*="share-actions"]`,
}
