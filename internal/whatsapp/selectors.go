package whatsapp

import "github.com/aide-sh/aide/internal/browser"

const whatsappURL = "https://web.whatsapp.com"

// unreadStrategies locate chat rows carrying an unread badge. WhatsApp
// Web renames its test IDs often, so both aria and data-testid variants
// are tried for every row shape.
var unreadStrategies = []browser.Strategy{
	{Name: "row-aria-unread", Selector: `div[role="row"]:has(span[aria-label*="unread"])`},
	{Name: "row-unread-count", Selector: `div[role="row"]:has(span[data-testid="icon-unread-count"])`},
	{Name: "cell-aria-unread", Selector: `div[data-testid="cell-frame-container"]:has(span[aria-label*="unread"])`},
	{Name: "cell-unread-count", Selector: `div[data-testid="cell-frame-container"]:has(span[data-testid="icon-unread-count"])`},
	{Name: "listitem-aria-unread", Selector: `div[role="listitem"]:has(span[aria-label*="unread"])`},
}

// messageStrategies locate message containers in an open conversation.
var messageStrategies = []browser.Strategy{
	{Name: "msg-container", Selector: `div[data-testid="msg-container"]`},
	{Name: "message-in", Selector: "div.message-in"},
	{Name: "conv-msg", Selector: `div[data-testid="conv-msg-true"], div[data-testid="conv-msg-false"]`},
	{Name: "pre-plain-text", Selector: `div[role="row"] div[data-pre-plain-text]`},
}

// chatNameSelectors find the chat title inside an unread row. The title
// attribute is preferred: it carries the full name even when the visible
// text is ellipsized.
var chatNameSelectors = []string{
	`span[dir="auto"][title]`,
	`span[title]`,
	`span[dir="auto"]`,
}

// messageTextSelectors find the text of one message container.
var messageTextSelectors = []string{
	`span[data-testid="msg-text"] span`,
	"span.selectable-text span",
	`span[dir="ltr"]`,
	"span.selectable-text",
}

// messageMetaSelectors find the timestamp of one message container.
var messageMetaSelectors = []string{
	`div[data-testid="msg-meta"] span`,
	`span[data-testid="msg-time"]`,
	`div.copyable-text span[dir="auto"]`,
}

const (
	authorSelector     = `span[data-testid="msg-author"]`
	backButtonSelector = `button[data-testid="back"]`
	prePlainSelector   = "div[data-pre-plain-text]"
)
