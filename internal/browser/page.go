// Package browser is the boundary to the web surfaces the watchers scrape.
// It hides the automation engine behind small Page/Element interfaces and
// layers the session-state and extraction cascades on top, so the watchers
// never depend on engine types and tests can run against static HTML.
package browser

import "context"

// Element is a DOM element handle. Lookups scoped to an element follow the
// same convention as Page: absence is a value, not an error.
type Element interface {
	// Text returns the element's visible text, or "" when it cannot be read.
	Text() string
	// Attr returns the named attribute, or "" when absent.
	Attr(name string) string
	Click() error
	TypeText(text string) error
	Query(selector string) (Element, bool)
	QueryAll(selector string) []Element
}

// Page is an open browser page. Implementations must never panic on a
// stale or detached DOM; a failed lookup reports not-found.
type Page interface {
	URL() string
	Title() string
	Navigate(ctx context.Context, url string) error
	Query(selector string) (Element, bool)
	QueryAll(selector string) []Element
	// Screenshot saves a PNG capture for debugging, best effort.
	Screenshot(path string) error
}

// Queryable is the shared lookup surface of Page and Element, used by the
// extraction helpers so they work at either scope.
type Queryable interface {
	Query(selector string) (Element, bool)
	QueryAll(selector string) []Element
}
