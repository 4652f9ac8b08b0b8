package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a read-only Page over static HTML documents, one per URL.
// It backs tests and offline fixture runs: lookups use real CSS matching,
// Click and TypeText record their invocations instead of acting.
type Snapshot struct {
	current string
	docs    map[string]*goquery.Document

	// Clicks and Inputs record interactions, newest last.
	Clicks []string
	Inputs []string
}

// NewSnapshot creates a snapshot page open at url with the given HTML.
func NewSnapshot(url, html string) (*Snapshot, error) {
	s := &Snapshot{current: url, docs: map[string]*goquery.Document{}}
	if err := s.AddPage(url, html); err != nil {
		return nil, err
	}
	return s, nil
}

// AddPage registers HTML content for a URL so Navigate can reach it.
func (s *Snapshot) AddPage(url, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parsing snapshot HTML for %s: %w", url, err)
	}
	s.docs[url] = doc
	return nil
}

// SetHTML replaces the content of the current page, simulating an
// in-place DOM change such as a chat opening.
func (s *Snapshot) SetHTML(html string) error {
	return s.AddPage(s.current, html)
}

func (s *Snapshot) URL() string { return s.current }

func (s *Snapshot) Title() string {
	doc := s.doc()
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Navigate switches to the registered document for url. Unregistered URLs
// land on an empty page, the snapshot analogue of a failed render.
func (s *Snapshot) Navigate(_ context.Context, url string) error {
	s.current = url
	return nil
}

func (s *Snapshot) doc() *goquery.Document {
	return s.docs[s.current]
}

func (s *Snapshot) Query(selector string) (Element, bool) {
	doc := s.doc()
	if doc == nil {
		return nil, false
	}
	return firstMatch(s, doc.Selection, selector)
}

func (s *Snapshot) QueryAll(selector string) []Element {
	doc := s.doc()
	if doc == nil {
		return nil
	}
	return allMatches(s, doc.Selection, selector)
}

func (s *Snapshot) Screenshot(string) error { return nil }

func firstMatch(s *Snapshot, root *goquery.Selection, selector string) (Element, bool) {
	found := findSafe(root, selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return &snapElement{snap: s, sel: found}, true
}

func allMatches(s *Snapshot, root *goquery.Selection, selector string) []Element {
	var els []Element
	findSafe(root, selector).Each(func(_ int, sel *goquery.Selection) {
		els = append(els, &snapElement{snap: s, sel: sel})
	})
	return els
}

// findSafe treats an unparseable selector as matching nothing, the same
// contract the live engine adapter provides.
func findSafe(root *goquery.Selection, selector string) (sel *goquery.Selection) {
	defer func() {
		if recover() != nil {
			sel = root.Slice(0, 0)
		}
	}()
	return root.Find(selector)
}

type snapElement struct {
	snap *Snapshot
	sel  *goquery.Selection
}

func (e *snapElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *snapElement) Attr(name string) string {
	val, _ := e.sel.Attr(name)
	return val
}

func (e *snapElement) Click() error {
	e.snap.Clicks = append(e.snap.Clicks, e.describe())
	return nil
}

func (e *snapElement) TypeText(text string) error {
	e.snap.Inputs = append(e.snap.Inputs, text)
	return nil
}

func (e *snapElement) Query(selector string) (Element, bool) {
	return firstMatch(e.snap, e.sel, selector)
}

func (e *snapElement) QueryAll(selector string) []Element {
	return allMatches(e.snap, e.sel, selector)
}

func (e *snapElement) describe() string {
	name := goquery.NodeName(e.sel)
	if id, ok := e.sel.Attr("id"); ok && id != "" {
		return name + "#" + id
	}
	if tid, ok := e.sel.Attr("data-testid"); ok && tid != "" {
		return name + "[" + tid + "]"
	}
	text := e.Text()
	if len(text) > 30 {
		text = text[:30]
	}
	return strings.TrimSpace(name + " " + text)
}
