package browser

import "testing"

func TestApply_FirstMatchingStrategyWins(t *testing.T) {
	page := snapshotPage(t, "https://example.com/",
		`<html><body>
			<div class="nt-card">one</div>
			<div class="nt-card">two</div>
			<main><li>a</li><li>b</li><li>c</li></main>
		</body></html>`)

	els, name := Apply(page, []Strategy{
		{Name: "unread cards", Selector: "div.nt-card--unread"},
		{Name: "cards", Selector: "div.nt-card"},
		{Name: "main list items", Selector: "main li"},
	})
	if name != "cards" {
		t.Fatalf("expected cards strategy, got %q", name)
	}
	if len(els) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(els))
	}
}

func TestApply_OverBroadRejected(t *testing.T) {
	html := `<html><body><ul>`
	for i := 0; i < 60; i++ {
		html += "<li class='nav'>nav</li>"
	}
	html += `</ul><aside><li>thread one</li><li>thread two</li></aside></body></html>`
	page := snapshotPage(t, "https://example.com/", html)

	els, name := Apply(page, []Strategy{
		{Name: "all list items", Selector: "ul li", Max: 50},
		{Name: "aside list items", Selector: "aside li", Max: 50},
	})
	if name != "aside list items" {
		t.Fatalf("expected over-broad strategy to be skipped, got %q", name)
	}
	if len(els) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(els))
	}
}

func TestApply_ExhaustedIsEmptyNotError(t *testing.T) {
	page := snapshotPage(t, "https://example.com/", "<html><body><p>nothing here</p></body></html>")

	els, name := Apply(page, []Strategy{
		{Name: "cards", Selector: "div.nt-card"},
		{Name: "articles", Selector: "main article"},
	})
	if els != nil || name != "" {
		t.Fatalf("expected empty result, got %d elements via %q", len(els), name)
	}
}

func TestApply_MaxZeroIsUnlimited(t *testing.T) {
	html := `<html><body>`
	for i := 0; i < 100; i++ {
		html += "<div class='nt-card'>x</div>"
	}
	html += `</body></html>`
	page := snapshotPage(t, "https://example.com/", html)

	els, _ := Apply(page, []Strategy{{Name: "cards", Selector: "div.nt-card"}})
	if len(els) != 100 {
		t.Fatalf("expected 100 elements, got %d", len(els))
	}
}

func TestFirstText(t *testing.T) {
	page := snapshotPage(t, "https://example.com/",
		`<html><body>
			<div class="card">
				<h3></h3>
				<strong>Ada Lovelace</strong>
				<p>Long preview</p>
			</div>
		</body></html>`)
	card, ok := page.Query("div.card")
	if !ok {
		t.Fatal("card not found")
	}

	// The empty h3 is skipped in favor of the next selector.
	if got := FirstText(card, "h3", "strong", "p"); got != "Ada Lovelace" {
		t.Fatalf("expected strong text, got %q", got)
	}
	if got := FirstText(card, "h4", "em"); got != "" {
		t.Fatalf("expected empty fallback, got %q", got)
	}
}

func TestFirstTextMax(t *testing.T) {
	page := snapshotPage(t, "https://example.com/",
		`<html><body><div class="row">
			<span class="big">this text is far too long to be a chat name because it keeps going and going and going well past any plausible length for a name</span>
			<span title="Team Chat">Team Chat</span>
		</div></body></html>`)
	row, ok := page.Query("div.row")
	if !ok {
		t.Fatal("row not found")
	}

	if got := FirstTextMax(row, 100, "span.big", "span[title]"); got != "Team Chat" {
		t.Fatalf("expected over-long match rejected, got %q", got)
	}
}

func TestAttrOrText(t *testing.T) {
	page := snapshotPage(t, "https://example.com/",
		`<html><body><div class="row">
			<span dir="auto" title="Alice Smith">A. Smith…</span>
			<span class="plain">fallback text</span>
		</div></body></html>`)
	row, ok := page.Query("div.row")
	if !ok {
		t.Fatal("row not found")
	}

	if got := AttrOrText(row, "title", `span[dir="auto"][title]`); got != "Alice Smith" {
		t.Fatalf("expected title attribute, got %q", got)
	}
	if got := AttrOrText(row, "title", "span.plain"); got != "fallback text" {
		t.Fatalf("expected text fallback, got %q", got)
	}
	if got := AttrOrText(row, "title", "span.absent"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestSnapshot_RecordsInteractions(t *testing.T) {
	page := snapshotPage(t, "https://example.com/",
		`<html><body><button id="send">Send</button><input data-testid="editor"></body></html>`)

	btn, ok := page.Query("#send")
	if !ok {
		t.Fatal("button not found")
	}
	if err := btn.Click(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	editor, ok := page.Query(`input[data-testid="editor"]`)
	if !ok {
		t.Fatal("editor not found")
	}
	if err := editor.TypeText("hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.Clicks) != 1 || page.Clicks[0] != "button#send" {
		t.Fatalf("unexpected click record: %v", page.Clicks)
	}
	if len(page.Inputs) != 1 || page.Inputs[0] != "hello" {
		t.Fatalf("unexpected input record: %v", page.Inputs)
	}
}

func TestSnapshot_InvalidSelectorIsNoMatch(t *testing.T) {
	page := snapshotPage(t, "https://example.com/", "<html><body><p>x</p></body></html>")

	if _, ok := page.Query("p[[["); ok {
		t.Fatal("invalid selector should report not-found")
	}
	if els := page.QueryAll("div:::bad"); len(els) != 0 {
		t.Fatalf("invalid selector should match nothing, got %d", len(els))
	}
}
