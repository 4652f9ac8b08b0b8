package browser

// Strategy is one rung of an extraction cascade: a named selector with an
// optional upper bound on plausible matches. Sites change their DOM
// without notice, so extraction tries specific selectors first and falls
// back to progressively broader ones.
type Strategy struct {
	Name     string
	Selector string
	// Max rejects over-broad matches: a broad selector that hits more
	// than Max elements has probably matched navigation chrome, not
	// content. Zero means unlimited.
	Max int
}

// Apply walks the cascade and returns the matches of the first strategy
// yielding between 1 and Max elements, along with the strategy name. An
// exhausted cascade returns nil and "": nothing to extract is a normal
// outcome, not an error.
func Apply(root Queryable, strategies []Strategy) ([]Element, string) {
	for _, st := range strategies {
		els := root.QueryAll(st.Selector)
		if len(els) == 0 {
			continue
		}
		if st.Max > 0 && len(els) > st.Max {
			continue
		}
		return els, st.Name
	}
	return nil, ""
}

// FirstText returns the text of the first selector that matches an
// element with non-empty text, or "" when none do.
func FirstText(root Queryable, selectors ...string) string {
	for _, sel := range selectors {
		el, ok := root.Query(sel)
		if !ok {
			continue
		}
		if text := el.Text(); text != "" {
			return text
		}
	}
	return ""
}

// FirstTextMax is FirstText with a length cap, rejecting matches whose
// text is implausibly long for the field (a name selector that matched a
// whole card).
func FirstTextMax(root Queryable, maxLen int, selectors ...string) string {
	for _, sel := range selectors {
		el, ok := root.Query(sel)
		if !ok {
			continue
		}
		if text := el.Text(); text != "" && len(text) < maxLen {
			return text
		}
	}
	return ""
}

// AttrOrText returns the named attribute of the first matching selector,
// falling back to its text, then to the next selector, then to "".
func AttrOrText(root Queryable, attr string, selectors ...string) string {
	for _, sel := range selectors {
		el, ok := root.Query(sel)
		if !ok {
			continue
		}
		if val := el.Attr(attr); val != "" {
			return val
		}
		if text := el.Text(); text != "" {
			return text
		}
	}
	return ""
}
