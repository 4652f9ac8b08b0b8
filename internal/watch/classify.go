package watch

import (
	"strings"

	"github.com/aide-sh/aide/pkg/models"
)

// Classifier assigns a priority to free text by keyword match. Keywords
// lists the trigger words in configured order; High and Medium name the
// tiers. A keyword in neither tier still matches, at low priority.
type Classifier struct {
	Keywords []string
	High     map[string]bool
	Medium   map[string]bool
}

// NewClassifier builds a Classifier from keyword lists. Tier membership is
// case-insensitive.
func NewClassifier(keywords, high, medium []string) *Classifier {
	c := &Classifier{
		Keywords: keywords,
		High:     make(map[string]bool, len(high)),
		Medium:   make(map[string]bool, len(medium)),
	}
	for _, kw := range high {
		c.High[strings.ToLower(kw)] = true
	}
	for _, kw := range medium {
		c.Medium[strings.ToLower(kw)] = true
	}
	return c
}

// Classify returns the priority of text and the keyword that decided it.
// The first keyword in configured order found in the text wins; later,
// higher-tier keywords do not override it. No match is (low, "").
func (c *Classifier) Classify(text string) (models.Priority, string) {
	lower := strings.ToLower(text)
	for _, kw := range c.Keywords {
		kwLower := strings.ToLower(kw)
		if !strings.Contains(lower, kwLower) {
			continue
		}
		switch {
		case c.High[kwLower]:
			return models.PriorityHigh, kw
		case c.Medium[kwLower]:
			return models.PriorityMedium, kw
		default:
			return models.PriorityLow, kw
		}
	}
	return models.PriorityLow, ""
}

// ClassifyTiered is the two-list variant used for email: high-tier
// keywords are checked first, then medium, so list order within a tier
// decides ties. No match is low.
func ClassifyTiered(text string, high, medium []string) models.Priority {
	lower := strings.ToLower(text)
	for _, kw := range high {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return models.PriorityHigh
		}
	}
	for _, kw := range medium {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return models.PriorityMedium
		}
	}
	return models.PriorityLow
}
