package vault

import (
	"fmt"
	"strings"

	"github.com/aide-sh/aide/pkg/models"
)

// FindApproval scans Approved/ for the most recent work item of the given
// type whose frontmatter matches every field in match. String comparison is
// case-insensitive. No match is a nil item, not an error.
func (v *Vault) FindApproval(actionType models.ItemType, match map[string]string) (*models.WorkItem, error) {
	items, err := v.List(v.ApprovedDir())
	if err != nil {
		return nil, fmt.Errorf("scanning approvals: %w", err)
	}

	var best *models.WorkItem
	var bestKey string
	for _, item := range items {
		if item.Type != actionType || item.Status != models.StatusApproved {
			continue
		}
		if !fieldsMatch(item, match) {
			continue
		}
		key := item.Field("approved_at")
		if key == "" {
			key = item.Field("created")
		}
		// Most recent approval wins; ISO timestamps sort lexically.
		if best == nil || key > bestKey {
			best = item
			bestKey = key
		}
	}
	return best, nil
}

func fieldsMatch(item *models.WorkItem, match map[string]string) bool {
	for field, expected := range match {
		actual := item.Field(field)
		if !strings.EqualFold(actual, expected) {
			return false
		}
	}
	return true
}

// ConsumeApproval retires an executed approval file: stamp done and
// completed_at, then move to Done/. Move, never copy, so a consumed
// approval cannot authorize a second send.
func (v *Vault) ConsumeApproval(path string) error {
	return v.MoveToDone(path, "")
}
