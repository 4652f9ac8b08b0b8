// Package vault implements the file-workspace protocol: markdown work-item
// files with YAML frontmatter moving through Needs_Action/, Approved/ and
// Done/, plus the dedup ledger and audit logs under Logs/.
package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/aide-sh/aide/pkg/models"
	"gopkg.in/yaml.v3"
)

const delimiter = "---\n"

// ParseFrontmatter splits markdown content into its YAML frontmatter map and
// body. Content without a frontmatter block returns an empty map and the
// original content unchanged.
func ParseFrontmatter(content string) (map[string]any, string, error) {
	front, body, ok := splitFrontmatter(content)
	if !ok {
		return map[string]any{}, content, nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal([]byte(front), &fields); err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, body, nil
}

// splitFrontmatter separates the raw YAML block from the body. The bool
// reports whether a frontmatter block was present.
func splitFrontmatter(content string) (front, body string, ok bool) {
	if !strings.HasPrefix(content, delimiter) {
		return "", "", false
	}
	rest := content[len(delimiter):]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", "", false
	}
	front = rest[:idx]
	body = strings.TrimLeft(rest[idx+len("\n---"):], " \t\r\n")
	return front, body, true
}

// Render formats a frontmatter map and body into complete file content.
// An empty map renders the body alone.
func Render(front map[string]any, body string) (string, error) {
	if len(front) == 0 {
		return body, nil
	}
	raw, err := yaml.Marshal(front)
	if err != nil {
		return "", fmt.Errorf("rendering frontmatter: %w", err)
	}
	return delimiter + string(raw) + "---\n\n" + strings.TrimPrefix(body, "\n"), nil
}

// ParseItem reads a work-item file into a WorkItem, including its body and
// source path.
func ParseItem(path string) (*models.WorkItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading work item: %w", err)
	}

	front, body, ok := splitFrontmatter(string(raw))
	if !ok {
		return nil, fmt.Errorf("parsing work item %s: no frontmatter block", path)
	}

	item := &models.WorkItem{}
	if err := yaml.Unmarshal([]byte(front), item); err != nil {
		return nil, fmt.Errorf("parsing work item %s: %w", path, err)
	}
	item.Body = body
	item.Path = path
	return item, nil
}

// RenderItem formats a WorkItem back into file content. The typed fields
// come first, then the inline map in yaml.v3's key order.
func RenderItem(item *models.WorkItem) (string, error) {
	raw, err := yaml.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("rendering work item: %w", err)
	}
	return delimiter + string(raw) + "---\n\n" + strings.TrimPrefix(item.Body, "\n"), nil
}

// UpdateFrontmatter rewrites specific frontmatter fields in place,
// preserving all other fields and the body.
func UpdateFrontmatter(path string, updates map[string]any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("updating frontmatter: %w", err)
	}

	front, body, err := ParseFrontmatter(string(raw))
	if err != nil {
		return fmt.Errorf("updating frontmatter of %s: %w", path, err)
	}
	for k, v := range updates {
		front[k] = v
	}

	content, err := Render(front, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing updated frontmatter: %w", err)
	}
	return nil
}

// CreateFile writes a new markdown file with frontmatter, refusing to
// overwrite an existing file.
func CreateFile(path string, front map[string]any, body string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("creating %s: file already exists", path)
	}

	content, err := Render(front, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}
