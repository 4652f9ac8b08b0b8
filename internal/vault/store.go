package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aide-sh/aide/pkg/models"
	"github.com/google/uuid"
)

// Workspace directory names. The status in a file's frontmatter always
// matches the directory it lives in.
const (
	DirNeedsAction = "Needs_Action"
	DirApproved    = "Approved"
	DirDone        = "Done"
	DirLogs        = "Logs"
)

// Vault is the work-item store rooted at a workspace directory.
type Vault struct {
	root string
	now  func() time.Time
}

// New creates a Vault rooted at dir, creating the workspace directories if
// they are missing.
func New(dir string) (*Vault, error) {
	if dir == "" {
		return nil, fmt.Errorf("creating vault: workspace dir is empty")
	}
	for _, sub := range []string{
		DirNeedsAction,
		DirApproved,
		DirDone,
		filepath.Join(DirLogs, "actions"),
		filepath.Join(DirLogs, "errors"),
	} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("creating workspace directory %s: %w", sub, err)
		}
	}
	return &Vault{root: dir, now: time.Now}, nil
}

// Root returns the workspace root directory.
func (v *Vault) Root() string { return v.root }

// NeedsActionDir returns the pending work-item directory.
func (v *Vault) NeedsActionDir() string { return filepath.Join(v.root, DirNeedsAction) }

// ApprovedDir returns the human-approved work-item directory.
func (v *Vault) ApprovedDir() string { return filepath.Join(v.root, DirApproved) }

// DoneDir returns the completed work-item directory.
func (v *Vault) DoneDir() string { return filepath.Join(v.root, DirDone) }

// LogsDir returns the workspace log root.
func (v *Vault) LogsDir() string { return filepath.Join(v.root, DirLogs) }

// DebugScreenshotPath names a screenshot under Logs/ for the given label.
// Watchers capture one when a browser surface is in an unexpected state.
func (v *Vault) DebugScreenshotPath(label string) string {
	return filepath.Join(v.root, DirLogs, "debug_"+label+".png")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses runs of non-alphanumerics into single
// hyphens, for use in filenames.
func Slugify(s string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "item"
	}
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}

// ShortID returns an 8-character identifier derived from a UUID.
func ShortID() string {
	return uuid.NewString()[:8]
}

// CorrelationID returns a full UUID for tracing related audit entries.
func CorrelationID() string {
	return uuid.NewString()
}

// CreateActionFile writes a pending work item into Needs_Action. The
// filename is <source>_<slug>_<timestamp>.md; the item's ID, status and
// created timestamp are filled in if absent. Returns the created path.
func (v *Vault) CreateActionFile(item *models.WorkItem, slug string) (string, error) {
	if item.ID == "" {
		item.ID = ShortID()
	}
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	if item.Field("created") == "" {
		item.SetField("created", models.NowISO(v.now()))
	}
	if err := item.Validate(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s_%s.md", item.Source, Slugify(slug), v.now().UTC().Format(models.FilenameFormat))
	path := filepath.Join(v.NeedsActionDir(), name)

	content, err := RenderItem(item)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("creating action file %s: file already exists", name)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("creating action file: %w", err)
	}
	item.Path = path
	return path, nil
}

// MoveToDone stamps a work-item file as completed and moves it to Done/.
// The frontmatter update happens before the rename so a crash between the
// two steps leaves a consistent file.
func (v *Vault) MoveToDone(path, result string) error {
	updates := map[string]any{
		"status":       string(models.StatusDone),
		"completed_at": models.NowISO(v.now()),
	}
	if result != "" {
		updates["result"] = result
	}
	if err := UpdateFrontmatter(path, updates); err != nil {
		return fmt.Errorf("stamping %s before move: %w", filepath.Base(path), err)
	}

	dest := filepath.Join(v.DoneDir(), filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("moving %s to Done: %w", filepath.Base(path), err)
	}
	return nil
}

// List reads every parseable work item in dir, sorted by filename.
// Malformed files are skipped rather than failing the listing.
func (v *Vault) List(dir string) ([]*models.WorkItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var items []*models.WorkItem
	for _, name := range names {
		item, err := ParseItem(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Pending returns the work items awaiting approval in Needs_Action.
func (v *Vault) Pending() ([]*models.WorkItem, error) {
	items, err := v.List(v.NeedsActionDir())
	if err != nil {
		return nil, err
	}
	var pending []*models.WorkItem
	for _, item := range items {
		if item.Status == models.StatusPending {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// Approve stamps a pending work item as approved and moves it to Approved/.
func (v *Vault) Approve(path string) error {
	if err := UpdateFrontmatter(path, map[string]any{
		"status":      string(models.StatusApproved),
		"approved_at": models.NowISO(v.now()),
	}); err != nil {
		return fmt.Errorf("stamping %s before move: %w", filepath.Base(path), err)
	}
	dest := filepath.Join(v.ApprovedDir(), filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("moving %s to Approved: %w", filepath.Base(path), err)
	}
	return nil
}
