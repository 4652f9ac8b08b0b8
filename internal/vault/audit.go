package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aide-sh/aide/pkg/models"
)

// AuditLog writes the structured daily audit trail: one JSON document per
// day holding all entries, under Logs/actions or Logs/errors.
type AuditLog struct {
	dir string
	mu  sync.Mutex
	v   *Vault
}

// Actions returns the audit log for executed actions.
func (v *Vault) Actions() *AuditLog {
	return &AuditLog{dir: filepath.Join(v.LogsDir(), "actions"), v: v}
}

// Errors returns the audit log for watcher and actor failures.
func (v *Vault) Errors() *AuditLog {
	return &AuditLog{dir: filepath.Join(v.LogsDir(), "errors"), v: v}
}

type auditFile struct {
	Date    string              `json:"date"`
	Entries []models.AuditEntry `json:"entries"`
}

// Append adds an entry to today's log file, creating it if needed. A
// missing timestamp is filled in.
func (a *AuditLog) Append(entry models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = models.NowISO(a.v.now())
	}

	date := a.v.now().UTC().Format(models.DateFormat)
	path := filepath.Join(a.dir, date+".json")

	doc := auditFile{Date: date}
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parsing audit log %s: %w", path, err)
		}
	}
	doc.Entries = append(doc.Entries, entry)

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding audit log: %w", err)
	}
	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return fmt.Errorf("creating audit log directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

// ReadRecent returns up to n entries, newest first, reading backwards
// across days as needed.
func (a *AuditLog) ReadRecent(n int) []models.AuditEntry {
	files, err := os.ReadDir(a.dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var entries []models.AuditEntry
	for _, name := range names {
		if len(entries) >= n {
			break
		}
		raw, err := os.ReadFile(filepath.Join(a.dir, name))
		if err != nil {
			continue
		}
		var doc auditFile
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		for i := len(doc.Entries) - 1; i >= 0; i-- {
			entries = append(entries, doc.Entries[i])
		}
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// ReadDate returns all entries for a date (YYYY-MM-DD), oldest first.
func (a *AuditLog) ReadDate(date string) []models.AuditEntry {
	raw, err := os.ReadFile(filepath.Join(a.dir, date+".json"))
	if err != nil {
		return nil
	}
	var doc auditFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc.Entries
}
