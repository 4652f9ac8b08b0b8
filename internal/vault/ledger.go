package vault

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aide-sh/aide/pkg/models"
)

// Ledger is the per-source dedup store at Logs/processed_<source>.json.
// Each fingerprint maps to the timestamp it was first processed. The ledger
// is loaded fresh at the start of each poll cycle and saved after every
// mutation, so concurrent watchers for different sources never collide.
type Ledger struct {
	path string
	now  func() time.Time

	processed   map[string]string
	lastCleanup string
}

type ledgerFile struct {
	ProcessedIDs map[string]string `json:"processed_ids"`
	LastCleanup  string            `json:"last_cleanup,omitempty"`
}

// OpenLedger loads the ledger for a source. A missing file starts empty;
// a corrupted file starts empty with a warning rather than blocking the
// watcher.
func (v *Vault) OpenLedger(source string) *Ledger {
	l := &Ledger{
		path:      filepath.Join(v.LogsDir(), fmt.Sprintf("processed_%s.json", source)),
		now:       v.now,
		processed: map[string]string{},
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return l
	}

	var f ledgerFile
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Printf("warning: corrupted dedup ledger %s, starting empty: %v", l.path, err)
		return l
	}
	if f.ProcessedIDs != nil {
		l.processed = f.ProcessedIDs
	}
	l.lastCleanup = f.LastCleanup
	return l
}

// IsProcessed reports whether a fingerprint has already produced a work
// item.
func (l *Ledger) IsProcessed(fingerprint string) bool {
	_, ok := l.processed[fingerprint]
	return ok
}

// MarkProcessed records a fingerprint and saves the ledger. Call only
// after the work-item file is durably written, so a crash in between
// re-emits the item rather than silently dropping it.
func (l *Ledger) MarkProcessed(fingerprint string) error {
	l.processed[fingerprint] = models.NowISO(l.now())
	return l.save()
}

// Count returns the number of fingerprints in the ledger.
func (l *Ledger) Count() int { return len(l.processed) }

// Cleanup drops fingerprints older than the retention window. It runs at
// most once per 24 hours; entries with unparseable timestamps are dropped
// with the expired ones.
func (l *Ledger) Cleanup(retentionDays int) error {
	now := l.now()
	if l.lastCleanup != "" {
		if last, err := models.ParseISO(l.lastCleanup); err == nil {
			if now.Sub(last) < 24*time.Hour {
				return nil
			}
		}
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	for fp, ts := range l.processed {
		t, err := models.ParseISO(ts)
		if err != nil || t.Before(cutoff) {
			delete(l.processed, fp)
		}
	}
	l.lastCleanup = models.NowISO(now)
	return l.save()
}

func (l *Ledger) save() error {
	raw, err := json.MarshalIndent(ledgerFile{
		ProcessedIDs: l.processed,
		LastCleanup:  l.lastCleanup,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dedup ledger: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o600); err != nil {
		return fmt.Errorf("saving dedup ledger: %w", err)
	}
	return nil
}
