package watch

import "fmt"

// fingerprintTextLen caps the text portion of a fingerprint, in runes.
// Long messages stay deduplicable without storing their whole body in
// the ledger.
const fingerprintTextLen = 100

// Fingerprint derives the dedup key for a detected item. Browser sources
// have no native message IDs, so identity is the sender, a text prefix and
// the displayed timestamp.
func Fingerprint(sender, text, timestamp string) string {
	return fmt.Sprintf("%s|%s|%s", sender, truncateRunes(text, fingerprintTextLen), timestamp)
}

// truncateRunes cuts s to at most n runes. Truncating by bytes could
// split a multibyte rune and leave invalid UTF-8 in the key.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
