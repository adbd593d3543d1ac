package history

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/feedwatch/appfeedback-bot/internal/models"
)

// fingerprintTextLen bounds how much review text enters the hash. Sources
// return overlapping windows on every run; the prefix keeps the dedup key
// stable and cheap. Two long reviews differing only after this many
// characters collapse into one record — a documented limitation.
const fingerprintTextLen = 50

// Fingerprint derives the stable dedup key for a review: SHA-256 over the
// first 50 characters of the text, the observed date, the app name and the
// store, in that exact order. The field order and truncation are part of the
// on-disk contract; changing either re-deduplicates the whole history.
func Fingerprint(r models.Review) string {
	text := r.Text
	if runes := []rune(text); len(runes) > fingerprintTextLen {
		text = string(runes[:fingerprintTextLen])
	}

	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte(r.Date))
	h.Write([]byte(r.App))
	h.Write([]byte(r.Store))
	return hex.EncodeToString(h.Sum(nil))
}
