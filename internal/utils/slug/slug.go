// Package slug turns free-form names into URL-safe identifiers.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make lowercases s, folds accents and joins letter/digit runs with "-".
// "Finanças & Crédito" becomes "financas-credito"; scripts without case or
// accents such as "健康" are kept as they are.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isDiacritic)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// isDiacritic matches the Combining Diacritical Marks block only, so kana
// voicing marks survive and recompose under NFC.
func isDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// MakeOr returns Make(s), or fallback when no letter or digit survives
func MakeOr(s, fallback string) string {
	if out := Make(s); out != "" {
		return out
	}
	return fallback
}

// Key returns Make(s), or a short hash of s when nothing survives, so distinct
// non-empty names always get distinct keys.
func Key(s string) string {
	if out := Make(s); out != "" {
		return out
	}
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return "h-" + hex.EncodeToString(sum[:])[:12]
}
