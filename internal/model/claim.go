package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// claimKeyLength is how many runes of the case-folded claim form the match
// key. Providers rarely restate a claim verbatim, so equivalence is judged
// on this prefix rather than the full text. The heuristic can both
// false-positive on claims sharing a generic opening and false-negative on
// rewordings with a different opening; it is deliberately approximate.
const claimKeyLength = 20

// ClaimKey returns the normalized match key for a claim: Unicode case fold,
// surrounding whitespace trimmed, truncated to claimKeyLength runes.
func ClaimKey(claim string) string {
	folded := cases.Fold().String(strings.TrimSpace(claim))
	runes := []rune(folded)
	if len(runes) > claimKeyLength {
		runes = runes[:claimKeyLength]
	}
	return string(runes)
}

// ClaimStillPresent reports whether any fresh inaccuracy description
// contains the original claim's key as a substring after folding.
func ClaimStillPresent(originalClaim string, fresh []string) bool {
	key := ClaimKey(originalClaim)
	if key == "" {
		return false
	}
	for _, desc := range fresh {
		if strings.Contains(cases.Fold().String(desc), key) {
			return true
		}
	}
	return false
}
