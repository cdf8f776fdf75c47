// Package concept derives canonical merchant concepts from raw transaction
// descriptions, so that reworded notifications for the same merchant land on
// the same tagging rules.
package concept

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// suggestionThreshold is the edit-distance ratio under which two concepts are
// considered close enough to suggest.
const suggestionThreshold = 0.4

// Fold lowercases s and collapses runs of whitespace into single spaces.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Extract derives the concept of a description: lowercase, punctuation turned
// into spaces, and tokens carrying digits dropped (reference numbers, card
// suffixes, embedded dates). Descriptions differing only in those leave the
// same concept.
//
//	Extract("AMZN MKTP US*1234 REF998877") == "amzn mktp us"
//
// A description with no digit-free token falls back to its folded form so the
// concept is never empty for non-empty input.
func Extract(description string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(description) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var kept []string
	for _, tok := range strings.Fields(b.String()) {
		if strings.ContainsFunc(tok, unicode.IsDigit) {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return Fold(description)
	}
	return strings.Join(kept, " ")
}

// Suggest returns the known concept closest to target when it is within the
// suggestion threshold. Candidates are scored by levenshtein distance over
// the longer length; ties keep the earlier candidate, so the result is stable
// for a sorted input.
func Suggest(target string, known []string) (string, bool) {
	best := ""
	bestRatio := 1.0
	for _, k := range known {
		longest := max(len(target), len(k))
		if longest == 0 {
			continue
		}
		dist := levenshtein.ComputeDistance(target, k)
		ratio := float64(dist) / float64(longest)
		if ratio < bestRatio {
			best, bestRatio = k, ratio
		}
	}
	if bestRatio < suggestionThreshold {
		return best, true
	}
	return "", false
}
