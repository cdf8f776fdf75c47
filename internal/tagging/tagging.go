// Package tagging applies the user's concept-to-tags rules to staged
// transactions. Matching is pure and deterministic: the same concept and the
// same rule table always produce the same tag set, regardless of rule order.
package tagging

import (
	"sort"
	"strings"

	"github.com/jask/fintool/internal/database/repository"
)

// Apply returns the union of tags from every rule matching concept, sorted.
// It returns nil when no rule matches.
func Apply(concept string, rules []repository.TagRule) []string {
	set := make(map[string]struct{})
	matched := false
	for _, r := range rules {
		if !Matches(r, concept) {
			continue
		}
		matched = true
		for _, t := range r.Tags {
			set[t] = struct{}{}
		}
	}
	if !matched {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether a single rule applies to concept.
func Matches(r repository.TagRule, concept string) bool {
	switch r.Match {
	case repository.MatchContains:
		return r.Concept != "" && strings.Contains(concept, r.Concept)
	default:
		return r.Concept == concept
	}
}

// Normalize trims, deduplicates and sorts a tag list, dropping empties.
func Normalize(tags []string) []string {
	set := make(map[string]struct{})
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Split parses the pipe-separated tag syntax used on the command line.
func Split(s string) []string {
	return Normalize(strings.Split(s, "|"))
}
