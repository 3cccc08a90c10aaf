package ui

import (
	"sort"
	"strings"
)

const (
	// MaxDistance is the largest edit distance Suggest accepts
	MaxDistance = 3
	// MaxSuggestions bounds the result of Suggest
	MaxSuggestions = 3
)

// Suggest returns up to MaxSuggestions candidates within MaxDistance edits of target, closest
// first. Matching ignores case, and a candidate whose last dotted segment matches counts as
// close, so "Owner" suggests "petclinic.Owner".
func Suggest(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}
	t := strings.ToLower(target)

	var matches []match
	for _, c := range candidates {
		lc := strings.ToLower(c)
		d := Distance(t, lc)
		if i := strings.LastIndex(lc, "."); i >= 0 {
			if short := Distance(t, lc[i+1:]); short < d {
				d = short
			}
		}
		if d <= MaxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	result := make([]string, 0, MaxSuggestions)
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// Distance is the Levenshtein distance between a and b, counted in runes
func Distance(a, b string) int {
	s, t := []rune(a), []rune(b)
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}
