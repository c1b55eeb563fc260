// Package fuzzy decides whether a typed guess is close enough to an animal name.
package fuzzy

import "strings"

// shortAnswerLen is the longest answer that tolerates only a single edit.
const shortAnswerLen = 7

// IsMatch reports whether guess equals correct up to case, surrounding
// whitespace and a small Levenshtein distance: 1 edit for answers of up to
// seven characters, 2 edits for longer ones.
func IsMatch(guess, correct string) bool {
	g := strings.ToLower(strings.TrimSpace(guess))
	c := strings.ToLower(correct)
	if g == c {
		return true
	}
	threshold := 1
	if len([]rune(c)) > shortAnswerLen {
		threshold = 2
	}
	return Distance(g, c) <= threshold
}

// Distance is the classic Levenshtein edit distance (insert, delete and
// substitute all cost 1, no transpositions) computed over runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
