// Package suggest finds the closest known name to a mistyped one.
package suggest

import "fmt"

// Distance returns the Levenshtein edit distance between two strings,
// counting insertions, deletions and substitutions of single runes. It
// keeps one column of the edit matrix, O(min(m,n)) space.
func Distance(left, right string) int {
	short, long := []rune(left), []rune(right)
	if len(short) > len(long) {
		short, long = long, short
	}

	if len(short) == 0 {
		return len(long)
	}

	column := make([]int, len(short)+1)
	for row := range column {
		column[row] = row
	}

	for col, longRune := range long {
		diagonal := column[0]
		column[0] = col + 1

		for row, shortRune := range short {
			above := column[row+1]

			cost := 1
			if shortRune == longRune {
				cost = 0
			}

			column[row+1] = min(above+1, column[row]+1, diagonal+cost)
			diagonal = above
		}
	}

	return column[len(short)]
}

// Closest returns the candidate nearest to name, provided it is within a
// third of name's length. Ties keep the earlier candidate.
func Closest(name string, candidates []string) (string, bool) {
	limit := max(len([]rune(name))/3, 1)
	best, bestDistance := "", limit+1

	for _, candidate := range candidates {
		distance := Distance(name, candidate)
		if distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}

	return best, best != ""
}

// Hint renders ` (did you mean "x"?)` for the closest candidate, or "".
func Hint(name string, candidates []string) string {
	closest, ok := Closest(name, candidates)
	if !ok {
		return ""
	}

	return fmt.Sprintf(" (did you mean %q?)", closest)
}
