// ABOUTME: Character budget enforcement for channel-bound text
// ABOUTME: Cuts at a line boundary and appends a fixed notice within the budget
package brief

import (
	"strings"
	"unicode"
)

// DefaultBudget leaves headroom below the 1600 character WhatsApp ceiling.
const DefaultBudget = 1500

const TruncationNotice = "\n\n_(Report truncated to fit WhatsApp limit.)_"

// Truncate returns text unchanged when it fits in budget runes. Otherwise it
// cuts at the last newline that leaves room for TruncationNotice and reports
// true. Only when the kept prefix contains no line boundary at all does it
// fall back to the last space, and then to a hard cut.
func Truncate(text string, budget int) (string, bool) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text, false
	}

	notice := []rune(TruncationNotice)
	limit := budget - len(notice)
	if limit <= 0 {
		return string(runes[:budget]), true
	}

	cut := runes[:limit]
	if runes[limit] != '\n' {
		if i := lastIndexRune(cut, '\n'); i > 0 {
			cut = cut[:i]
		} else if i := lastIndexRune(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}

	kept := strings.TrimRightFunc(string(cut), unicode.IsSpace)
	return kept + TruncationNotice, true
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
