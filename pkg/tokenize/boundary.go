package tokenize

import "strings"

const (
	japaneseTerminals = "。．！？!?"
	chineseTerminals  = "。！？；!?…"
	closers           = "」』）)]］】〕〉》\"'”’"
)

// markBoundaries sets Boundary on the last unit of every sentence. A sentence
// ends after terminal punctuation, or at whitespace containing a newline once
// it has some content. Closing brackets, quotes and whitespace that follow
// the end belong to the sentence they close. An Unknown unit is a sentence
// by itself.
func markBoundaries(units []Unit, terminals string) {
	pending, content := false, false
	for i := range units {
		u := units[i]
		if u.Unknown {
			if content || pending {
				units[i-1].Boundary = true
			}
			units[i].Boundary = true
			pending, content = false, false
			continue
		}
		if pending {
			if u.Class == Space || isCloser(u.Surface) || isTerminal(u.Surface, terminals) {
				continue
			}
			units[i-1].Boundary = true
			pending, content = false, false
		}

		switch {
		case u.Class == Space:
			if content && strings.ContainsRune(u.Surface, '\n') {
				pending = true
			}
		case isTerminal(u.Surface, terminals):
			pending = true
		default:
			content = true
		}
	}
	if len(units) > 0 {
		units[len(units)-1].Boundary = true
	}
}

func isTerminal(s, terminals string) bool {
	found := false
	for _, r := range s {
		switch {
		case strings.ContainsRune(terminals, r):
			found = true
		case strings.ContainsRune(closers, r):
		default:
			return false
		}
	}
	return found
}

func isCloser(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(closers, r) {
			return false
		}
	}
	return true
}
