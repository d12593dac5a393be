package tokenize

import "strings"

var japaneseContentPOS = map[string]bool{
	"名詞":  true,
	"動詞":  true,
	"形容詞": true,
	"副詞":  true,
}

// IsContentPOS reports whether pos marks a content word (noun, verb,
// adjective or adverb) in the tag set of lang's tokenizer.
func IsContentPOS(lang, pos string) bool {
	switch Canonical(lang) {
	case Japanese:
		return japaneseContentPOS[pos]
	case Chinese:
		if pos == "" {
			return false
		}
		return strings.ContainsRune("nvad", rune(pos[0]))
	default:
		return true
	}
}
