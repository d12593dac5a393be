package dictionary

import (
	"strings"
	"unicode"
)

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// NormalizeReading folds a reading into the form used for index comparisons.
// Japanese readings compare in hiragana. Pinyin compares lowercased, with
// ü spelled v, syllables joined and neutral-tone marks (5) dropped.
func NormalizeReading(lang, reading string) string {
	reading = strings.TrimSpace(reading)
	switch lang {
	case Japanese:
		return ToHiragana(reading)
	case Chinese:
		return normalizePinyin(reading)
	default:
		return strings.ToLower(reading)
	}
}

func normalizePinyin(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "u:", "v")
	s = strings.ReplaceAll(s, "ü", "v")

	var b strings.Builder
	for _, syl := range strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '\''
	}) {
		b.WriteString(strings.TrimSuffix(syl, "5"))
	}
	return b.String()
}
