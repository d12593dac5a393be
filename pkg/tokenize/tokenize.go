// Package tokenize splits text into lossless unit sequences with sentence
// boundaries, one Tokenizer per supported language.
package tokenize

import (
	"strings"
	"unicode"
)

// Class tells words apart from punctuation and whitespace.
type Class int

const (
	Word Class = iota
	Symbol
	Space
)

func (c Class) String() string {
	switch c {
	case Word:
		return "word"
	case Symbol:
		return "symbol"
	case Space:
		return "space"
	default:
		return "unknown"
	}
}

// Unit is one segment of the source text. Concatenating the Surface of every
// unit returned by a Tokenizer reproduces its input exactly.
type Unit struct {
	Surface       string // the text as it appears (e.g. "食べ")
	Lemma         string // dictionary form (e.g. "食べる"), Surface when unknown
	Reading       string // reading of the lemma when the tokenizer knows it
	Pronunciation string // pronunciation of the surface (kana or tone-numbered pinyin)
	POS           string // primary part-of-speech tag, tokenizer specific
	Class         Class
	Boundary      bool // true on the last unit of a sentence
	Unknown       bool // text the backend skipped; forms a sentence of its own
}

// Tokenizer segments text in one language. Implementations are safe for
// concurrent use.
type Tokenizer interface {
	// Language returns the canonical language code.
	Language() string
	// Tokenize returns the units of text. The final unit always carries
	// Boundary; empty input yields no units.
	Tokenize(text string) []Unit
}

func classify(s string) Class {
	space, symbol := true, true
	for _, r := range s {
		if !unicode.IsSpace(r) {
			space = false
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			symbol = false
		}
	}
	switch {
	case space:
		return Space
	case symbol:
		return Symbol
	default:
		return Word
	}
}

// piece is a tokenizer result before it is aligned to the source text.
type piece struct {
	start, end int // byte offsets into the source, -1 when unknown
	surface    string
	lemma      string
	reading    string
	pron       string
	pos        string
}

// align maps pieces onto text so that no byte is lost. Pieces are located by
// their offsets when those agree with the text, otherwise by searching for
// the surface from the current position. Text the tokenizer skipped becomes
// extra units split into whitespace and non-whitespace runs; the
// non-whitespace runs are marked Unknown.
func align(text string, pieces []piece) []Unit {
	units := make([]Unit, 0, len(pieces)+1)
	cursor := 0
	for _, p := range pieces {
		start, end := p.start, p.end
		if start < cursor || end > len(text) || end <= start || text[start:end] != p.surface {
			if p.surface == "" {
				continue
			}
			i := strings.Index(text[cursor:], p.surface)
			if i < 0 {
				continue
			}
			start = cursor + i
			end = start + len(p.surface)
		}
		if start > cursor {
			units = appendGap(units, text[cursor:start])
		}

		u := Unit{
			Surface:       text[start:end],
			Lemma:         p.lemma,
			Reading:       p.reading,
			Pronunciation: p.pron,
			POS:           p.pos,
			Class:         classify(text[start:end]),
		}
		if u.Lemma == "" || u.Class != Word {
			u.Lemma = u.Surface
		}
		units = append(units, u)
		cursor = end
	}
	if cursor < len(text) {
		units = appendGap(units, text[cursor:])
	}
	return units
}

func appendGap(units []Unit, gap string) []Unit {
	for len(gap) > 0 {
		first := strings.IndexFunc(gap, func(r rune) bool { return !unicode.IsSpace(r) })
		n := 0
		switch {
		case first == 0:
			n = strings.IndexFunc(gap, unicode.IsSpace)
		case first < 0:
			n = len(gap)
		default:
			n = first
		}
		if n < 0 {
			n = len(gap)
		}
		s := gap[:n]
		class := classify(s)
		units = append(units, Unit{Surface: s, Lemma: s, Class: class, Unknown: class != Space})
		gap = gap[n:]
	}
	return units
}
