package analysis

import "github.com/pierrefittel/okura/pkg/tokenize"

type triple struct {
	lemma, reading, pos string
}

// candidates keeps the first Word token of every (lemma, reading, POS)
// triple in document order, with the text of its sentence as context.
func candidates(sentences []Sentence) []Candidate {
	var out []Candidate
	seen := make(map[triple]struct{})
	for _, s := range sentences {
		for _, tok := range s.Tokens {
			if tok.Class != tokenize.Word {
				continue
			}
			key := triple{tok.Lemma, tok.Reading, tok.POS}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Candidate{Token: tok, Context: s.Text})
		}
	}
	return out
}

// ContentWords filters candidates down to nouns, verbs, adjectives and
// adverbs of lang.
func ContentWords(cands []Candidate, lang string) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if tokenize.IsContentPOS(lang, c.POS) {
			out = append(out, c)
		}
	}
	return out
}
