package tokenize

import (
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/pierrefittel/okura/pkg/dictionary"
)

// JapaneseTokenizer segments Japanese with kagome and the IPA dictionary.
type JapaneseTokenizer struct {
	t *tokenizer.Tokenizer
}

func NewJapanese() (*JapaneseTokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &JapaneseTokenizer{t: t}, nil
}

func (j *JapaneseTokenizer) Language() string { return Japanese }

// Tokenize implements Tokenizer. Readings are given in hiragana. Reading is
// only set when the surface is already the dictionary form, since IPA
// readings describe the surface; Pronunciation always describes the surface.
func (j *JapaneseTokenizer) Tokenize(text string) []Unit {
	if text == "" {
		return nil
	}

	tokens := j.t.Tokenize(text)
	pieces := make([]piece, 0, len(tokens))
	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}

		// IPA features:
		// 0: POS, 1-3: sub-POS, 4: conjugation type, 5: conjugation form,
		// 6: base form, 7: reading, 8: pronunciation
		features := token.Features()
		p := piece{
			start:   token.Position,
			end:     token.Position + len(token.Surface),
			surface: token.Surface,
		}
		if len(features) > 0 {
			p.pos = features[0]
		}
		if len(features) > 6 && features[6] != "*" {
			p.lemma = features[6]
		}
		if len(features) > 7 && features[7] != "*" && (p.lemma == "" || p.lemma == token.Surface) {
			p.reading = dictionary.ToHiragana(features[7])
		}
		switch {
		case len(features) > 8 && features[8] != "*":
			p.pron = dictionary.ToHiragana(features[8])
		case len(features) > 7 && features[7] != "*":
			p.pron = dictionary.ToHiragana(features[7])
		}
		pieces = append(pieces, p)
	}

	units := align(text, pieces)
	markBoundaries(units, japaneseTerminals)
	return units
}
