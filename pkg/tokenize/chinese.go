package tokenize

import (
	"strings"

	"github.com/go-ego/gse"
	"github.com/mozillazg/go-pinyin"
)

// ChineseTokenizer segments Chinese with gse and annotates pinyin.
type ChineseTokenizer struct {
	seg  *gse.Segmenter
	args pinyin.Args
}

// NewChinese loads the segmentation dictionary at dictPath, or the dictionary
// embedded in gse when dictPath is empty.
func NewChinese(dictPath string) (*ChineseTokenizer, error) {
	seg := new(gse.Segmenter)
	var err error
	if dictPath != "" {
		err = seg.LoadDict(dictPath)
	} else {
		err = seg.LoadDictEmbed()
	}
	if err != nil {
		return nil, err
	}

	args := pinyin.NewArgs()
	args.Style = pinyin.Tone3
	return &ChineseTokenizer{seg: seg, args: args}, nil
}

func (c *ChineseTokenizer) Language() string { return Chinese }

// Tokenize implements Tokenizer. Chinese has no inflection, so lemmas equal
// surfaces and Reading stays empty; tone-numbered pinyin of the surface goes
// to Pronunciation.
func (c *ChineseTokenizer) Tokenize(text string) []Unit {
	if text == "" {
		return nil
	}

	segs := c.seg.Segment([]byte(text))
	pieces := make([]piece, 0, len(segs))
	for _, s := range segs {
		start, end := s.Start(), s.End()
		if start < 0 || end > len(text) || end <= start {
			continue
		}
		surface := text[start:end]
		pieces = append(pieces, piece{
			start:   start,
			end:     end,
			surface: surface,
			lemma:   surface,
			pos:     s.Token().Pos(),
			pron:    strings.Join(pinyin.LazyPinyin(surface, c.args), " "),
		})
	}

	units := align(text, pieces)
	markBoundaries(units, chineseTerminals)
	return units
}
