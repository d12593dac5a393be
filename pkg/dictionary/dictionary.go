package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Language codes understood by the dictionary package.
const (
	Japanese = "ja"
	Chinese  = "zh"
)

// Entry is a normalized dictionary record, independent of the source format.
type Entry struct {
	Seq      int64    // stable identifier taken from the source dictionary
	Lemma    string   // primary headword
	Forms    []string // every headword the entry can be found under, Lemma first
	Reading  string   // primary reading
	Readings []string // all readings, Reading first
	POS      []string
	Senses   []string // one definition string per sense
	Level    int      // proficiency level, 0 when unknown
}

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// LoadJMdictSimplified reads a jmdict-simplified JSON file. Both the release
// layout ({"words": [...]}) and a bare array are accepted.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapped struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapped); err == nil && len(wrapped.Words) > 0 {
		return wrapped.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// FromJMdict converts jmdict-simplified records into entries. Records whose
// id is not numeric get a sequence number derived from their position.
func FromJMdict(src []JMdictEntry) []Entry {
	out := make([]Entry, 0, len(src))
	for i, je := range src {
		if len(je.Kanji) == 0 && len(je.Kana) == 0 {
			continue
		}
		seq, err := strconv.ParseInt(je.Id, 10, 64)
		if err != nil {
			seq = int64(i + 1)
		}

		e := Entry{Seq: seq}
		for _, k := range je.Kanji {
			e.Forms = appendUnique(e.Forms, k.Text)
		}
		for _, k := range je.Kana {
			e.Forms = appendUnique(e.Forms, k.Text)
			e.Readings = appendUnique(e.Readings, k.Text)
		}
		e.Lemma = e.Forms[0]
		e.Reading = primaryReading(je.Kana)
		if e.Reading != "" && e.Readings[0] != e.Reading {
			e.Readings = moveFirst(e.Readings, e.Reading)
		}

		for _, s := range je.Sense {
			for _, p := range s.PartOfSpeech {
				e.POS = appendUnique(e.POS, p)
			}
			gloss := joinGloss(s.Gloss)
			if gloss != "" {
				e.Senses = append(e.Senses, gloss)
			}
		}
		out = append(out, e)
	}
	return out
}

// LoadJMdict reads a jmdict-simplified file and converts it to entries.
func LoadJMdict(path string) ([]Entry, error) {
	raw, err := LoadJMdictSimplified(path)
	if err != nil {
		return nil, err
	}
	return FromJMdict(raw), nil
}

func primaryReading(kana []JMdictElement) string {
	for _, k := range kana {
		if k.Common {
			return k.Text
		}
	}
	if len(kana) > 0 {
		return kana[0].Text
	}
	return ""
}

func joinGloss(gs []JMdictGloss) string {
	var b []byte
	for _, g := range gs {
		if g.Lang != "" && g.Lang != "eng" {
			continue
		}
		if len(b) > 0 {
			b = append(b, "; "...)
		}
		b = append(b, g.Text...)
	}
	return string(b)
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func moveFirst(list []string, s string) []string {
	out := make([]string, 0, len(list))
	out = append(out, s)
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
