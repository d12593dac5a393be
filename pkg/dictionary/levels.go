package dictionary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Levels maps headwords to proficiency levels (JLPT N-level, HSK band).
type Levels struct {
	lang      string
	byReading map[string]int // lemma + "\x00" + normalized reading
	byLemma   map[string]int
}

// LoadLevels reads a level list from a CSV file with rows of
// lemma,reading,level. The reading column may be empty. A header row is
// skipped when its level column is not numeric.
func LoadLevels(lang, path string) (*Levels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLevels(lang, f)
}

// ParseLevels parses level rows from r. See LoadLevels for the format.
func ParseLevels(lang string, r io.Reader) (*Levels, error) {
	lv := &Levels{
		lang:      lang,
		byReading: make(map[string]int),
		byLemma:   make(map[string]int),
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("levels: %w", err)
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("levels: line %d: expected lemma,reading,level", line)
		}
		level, ok := parseLevel(rec[2])
		if !ok {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("levels: line %d: invalid level %q", line, rec[2])
		}
		lv.add(strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), level)
	}
	return lv, nil
}

func (lv *Levels) add(lemma, reading string, level int) {
	if lemma == "" {
		return
	}
	if reading != "" {
		key := lemma + "\x00" + NormalizeReading(lv.lang, reading)
		if _, ok := lv.byReading[key]; !ok {
			lv.byReading[key] = level
		}
	}
	if _, ok := lv.byLemma[lemma]; !ok {
		lv.byLemma[lemma] = level
	}
}

// Len reports how many distinct headwords carry a level.
func (lv *Levels) Len() int { return len(lv.byLemma) }

// Level returns the level for lemma, preferring a match on reading.
func (lv *Levels) Level(lemma, reading string) int {
	if reading != "" {
		if l, ok := lv.byReading[lemma+"\x00"+NormalizeReading(lv.lang, reading)]; ok {
			return l
		}
	}
	return lv.byLemma[lemma]
}

// For returns the level of the first headword of e found in the table.
func (lv *Levels) For(e Entry) int {
	forms := e.Forms
	if len(forms) == 0 {
		forms = []string{e.Lemma}
	}
	for _, f := range forms {
		for _, r := range e.Readings {
			if l, ok := lv.byReading[f+"\x00"+NormalizeReading(lv.lang, r)]; ok {
				return l
			}
		}
	}
	for _, f := range forms {
		if l, ok := lv.byLemma[f]; ok {
			return l
		}
	}
	return 0
}

// parseLevel accepts plain integers and prefixed forms such as N3 or HSK4.
func parseLevel(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(strings.ToUpper(s), "NHSK ")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
