package dictionary

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
)

// LoadCEDICT reads a CC-CEDICT text file.
func LoadCEDICT(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCEDICT(f)
}

// ParseCEDICT parses CC-CEDICT lines of the form
//
//	Traditional Simplified [pin1 yin1] /gloss/gloss/
//
// Comment lines start with '#'. Entries use the simplified form as lemma and
// are also reachable through the traditional form.
func ParseCEDICT(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		e, err := parseCEDICTLine(text)
		if err != nil {
			return nil, fmt.Errorf("cedict: line %d: %w", line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cedict: %w", err)
	}
	return out, nil
}

func parseCEDICTLine(line string) (Entry, error) {
	open := strings.IndexByte(line, '[')
	closing := strings.IndexByte(line, ']')
	if open < 0 || closing < open {
		return Entry{}, fmt.Errorf("missing pinyin brackets")
	}
	heads := strings.Fields(line[:open])
	if len(heads) != 2 {
		return Entry{}, fmt.Errorf("expected traditional and simplified headwords")
	}
	trad, simp := heads[0], heads[1]
	pinyin := strings.TrimSpace(line[open+1 : closing])

	e := Entry{
		Seq:     cedictSeq(trad, simp, pinyin),
		Lemma:   simp,
		Forms:   appendUnique([]string{simp}, trad),
		Reading: pinyin,
	}
	if pinyin != "" {
		e.Readings = []string{pinyin}
	}
	for _, g := range strings.Split(line[closing+1:], "/") {
		g = strings.TrimSpace(g)
		if g != "" {
			e.Senses = append(e.Senses, g)
		}
	}
	return e, nil
}

// cedictSeq derives a stable identifier from the headwords and reading, since
// CC-CEDICT carries no sequence numbers and line positions shift between
// releases.
func cedictSeq(trad, simp, pinyin string) int64 {
	h := fnv.New64a()
	_, _ = io.WriteString(h, trad+"\x00"+simp+"\x00"+pinyin)
	return int64(h.Sum64() & (1<<63 - 1))
}
