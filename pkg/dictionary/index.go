package dictionary

// Index answers lemma/reading lookups over a set of entries. It is immutable
// after construction and safe for concurrent use.
type Index struct {
	lang     string
	entries  []Entry
	readings [][]string // normalized readings, parallel to entries
	byForm   map[string][]int
}

// NewIndex builds an index over entries for the given language. Entries are
// indexed under every form in the order given, so the first entry indexed
// for a form wins lookups that carry no reading. Levels, when non-nil, are
// attached to entries that do not already carry one.
func NewIndex(lang string, entries []Entry, levels *Levels) *Index {
	idx := &Index{
		lang:     lang,
		entries:  make([]Entry, len(entries)),
		readings: make([][]string, len(entries)),
		byForm:   make(map[string][]int, len(entries)),
	}
	for i, e := range entries {
		if e.Level == 0 && levels != nil {
			e.Level = levels.For(e)
		}
		idx.entries[i] = e

		norm := make([]string, 0, len(e.Readings)+1)
		for _, r := range e.Readings {
			norm = appendUnique(norm, NormalizeReading(lang, r))
		}
		norm = appendUnique(norm, NormalizeReading(lang, e.Reading))
		idx.readings[i] = norm

		forms := e.Forms
		if len(forms) == 0 {
			forms = []string{e.Lemma}
		}
		for _, f := range forms {
			if f == "" {
				continue
			}
			idx.byForm[f] = append(idx.byForm[f], i)
		}
	}
	return idx
}

// Language returns the language code the index was built for.
func (idx *Index) Language() string { return idx.lang }

// Len reports the number of indexed entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Lookup finds the entry whose headword equals lemma. With a non-empty
// reading only entries carrying that reading (after normalization) match.
func (idx *Index) Lookup(lemma, reading string) (Entry, bool) {
	ids := idx.byForm[lemma]
	if len(ids) == 0 {
		return Entry{}, false
	}
	if reading == "" {
		return idx.entries[ids[0]], true
	}

	want := NormalizeReading(idx.lang, reading)
	for _, id := range ids {
		for _, r := range idx.readings[id] {
			if r == want {
				return idx.entries[id], true
			}
		}
	}
	return Entry{}, false
}
