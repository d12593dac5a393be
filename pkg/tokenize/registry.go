package tokenize

import (
	"sort"
	"strings"
)

// Canonical language codes.
const (
	Japanese = "ja"
	Chinese  = "zh"
)

var aliases = map[string]string{
	"ja":    Japanese,
	"jp":    Japanese,
	"jpn":   Japanese,
	"ja-jp": Japanese,
	"zh":    Chinese,
	"cn":    Chinese,
	"zho":   Chinese,
	"chi":   Chinese,
	"zh-cn": Chinese,
}

// Canonical maps a language code or alias to its canonical code. Unknown
// codes are returned lowercased.
func Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if c, ok := aliases[code]; ok {
		return c
	}
	return code
}

// Registry resolves language codes to tokenizers.
type Registry struct {
	byLang map[string]Tokenizer
}

func NewRegistry(tokenizers ...Tokenizer) *Registry {
	r := &Registry{byLang: make(map[string]Tokenizer, len(tokenizers))}
	for _, t := range tokenizers {
		r.Register(t)
	}
	return r
}

// Register adds t under its canonical language, replacing any previous one.
// It must not be called concurrently with Lookup.
func (r *Registry) Register(t Tokenizer) {
	r.byLang[Canonical(t.Language())] = t
}

func (r *Registry) Lookup(code string) (Tokenizer, bool) {
	t, ok := r.byLang[Canonical(code)]
	return t, ok
}

// Languages lists the registered canonical codes in sorted order.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.byLang))
	for l := range r.byLang {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
