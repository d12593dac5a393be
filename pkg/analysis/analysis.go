// Package analysis turns raw text into dictionary-annotated sentences and a
// deduplicated list of vocabulary candidates.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pierrefittel/okura/pkg/dictionary"
	"github.com/pierrefittel/okura/pkg/tokenize"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrDecode              = errors.New("cannot decode file")
)

// DecodeError reports an upload that could not be turned into text.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Dictionary is the lookup side of a dictionary index.
type Dictionary interface {
	Lookup(lemma, reading string) (dictionary.Entry, bool)
}

// Decoder converts uploaded bytes to text.
type Decoder interface {
	Decode(data []byte, filename string) (string, error)
}

// Token is one analyzed unit of a sentence.
type Token struct {
	Text        string
	Lemma       string
	Reading     string
	POS         string
	Class       tokenize.Class
	Level       *int
	EntrySeq    *int64
	Definitions []string
	Index       int // position within the sentence
}

// Sentence is a run of tokens ending at a sentence boundary. Text is the
// exact concatenation of the token surfaces.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Candidate is the first occurrence of a (lemma, reading, POS) triple.
type Candidate struct {
	Token
	Context string
}

// Result is the outcome of analyzing one text.
type Result struct {
	Language   string
	RawText    string
	Sentences  []Sentence
	Candidates []Candidate
}

// Option configures an Engine.
type Option func(*Engine)

// WithDictionary attaches a dictionary to a language.
func WithDictionary(lang string, d Dictionary) Option {
	return func(e *Engine) { e.dicts[tokenize.Canonical(lang)] = d }
}

// WithDecoder replaces the upload decoder.
func WithDecoder(d Decoder) Option {
	return func(e *Engine) { e.decoder = d }
}

// Engine analyzes text. It holds no mutable state after construction and is
// safe for concurrent use.
type Engine struct {
	tokenizers *tokenize.Registry
	dicts      map[string]Dictionary
	decoder    Decoder
}

func NewEngine(tokenizers *tokenize.Registry, opts ...Option) *Engine {
	e := &Engine{
		tokenizers: tokenizers,
		dicts:      make(map[string]Dictionary),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether lang resolves to a registered tokenizer.
func (e *Engine) Supports(lang string) bool {
	_, ok := e.tokenizers.Lookup(lang)
	return ok
}

// Analyze tokenizes text, annotates every token from the language's
// dictionary and projects the candidate list.
func (e *Engine) Analyze(text, lang string) (*Result, error) {
	tk, ok := e.tokenizers.Lookup(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	res := &Result{Language: tk.Language(), RawText: text}
	dict := e.dicts[tk.Language()]

	var (
		cur Sentence
		buf strings.Builder
	)
	for _, u := range tk.Tokenize(text) {
		tok := annotate(dict, u)
		tok.Index = len(cur.Tokens)
		cur.Tokens = append(cur.Tokens, tok)
		buf.WriteString(u.Surface)
		if u.Boundary {
			cur.Text = buf.String()
			res.Sentences = append(res.Sentences, cur)
			cur = Sentence{}
			buf.Reset()
		}
	}
	if len(cur.Tokens) > 0 {
		cur.Text = buf.String()
		res.Sentences = append(res.Sentences, cur)
	}

	res.Candidates = candidates(res.Sentences)
	return res, nil
}

// AnalyzeFile decodes an upload and analyzes the resulting text. RawText
// holds the decoded text.
func (e *Engine) AnalyzeFile(data []byte, filename, lang string) (*Result, error) {
	if !e.Supports(lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	if e.decoder == nil {
		return nil, &DecodeError{Filename: filename, Err: errors.New("no decoder configured")}
	}
	text, err := e.decoder.Decode(data, filename)
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}
	return e.Analyze(text, lang)
}

func annotate(dict Dictionary, u tokenize.Unit) Token {
	tok := Token{
		Text:    u.Surface,
		Lemma:   u.Lemma,
		Reading: u.Reading,
		POS:     u.POS,
		Class:   u.Class,
	}
	if tok.Lemma == "" {
		tok.Lemma = u.Surface
	}

	if dict != nil && u.Class == tokenize.Word {
		if entry, ok := dict.Lookup(tok.Lemma, u.Reading); ok {
			seq := entry.Seq
			tok.EntrySeq = &seq
			if entry.Level > 0 {
				level := entry.Level
				tok.Level = &level
			}
			if len(entry.Senses) > 0 {
				tok.Definitions = append([]string(nil), entry.Senses...)
			}
			if tok.Reading == "" {
				tok.Reading = entry.Reading
			}
		}
	}
	if tok.Reading == "" {
		tok.Reading = u.Pronunciation
	}
	return tok
}
