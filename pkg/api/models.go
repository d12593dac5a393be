package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/study"
	"github.com/pierrefittel/okura/pkg/tokenize"
)

type analyzeRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang" validate:"required"`
}

type candidatesRequest struct {
	Text        string `json:"text"`
	Lang        string `json:"lang"`
	ContentOnly bool   `json:"content_only"`
}

type createListRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Lang  string `json:"lang"  validate:"required"`
}

type newCardRequest struct {
	Term        string   `json:"term" validate:"required"`
	Reading     string   `json:"reading"`
	POS         string   `json:"pos"`
	EntSeq      *int64   `json:"ent_seq"`
	Definitions []string `json:"definitions"`
	Context     string   `json:"context"`
}

type reviewRequest struct {
	Quality *int `json:"quality" validate:"required"`
}

// TokenResponse is one analyzed token. The level is reported as jlpt for
// Japanese and hsk for Chinese.
type TokenResponse struct {
	Text        string   `json:"text"`
	Lemma       string   `json:"lemma"`
	Reading     string   `json:"reading"`
	POS         string   `json:"pos"`
	JLPT        *int     `json:"jlpt,omitempty"`
	HSK         *int     `json:"hsk,omitempty"`
	EntSeq      *int64   `json:"ent_seq,omitempty"`
	Definitions []string `json:"definitions,omitempty"`
}

// AnalyzeResponse holds sentences as arrays of tokens.
type AnalyzeResponse struct {
	Sentences [][]TokenResponse `json:"sentences"`
	RawText   string            `json:"raw_text"`
}

type CandidateResponse struct {
	TokenResponse
	Context string `json:"context"`
}

type CandidatesResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
}

type ListResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
}

type CardResponse struct {
	ID             uuid.UUID  `json:"id"`
	ListID         uuid.UUID  `json:"list_id"`
	Term           string     `json:"term"`
	Reading        string     `json:"reading"`
	POS            string     `json:"pos"`
	EntSeq         *int64     `json:"ent_seq,omitempty"`
	Definitions    []string   `json:"definitions"`
	Context        string     `json:"context"`
	CreatedAt      time.Time  `json:"created_at"`
	Repetition     int        `json:"repetition"`
	Interval       int        `json:"interval"`
	EaseFactor     float64    `json:"ease_factor"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	Lapses         int        `json:"lapses"`
}

type DashboardResponse struct {
	TotalCards   int            `json:"total_cards"`
	CardsLearned int            `json:"cards_learned"`
	DueToday     int            `json:"due_today"`
	Heatmap      map[string]int `json:"heatmap"`
}

type HealthResponse struct {
	Status    string   `json:"status"`
	Languages []string `json:"languages,omitempty"`
}

func tokenToResponse(lang string, t analysis.Token) TokenResponse {
	out := TokenResponse{
		Text:        t.Text,
		Lemma:       t.Lemma,
		Reading:     t.Reading,
		POS:         t.POS,
		EntSeq:      t.EntrySeq,
		Definitions: t.Definitions,
	}
	if lang == tokenize.Chinese {
		out.HSK = t.Level
	} else {
		out.JLPT = t.Level
	}
	return out
}

// NewAnalyzeResponse converts an analysis result to its JSON shape.
func NewAnalyzeResponse(res *analysis.Result) AnalyzeResponse {
	out := AnalyzeResponse{
		Sentences: make([][]TokenResponse, 0, len(res.Sentences)),
		RawText:   res.RawText,
	}
	for _, s := range res.Sentences {
		toks := make([]TokenResponse, 0, len(s.Tokens))
		for _, t := range s.Tokens {
			toks = append(toks, tokenToResponse(res.Language, t))
		}
		out.Sentences = append(out.Sentences, toks)
	}
	return out
}

// NewCandidatesResponse converts candidates to their JSON shape.
func NewCandidatesResponse(lang string, cands []analysis.Candidate) CandidatesResponse {
	out := CandidatesResponse{Candidates: make([]CandidateResponse, 0, len(cands))}
	for _, c := range cands {
		out.Candidates = append(out.Candidates, CandidateResponse{
			TokenResponse: tokenToResponse(lang, c.Token),
			Context:       c.Context,
		})
	}
	return out
}

func listToResponse(l db.List) ListResponse {
	return ListResponse{ID: l.ID, Title: l.Title, Lang: l.Lang, CreatedAt: l.CreatedAt}
}

func cardToResponse(c db.Card) CardResponse {
	defs := c.Definitions
	if defs == nil {
		defs = []string{}
	}
	return CardResponse{
		ID:             c.ID,
		ListID:         c.ListID,
		Term:           c.Term,
		Reading:        c.Reading,
		POS:            c.POS,
		EntSeq:         c.EntrySeq,
		Definitions:    defs,
		Context:        c.Context,
		CreatedAt:      c.CreatedAt,
		Repetition:     c.Repetition,
		Interval:       c.Interval,
		EaseFactor:     c.EaseFactor,
		DueAt:          c.DueAt,
		LastReviewedAt: c.LastReviewedAt,
		Lapses:         c.Lapses,
	}
}

func cardsToResponse(cards []db.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToResponse(c))
	}
	return out
}

func dashboardToResponse(d study.Dashboard) DashboardResponse {
	heat := d.Heatmap
	if heat == nil {
		heat = map[string]int{}
	}
	return DashboardResponse{
		TotalCards:   d.TotalCards,
		CardsLearned: d.CardsLearned,
		DueToday:     d.DueToday,
		Heatmap:      heat,
	}
}

func (r newCardRequest) toNewCard() db.NewCard {
	return db.NewCard{
		Term:        r.Term,
		Reading:     r.Reading,
		POS:         r.POS,
		EntrySeq:    r.EntSeq,
		Definitions: r.Definitions,
		Context:     r.Context,
	}
}
