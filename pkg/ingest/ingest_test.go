package ingest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/db"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func setupDB(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.InitDB(context.Background(), conn))
	return conn
}

func newList(t testing.TB, conn *sql.DB) uuid.UUID {
	t.Helper()
	l := db.List{ID: uuid.New(), Title: "reader", Lang: "ja", CreatedAt: now}
	require.NoError(t, db.CreateList(context.Background(), conn, l))
	return l.ID
}

// wordAnalyzer treats every whitespace-separated field as a noun. Fields
// prefixed with "~" are particles.
type wordAnalyzer struct {
	delay time.Duration
	fail  string
}

func (a wordAnalyzer) AnalyzeFile(data []byte, filename, lang string) (*analysis.Result, error) {
	if filename == a.fail {
		return nil, &analysis.DecodeError{Filename: filename, Err: errors.New("binary")}
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	text := string(data)
	res := &analysis.Result{Language: lang, RawText: text}
	for _, f := range strings.Fields(text) {
		pos := "名詞"
		if strings.HasPrefix(f, "~") {
			f, pos = strings.TrimPrefix(f, "~"), "助詞"
		}
		res.Candidates = append(res.Candidates, analysis.Candidate{
			Token:   analysis.Token{Text: f, Lemma: f, Reading: "よみ", POS: pos},
			Context: filename + ": " + text,
		})
	}
	return res, nil
}

func newTestIngester(conn *sql.DB, a Analyzer) *Ingester {
	ig := NewIngester(conn, a)
	ig.Now = func() time.Time { return now }
	ig.BatchSize = 2
	return ig
}

func termsOf(t *testing.T, conn *sql.DB, listID uuid.UUID) map[string]db.Card {
	t.Helper()
	cards, err := db.GetCards(context.Background(), conn, db.CardFilter{ListID: &listID})
	require.NoError(t, err)
	out := make(map[string]db.Card, len(cards))
	for _, c := range cards {
		out[c.Term] = c
	}
	return out
}

func TestIngest(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)

	docs := []Document{
		{Name: "a.txt", Data: []byte("犬 猫 ~は")},
		{Name: "b.txt", Data: []byte("猫 鳥")},
		{Name: "c.txt", Data: []byte("魚 犬")},
	}

	var progress []int
	var mu sync.Mutex
	ig := newTestIngester(conn, wordAnalyzer{})
	ig.OnProgress = func(cur, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(docs), total)
		progress = append(progress, cur)
	}

	n, err := ig.Ingest(context.Background(), listID, "ja", docs)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{1, 2, 3}, progress)

	cards := termsOf(t, conn, listID)
	require.Len(t, cards, 5)
	// The first document to mention a word provides its context.
	assert.Equal(t, "a.txt: 犬 猫 ~は", cards["猫"].Context)
	assert.Equal(t, "b.txt: 猫 鳥", cards["鳥"].Context)
	assert.True(t, cards["犬"].DueAt.Equal(now))
	assert.Equal(t, 2.5, cards["犬"].EaseFactor)
}

func TestIngest_CountsOnlyCommittedCards(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)
	_, err := conn.Exec(`CREATE TRIGGER reject_poison BEFORE INSERT ON cards
		WHEN NEW.term = 'poison' BEGIN SELECT RAISE(ABORT, 'poison card'); END`)
	require.NoError(t, err)

	// One document is one write, so its cards share a single transaction.
	docs := []Document{{Name: "a.txt", Data: []byte("犬 猫 poison 鳥")}}
	ig := newTestIngester(conn, wordAnalyzer{})

	n, err := ig.Ingest(context.Background(), listID, "ja", docs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poison")
	assert.Zero(t, n, "the failed batch rolled back every card")
	assert.Empty(t, termsOf(t, conn, listID))
}

func TestIngest_OrderIndependentOfTiming(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)

	var docs []Document
	for i := 0; i < 20; i++ {
		docs = append(docs, Document{Name: string(rune('a'+i)) + ".txt", Data: []byte("共通")})
	}

	ig := newTestIngester(conn, wordAnalyzer{delay: time.Millisecond})
	ig.Workers = 8
	n, err := ig.Ingest(context.Background(), listID, "ja", docs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "a.txt: 共通", termsOf(t, conn, listID)["共通"].Context)
}

func TestIngest_SkipsExistingCards(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)
	ig := newTestIngester(conn, wordAnalyzer{})

	_, err := ig.Ingest(context.Background(), listID, "ja", []Document{{Name: "a.txt", Data: []byte("犬 猫")}})
	require.NoError(t, err)

	n, err := ig.Ingest(context.Background(), listID, "ja", []Document{{Name: "b.txt", Data: []byte("猫 鳥")}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, termsOf(t, conn, listID), 3)
}

func TestIngest_ContentOnly(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)
	ig := newTestIngester(conn, wordAnalyzer{})
	ig.ContentOnly = true

	n, err := ig.Ingest(context.Background(), listID, "ja", []Document{{Name: "a.txt", Data: []byte("犬 ~は ~が")}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, termsOf(t, conn, listID), "犬")
}

func TestIngest_AnalyzeError(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)
	ig := newTestIngester(conn, wordAnalyzer{fail: "bad.bin"})

	docs := []Document{
		{Name: "a.txt", Data: []byte("犬")},
		{Name: "bad.bin", Data: []byte{0, 1, 2}},
		{Name: "c.txt", Data: []byte("猫")},
	}
	_, err := ig.Ingest(context.Background(), listID, "ja", docs)
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrDecode)
	assert.NotContains(t, termsOf(t, conn, listID), "猫")
}

func TestIngest_UnknownList(t *testing.T) {
	conn := setupDB(t)
	ig := newTestIngester(conn, wordAnalyzer{})

	_, err := ig.Ingest(context.Background(), uuid.New(), "ja", []Document{{Name: "a.txt", Data: []byte("犬")}})
	assert.ErrorIs(t, err, db.ErrListNotFound)
}

func TestIngestContextCancel(t *testing.T) {
	conn := setupDB(t)
	listID := newList(t, conn)

	docs := make([]Document, 100)
	for i := range docs {
		docs[i] = Document{Name: "doc.txt", Data: []byte("犬")}
	}
	ig := newTestIngester(conn, wordAnalyzer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := ig.Ingest(ctx, listID, "ja", docs)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeAll(t *testing.T) {
	docs := []Document{
		{Name: "a.txt", Data: []byte("犬")},
		{Name: "b.txt", Data: []byte("猫 鳥")},
		{Name: "c.txt", Data: []byte("")},
	}
	results, err := AnalyzeAll(context.Background(), wordAnalyzer{delay: time.Millisecond}, "ja", docs, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "猫 鳥", results[1].RawText)
	assert.Empty(t, results[2].Candidates)

	_, err = AnalyzeAll(context.Background(), wordAnalyzer{fail: "b.txt"}, "ja", docs, 2)
	assert.ErrorIs(t, err, analysis.ErrDecode)
}
