package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pierrefittel/okura/pkg/srs"
)

var base = time.Date(2026, 4, 1, 8, 30, 0, 123456789, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitDB(context.Background(), conn))
	return conn
}

func newList(t *testing.T, conn DBExecutor) List {
	t.Helper()
	l := List{ID: uuid.New(), Title: "日本語", Lang: "ja", CreatedAt: base}
	require.NoError(t, CreateList(context.Background(), conn, l))
	return l
}

func newCard(listID uuid.UUID, term string, due time.Time) Card {
	st := srs.NewState(base)
	st.DueAt = due
	seq := int64(1577980)
	return Card{
		ID:          uuid.New(),
		ListID:      listID,
		Term:        term,
		Reading:     "いぬ",
		POS:         "名詞",
		EntrySeq:    &seq,
		Definitions: []string{"dog", "snoop"},
		Context:     "犬が好き。",
		CreatedAt:   base,
		State:       st,
	}
}

func TestLists(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	l := newList(t, conn)
	got, err := GetList(ctx, conn, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l, got)

	lists, err := GetLists(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	_, err = GetList(ctx, conn, uuid.New())
	assert.ErrorIs(t, err, ErrListNotFound)

	assert.Error(t, CreateList(ctx, conn, List{ID: uuid.New(), Title: "  "}))
}

func TestCardRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	l := newList(t, conn)

	c := newCard(l.ID, "犬", base)
	require.NoError(t, InsertCard(ctx, conn, c))

	got, err := GetCard(ctx, conn, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	reviewed := base.Add(time.Hour)
	st := srs.State{Repetition: 2, Interval: 6, EaseFactor: 2.36, DueAt: reviewed.AddDate(0, 0, 6), LastReviewedAt: &reviewed, Lapses: 1}
	require.NoError(t, UpdateCardState(ctx, conn, c.ID, st))

	got, err = GetCard(ctx, conn, c.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got.State, "scheduling state round-trips exactly")

	far := base.AddDate(0, 0, 365000).Add(123 * time.Nanosecond)
	st.DueAt = far
	require.NoError(t, UpdateCardState(ctx, conn, c.ID, st))
	got, err = GetCard(ctx, conn, c.ID)
	require.NoError(t, err)
	assert.Equal(t, far, got.DueAt, "due dates past 2262 keep their value")

	_, err = GetCard(ctx, conn, uuid.New())
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.ErrorIs(t, UpdateCardState(ctx, conn, uuid.New(), st), ErrCardNotFound)
}

func TestInsertCard_Validation(t *testing.T) {
	conn := setupTestDB(t)
	l := newList(t, conn)

	c := newCard(l.ID, " ", base)
	assert.ErrorIs(t, InsertCard(context.Background(), conn, c), ErrInvalidCard)

	c = newCard(l.ID, "猫", base)
	c.EntrySeq = nil
	c.Definitions = nil
	require.NoError(t, InsertCard(context.Background(), conn, c))
	got, err := GetCard(context.Background(), conn, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EntrySeq)
	assert.Empty(t, got.Definitions)
}

func TestGetCards_Filters(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	a := newList(t, conn)
	b := newList(t, conn)

	c1 := newCard(a.ID, "一", base.Add(-time.Hour))
	c2 := newCard(b.ID, "二", base)
	c3 := newCard(a.ID, "三", base.Add(time.Hour))
	for _, c := range []Card{c3, c2, c1} {
		require.NoError(t, InsertCard(ctx, conn, c))
	}

	all, err := GetCards(ctx, conn, CardFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"一", "二", "三"}, []string{all[0].Term, all[1].Term, all[2].Term})

	now := base
	due, err := GetCards(ctx, conn, CardFilter{DueBefore: &now})
	require.NoError(t, err)
	assert.Len(t, due, 2)

	inA, err := GetCards(ctx, conn, CardFilter{ListID: &a.ID, DueBefore: &now})
	require.NoError(t, err)
	require.Len(t, inA, 1)
	assert.Equal(t, c1.ID, inA[0].ID)
}

func TestDeleteCard_KeepsReviews(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	l := newList(t, conn)
	c := newCard(l.ID, "犬", base)
	require.NoError(t, InsertCard(ctx, conn, c))
	require.NoError(t, InsertReview(ctx, conn, Review{CardID: c.ID, Quality: 4, ReviewedAt: base}))

	require.NoError(t, DeleteCard(ctx, conn, c.ID))
	assert.ErrorIs(t, DeleteCard(ctx, conn, c.ID), ErrCardNotFound)

	times, err := GetReviewTimes(ctx, conn, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{base}, times)
}

func TestCountCards(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	l := newList(t, conn)

	fresh := newCard(l.ID, "一", base)
	later := newCard(l.ID, "二", base.AddDate(0, 0, 3))
	reviewed := base
	later.LastReviewedAt = &reviewed
	require.NoError(t, InsertCard(ctx, conn, fresh))
	require.NoError(t, InsertCard(ctx, conn, later))

	counts, err := CountCards(ctx, conn, base.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, CardCounts{Total: 2, Learned: 1, Due: 1}, counts)

	empty := setupTestDB(t)
	counts, err = CountCards(ctx, empty, base)
	require.NoError(t, err)
	assert.Zero(t, counts)
}

func TestReviewTransactionsSerialize(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "okura.db"))
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()
	require.NoError(t, InitDB(ctx, conn))

	l := newList(t, conn)
	c := newCard(l.ID, "犬", base)
	require.NoError(t, InsertCard(ctx, conn, c))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := conn.BeginTx(ctx, nil)
			if err != nil {
				errs <- err
				return
			}
			defer tx.Rollback()
			cur, err := GetCard(ctx, tx, c.ID)
			if err != nil {
				errs <- err
				return
			}
			next, err := srs.ApplyReview(cur.State, 5, base)
			if err != nil {
				errs <- err
				return
			}
			if err := UpdateCardState(ctx, tx, c.ID, next); err != nil {
				errs <- err
				return
			}
			errs <- tx.Commit()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := GetCard(ctx, conn, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.Repetition, "no lost updates")
}
