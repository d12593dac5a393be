package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/srs"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrListNotFound = errors.New("list not found")
	ErrInvalidCard  = errors.New("invalid card")
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var cardColumns = []string{
	"id", "list_id", "term", "reading", "pos", "entry_seq", "definitions", "context", "created_at",
	"repetition", "interval_days", "ease_factor", "due_at", "last_reviewed_at", "lapses",
}

// Times are stored as fixed-width UTC text so they sort lexically and keep
// nanosecond precision for any year from 0000 to 9999.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// CreateList inserts a list record.
func CreateList(ctx context.Context, db DBExecutor, l List) error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("list title must be non-empty")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO lists (id, title, lang, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.Title, l.Lang, formatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

// GetList returns the list with the given id.
func GetList(ctx context.Context, db DBExecutor, id uuid.UUID) (List, error) {
	var (
		l       List
		created string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, title, lang, created_at FROM lists WHERE id = ?`, id,
	).Scan(&l.ID, &l.Title, &l.Lang, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return List{}, fmt.Errorf("%w: %s", ErrListNotFound, id)
	}
	if err != nil {
		return List{}, fmt.Errorf("get list: %w", err)
	}
	if l.CreatedAt, err = parseTime(created); err != nil {
		return List{}, err
	}
	return l, nil
}

// GetLists returns every list, oldest first.
func GetLists(ctx context.Context, db DBExecutor) ([]List, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, title, lang, created_at FROM lists ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var out []List
	for rows.Next() {
		var (
			l       List
			created string
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Lang, &created); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertCard stores a new card with its scheduling state.
func InsertCard(ctx context.Context, db DBExecutor, c Card) error {
	if strings.TrimSpace(c.Term) == "" {
		return fmt.Errorf("%w: term must be non-empty", ErrInvalidCard)
	}
	defs := c.Definitions
	if defs == nil {
		defs = []string{}
	}
	defsJSON, err := json.Marshal(defs)
	if err != nil {
		return fmt.Errorf("encode definitions: %w", err)
	}

	query, args, err := builder.Insert("cards").
		Columns(cardColumns...).
		Values(
			c.ID, c.ListID, c.Term, c.Reading, c.POS, c.EntrySeq, string(defsJSON), c.Context, formatTime(c.CreatedAt),
			c.Repetition, c.Interval, c.EaseFactor, formatTime(c.DueAt), nullableTime(c.LastReviewedAt), c.Lapses,
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetCard returns the card with the given id.
func GetCard(ctx context.Context, db DBExecutor, id uuid.UUID) (Card, error) {
	query, args, err := builder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return Card{}, err
	}
	c, err := scanCard(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Card{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	if err != nil {
		return Card{}, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// CardFilter narrows GetCards. Nil fields do not filter.
type CardFilter struct {
	ListID    *uuid.UUID
	DueBefore *time.Time // inclusive
}

// GetCards returns cards matching f ordered by due date, creation time and id.
func GetCards(ctx context.Context, db DBExecutor, f CardFilter) ([]Card, error) {
	q := builder.Select(cardColumns...).From("cards").OrderBy("due_at", "created_at", "id")
	if f.ListID != nil {
		q = q.Where(squirrel.Eq{"list_id": *f.ListID})
	}
	if f.DueBefore != nil {
		q = q.Where(squirrel.LtOrEq{"due_at": formatTime(*f.DueBefore)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCardState persists a new scheduling state for a card.
func UpdateCardState(ctx context.Context, db DBExecutor, id uuid.UUID, st srs.State) error {
	query, args, err := builder.Update("cards").
		Set("repetition", st.Repetition).
		Set("interval_days", st.Interval).
		Set("ease_factor", st.EaseFactor).
		Set("due_at", formatTime(st.DueAt)).
		Set("last_reviewed_at", nullableTime(st.LastReviewedAt)).
		Set("lapses", st.Lapses).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update card state: %w", err)
	}
	return requireRow(res, id)
}

// DeleteCard removes a card. Its review log entries are kept.
func DeleteCard(ctx context.Context, db DBExecutor, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireRow(res, id)
}

// InsertReview appends to the review log.
func InsertReview(ctx context.Context, db DBExecutor, r Review) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO reviews (card_id, quality, reviewed_at) VALUES (?, ?, ?)`,
		r.CardID, r.Quality, formatTime(r.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetReviewTimes returns the time of every review at or after since.
func GetReviewTimes(ctx context.Context, db DBExecutor, since time.Time) ([]time.Time, error) {
	query, args, err := builder.Select("reviewed_at").From("reviews").
		Where(squirrel.GtOrEq{"reviewed_at": formatTime(since)}).
		OrderBy("reviewed_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountCards counts all cards, the ones reviewed at least once, and the ones
// due strictly before dueBefore.
func CountCards(ctx context.Context, db DBExecutor, dueBefore time.Time) (CardCounts, error) {
	var c CardCounts
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN last_reviewed_at IS NOT NULL THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN due_at < ? THEN 1 ELSE 0 END), 0)
		   FROM cards`,
		formatTime(dueBefore),
	).Scan(&c.Total, &c.Learned, &c.Due)
	if err != nil {
		return CardCounts{}, fmt.Errorf("count cards: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (Card, error) {
	var (
		c            Card
		entrySeq     sql.NullInt64
		defsJSON     string
		created, due string
		lastReviewed sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.ListID, &c.Term, &c.Reading, &c.POS, &entrySeq, &defsJSON, &c.Context, &created,
		&c.Repetition, &c.Interval, &c.EaseFactor, &due, &lastReviewed, &c.Lapses,
	)
	if err != nil {
		return Card{}, err
	}
	if entrySeq.Valid {
		seq := entrySeq.Int64
		c.EntrySeq = &seq
	}
	if err := json.Unmarshal([]byte(defsJSON), &c.Definitions); err != nil {
		return Card{}, fmt.Errorf("decode definitions of card %s: %w", c.ID, err)
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return Card{}, err
	}
	if c.DueAt, err = parseTime(due); err != nil {
		return Card{}, err
	}
	if lastReviewed.Valid {
		t, err := parseTime(lastReviewed.String)
		if err != nil {
			return Card{}, err
		}
		c.LastReviewedAt = &t
	}
	return c, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func requireRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return nil
}
