// Package study runs the card lifecycle on top of the store: list and card
// creation, the due queue, reviews and the dashboard.
package study

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/srs"
	"github.com/pierrefittel/okura/pkg/tokenize"
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Scheduler   *srs.Scheduler
	Location    *time.Location // calendar used for "today" and the heatmap
	HeatmapDays int
	Now         func() time.Time
}

// Service implements study operations over a SQLite connection.
type Service struct {
	log         *slog.Logger
	conn        *sql.DB
	sched       *srs.Scheduler
	loc         *time.Location
	heatmapDays int
	now         func() time.Time
}

// NewService creates a new study service.
func NewService(logger *slog.Logger, conn *sql.DB, opts Options) *Service {
	s := &Service{
		log:         logger.With("service", "study"),
		conn:        conn,
		sched:       opts.Scheduler,
		loc:         opts.Location,
		heatmapDays: opts.HeatmapDays,
		now:         opts.Now,
	}
	if s.sched == nil {
		s.sched, _ = srs.NewScheduler(srs.DefaultParams())
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.heatmapDays <= 0 {
		s.heatmapDays = srs.DefaultHeatmapDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Dashboard summarizes study progress.
type Dashboard struct {
	TotalCards   int
	CardsLearned int // reviewed at least once
	DueToday     int // due before the start of tomorrow
	Heatmap      map[string]int
}

// CreateList creates an empty card list.
func (s *Service) CreateList(ctx context.Context, title, lang string) (db.List, error) {
	l := db.List{
		ID:        uuid.New(),
		Title:     title,
		Lang:      tokenize.Canonical(lang),
		CreatedAt: s.now(),
	}
	if err := db.CreateList(ctx, s.conn, l); err != nil {
		return db.List{}, err
	}
	s.log.InfoContext(ctx, "list created", "list_id", l.ID, "lang", l.Lang)
	return l, nil
}

// Lists returns every list.
func (s *Service) Lists(ctx context.Context) ([]db.List, error) {
	return db.GetLists(ctx, s.conn)
}

// ImportCards creates cards in a list, all or nothing. New cards are due
// immediately.
func (s *Service) ImportCards(ctx context.Context, listID uuid.UUID, cards []db.NewCard) ([]db.Card, error) {
	now := s.now()
	out := make([]db.Card, 0, len(cards))
	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.GetList(ctx, tx, listID); err != nil {
			return err
		}
		for _, nc := range cards {
			c := db.Card{
				ID:          uuid.New(),
				ListID:      listID,
				Term:        nc.Term,
				Reading:     nc.Reading,
				POS:         nc.POS,
				EntrySeq:    nc.EntrySeq,
				Definitions: nc.Definitions,
				Context:     nc.Context,
				CreatedAt:   now,
				State:       s.sched.NewState(now),
			}
			if err := db.InsertCard(ctx, tx, c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "cards imported", "list_id", listID, "count", len(out))
	return out, nil
}

// DeleteCard removes a card.
func (s *Service) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return db.DeleteCard(ctx, s.conn, id)
}

// DueCards returns the cards due now, oldest due first, optionally limited
// to one list.
func (s *Service) DueCards(ctx context.Context, listID *uuid.UUID) ([]db.Card, error) {
	now := s.now()
	cards, err := db.GetCards(ctx, s.conn, db.CardFilter{ListID: listID, DueBefore: &now})
	if err != nil {
		return nil, err
	}
	return srs.SelectDue(cards, listID, now), nil
}

// SubmitReview grades a card and persists its next scheduling state along
// with a review log entry. The quality is validated before anything is read
// or written. The read-modify-write runs in one immediate transaction, so
// concurrent reviews of the same card apply one after the other.
func (s *Service) SubmitReview(ctx context.Context, cardID uuid.UUID, quality int) (db.Card, error) {
	if err := srs.ValidateQuality(quality); err != nil {
		return db.Card{}, err
	}

	now := s.now()
	var card db.Card
	err := s.runInTx(ctx, func(tx *sql.Tx) error {
		c, err := db.GetCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		next, err := s.sched.ApplyReview(c.State, quality, now)
		if err != nil {
			return err
		}
		if err := db.UpdateCardState(ctx, tx, cardID, next); err != nil {
			return err
		}
		if err := db.InsertReview(ctx, tx, db.Review{CardID: cardID, Quality: quality, ReviewedAt: now}); err != nil {
			return err
		}
		c.State = next
		card = c
		return nil
	})
	if err != nil {
		return db.Card{}, err
	}
	s.log.DebugContext(ctx, "card reviewed",
		"card_id", cardID, "quality", quality, "interval", card.Interval, "due_at", card.DueAt)
	return card, nil
}

// Dashboard computes card totals and the review heatmap.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	today := srs.DayStart(now, s.loc)

	counts, err := db.CountCards(ctx, s.conn, today.AddDate(0, 0, 1))
	if err != nil {
		return Dashboard{}, err
	}
	times, err := db.GetReviewTimes(ctx, s.conn, today.AddDate(0, 0, 1-s.heatmapDays))
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		TotalCards:   counts.Total,
		CardsLearned: counts.Learned,
		DueToday:     counts.Due,
		Heatmap:      srs.Heatmap(times, now, s.heatmapDays, s.loc),
	}, nil
}

// runInTx executes fn within a transaction, committing on success and
// rolling back on error or panic.
func (s *Service) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
