package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/pierrefittel/okura/pkg/srs"
)

// List groups cards.
type List struct {
	ID        uuid.UUID
	Title     string
	Lang      string
	CreatedAt time.Time
}

// Card is a vocabulary item under study. Definitions and Context are
// snapshots taken when the card was created.
type Card struct {
	ID          uuid.UUID
	ListID      uuid.UUID
	Term        string
	Reading     string
	POS         string
	EntrySeq    *int64
	Definitions []string
	Context     string
	CreatedAt   time.Time
	srs.State
}

func (c Card) CardID() uuid.UUID      { return c.ID }
func (c Card) OwnerListID() uuid.UUID { return c.ListID }
func (c Card) Created() time.Time     { return c.CreatedAt }
func (c Card) Scheduling() srs.State  { return c.State }

// NewCard is the user-supplied part of a card.
type NewCard struct {
	Term        string
	Reading     string
	POS         string
	EntrySeq    *int64
	Definitions []string
	Context     string
}

// Review is one entry of the review log.
type Review struct {
	ID         int64
	CardID     uuid.UUID
	Quality    int
	ReviewedAt time.Time
}

// CardCounts summarizes the card table for the dashboard.
type CardCounts struct {
	Total   int
	Learned int // reviewed at least once
	Due     int
}
