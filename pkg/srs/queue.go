package srs

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Schedulable is a card as seen by the due queue.
type Schedulable interface {
	CardID() uuid.UUID
	OwnerListID() uuid.UUID
	Created() time.Time
	Scheduling() State
}

// SelectDue returns the cards due at or before now, optionally restricted to
// one list, ordered by due date. Ties fall back to creation time, then ID.
func SelectDue[C Schedulable](cards []C, listID *uuid.UUID, now time.Time) []C {
	due := make([]C, 0, len(cards))
	for _, c := range cards {
		if listID != nil && c.OwnerListID() != *listID {
			continue
		}
		if c.Scheduling().DueAt.After(now) {
			continue
		}
		due = append(due, c)
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if da, db := a.Scheduling().DueAt, b.Scheduling().DueAt; !da.Equal(db) {
			return da.Before(db)
		}
		if ca, cb := a.Created(), b.Created(); !ca.Equal(cb) {
			return ca.Before(cb)
		}
		return a.CardID().String() < b.CardID().String()
	})
	return due
}
