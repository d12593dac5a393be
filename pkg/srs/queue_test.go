package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type card struct {
	id, list uuid.UUID
	created  time.Time
	state    State
}

func (c card) CardID() uuid.UUID      { return c.id }
func (c card) OwnerListID() uuid.UUID { return c.list }
func (c card) Created() time.Time     { return c.created }
func (c card) Scheduling() State      { return c.state }

func ids(cards []card) []uuid.UUID {
	out := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		out[i] = c.id
	}
	return out
}

func TestSelectDue(t *testing.T) {
	listA, listB := uuid.New(), uuid.New()
	now := t0

	mk := func(list uuid.UUID, due, created time.Time) card {
		return card{id: uuid.New(), list: list, created: created, state: State{DueAt: due, EaseFactor: 2.5}}
	}
	early := mk(listA, now.Add(-48*time.Hour), now.Add(-72*time.Hour))
	exact := mk(listB, now, now.Add(-24*time.Hour))
	tieOld := mk(listA, now.Add(-time.Hour), now.Add(-10*time.Hour))
	tieNew := mk(listB, now.Add(-time.Hour), now.Add(-5*time.Hour))
	future := mk(listA, now.Add(time.Minute), now.Add(-time.Hour))

	cards := []card{future, tieNew, exact, tieOld, early}

	got := SelectDue(cards, nil, now)
	assert.Equal(t, ids([]card{early, tieOld, tieNew, exact}), ids(got))

	got = SelectDue(cards, &listA, now)
	assert.Equal(t, ids([]card{early, tieOld}), ids(got))

	assert.Empty(t, SelectDue([]card{future}, nil, now))
	assert.Empty(t, SelectDue[card](nil, nil, now))
}

func TestSelectDue_IDTieBreak(t *testing.T) {
	a := card{id: uuid.MustParse("00000000-0000-0000-0000-000000000001"), created: t0, state: State{DueAt: t0}}
	b := card{id: uuid.MustParse("00000000-0000-0000-0000-000000000002"), created: t0, state: State{DueAt: t0}}
	got := SelectDue([]card{b, a}, nil, t0)
	assert.Equal(t, ids([]card{a, b}), ids(got))
}
