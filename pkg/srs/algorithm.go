// Package srs implements SM-2 spaced-repetition scheduling as pure functions
// over a card's scheduling state.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// State is the scheduling state of one card.
type State struct {
	Repetition     int
	Interval       int // days
	EaseFactor     float64
	DueAt          time.Time
	LastReviewedAt *time.Time
	Lapses         int
}

// Scheduler applies reviews with a fixed set of parameters. The zero value
// is not usable; use NewScheduler.
type Scheduler struct {
	params Params
}

// NewScheduler validates p and returns a scheduler using it.
func NewScheduler(p Params) (*Scheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{params: p}, nil
}

var defaultScheduler = &Scheduler{params: DefaultParams()}

// Params returns the scheduler parameters.
func (s *Scheduler) Params() Params { return s.params }

// NewState returns the state of a card created at now: never reviewed and
// immediately due.
func (s *Scheduler) NewState(now time.Time) State {
	return State{EaseFactor: s.params.InitialEase, DueAt: now}
}

// NewState returns a fresh state with the default parameters.
func NewState(now time.Time) State {
	return defaultScheduler.NewState(now)
}

// ValidateQuality rejects qualities outside 0..5.
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}
	return nil
}

// ApplyReview returns the state that follows a review graded quality at now.
// The input state is never modified; an invalid quality returns it unchanged
// alongside ErrInvalidQuality.
func (s *Scheduler) ApplyReview(state State, quality int, now time.Time) (State, error) {
	if err := ValidateQuality(quality); err != nil {
		return state, err
	}

	next := state
	if quality < PassingQuality {
		next.Repetition = 0
		next.Interval = 1
		next.Lapses++
	} else {
		next.Repetition++
		next.Interval = nextInterval(next.Repetition, state.Interval, state.EaseFactor, s.params.MaxInterval)
	}
	next.EaseFactor = nextEase(state.EaseFactor, quality, s.params.MinEase)
	next.DueAt = now.AddDate(0, 0, next.Interval)
	reviewed := now
	next.LastReviewedAt = &reviewed
	return next, nil
}

// ApplyReview applies a review with the default parameters.
func ApplyReview(state State, quality int, now time.Time) (State, error) {
	return defaultScheduler.ApplyReview(state, quality, now)
}

// nextInterval is the SM-2 interval for a successful recall. Later
// repetitions grow the previous interval by the ease factor held before this
// review, never dropping below one day or rising above maxInterval.
func nextInterval(repetition, prevInterval int, ease float64, maxInterval int) int {
	var interval float64
	switch repetition {
	case 1:
		interval = 1
	case 2:
		interval = 6
	default:
		interval = math.Round(float64(prevInterval) * ease)
	}
	switch {
	case interval < 1:
		return 1
	case interval > float64(maxInterval):
		return maxInterval
	}
	return int(interval)
}

// nextEase is the SM-2 ease update, floored at minEase.
func nextEase(ease float64, quality int, minEase float64) float64 {
	miss := float64(MaxQuality - quality)
	ease += 0.1 - miss*(0.08+miss*0.02)
	if ease < minEase {
		ease = minEase
	}
	return ease
}
