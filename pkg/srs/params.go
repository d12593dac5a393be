package srs

import (
	"errors"
	"fmt"
)

const (
	// PassingQuality is the lowest quality that counts as a successful recall.
	PassingQuality = 3
	MinQuality     = 0
	MaxQuality     = 5

	DefaultInitialEase = 2.5
	DefaultMinEase     = 1.3

	// DefaultMaxInterval caps intervals at roughly a century.
	DefaultMaxInterval = 36500
	// MaxIntervalLimit is the largest cap accepted, keeping due dates
	// representable in storage.
	MaxIntervalLimit = 365000

	// DefaultHeatmapDays is the trailing window of the review heatmap.
	DefaultHeatmapDays = 30
)

var ErrInvalidParams = errors.New("invalid scheduler parameters")

// Params holds the tunable parts of the SM-2 schedule.
type Params struct {
	InitialEase float64 // ease factor of a new card
	MinEase     float64 // floor applied after every review
	MaxInterval int     // longest interval in days
}

// DefaultParams returns the classic SM-2 parameters.
func DefaultParams() Params {
	return Params{
		InitialEase: DefaultInitialEase,
		MinEase:     DefaultMinEase,
		MaxInterval: DefaultMaxInterval,
	}
}

// Validate checks that the floor is positive, new cards start above it and
// the interval cap lies within 1..MaxIntervalLimit.
func (p Params) Validate() error {
	if p.MinEase <= 0 {
		return errors.Join(ErrInvalidParams, errors.New("min ease must be positive"))
	}
	if p.InitialEase < p.MinEase {
		return errors.Join(ErrInvalidParams, errors.New("initial ease must not be below min ease"))
	}
	if p.MaxInterval < 1 || p.MaxInterval > MaxIntervalLimit {
		return errors.Join(ErrInvalidParams, fmt.Errorf("max interval must be between 1 and %d days", MaxIntervalLimit))
	}
	return nil
}
