// Package interaction implements the per-user, per-post reaction toggle.
//
// A user holds at most one direction on a post. Selecting the current
// direction clears it; selecting the other direction flips it. A flip moves
// one count from the old counter to the new one in the same update.
package interaction

import (
	"errors"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// ErrInvalidDirection is returned when a selection is not positive or negative
var ErrInvalidDirection = errors.New("direction must be positive or negative")

// Change is the outcome of one selection
type Change struct {
	From          models.Direction
	To            models.Direction
	PositiveDelta int
	NegativeDelta int
}

// Transition applies select(selected) to current
func Transition(current, selected models.Direction) (Change, error) {
	if selected != models.DirectionPositive && selected != models.DirectionNegative {
		return Change{}, ErrInvalidDirection
	}

	next := selected
	if current == selected {
		next = models.DirectionNone
	}

	return Change{
		From:          current,
		To:            next,
		PositiveDelta: counterValue(next, models.DirectionPositive) - counterValue(current, models.DirectionPositive),
		NegativeDelta: counterValue(next, models.DirectionNegative) - counterValue(current, models.DirectionNegative),
	}, nil
}

func counterValue(state, counter models.Direction) int {
	if state == counter {
		return 1
	}
	return 0
}

// Counts is a post's pair of counters
type Counts struct {
	Positive int
	Negative int
}

// Apply returns the counters after change, never going below zero
func (c Counts) Apply(change Change) Counts {
	c.Positive += change.PositiveDelta
	c.Negative += change.NegativeDelta
	if c.Positive < 0 {
		c.Positive = 0
	}
	if c.Negative < 0 {
		c.Negative = 0
	}
	return c
}
