package interaction

import (
	"sync"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// View is what a client renders for one post
type View struct {
	Direction models.Direction
	Counts    Counts
}

// Optimistic tracks a predicted interaction state ahead of server
// confirmation. Predict applies a transition immediately; Confirm adopts the
// server's state; Reject restores the last confirmed state.
type Optimistic struct {
	mu        sync.Mutex
	confirmed View
	pending   *View
}

// NewOptimistic starts from a confirmed view
func NewOptimistic(initial View) *Optimistic {
	return &Optimistic{confirmed: initial}
}

// Current returns the pending prediction if one exists, else the confirmed view
func (o *Optimistic) Current() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		return *o.pending
	}
	return o.confirmed
}

// Pending reports whether a prediction awaits resolution
func (o *Optimistic) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending != nil
}

// Predict applies select(selected) on top of the current view
func (o *Optimistic) Predict(selected models.Direction) (View, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	base := o.confirmed
	if o.pending != nil {
		base = *o.pending
	}

	change, err := Transition(base.Direction, selected)
	if err != nil {
		return base, err
	}

	next := View{Direction: change.To, Counts: base.Counts.Apply(change)}
	o.pending = &next
	return next, nil
}

// Confirm replaces both the prediction and the confirmed view with the
// server result
func (o *Optimistic) Confirm(result models.InteractionResult) View {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.confirmed = View{
		Direction: result.Direction,
		Counts:    Counts{Positive: result.PositiveCount, Negative: result.NegativeCount},
	}
	o.pending = nil
	return o.confirmed
}

// Reject drops the prediction
func (o *Optimistic) Reject() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = nil
	return o.confirmed
}
