package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/auth"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/testutil"
)

func TestTransition(t *testing.T) {
	pos, neg, none := models.DirectionPositive, models.DirectionNegative, models.DirectionNone

	tests := []struct {
		name     string
		current  models.Direction
		selected models.Direction
		wantTo   models.Direction
		wantPos  int
		wantNeg  int
	}{
		{"none to positive", none, pos, pos, 1, 0},
		{"none to negative", none, neg, neg, 0, 1},
		{"positive toggles off", pos, pos, none, -1, 0},
		{"negative toggles off", neg, neg, none, 0, -1},
		{"positive flips to negative", pos, neg, neg, -1, 1},
		{"negative flips to positive", neg, pos, pos, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := Transition(tt.current, tt.selected)
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if change.To != tt.wantTo {
				t.Errorf("To = %v, want %v", change.To, tt.wantTo)
			}
			if change.PositiveDelta != tt.wantPos || change.NegativeDelta != tt.wantNeg {
				t.Errorf("deltas = (%d, %d), want (%d, %d)", change.PositiveDelta, change.NegativeDelta, tt.wantPos, tt.wantNeg)
			}
		})
	}
}

func TestTransition_InvalidSelection(t *testing.T) {
	if _, err := Transition(models.DirectionPositive, models.DirectionNone); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Transition(select none) error = %v, want ErrInvalidDirection", err)
	}
	if _, err := Transition(models.DirectionNone, models.Direction(2)); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Transition(select 2) error = %v, want ErrInvalidDirection", err)
	}
}

func TestCounts_Apply(t *testing.T) {
	c := Counts{Positive: 4, Negative: 2}

	flip, _ := Transition(models.DirectionPositive, models.DirectionNegative)
	got := c.Apply(flip)
	if got.Positive != 3 || got.Negative != 3 {
		t.Errorf("Apply(flip) = %+v, want {3 3}", got)
	}

	off, _ := Transition(models.DirectionNegative, models.DirectionNegative)
	zero := Counts{}.Apply(off)
	if zero.Negative != 0 {
		t.Errorf("Apply should clamp at zero, got %+v", zero)
	}
}

func TestOptimistic_PredictConfirm(t *testing.T) {
	o := NewOptimistic(View{Counts: Counts{Positive: 5, Negative: 1}})

	predicted, err := o.Predict(models.DirectionPositive)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if predicted.Direction != models.DirectionPositive || predicted.Counts.Positive != 6 {
		t.Errorf("Predict() = %+v, want positive with 6 upvotes", predicted)
	}
	if !o.Pending() {
		t.Error("expected a pending prediction")
	}

	confirmed := o.Confirm(models.InteractionResult{Direction: models.DirectionPositive, PositiveCount: 7, NegativeCount: 1})
	if confirmed.Counts.Positive != 7 {
		t.Errorf("Confirm() should adopt server counts, got %+v", confirmed)
	}
	if o.Pending() {
		t.Error("Confirm() should clear the prediction")
	}
}

func TestOptimistic_PredictReject(t *testing.T) {
	initial := View{Direction: models.DirectionNegative, Counts: Counts{Positive: 2, Negative: 3}}
	o := NewOptimistic(initial)

	if _, err := o.Predict(models.DirectionPositive); err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if cur := o.Current(); cur.Direction != models.DirectionPositive || cur.Counts.Positive != 3 || cur.Counts.Negative != 2 {
		t.Errorf("Current() after flip = %+v", cur)
	}

	reverted := o.Reject()
	if reverted != initial {
		t.Errorf("Reject() = %+v, want %+v", reverted, initial)
	}
	if o.Current() != initial {
		t.Errorf("Current() after Reject = %+v, want %+v", o.Current(), initial)
	}
}

func TestOptimistic_StackedPredictions(t *testing.T) {
	o := NewOptimistic(View{})

	o.Predict(models.DirectionPositive)
	v, _ := o.Predict(models.DirectionPositive)

	if v.Direction != models.DirectionNone || v.Counts.Positive != 0 {
		t.Errorf("double click should predict none with original counts, got %+v", v)
	}
}

// memoryStore mirrors the Postgres statement: one locked read-modify-write
// per (post, user).
type memoryStore struct {
	mu         sync.Mutex
	directions map[string]models.Direction
	counts     map[string]Counts
	writes     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		directions: make(map[string]models.Direction),
		counts:     make(map[string]Counts),
	}
}

func (m *memoryStore) Toggle(ctx context.Context, postID, userID string, selected models.Direction) (*models.InteractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := postID + "/" + userID
	change, err := Transition(m.directions[key], selected)
	if err != nil {
		return nil, err
	}
	m.directions[key] = change.To
	m.counts[postID] = m.counts[postID].Apply(change)
	m.writes++

	c := m.counts[postID]
	return &models.InteractionResult{PostID: postID, Direction: change.To, PositiveCount: c.Positive, NegativeCount: c.Negative}, nil
}

func (m *memoryStore) UserDirections(ctx context.Context, userID string, postIDs []string) (map[string]models.Direction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.Direction)
	for _, id := range postIDs {
		if d := m.directions[id+"/"+userID]; d != models.DirectionNone {
			out[id] = d
		}
	}
	return out, nil
}

func TestService_Toggle_RequiresUser(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testutil.NullLogger())

	_, err := svc.Toggle(context.Background(), "", "post-1", models.DirectionPositive)
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("Toggle() error = %v, want ErrNotAuthenticated", err)
	}
	if err.Error() != "Not authenticated" {
		t.Errorf("error message = %q, want %q", err.Error(), "Not authenticated")
	}
	if store.writes != 0 {
		t.Errorf("store writes = %d, want 0", store.writes)
	}
}

func TestService_Toggle_SameDirectionTwiceRestores(t *testing.T) {
	store := newMemoryStore()
	store.counts["post-1"] = Counts{Positive: 4, Negative: 1}
	svc := NewService(store, testutil.NullLogger())
	ctx := context.Background()

	first, err := svc.Toggle(ctx, "user-1", "post-1", models.DirectionPositive)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if first.PositiveCount != 5 || first.State != "positive" {
		t.Errorf("first toggle = %+v, want 5 upvotes, positive", first)
	}

	second, err := svc.Toggle(ctx, "user-1", "post-1", models.DirectionPositive)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if second.Direction != models.DirectionNone || second.PositiveCount != 4 || second.NegativeCount != 1 {
		t.Errorf("second toggle = %+v, want none with original counts", second)
	}
}

func TestService_Toggle_FlipIsSingleWrite(t *testing.T) {
	store := newMemoryStore()
	store.counts["post-1"] = Counts{Positive: 10, Negative: 2}
	svc := NewService(store, testutil.NullLogger())
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, "user-1", "post-1", models.DirectionPositive); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	writesBefore := store.writes

	result, err := svc.Toggle(ctx, "user-1", "post-1", models.DirectionNegative)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if store.writes-writesBefore != 1 {
		t.Errorf("flip took %d writes, want 1", store.writes-writesBefore)
	}
	if result.Direction != models.DirectionNegative || result.PositiveCount != 10 || result.NegativeCount != 3 {
		t.Errorf("flip result = %+v, want negative 10/3", result)
	}
}

func TestService_Toggle_ConcurrentDoubleClick(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testutil.NullLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Toggle(ctx, "user-1", "post-1", models.DirectionPositive)
		}()
	}
	wg.Wait()

	if c := store.counts["post-1"]; c.Positive != 0 || c.Negative != 0 {
		t.Errorf("double click counts = %+v, want zero", c)
	}
}

func TestService_UserDirections(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testutil.NullLogger())
	ctx := context.Background()

	svc.Toggle(ctx, "user-1", "a", models.DirectionPositive)
	svc.Toggle(ctx, "user-1", "b", models.DirectionNegative)

	got, err := svc.UserDirections(ctx, "user-1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("UserDirections() error = %v", err)
	}
	if got["a"] != models.DirectionPositive || got["b"] != models.DirectionNegative {
		t.Errorf("UserDirections() = %v", got)
	}
	if _, ok := got["c"]; ok {
		t.Error("posts without interaction should be absent")
	}

	anon, _ := svc.UserDirections(ctx, "", []string{"a"})
	if len(anon) != 0 {
		t.Errorf("anonymous directions = %v, want empty", anon)
	}
}
