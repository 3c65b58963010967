package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

const epsilon = 1e-9

func TestScore_Vectors(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		positive int
		negative int
		age      float64
		want     float64
	}{
		{"ten up, brand new", 10, 0, 0, 1},
		{"ten down, brand new", 0, 10, 0, -1},
		{"no votes, brand new", 0, 0, 0, 0},
		{"single vote rounds to zero order", 1, 0, 0, 0},
		{"hundred up, brand new", 100, 0, 0, 2},
		{"ten up, 100h", 10, 0, 100, 1 - 100/math.Pow(102, 1.5)},
		{"balanced, 2h", 5, 5, 2, -2 / math.Pow(4, 1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Score(tt.positive, tt.negative, tt.age)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Score(%d, %d, %v) = %v, want %v", tt.positive, tt.negative, tt.age, got, tt.want)
			}
		})
	}
}

func TestScore_OrderingVector(t *testing.T) {
	p := DefaultPolicy()

	fresh := p.Score(10, 0, 0)
	old := p.Score(10, 0, 100)
	negative := p.Score(0, 10, 0)

	if !(fresh > old) {
		t.Errorf("expected score(10,0,0h)=%v > score(10,0,100h)=%v", fresh, old)
	}
	if !(old > negative) {
		t.Errorf("expected score(10,0,100h)=%v > score(0,10,0h)=%v", old, negative)
	}
}

func TestScore_NonDecreasingInNet(t *testing.T) {
	p := DefaultPolicy()

	for _, age := range []float64{0, 1, 12, 48, 500} {
		prev := math.Inf(-1)
		for net := -50; net <= 50; net++ {
			positive, negative := 0, 0
			if net > 0 {
				positive = net
			} else {
				negative = -net
			}
			got := p.Score(positive, negative, age)
			if got < prev-epsilon {
				t.Fatalf("age %v: score decreased at net=%d (%v < %v)", age, net, got, prev)
			}
			prev = got
		}
	}
}

func TestScore_NonIncreasingInAgeWithinPeak(t *testing.T) {
	p := DefaultPolicy()
	peak := p.Offset / (p.Exponent - 1)

	prev := math.Inf(1)
	for age := 0.0; age <= peak; age += 0.25 {
		got := p.Score(10, 2, age)
		if got > prev+epsilon {
			t.Fatalf("score increased at age %v (%v > %v)", age, got, prev)
		}
		prev = got
	}
}

func TestScore_Deterministic(t *testing.T) {
	p := DefaultPolicy()
	a := p.Score(42, 7, 13.5)
	b := p.Score(42, 7, 13.5)
	if a != b {
		t.Errorf("Score is not deterministic: %v != %v", a, b)
	}
}

func TestScore_NegativeAgeClamped(t *testing.T) {
	p := DefaultPolicy()
	if got, want := p.Score(10, 0, -5), p.Score(10, 0, 0); got != want {
		t.Errorf("Score with negative age = %v, want %v", got, want)
	}
}

func TestPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var p Policy
	if got, want := p.Score(3, 1, 7), DefaultPolicy().Score(3, 1, 7); got != want {
		t.Errorf("zero Policy score = %v, want %v", got, want)
	}
}

func TestPolicy_CustomConstants(t *testing.T) {
	p := Policy{Offset: 1, Exponent: 2}
	want := 1 - 3/math.Pow(4, 2)
	if got := p.Score(10, 0, 3); math.Abs(got-want) > epsilon {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestAgeHours(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	if got := AgeHours(now.Add(-90*time.Minute), now); got != 1.5 {
		t.Errorf("AgeHours = %v, want 1.5", got)
	}
	if got := AgeHours(now.Add(time.Hour), now); got != 0 {
		t.Errorf("AgeHours for future timestamp = %v, want 0", got)
	}
}

func TestHotAndImpactScoreAgree(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()
	created := now.Add(-3 * time.Hour)

	if p.HotScore(8, 3, created, now) != p.ImpactScore(8, 3, created, now) {
		t.Error("HotScore and ImpactScore should share a formula")
	}
}

func TestSortByHot(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	posts := []models.Post{
		{ID: "disliked", PositiveCount: 0, NegativeCount: 10, CreatedAt: now},
		{ID: "old-popular", PositiveCount: 10, CreatedAt: now.Add(-100 * time.Hour)},
		{ID: "fresh-popular", PositiveCount: 10, CreatedAt: now},
		{ID: "insight", Variant: models.PostVariantInsight, PositiveCount: 100, CreatedAt: now.Add(-time.Hour)},
	}

	p.SortByHot(posts, now)

	want := []string{"insight", "fresh-popular", "old-popular", "disliked"}
	for i, id := range want {
		if posts[i].ID != id {
			t.Fatalf("posts[%d] = %s, want %s (order %v)", i, posts[i].ID, id, ids(posts))
		}
	}
	if posts[0].Score == 0 {
		t.Error("SortByHot should fill Score")
	}
}

func TestSortByNew(t *testing.T) {
	p := DefaultPolicy()
	now := time.Now()

	posts := []models.Post{
		{ID: "a", PositiveCount: 50, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "b", CreatedAt: now},
		{ID: "c", CreatedAt: now.Add(-time.Hour)},
	}

	p.SortByNew(posts, now)

	if got := ids(posts); got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Errorf("SortByNew order = %v, want [b c a]", got)
	}
}

func ids(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
