// Package ranking scores community posts by net interactions and age.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// Policy holds the decay constants. With the defaults the age penalty
// a/(a+Offset)^Exponent peaks at a = Offset/(Exponent-1) hours.
type Policy struct {
	Offset   float64
	Exponent float64
}

// DefaultPolicy returns the production constants
func DefaultPolicy() Policy {
	return Policy{Offset: 2, Exponent: 1.5}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Offset <= 0 {
		p.Offset = def.Offset
	}
	if p.Exponent <= 0 {
		p.Exponent = def.Exponent
	}
	return p
}

// Score computes sign(net)*log10(max(|net|,1)) - age/(age+Offset)^Exponent
// for positive count p, negative count n and an age in hours.
func (p Policy) Score(positive, negative int, ageHours float64) float64 {
	p = p.normalized()
	if ageHours < 0 || math.IsNaN(ageHours) {
		ageHours = 0
	}

	net := positive - negative
	var sign float64
	switch {
	case net > 0:
		sign = 1
	case net < 0:
		sign = -1
	}

	magnitude := math.Abs(float64(net))
	if magnitude < 1 {
		magnitude = 1
	}
	order := math.Log10(magnitude)
	decay := math.Pow(ageHours+p.Offset, p.Exponent)

	return sign*order - ageHours/decay
}

// HotScore scores an upvote/downvote post created at createdAt
func (p Policy) HotScore(upvotes, downvotes int, createdAt, now time.Time) float64 {
	return p.Score(upvotes, downvotes, AgeHours(createdAt, now))
}

// ImpactScore scores an insight/challenge post created at createdAt
func (p Policy) ImpactScore(insights, challenges int, createdAt, now time.Time) float64 {
	return p.Score(insights, challenges, AgeHours(createdAt, now))
}

// AgeHours returns the non-negative age of createdAt at now, in hours
func AgeHours(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// ScorePost fills post.Score using the variant's scoring function
func (p Policy) ScorePost(post *models.Post, now time.Time) {
	if post.Variant == models.PostVariantInsight {
		post.Score = p.ImpactScore(post.PositiveCount, post.NegativeCount, post.CreatedAt, now)
		return
	}
	post.Score = p.HotScore(post.PositiveCount, post.NegativeCount, post.CreatedAt, now)
}

// SortByHot scores posts and orders them by descending score. Equal scores
// keep newer posts first.
func (p Policy) SortByHot(posts []models.Post, now time.Time) {
	for i := range posts {
		p.ScorePost(&posts[i], now)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Score != posts[j].Score {
			return posts[i].Score > posts[j].Score
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// SortByNew orders posts newest first and fills their scores
func (p Policy) SortByNew(posts []models.Post, now time.Time) {
	for i := range posts {
		p.ScorePost(&posts[i], now)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
