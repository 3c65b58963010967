package models

import (
	"strings"
	"time"
)

// PostVariant selects what a post's two counters mean
type PostVariant string

const (
	// PostVariantVote counts upvotes and downvotes
	PostVariantVote PostVariant = "vote"
	// PostVariantInsight counts insights and challenges
	PostVariantInsight PostVariant = "insight"
)

// MemberRole is a user's role inside a community
type MemberRole string

const (
	MemberRoleMember    MemberRole = "member"
	MemberRoleModerator MemberRole = "moderator"
	MemberRoleAdmin     MemberRole = "admin"
)

// CanModerate reports whether the role may remove other members' posts
func (r MemberRole) CanModerate() bool {
	return r == MemberRoleModerator || r == MemberRoleAdmin
}

// Community groups posts
type Community struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Post is a user-authored community post
type Post struct {
	ID            string      `json:"id"`
	CommunityID   string      `json:"communityId"`
	CommunitySlug string      `json:"communitySlug,omitempty"`
	AuthorID      string      `json:"authorId"`
	AuthorName    string      `json:"authorName,omitempty"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Variant       PostVariant `json:"variant"`
	PositiveCount int         `json:"positiveCount"`
	NegativeCount int         `json:"negativeCount"`
	Score         float64     `json:"score"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// CreatePostParams holds the user-provided fields of a new post
type CreatePostParams struct {
	CommunitySlug string      `json:"communitySlug"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Variant       PostVariant `json:"variant"`
	AuthorName    string      `json:"-"`
}

// PostListParams filters and orders community posts
type PostListParams struct {
	CommunitySlug string
	Sort          string // "hot" (default) or "new"
	Search        string
	Limit         int
}

// Direction is a user's reaction to a post
type Direction int

const (
	DirectionNone     Direction = 0
	DirectionPositive Direction = 1
	DirectionNegative Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionPositive:
		return "positive"
	case DirectionNegative:
		return "negative"
	default:
		return "none"
	}
}

// ParseDirection maps request values to a selectable direction. Both
// variants' vocabularies are accepted.
func ParseDirection(value string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "positive", "up", "upvote", "insight":
		return DirectionPositive, true
	case "negative", "down", "downvote", "challenge":
		return DirectionNegative, true
	default:
		return DirectionNone, false
	}
}

// InteractionResult is the confirmed state after a toggle
type InteractionResult struct {
	PostID        string    `json:"postId"`
	Direction     Direction `json:"direction"`
	State         string    `json:"state"`
	PositiveCount int       `json:"positiveCount"`
	NegativeCount int       `json:"negativeCount"`
}
