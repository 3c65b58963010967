package models

import (
	"strings"
	"time"
)

// FeedType identifies which content table a unified feed item came from
type FeedType string

const (
	FeedTypeNews  FeedType = "news"
	FeedTypePaper FeedType = "paper"
	FeedTypeModel FeedType = "model"
)

// ParseFeedType normalizes a filter value. The empty string means no filter
// and is reported as valid with an empty FeedType.
func ParseFeedType(value string) (FeedType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return "", true
	case "news":
		return FeedTypeNews, true
	case "paper", "papers":
		return FeedTypePaper, true
	case "model", "models":
		return FeedTypeModel, true
	default:
		return "", false
	}
}

// FeedItem is the normalized view of a news article, paper or model.
// It is derived on read and never stored.
type FeedItem struct {
	ID          string    `json:"id"`
	Type        FeedType  `json:"type"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Category    string    `json:"category,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FeedResponse is returned by the feed endpoints
type FeedResponse struct {
	Items       []FeedItem `json:"items"`
	TotalCount  int        `json:"totalCount"`
	GeneratedAt time.Time  `json:"generatedAt"`
}
