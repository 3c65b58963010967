package models

import "time"

// MetricsSnapshot summarizes content volume for the dashboard
type MetricsSnapshot struct {
	NewsCount       int64            `json:"newsCount"`
	PaperCount      int64            `json:"paperCount"`
	ModelCount      int64            `json:"modelCount"`
	PostCount       int64            `json:"postCount"`
	NewsLast24h     int64            `json:"newsLast24h"`
	PapersLast24h   int64            `json:"papersLast24h"`
	ModelCategories map[string]int64 `json:"modelCategories"`
	NewsCategories  map[string]int64 `json:"newsCategories"`
	ComputedAt      time.Time        `json:"computedAt"`
}

// MetricsResponse wraps a snapshot with where it came from
type MetricsResponse struct {
	Snapshot MetricsSnapshot `json:"snapshot"`
	Cached   bool            `json:"cached"`
}
