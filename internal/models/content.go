package models

import "time"

// NewsArticle is a row of news_articles. URL is the dedup key.
type NewsArticle struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Paper is a row of research_papers. ArxivID is the dedup key.
type Paper struct {
	ArxivID       string    `json:"arxivId"`
	Title         string    `json:"title"`
	Authors       string    `json:"authors"`
	Abstract      string    `json:"abstract,omitempty"`
	PDFURL        string    `json:"pdfUrl"`
	Category      string    `json:"category,omitempty"`
	PublishedDate time.Time `json:"publishedDate"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AIModel is a row of ai_models. HubID is the dedup key.
type AIModel struct {
	HubID       string    `json:"hubId"`
	Name        string    `json:"name"`
	Provider    string    `json:"provider"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	PipelineTag string    `json:"pipelineTag,omitempty"`
	Tags        []string  `json:"tags"`
	Downloads   int64     `json:"downloads"`
	Likes       int64     `json:"likes"`
	DownloadURL string    `json:"downloadUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContentQuery filters a single content table
type ContentQuery struct {
	Search string
	Limit  int
}

// SourceInfo describes one configured ingestion source
type SourceInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Kind     FeedType `json:"kind"`
	Category string   `json:"category,omitempty"`
	Enabled  bool     `json:"enabled"`
}
