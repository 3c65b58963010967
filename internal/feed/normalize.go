package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// NewsItem maps a news article onto the unified item shape
func NewsItem(a models.NewsArticle) models.FeedItem {
	return models.FeedItem{
		ID:          "news:" + a.URL,
		Type:        models.FeedTypeNews,
		Title:       a.Title,
		Subtitle:    a.Source,
		Description: a.Summary,
		URL:         a.URL,
		Category:    a.Category,
		Timestamp:   a.PublishedAt.UTC(),
	}
}

// PaperItem maps a research paper onto the unified item shape
func PaperItem(p models.Paper) models.FeedItem {
	return models.FeedItem{
		ID:          "paper:" + p.ArxivID,
		Type:        models.FeedTypePaper,
		Title:       p.Title,
		Subtitle:    p.Authors,
		Description: p.Abstract,
		URL:         p.PDFURL,
		Category:    p.Category,
		Timestamp:   p.PublishedDate.UTC(),
	}
}

// ModelItem maps a hub model onto the unified item shape
func ModelItem(m models.AIModel) models.FeedItem {
	return models.FeedItem{
		ID:          "model:" + m.HubID,
		Type:        models.FeedTypeModel,
		Title:       m.Name,
		Subtitle:    m.Provider,
		Description: m.Description,
		URL:         m.DownloadURL,
		Category:    m.Category,
		Timestamp:   m.CreatedAt.UTC(),
	}
}

type newsRow struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	PublishedAt eventTime `json:"published_at"`
}

type paperRow struct {
	ArxivID       string    `json:"arxiv_id"`
	Title         string    `json:"title"`
	Authors       string    `json:"authors"`
	Abstract      string    `json:"abstract"`
	PDFURL        string    `json:"pdf_url"`
	Category      string    `json:"category"`
	PublishedDate eventTime `json:"published_date"`
}

type modelRow struct {
	HubID       string    `json:"hub_id"`
	Name        string    `json:"name"`
	Provider    string    `json:"provider"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	DownloadURL string    `json:"download_url"`
	CreatedAt   eventTime `json:"created_at"`
}

// ItemFromEvent decodes an inserted row from the given content table
func ItemFromEvent(table string, row json.RawMessage) (models.FeedItem, error) {
	switch table {
	case "news_articles":
		var r newsRow
		if err := json.Unmarshal(row, &r); err != nil {
			return models.FeedItem{}, fmt.Errorf("decode news row: %w", err)
		}
		return NewsItem(models.NewsArticle{
			URL: r.URL, Title: r.Title, Summary: r.Summary, Source: r.Source,
			Category: r.Category, PublishedAt: time.Time(r.PublishedAt),
		}), nil
	case "research_papers":
		var r paperRow
		if err := json.Unmarshal(row, &r); err != nil {
			return models.FeedItem{}, fmt.Errorf("decode paper row: %w", err)
		}
		return PaperItem(models.Paper{
			ArxivID: r.ArxivID, Title: r.Title, Authors: r.Authors, Abstract: r.Abstract,
			PDFURL: r.PDFURL, Category: r.Category, PublishedDate: time.Time(r.PublishedDate),
		}), nil
	case "ai_models":
		var r modelRow
		if err := json.Unmarshal(row, &r); err != nil {
			return models.FeedItem{}, fmt.Errorf("decode model row: %w", err)
		}
		return ModelItem(models.AIModel{
			HubID: r.HubID, Name: r.Name, Provider: r.Provider, Description: r.Description,
			Category: r.Category, DownloadURL: r.DownloadURL, CreatedAt: time.Time(r.CreatedAt),
		}), nil
	default:
		return models.FeedItem{}, fmt.Errorf("unknown content table %q", table)
	}
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
}

// eventTime accepts both Go and Postgres JSON timestamp renderings. A missing
// or unparseable value becomes the receive time so every item stays sortable.
type eventTime time.Time

func (t *eventTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*t = eventTime(time.Now().UTC())
		return nil
	}
	for _, layout := range eventTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = eventTime(parsed)
			return nil
		}
	}
	*t = eventTime(time.Now().UTC())
	return nil
}
