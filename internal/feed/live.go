package feed

import (
	"context"
	"sync"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// Live is an in-memory feed kept current by insert events. One Live exists
// per type filter.
type Live struct {
	filter models.FeedType
	limit  int
	logger *logging.Logger

	mu    sync.RWMutex
	items []models.FeedItem
	seen  map[string]struct{}
}

// NewLive seeds a live list from the merged feed
func NewLive(ctx context.Context, service *Service, filter string, logger *logging.Logger) (*Live, error) {
	feedType, ok := models.ParseFeedType(filter)
	if !ok {
		return nil, ErrInvalidFilter
	}
	seed, err := service.GetFeedItems(ctx, string(feedType), "")
	if err != nil {
		return nil, err
	}

	l := &Live{
		filter: feedType,
		limit:  service.TotalLimit(),
		logger: logger,
		seen:   make(map[string]struct{}, len(seed)),
	}
	l.items = make([]models.FeedItem, 0, len(seed))
	for _, item := range seed {
		l.items = append(l.items, item)
		l.seen[item.ID] = struct{}{}
	}
	return l, nil
}

// Filter is the type this list accepts; empty means all
func (l *Live) Filter() models.FeedType {
	return l.filter
}

// Items returns a copy of the current list
func (l *Live) Items() []models.FeedItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.FeedItem(nil), l.items...)
}

// Insert splices item at the head. It reports false when the item is
// filtered out or already present.
func (l *Live) Insert(item models.FeedItem) bool {
	if l.filter != "" && item.Type != l.filter {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[item.ID]; dup {
		return false
	}

	next := make([]models.FeedItem, 0, len(l.items)+1)
	next = append(next, item)
	next = append(next, l.items...)
	if len(next) > l.limit {
		for _, dropped := range next[l.limit:] {
			delete(l.seen, dropped.ID)
		}
		next = next[:l.limit]
	}
	l.items = next
	l.seen[item.ID] = struct{}{}
	return true
}

// Apply decodes one insert event and splices it in
func (l *Live) Apply(event database.InsertEvent) bool {
	item, err := ItemFromEvent(event.Table, event.Row)
	if err != nil {
		l.logger.Warn("Dropping insert event", logging.WithFields(map[string]interface{}{
			"table": event.Table,
			"error": err.Error(),
		}))
		return false
	}
	return l.Insert(item)
}

// Hub fans insert events out to one Live list per type filter
type Hub struct {
	service *Service
	logger  *logging.Logger

	mu    sync.Mutex
	lists map[models.FeedType]*Live
}

func NewHub(service *Service, logger *logging.Logger) *Hub {
	return &Hub{
		service: service,
		logger:  logger,
		lists:   make(map[models.FeedType]*Live),
	}
}

// List returns the live list for filter, seeding it on first use
func (h *Hub) List(ctx context.Context, filter string) (*Live, error) {
	feedType, ok := models.ParseFeedType(filter)
	if !ok {
		return nil, ErrInvalidFilter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.lists[feedType]; ok {
		return l, nil
	}
	l, err := NewLive(ctx, h.service, string(feedType), h.logger)
	if err != nil {
		return nil, err
	}
	h.lists[feedType] = l
	return l, nil
}

// Dispatch applies one event to every seeded list
func (h *Hub) Dispatch(event database.InsertEvent) {
	h.mu.Lock()
	lists := make([]*Live, 0, len(h.lists))
	for _, l := range h.lists {
		lists = append(lists, l)
	}
	h.mu.Unlock()

	for _, l := range lists {
		l.Apply(event)
	}
}

// Run consumes events until ctx is done or the channel closes. Each event
// also invalidates the merged feed cache.
func (h *Hub) Run(ctx context.Context, events <-chan database.InsertEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.service.Invalidate()
			h.Dispatch(event)
		}
	}
}
