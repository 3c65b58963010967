package mcp

import (
	"context"
	"encoding/json"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/community"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/feed"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/scheduler"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/workers"
)

// Handler exposes the feed and community read paths as MCP tools
type Handler struct {
	feed      *feed.Service
	community *community.Service
	runner    *workers.Runner
	scheduler *scheduler.Scheduler
	logger    *logging.Logger
}

// NewHandler creates a tool handler. A nil community service or runner
// hides the tools that need it.
func NewHandler(feedSvc *feed.Service, communitySvc *community.Service, runner *workers.Runner, sched *scheduler.Scheduler, logger *logging.Logger) *Handler {
	return &Handler{
		feed:      feedSvc,
		community: communitySvc,
		runner:    runner,
		scheduler: sched,
		logger:    logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type GetFeedParams struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type GetPostsParams struct {
	Community string `json:"community"`
	Sort      string `json:"sort"`
	Limit     int    `json:"limit"`
}

type RunIngestionParams struct {
	Worker string `json:"worker"`
}

func (h *Handler) GetTools() []ToolDefinition {
	tools := []ToolDefinition{
		{
			Name:        "get_ai_feed",
			Description: "Get the latest AI news, arXiv papers and hub models merged into one stream, newest first.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"type": {
						"type": "string",
						"enum": ["news", "paper", "model"],
						"description": "Restrict the feed to one content kind"
					},
					"query": {
						"type": "string",
						"description": "Case-insensitive keyword matched against titles and descriptions"
					},
					"limit": {
						"type": "integer",
						"description": "Maximum number of items to return (default: 20)"
					}
				}
			}`),
		},
	}

	if h.community != nil {
		tools = append(tools, ToolDefinition{
			Name:        "get_community_posts",
			Description: "Get community posts ranked by hot score or by recency.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"community": {
						"type": "string",
						"description": "Community slug"
					},
					"sort": {
						"type": "string",
						"enum": ["hot", "new"]
					},
					"limit": {
						"type": "integer",
						"description": "Maximum number of posts (default: 20)"
					}
				}
			}`),
		})
	}

	if h.runner != nil {
		tools = append(tools,
			ToolDefinition{
				Name:        "get_ingestion_status",
				Description: "Show the ingestion schedule, the workers with their configured sources, and the last batch results.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			},
			ToolDefinition{
				Name:        "run_ingestion",
				Description: "Run all ingestion workers now, or a single worker by name.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"worker": {
							"type": "string",
							"enum": ["news", "papers", "models", "metrics"]
						}
					}
				}`),
			},
		)
	}

	return tools
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "get_ai_feed":
		return h.handleGetFeed(ctx, arguments)
	case "get_community_posts":
		if h.community != nil {
			return h.handleGetPosts(ctx, arguments)
		}
	case "get_ingestion_status":
		if h.runner != nil {
			return h.handleStatus(), nil
		}
	case "run_ingestion":
		if h.runner != nil {
			return h.handleRun(ctx, arguments)
		}
	}
	return nil, &ToolError{Message: "Unknown tool: " + name}
}

func decodeArgs(arguments json.RawMessage, dst interface{}) error {
	if len(arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, dst); err != nil {
		return &ToolError{Message: "Invalid arguments: " + err.Error()}
	}
	return nil
}

func (h *Handler) handleGetFeed(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params GetFeedParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	items, err := h.feed.GetFeedItems(ctx, params.Type, params.Query)
	if err != nil {
		return nil, &ToolError{Message: err.Error()}
	}
	if len(items) > params.Limit {
		items = items[:params.Limit]
	}
	return models.FeedResponse{Items: items, TotalCount: len(items)}, nil
}

func (h *Handler) handleGetPosts(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params GetPostsParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	posts, err := h.community.ListPosts(ctx, models.PostListParams{
		CommunitySlug: params.Community,
		Sort:          params.Sort,
		Limit:         params.Limit,
	})
	if err != nil {
		return nil, &ToolError{Message: err.Error()}
	}
	return map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	}, nil
}

func (h *Handler) handleStatus() interface{} {
	status := map[string]interface{}{
		"workers": h.runner.Names(),
		"sources": h.runner.Sources(),
	}
	if h.scheduler != nil {
		status["schedule"] = h.scheduler.Status()
	}
	return status
}

func (h *Handler) handleRun(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params RunIngestionParams
	if err := decodeArgs(arguments, &params); err != nil {
		return nil, err
	}

	if params.Worker == "" {
		settlements := h.runner.RunAll(ctx)
		if h.scheduler != nil {
			h.scheduler.Record(settlements)
		}
		return workers.Summarize(settlements), nil
	}

	settlement, err := h.runner.Run(ctx, params.Worker)
	if err != nil {
		return nil, &ToolError{Message: err.Error()}
	}
	return settlement, nil
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
