package interaction

import (
	"context"
	"strings"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/auth"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// Store persists interactions. Toggle must apply Transition and the counter
// deltas as one conditional write keyed on (postID, userID).
type Store interface {
	Toggle(ctx context.Context, postID, userID string, selected models.Direction) (*models.InteractionResult, error)
	UserDirections(ctx context.Context, userID string, postIDs []string) (map[string]models.Direction, error)
}

// Service handles interaction requests
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService creates a new interaction service
func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Toggle selects a direction on a post for the user
func (s *Service) Toggle(ctx context.Context, userID, postID string, selected models.Direction) (*models.InteractionResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, auth.ErrNotAuthenticated
	}
	if selected != models.DirectionPositive && selected != models.DirectionNegative {
		return nil, ErrInvalidDirection
	}

	result, err := s.store.Toggle(ctx, postID, userID, selected)
	if err != nil {
		return nil, err
	}
	result.State = result.Direction.String()

	s.logger.Debug("Interaction toggled", logging.WithFields(map[string]interface{}{
		"post_id":   postID,
		"user_id":   userID,
		"selected":  selected.String(),
		"direction": result.State,
	}))

	return result, nil
}

// UserDirections returns the user's current direction for each post they
// have reacted to. Anonymous users get an empty map.
func (s *Service) UserDirections(ctx context.Context, userID string, postIDs []string) (map[string]models.Direction, error) {
	if userID == "" || len(postIDs) == 0 {
		return map[string]models.Direction{}, nil
	}
	return s.store.UserDirections(ctx, userID, postIDs)
}
