package repositories

import (
	"context"

	"github.com/pompin/gameserver/pkg/repositories/models"
)

// Repository is the result sink: durable storage for users and their match
// results. Session teardown hands results to it through the save worker and
// never blocks on it.
type Repository interface {
	Close(ctx context.Context) error
	// CreateUser stores a new user. A user.ID is assigned when empty.
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// SaveMatchResult appends one participant's result for one session.
	SaveMatchResult(ctx context.Context, userID string, result models.MatchResult) error
	ListResults(ctx context.Context, userID string) ([]models.MatchResult, error)
	// Leaderboard returns up to limit entries ordered by score descending.
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}
