package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pompin/gameserver/pkg/repositories/models"
)

// InMemoryRepository keeps users and results in process memory. Used in
// tests and when the server runs without a database.
type InMemoryRepository struct {
	lock    sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	results map[string][]models.MatchResult
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		results: make(map[string][]models.MatchResult),
	}
}

func (r *InMemoryRepository) Close(_ context.Context) error {
	return nil
}

func (r *InMemoryRepository) CreateUser(_ context.Context, user models.User) (models.User, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return models.User{}, &ErrEmailExists{}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *InMemoryRepository) GetUser(_ context.Context, id string) (models.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, &ErrNotFound{}
	}
	return user, nil
}

func (r *InMemoryRepository) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return models.User{}, &ErrNotFound{}
	}
	return r.users[id], nil
}

func (r *InMemoryRepository) SaveMatchResult(_ context.Context, userID string, result models.MatchResult) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.users[userID]; !ok {
		return &ErrNotFound{}
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.UserID = userID
	r.results[userID] = append(r.results[userID], result)
	return nil
}

func (r *InMemoryRepository) ListResults(_ context.Context, userID string) ([]models.MatchResult, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if _, ok := r.users[userID]; !ok {
		return nil, &ErrNotFound{}
	}
	results := make([]models.MatchResult, len(r.results[userID]))
	copy(results, r.results[userID])
	return results, nil
}

func (r *InMemoryRepository) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var entries []models.LeaderboardEntry
	for userID, results := range r.results {
		user := r.users[userID]
		for _, result := range results {
			entries = append(entries, models.LeaderboardEntry{
				UserID:    userID,
				Name:      user.Name,
				Score:     result.Score,
				Opponent:  result.Opponent,
				Character: result.Character,
				Timestamp: result.Timestamp,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
