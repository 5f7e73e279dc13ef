package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pompin/gameserver/pkg/repositories/models"
	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	user:<id>            user record (JSON)
//	user_email:<email>   email -> user id
//	results:<id>         list of match results (JSON)
//	leaderboard          sorted set of result ids scored by match score
//	result:<id>          leaderboard member payload (JSON LeaderboardEntry)
const (
	redisKeyUser      = "user:%s"
	redisKeyUserEmail = "user_email:%s"
	redisKeyResults   = "results:%s"
	redisKeyResult    = "result:%s"
	redisKeyBoard     = "leaderboard"
)

type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects to the redis instance behind url
// (e.g. redis://localhost:6379/0).
func NewRedisRepository(ctx context.Context, url string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %v", err)
	}
	return &RedisRepository{client: client}, nil
}

// NewRedisRepositoryWithClient wraps an existing client. Used in tests.
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Close(_ context.Context) error {
	return r.client.Close()
}

func (r *RedisRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	emailKey := fmt.Sprintf(redisKeyUserEmail, user.Email)
	ok, err := r.client.SetNX(ctx, emailKey, user.ID, 0).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to reserve email: %v", err)
	}
	if !ok {
		return models.User{}, &ErrEmailExists{}
	}

	b, err := json.Marshal(user)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to marshal user: %v", err)
	}
	if err := r.client.Set(ctx, fmt.Sprintf(redisKeyUser, user.ID), b, 0).Err(); err != nil {
		return models.User{}, fmt.Errorf("failed to store user: %v", err)
	}
	return user, nil
}

func (r *RedisRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	b, err := r.client.Get(ctx, fmt.Sprintf(redisKeyUser, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.User{}, &ErrNotFound{}
		}
		return models.User{}, fmt.Errorf("failed to get user: %v", err)
	}
	var user models.User
	if err := json.Unmarshal(b, &user); err != nil {
		return models.User{}, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return user, nil
}

func (r *RedisRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	id, err := r.client.Get(ctx, fmt.Sprintf(redisKeyUserEmail, email)).Result()
	if err != nil {
		if err == redis.Nil {
			return models.User{}, &ErrNotFound{}
		}
		return models.User{}, fmt.Errorf("failed to get user id for email: %v", err)
	}
	return r.GetUser(ctx, id)
}

func (r *RedisRepository) SaveMatchResult(ctx context.Context, userID string, result models.MatchResult) error {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.UserID = userID

	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal match result: %v", err)
	}
	if err := r.client.RPush(ctx, fmt.Sprintf(redisKeyResults, userID), b).Err(); err != nil {
		return fmt.Errorf("failed to append match result: %v", err)
	}

	entry := models.LeaderboardEntry{
		UserID:    userID,
		Name:      user.Name,
		Score:     result.Score,
		Opponent:  result.Opponent,
		Character: result.Character,
		Timestamp: result.Timestamp,
	}
	eb, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard entry: %v", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(redisKeyResult, result.ID), eb, 0)
	pipe.ZAdd(ctx, redisKeyBoard, redis.Z{Score: float64(result.Score), Member: result.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update leaderboard: %v", err)
	}
	return nil
}

func (r *RedisRepository) ListResults(ctx context.Context, userID string) ([]models.MatchResult, error) {
	if _, err := r.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	raw, err := r.client.LRange(ctx, fmt.Sprintf(redisKeyResults, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list match results: %v", err)
	}
	var results []models.MatchResult
	for _, item := range raw {
		var result models.MatchResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match result: %v", err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *RedisRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	ids, err := r.client.ZRevRange(ctx, redisKeyBoard, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range leaderboard: %v", err)
	}
	var entries []models.LeaderboardEntry
	for _, id := range ids {
		b, err := r.client.Get(ctx, fmt.Sprintf(redisKeyResult, id)).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to get leaderboard entry: %v", err)
		}
		var entry models.LeaderboardEntry
		if err := json.Unmarshal(b, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal leaderboard entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
