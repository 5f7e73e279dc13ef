package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pompin/gameserver/pkg/repositories/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database behind connStr. The caller
// is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func (r *PostgresRepository) Close(_ context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	q := `
	INSERT INTO users (user_id, email, name, guest, created_at)
	VALUES ($1, $2, $3, $4, $5);
	`
	_, err := r.pool.Exec(ctx, q, user.ID, user.Email, user.Name, user.Guest, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, &ErrEmailExists{}
		}
		return models.User{}, fmt.Errorf("failed to insert user: %v", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	q := `
	SELECT user_id, email, name, guest, created_at FROM users WHERE user_id = $1;
	`
	var user models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&user.ID, &user.Email, &user.Name, &user.Guest, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.User{}, &ErrNotFound{}
		}
		return models.User{}, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	q := `
	SELECT user_id, email, name, guest, created_at FROM users WHERE email = $1;
	`
	var user models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&user.ID, &user.Email, &user.Name, &user.Guest, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.User{}, &ErrNotFound{}
		}
		return models.User{}, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *PostgresRepository) SaveMatchResult(ctx context.Context, userID string, result models.MatchResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	q := `
	INSERT INTO match_results (result_id, user_id, session_id, role, score, opponent, character, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.pool.Exec(ctx, q, result.ID, userID, result.SessionID, result.Role,
		result.Score, result.Opponent, result.Character, result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert match result: %v", err)
	}
	return nil
}

func (r *PostgresRepository) ListResults(ctx context.Context, userID string) ([]models.MatchResult, error) {
	q := `
	SELECT result_id, session_id, role, score, opponent, character, created_at
	FROM match_results WHERE user_id = $1 ORDER BY created_at;
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %v", err)
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		result := models.MatchResult{UserID: userID}
		if err := rows.Scan(&result.ID, &result.SessionID, &result.Role, &result.Score,
			&result.Opponent, &result.Character, &result.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %v", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *PostgresRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := `
	SELECT m.user_id, u.name, m.score, m.opponent, m.character, m.created_at
	FROM match_results m JOIN users u ON u.user_id = m.user_id
	ORDER BY m.score DESC, m.created_at ASC
	LIMIT $1;
	`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %v", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Name, &entry.Score,
			&entry.Opponent, &entry.Character, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
